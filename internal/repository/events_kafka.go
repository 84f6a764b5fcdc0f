package repository

import (
	"context"

	"github.com/segmentio/kafka-go"

	"ShrimpCast/internal/domain/models"
	domrepo "ShrimpCast/internal/domain/repository"
	pkgkafka "ShrimpCast/pkg/kafka"
)

// Publisher is the part of pkg/kafka.Producer the event publisher uses.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}, headers ...kafka.Header) error
	Close() error
}

// KafkaEvents publishes forecast events and request replies.
type KafkaEvents struct {
	producer     Publisher
	eventsTopic  string
	repliesTopic string
}

func NewKafkaEvents(producer Publisher, eventsTopic, repliesTopic string) *KafkaEvents {
	return &KafkaEvents{producer: producer, eventsTopic: eventsTopic, repliesTopic: repliesTopic}
}

func (p *KafkaEvents) PublishForecast(ctx context.Context, evt models.ForecastEvent) error {
	return p.producer.Publish(ctx, p.eventsTopic, []byte(evt.ID), evt,
		kafka.Header{Key: "type", Value: []byte(evt.Type)})
}

// PublishReply keys by request id so replies of one request share a partition.
func (p *KafkaEvents) PublishReply(ctx context.Context, reply models.ForecastReply) error {
	var headers []kafka.Header
	if reply.RequestID != "" {
		headers = append(headers, kafka.Header{Key: "trace_id", Value: []byte(reply.RequestID)})
	}
	return p.producer.Publish(ctx, p.repliesTopic, []byte(reply.RequestID), reply, headers...)
}

func (p *KafkaEvents) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var (
	_ domrepo.EventPublisher = (*KafkaEvents)(nil)
	_ Publisher              = (*pkgkafka.Producer)(nil)
)

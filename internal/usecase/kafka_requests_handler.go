package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ShrimpCast/internal/domain/models"
	domrepo "ShrimpCast/internal/domain/repository"
	domsvc "ShrimpCast/internal/domain/service"
	pkgkafka "ShrimpCast/pkg/kafka"
	"ShrimpCast/pkg/logger"
)

// ForecastRequestHandler answers forecast requests arriving on Kafka. Input
// errors are answered with an error reply; anything else is returned so the
// consumer retries and finally dead-letters the message.
type ForecastRequestHandler struct {
	topic      string
	forecaster domsvc.Forecaster
	replies    domrepo.EventPublisher
	log        *logger.Logger
}

func NewForecastRequestHandler(topic string, f domsvc.Forecaster, replies domrepo.EventPublisher, log *logger.Logger) *ForecastRequestHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ForecastRequestHandler{topic: topic, forecaster: f, replies: replies, log: log}
}

func (h *ForecastRequestHandler) Topic() string { return h.topic }

// incoming message schema: ForecastRequest JSON with optional request_id
func (h *ForecastRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.ForecastRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return fmt.Errorf("decode forecast request: %w", err)
	}
	if req.RequestID == "" {
		req.RequestID = pkgkafka.TraceID(ctx)
	}

	res, err := h.forecaster.Forecast(ctx, &req, SourceKafka)
	reply := models.ForecastReply{RequestID: req.RequestID, Result: res}
	if err != nil {
		if !errors.Is(err, models.ErrInvalidInput) {
			return err
		}
		h.log.Debug("rejected forecast request", logger.String("request_id", req.RequestID), logger.Error(err))
		reply.Error = ReplyError(err)
	}

	if err := h.replies.PublishReply(ctx, reply); err != nil {
		return fmt.Errorf("publish reply: %w", err)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*ForecastRequestHandler)(nil)

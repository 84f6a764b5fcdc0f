package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type countingHandler struct {
	topic string
	fails int
	calls int
	trace string
}

func (h *countingHandler) Topic() string { return h.topic }

func (h *countingHandler) Handle(ctx context.Context, _ []byte) error {
	h.calls++
	h.trace = TraceID(ctx)
	if h.calls <= h.fails {
		return errors.New("transient")
	}
	return nil
}

func newTestConsumer(t *testing.T, retry int) *Consumer {
	t.Helper()
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}, "test"),
		WithConsumerRetry(retry, time.Millisecond, 2*time.Millisecond),
		WithConsumerRegisterer(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	return c
}

func TestProducerPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "gzip")

	require.NoError(t, p.Publish(context.Background(), "forecast.results", []byte("r-1"), map[string]int{"days": 3}))
	require.NoError(t, p.PublishMessage(context.Background(), "logs", "raw"))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "forecast.results", w.msgs[0].Topic)
	assert.Equal(t, []byte("r-1"), w.msgs[0].Key)
	assert.JSONEq(t, `{"days":3}`, string(w.msgs[0].Value))
	assert.Equal(t, "raw", string(w.msgs[1].Value))
}

func TestProducerWrapsWriteError(t *testing.T) {
	p := newProducer(&fakeWriter{err: errors.New("broker gone")}, "gzip")
	err := p.Publish(context.Background(), "t", nil, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker gone")
}

func TestConsumerRetriesThenSucceeds(t *testing.T) {
	c := newTestConsumer(t, 2)
	h := &countingHandler{topic: "requests", fails: 2}
	c.RegisterHandler(h)
	c.WithConsumerHook(TraceHook())

	c.process(&message{topic: "requests", data: []byte("{}"), km: kafka.Message{
		Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}},
	}})

	assert.Equal(t, 3, h.calls)
	assert.Equal(t, "abc", h.trace)
}

func TestConsumerSendsToDLQAfterRetries(t *testing.T) {
	c := newTestConsumer(t, 1)
	dlq := &fakeWriter{}
	c.dlq = dlq
	c.cfg.DLQTopic = "requests.dlq"
	h := &countingHandler{topic: "requests", fails: 10}
	c.RegisterHandler(h)

	var seen []error
	c.WithConsumerHook(HookFuncs{Err: func(_ context.Context, _ string, _ kafka.Message, _ []byte, err error) {
		seen = append(seen, err)
	}})

	c.process(&message{topic: "requests", data: []byte("bad"), km: kafka.Message{Key: []byte("k")}})

	assert.Equal(t, 2, h.calls)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "requests.dlq", dlq.msgs[0].Topic)
	assert.Equal(t, "bad", string(dlq.msgs[0].Value))
	assert.Equal(t, "source_topic", dlq.msgs[0].Headers[0].Key)
	assert.NotEmpty(t, seen)
}

func TestHookChainStopsOnBeforeErrorAndRecoversPanics(t *testing.T) {
	var afterOrder []string
	mk := func(name string) ConsumerHook {
		return HookFuncs{After: func(context.Context, string, kafka.Message, []byte, error) {
			afterOrder = append(afterOrder, name)
		}}
	}
	chain := NewHookChain(mk("a"), nil, mk("b"))
	chain.AfterHandle(context.Background(), "t", kafka.Message{}, nil, nil)
	assert.Equal(t, []string{"b", "a"}, afterOrder)

	panicky := HookFuncs{Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
		panic("boom")
	}}
	_, _, _, err := NewHookChain(panicky).BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var he *HookError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "ERR_PANIC", he.Code)
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 200*time.Millisecond, attempt)
		assert.GreaterOrEqual(t, d, 5*time.Millisecond)
		assert.LessOrEqual(t, d, 200*time.Millisecond)
	}
}

func TestStartRequiresHandlers(t *testing.T) {
	c := newTestConsumer(t, 0)
	assert.Error(t, c.Start())
}

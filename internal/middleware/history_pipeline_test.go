package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShrimpCast/internal/domain/models"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]models.ForecastRun
	fails   int
	closed  bool
}

func (b *batchRecorder) Init(context.Context) error { return nil }
func (b *batchRecorder) Store(ctx context.Context, r models.ForecastRun) error {
	return b.StoreBatch(ctx, []models.ForecastRun{r})
}
func (b *batchRecorder) StoreBatch(_ context.Context, runs []models.ForecastRun) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fails > 0 {
		b.fails--
		return errors.New("unavailable")
	}
	b.batches = append(b.batches, append([]models.ForecastRun(nil), runs...))
	return nil
}
func (b *batchRecorder) Recent(context.Context, time.Time, int) ([]models.ForecastRun, error) {
	return nil, nil
}
func (b *batchRecorder) Health(context.Context) error { return nil }
func (b *batchRecorder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *batchRecorder) stored() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, batch := range b.batches {
		n += len(batch)
	}
	return n
}

func run(id string) models.ForecastRun { return models.ForecastRun{ID: id} }

func TestPipelineFlushesFullBatches(t *testing.T) {
	rec := &batchRecorder{}
	p := NewHistoryPipeline(rec, nil, WithBatchSize(2), WithFlushInterval(time.Hour))
	p.Start(context.Background())

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, p.Store(context.Background(), run(id)))
	}
	assert.Eventually(t, func() bool { return rec.stored() == 4 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Close())
	assert.True(t, rec.closed)
}

func TestPipelineFlushesOnInterval(t *testing.T) {
	rec := &batchRecorder{}
	p := NewHistoryPipeline(rec, nil, WithBatchSize(100), WithFlushInterval(10*time.Millisecond))
	p.Start(context.Background())
	defer p.Close()

	require.NoError(t, p.Store(context.Background(), run("a")))
	assert.Eventually(t, func() bool { return rec.stored() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPipelineStopFlushesRemainder(t *testing.T) {
	rec := &batchRecorder{}
	p := NewHistoryPipeline(rec, nil, WithBatchSize(100), WithFlushInterval(time.Hour))
	p.Start(context.Background())

	require.NoError(t, p.Store(context.Background(), run("a")))
	require.NoError(t, p.Store(context.Background(), run("b")))
	require.NoError(t, p.Stop(context.Background()))
	assert.Equal(t, 2, rec.stored())
}

func TestPipelineRetriesAfterFailure(t *testing.T) {
	rec := &batchRecorder{fails: 2}
	p := NewHistoryPipeline(rec, nil, WithBatchSize(1), WithFlushInterval(10*time.Millisecond))
	p.Start(context.Background())
	defer p.Close()

	require.NoError(t, p.Store(context.Background(), run("a")))
	assert.Eventually(t, func() bool { return rec.stored() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestPipelineBufferFull(t *testing.T) {
	p := NewHistoryPipeline(&batchRecorder{}, nil, WithBufferSize(1))
	require.NoError(t, p.Store(context.Background(), run("a")))
	require.ErrorIs(t, p.Store(context.Background(), run("b")), ErrBufferFull)
}

package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"ShrimpCast/internal/domain/models"
	domrepo "ShrimpCast/internal/domain/repository"
	applogger "ShrimpCast/pkg/logger"
)

var ErrBufferFull = errors.New("history buffer full")

// BatchHistory is a history store that accepts many runs per write.
type BatchHistory interface {
	domrepo.ForecastHistory
	StoreBatch(ctx context.Context, runs []models.ForecastRun) error
}

// HistoryPipeline sits between the forecaster and the history store. Store
// only enqueues; a background loop writes batches and keeps them buffered
// while the store is unavailable.
type HistoryPipeline struct {
	store   BatchHistory
	metrics domrepo.Metrics
	log     *applogger.Logger

	batchSize  int
	bufSize    int
	flushEvery time.Duration

	bufCh   chan models.ForecastRun
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type PipelineOption func(*HistoryPipeline)

// WithBatchSize sets the number of runs written per insert.
func WithBatchSize(n int) PipelineOption {
	return func(p *HistoryPipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithBufferSize sets how many runs may wait for the store.
func WithBufferSize(n int) PipelineOption {
	return func(p *HistoryPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithFlushInterval sets the maximum time a run waits before being written.
func WithFlushInterval(d time.Duration) PipelineOption {
	return func(p *HistoryPipeline) {
		if d > 0 {
			p.flushEvery = d
		}
	}
}

func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *HistoryPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func NewHistoryPipeline(store BatchHistory, metrics domrepo.Metrics, opts ...PipelineOption) *HistoryPipeline {
	p := &HistoryPipeline{
		store:      store,
		metrics:    metrics,
		log:        applogger.Nop(),
		batchSize:  100,
		bufSize:    1000,
		flushEvery: 2 * time.Second,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.ForecastRun, p.bufSize)
	return p
}

// Start launches the background writer. ctx bounds every store call.
func (p *HistoryPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.loop(ctx)
}

func (p *HistoryPipeline) loop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.flushEvery)
	defer ticker.Stop()

	batch := make([]models.ForecastRun, 0, p.batchSize)
	backoff := time.Duration(0)
	var retryAt time.Time

	flush := func() {
		if len(batch) == 0 || time.Now().Before(retryAt) {
			return
		}
		if err := p.store.StoreBatch(ctx, batch); err != nil {
			// exponential backoff with cap
			switch {
			case backoff == 0:
				backoff = 50 * time.Millisecond
			case backoff < 2*time.Second:
				backoff *= 2
			}
			retryAt = time.Now().Add(backoff)
			p.recordError("history_flush")
			p.log.Warn("history flush failed", applogger.Int("pending", len(batch)), applogger.Error(err))
			if over := len(batch) - p.bufSize; over > 0 {
				batch = append(batch[:0], batch[over:]...)
				p.recordError("history_drop")
			}
			return
		}
		backoff, retryAt = 0, time.Time{}
		batch = batch[:0]
	}

	for {
		select {
		case <-p.stopCh:
			for {
				select {
				case r := <-p.bufCh:
					batch = append(batch, r)
				default:
					retryAt = time.Time{}
					flush()
					return
				}
			}
		case <-ctx.Done():
			return
		case r := <-p.bufCh:
			batch = append(batch, r)
			if len(batch) >= p.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Store enqueues run without blocking.
func (p *HistoryPipeline) Store(_ context.Context, run models.ForecastRun) error {
	select {
	case p.bufCh <- run:
		return nil
	default:
		p.recordError("history_buffer_full")
		return ErrBufferFull
	}
}

// Stop flushes what is buffered and ends the background writer.
func (p *HistoryPipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	p.mu.Unlock()

	close(p.stopCh)
	select {
	case <-p.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *HistoryPipeline) Init(ctx context.Context) error { return p.store.Init(ctx) }

func (p *HistoryPipeline) Recent(ctx context.Context, since time.Time, limit int) ([]models.ForecastRun, error) {
	return p.store.Recent(ctx, since, limit)
}

func (p *HistoryPipeline) Health(ctx context.Context) error { return p.store.Health(ctx) }

func (p *HistoryPipeline) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stopErr := p.Stop(ctx)
	return errors.Join(stopErr, p.store.Close())
}

func (p *HistoryPipeline) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}

var _ domrepo.ForecastHistory = (*HistoryPipeline)(nil)

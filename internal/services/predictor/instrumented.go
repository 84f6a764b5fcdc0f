package predictor

import (
	"context"
	"fmt"
	"time"

	"ShrimpCast/internal/domain/models"
	"ShrimpCast/internal/domain/repository"
	"ShrimpCast/internal/domain/service"
	"ShrimpCast/pkg/logger"
)

// Instrumented records latency and failures of another predictor and checks
// that it returned one value per row.
type Instrumented struct {
	next    service.Predictor
	metrics repository.Metrics
	log     *logger.Logger
}

func Instrument(next service.Predictor, m repository.Metrics, log *logger.Logger) *Instrumented {
	if log == nil {
		log = logger.Nop()
	}
	info := next.Info()
	return &Instrumented{
		next:    next,
		metrics: m,
		log:     log.With(logger.String("model", info.Name), logger.String("role", info.Role)),
	}
}

func (p *Instrumented) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	start := time.Now()
	out, err := p.next.Predict(ctx, rows)
	if err == nil && len(out) != len(rows) {
		err = fmt.Errorf("%w: got %d predictions for %d rows", models.ErrPredictionLength, len(out), len(rows))
	}
	elapsed := time.Since(start)
	if p.metrics != nil {
		p.metrics.RecordPredict(p.next.Info().Name, len(rows), elapsed.Seconds(), err)
	}
	if err != nil {
		p.log.Error("predict failed", logger.Int("rows", len(rows)), logger.Error(err))
		return nil, err
	}
	p.log.Debug("predict", logger.Int("rows", len(rows)), logger.Duration("took_ms", elapsed))
	return out, nil
}

func (p *Instrumented) Info() models.ModelInfo { return p.next.Info() }

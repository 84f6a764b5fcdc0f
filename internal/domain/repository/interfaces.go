package repository

import (
	"context"
	"time"

	"ShrimpCast/internal/domain/models"
)

// ForecastHistory stores one summary row per forecast run.
type ForecastHistory interface {
	Init(ctx context.Context) error // ensure tables
	Store(ctx context.Context, run models.ForecastRun) error
	Recent(ctx context.Context, since time.Time, limit int) ([]models.ForecastRun, error)
	Health(ctx context.Context) error
	Close() error
}

// EventPublisher announces computed forecasts and request replies.
type EventPublisher interface {
	PublishForecast(ctx context.Context, evt models.ForecastEvent) error
	PublishReply(ctx context.Context, reply models.ForecastReply) error
	Close() error
}

type Metrics interface {
	RecordForecast(source, outcome string, days int, seconds float64)
	RecordPredict(model string, rows int, seconds float64, err error)
	RecordCache(hit bool)
	RecordRevenue(currency string, revenue float64)
	RecordError(kind string)
}

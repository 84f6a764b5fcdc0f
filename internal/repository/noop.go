package repository

import (
	"context"
	"time"

	"ShrimpCast/internal/domain/models"
	domrepo "ShrimpCast/internal/domain/repository"
)

// NoopHistory stores nothing and lists nothing. Handlers and use cases
// accept it where a ForecastHistory is needed without a ClickHouse table;
// the DI layer leaves history nil when it is disabled.
type NoopHistory struct{}

func (NoopHistory) Init(context.Context) error                      { return nil }
func (NoopHistory) Store(context.Context, models.ForecastRun) error { return nil }
func (NoopHistory) Health(context.Context) error                    { return nil }
func (NoopHistory) Close() error                                    { return nil }
func (NoopHistory) Recent(context.Context, time.Time, int) ([]models.ForecastRun, error) {
	return []models.ForecastRun{}, nil
}

var _ domrepo.ForecastHistory = NoopHistory{}

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"ShrimpCast/internal/domain/models"
	domrepo "ShrimpCast/internal/domain/repository"
	domsvc "ShrimpCast/internal/domain/service"
	"ShrimpCast/internal/services/charts"
	"ShrimpCast/internal/services/features"
	"ShrimpCast/internal/services/forecast"
	"ShrimpCast/pkg/cache"
	"ShrimpCast/pkg/logger"
)

const (
	SourceHTTP      = "http"
	SourceWebSocket = "websocket"
	SourceKafka     = "kafka"
	SourceDirect    = "direct"

	sideEffectTimeout = 2 * time.Second
	cacheKeyPrefix    = "forecast"
)

type ForecasterConfig struct {
	ExchangeRate   float64
	Currency       string
	MaxHorizonDays int
	Defaults       models.ParameterSet
	CacheTTL       time.Duration
}

type ForecasterOption func(*Forecaster)

func WithCache(c cache.Service) ForecasterOption { return func(f *Forecaster) { f.cache = c } }

func WithHistory(h domrepo.ForecastHistory) ForecasterOption {
	return func(f *Forecaster) { f.history = h }
}

func WithEvents(p domrepo.EventPublisher) ForecasterOption {
	return func(f *Forecaster) { f.events = p }
}

func WithMetrics(m domrepo.Metrics) ForecasterOption { return func(f *Forecaster) { f.metrics = m } }

func WithLogger(l *logger.Logger) ForecasterOption { return func(f *Forecaster) { f.log = l } }

func WithClock(now func() time.Time) ForecasterOption { return func(f *Forecaster) { f.now = now } }

// Forecaster runs the prediction pipeline: features, both models,
// aggregation and presentation. Cache, history and events are optional and
// their failures never fail a forecast.
type Forecaster struct {
	cfg      ForecasterConfig
	survival domsvc.Predictor
	abw      domsvc.Predictor

	cache   cache.Service
	history domrepo.ForecastHistory
	events  domrepo.EventPublisher
	metrics domrepo.Metrics
	log     *logger.Logger
	now     func() time.Time
}

func NewForecaster(cfg ForecasterConfig, survival, abw domsvc.Predictor, opts ...ForecasterOption) *Forecaster {
	f := &Forecaster{cfg: cfg, survival: survival, abw: abw, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = logger.Nop()
	}
	if f.cfg.Currency == "" {
		f.cfg.Currency = "IDR"
	}
	return f
}

func (f *Forecaster) Defaults() models.ParameterSet { return f.cfg.Defaults }

func (f *Forecaster) Models() []models.ModelInfo {
	return []models.ModelInfo{f.survival.Info(), f.abw.Info()}
}

// Resolve fills defaults and applies the domain rules.
func (f *Forecaster) Resolve(req *models.ForecastRequest) (models.ParameterSet, error) {
	p := req.Resolve(f.cfg.Defaults)
	if err := p.Validate(f.cfg.MaxHorizonDays); err != nil {
		return models.ParameterSet{}, err
	}
	return p, nil
}

func (f *Forecaster) Forecast(ctx context.Context, req *models.ForecastRequest, source string) (*models.ForecastResult, error) {
	p, err := f.Resolve(req)
	if err != nil {
		f.record(source, 0, 0, err)
		return nil, err
	}
	var requestID string
	if req != nil {
		requestID = req.RequestID
	}
	return f.run(ctx, p, source, requestID)
}

func (f *Forecaster) ComputeForecast(ctx context.Context, params models.ParameterSet) (*models.ForecastResult, error) {
	if err := params.Validate(f.cfg.MaxHorizonDays); err != nil {
		f.record(SourceDirect, 0, 0, err)
		return nil, err
	}
	return f.run(ctx, params, SourceDirect, "")
}

func (f *Forecaster) run(ctx context.Context, p models.ParameterSet, source, requestID string) (*models.ForecastResult, error) {
	start := time.Now()
	key := f.cacheKey(p)

	res, hit := f.lookup(ctx, key)
	if !hit {
		var err error
		res, err = f.compute(ctx, p)
		if err != nil {
			f.record(source, p.DaysUntilHarvest, time.Since(start), err)
			f.log.Error("forecast failed",
				logger.String("source", source),
				logger.Int("days", p.DaysUntilHarvest),
				logger.Error(err))
			return nil, err
		}
		res.CacheKey = key
		f.store(ctx, key, res)
	}
	res.RequestID = requestID

	f.record(source, p.DaysUntilHarvest, time.Since(start), nil)
	if f.metrics != nil {
		f.metrics.RecordRevenue(res.Currency, res.FinalRevenue)
	}
	f.afterForecast(ctx, res, source)
	return res, nil
}

func (f *Forecaster) compute(ctx context.Context, p models.ParameterSet) (*models.ForecastResult, error) {
	days, err := features.Days(p.DaysUntilHarvest)
	if err != nil {
		return nil, err
	}

	survival, err := f.predict(ctx, f.survival, features.SurvivalRows(p, days))
	if err != nil {
		return nil, fmt.Errorf("survival rate: %w", err)
	}
	abw, err := f.predict(ctx, f.abw, features.ABWRows(p, days))
	if err != nil {
		return nil, fmt.Errorf("average body weight: %w", err)
	}

	series, err := forecast.Aggregate(abw, p.TotalShrimp, p.PricePerKg, f.cfg.ExchangeRate)
	if err != nil {
		return nil, err
	}

	return &models.ForecastResult{
		ID:                  uuid.NewString(),
		Days:                days,
		SurvivalRate:        survival,
		ABW:                 abw,
		DailyBiomassKg:      series.DailyBiomassKg,
		CumulativeBiomassKg: series.CumulativeBiomassKg,
		CumulativeRevenue:   series.CumulativeRevenue,
		FinalRevenue:        series.FinalRevenue,
		FinalBiomassKg:      series.FinalBiomassKg,
		Currency:            f.cfg.Currency,
		ExchangeRate:        f.cfg.ExchangeRate,
		Summary:             charts.Summary(p.DaysUntilHarvest, f.cfg.Currency, series.FinalRevenue),
		Charts:              charts.Build(days, survival, abw, series, f.cfg.Currency),
		Parameters:          p,
		Models:              f.Models(),
		ComputedAt:          f.now().UTC(),
	}, nil
}

func (f *Forecaster) predict(ctx context.Context, m domsvc.Predictor, rows [][]float64) ([]float64, error) {
	if len(rows) == 0 {
		return []float64{}, nil
	}
	out, err := m.Predict(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(out) != len(rows) {
		return nil, fmt.Errorf("%s: %w: got %d for %d rows", m.Info().Name, models.ErrPredictionLength, len(out), len(rows))
	}
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%s: %w: row %d is %v", m.Info().Name, models.ErrPredictionNotFinite, i, v)
		}
	}
	return out, nil
}

// cacheKey hashes everything the result depends on.
func (f *Forecaster) cacheKey(p models.ParameterSet) string {
	b, _ := json.Marshal(struct {
		Params       models.ParameterSet `json:"p"`
		Models       []models.ModelInfo  `json:"m"`
		ExchangeRate float64             `json:"x"`
		Currency     string              `json:"c"`
	}{p, f.Models(), f.cfg.ExchangeRate, f.cfg.Currency})
	return cache.HashKey(b)
}

func (f *Forecaster) lookup(ctx context.Context, key string) (*models.ForecastResult, bool) {
	if f.cache == nil {
		return nil, false
	}
	var res models.ForecastResult
	err := f.cache.Get(ctx, cache.GenerateKeyWithParams(cacheKeyPrefix, key), &res)
	if f.metrics != nil {
		f.metrics.RecordCache(err == nil)
	}
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			f.log.Warn("forecast cache read failed", logger.String("key", key), logger.Error(err))
		}
		return nil, false
	}
	res.Cached = true
	return &res, true
}

func (f *Forecaster) store(ctx context.Context, key string, res *models.ForecastResult) {
	if f.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := f.cache.Set(ctx, cache.GenerateKeyWithParams(cacheKeyPrefix, key), res, f.cfg.CacheTTL); err != nil {
		f.log.Warn("forecast cache write failed", logger.String("key", key), logger.Error(err))
	}
}

func (f *Forecaster) afterForecast(ctx context.Context, res *models.ForecastResult, source string) {
	if f.history == nil && f.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if f.history != nil {
		if err := f.history.Store(ctx, models.RunFromResult(res, source)); err != nil {
			f.log.Warn("forecast history write failed", logger.String("id", res.ID), logger.Error(err))
			f.recordError("history")
		}
	}
	if f.events != nil {
		evt := models.ForecastEvent{
			Type:         models.EventForecastComputed,
			ID:           res.ID,
			RequestID:    res.RequestID,
			Source:       source,
			Days:         len(res.Days),
			FinalRevenue: res.FinalRevenue,
			Currency:     res.Currency,
			Cached:       res.Cached,
			ComputedAt:   res.ComputedAt,
		}
		if err := f.events.PublishForecast(ctx, evt); err != nil {
			f.log.Warn("forecast event publish failed", logger.String("id", res.ID), logger.Error(err))
			f.recordError("event")
		}
	}
}

func (f *Forecaster) record(source string, days int, took time.Duration, err error) {
	if f.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = ErrorKind(err)
		f.metrics.RecordError(outcome)
	}
	f.metrics.RecordForecast(source, outcome, days, took.Seconds())
}

func (f *Forecaster) recordError(kind string) {
	if f.metrics != nil {
		f.metrics.RecordError(kind)
	}
}

// ErrorKind classifies a forecast error for metrics and replies.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, models.ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

var _ domsvc.Forecaster = (*Forecaster)(nil)

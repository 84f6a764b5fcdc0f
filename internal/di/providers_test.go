package di

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShrimpCast/internal/domain/models"
	"ShrimpCast/pkg/cache"
	"ShrimpCast/pkg/config"
	xhttp "ShrimpCast/pkg/http"
	applogger "ShrimpCast/pkg/logger"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Models.Survival = config.ModelSpec{Kind: "linear", Name: "survival_rate", Path: "../../models/survival_rate.json"}
	cfg.Models.ABW = config.ModelSpec{Kind: "linear", Name: "abw", Path: "../../models/abw.json"}
	return cfg
}

func TestDisabledInfrastructureIsNil(t *testing.T) {
	cfg := testConfig()
	log := applogger.Nop()

	producer, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	assert.Nil(t, producer)
	assert.Nil(t, ProvideEventPublisher(cfg, producer))

	client, err := ProvideClickHouseClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, client)

	p, err := ProvideHistoryPipeline(cfg, client, nil, log)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Nil(t, ProvideForecastHistory(p))

	consumer, err := ProvideKafkaConsumer(cfg, log, prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Nil(t, consumer)

	cfg.RateLimit.Enabled = false
	assert.Nil(t, ProvideLimiter(cfg))
}

func TestProvideCache(t *testing.T) {
	cfg := testConfig()

	c, err := ProvideCache(cfg)
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, c)
	require.NoError(t, c.Close())

	cfg.Cache.Enabled = false
	c, err = ProvideCache(cfg)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestProvideModelsFromShippedArtifacts(t *testing.T) {
	cfg := testConfig()
	m := ProvideMetrics(cfg, prometheus.NewRegistry())

	ms, err := ProvideModels(cfg, m, applogger.Nop())
	require.NoError(t, err)
	assert.Equal(t, 17, ms.Survival.Info().Features)
	assert.Equal(t, 3, ms.ABW.Info().Features)
}

func TestProvideModelsMissingArtifact(t *testing.T) {
	cfg := testConfig()
	cfg.Models.ABW.Path = "../../models/missing.json"

	_, err := ProvideModels(cfg, ProvideMetrics(cfg, prometheus.NewRegistry()), applogger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abw model")
}

func TestForecasterWithConstantModels(t *testing.T) {
	cfg := testConfig()
	cfg.Models.Survival = config.ModelSpec{Kind: "constant", Value: 90}
	cfg.Models.ABW = config.ModelSpec{Kind: "constant", Value: 20}
	log := applogger.Nop()
	m := ProvideMetrics(cfg, prometheus.NewRegistry())

	ms, err := ProvideModels(cfg, m, log)
	require.NoError(t, err)
	c, err := ProvideCache(cfg)
	require.NoError(t, err)
	f, err := ProvideForecaster(cfg, ms, c, nil, nil, m, log)
	require.NoError(t, err)

	p := f.Defaults()
	p.DaysUntilHarvest = 3
	res, err := f.ComputeForecast(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, res.CumulativeRevenue, 3)
	assert.InDelta(t, 5700, res.FinalBiomassKg, 1e-6)
	assert.InDelta(t, 5700*12*15000, res.FinalRevenue, 1e-3)
	assert.Equal(t, "IDR", res.Currency)

	again, err := f.ComputeForecast(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, again.Cached)
}

func TestProvideHandlersRegistersRoutes(t *testing.T) {
	cfg := testConfig()
	log := applogger.Nop()
	m := ProvideMetrics(cfg, prometheus.NewRegistry())
	ms, err := ProvideModels(cfg, m, log)
	require.NoError(t, err)
	f, err := ProvideForecaster(cfg, ms, nil, nil, nil, m, log)
	require.NoError(t, err)

	h, err := ProvideHandlers(cfg, f, nil, ProvideLimiter(cfg), log)
	require.NoError(t, err)

	e := xhttp.NewServer(h, log, xhttp.WithMetricsPath("")).Echo()
	paths := map[string]bool{}
	for _, r := range e.Routes() {
		paths[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{"GET /", "GET /health", "POST /api/forecast", "GET /api/forecast/export", "GET /ws/forecast"} {
		assert.True(t, paths[want], want)
	}
}

func TestProvideForecasterRejectsBadDefaults(t *testing.T) {
	cfg := testConfig()
	cfg.Forecast.Defaults.MorningPH = 15
	log := applogger.Nop()
	m := ProvideMetrics(cfg, prometheus.NewRegistry())
	ms, err := ProvideModels(cfg, m, log)
	require.NoError(t, err)

	_, err = ProvideForecaster(cfg, ms, nil, nil, nil, m, log)
	require.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Contains(t, err.Error(), "forecast defaults")
}

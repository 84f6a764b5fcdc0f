package di

import (
	"context"
	"fmt"
	"time"

	"ShrimpCast/internal/domain/models"
	"ShrimpCast/internal/domain/repository"
	domsvc "ShrimpCast/internal/domain/service"
	"ShrimpCast/internal/handler/api"
	"ShrimpCast/internal/handler/web"
	mid "ShrimpCast/internal/middleware"
	internalrepo "ShrimpCast/internal/repository"
	"ShrimpCast/internal/service/ratelimit"
	"ShrimpCast/internal/services/features"
	"ShrimpCast/internal/services/predictor"
	"ShrimpCast/internal/usecase"
	"ShrimpCast/pkg/cache"
	pkgch "ShrimpCast/pkg/clickhouse"
	"ShrimpCast/pkg/config"
	xhttp "ShrimpCast/pkg/http"
	pkgkafka "ShrimpCast/pkg/kafka"
	applogger "ShrimpCast/pkg/logger"
	"ShrimpCast/pkg/metrics"
	"ShrimpCast/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// Models holds the two loaded predictors.
type Models struct {
	Survival domsvc.Predictor
	ABW      domsvc.Predictor
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	k := cfg.Kafka
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithDelivery(k.RequiredAcks, k.Producer.MaxAttempts, k.Compression),
		pkgkafka.WithBatching(k.Producer.BatchSize, k.Producer.BatchBytes, k.Producer.Linger),
		pkgkafka.WithTimeouts(k.Producer.WriteTimeout, k.Producer.ReadTimeout),
		pkgkafka.WithAsync(k.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the process logger. With the collector enabled,
// repeated errors are aggregated and shipped to Kafka.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	log, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collector.Enabled && producer != nil {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.CountThreshold,
			Topic:          cfg.Log.Collector.Topic,
			Publisher:      producer,
			PublishTimeout: 5 * time.Second,
		})
	}
	return log.With(applogger.String("service", "shrimpcast"), applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry returns the registerer exposed on the metrics endpoint.
func ProvideRegistry() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config, reg prometheus.Registerer) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(reg)
}

// ProvideEventPublisher announces forecasts on Kafka. Nil when Kafka is off.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEvents(producer, cfg.Kafka.Topics.Events, cfg.Kafka.Topics.Results)
}

// ProvideClickHouseClient creates a ClickHouse client when history is on.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	ch := cfg.History.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithAddr(ch.Host, ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout, ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideHistoryPipeline wraps the ClickHouse store in a batching writer and
// ensures the schema exists.
func ProvideHistoryPipeline(cfg *config.Config, client *pkgch.Client, m repository.Metrics, log *applogger.Logger) (*mid.HistoryPipeline, error) {
	if client == nil {
		return nil, nil
	}
	store := internalrepo.NewCHHistory(client, cfg.History.ClickHouse.Table)
	store.SetLogger(log)
	p := mid.NewHistoryPipeline(store, m,
		mid.WithBatchSize(cfg.History.BatchSize),
		mid.WithBufferSize(cfg.History.BufferSize),
		mid.WithFlushInterval(cfg.History.FlushInterval),
		mid.WithPipelineLogger(log),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return p, nil
}

// ProvideForecastHistory exposes the pipeline as the history store.
func ProvideForecastHistory(p *mid.HistoryPipeline) repository.ForecastHistory {
	if p == nil {
		return nil
	}
	return p
}

// ProvideCache builds the forecast cache: in-process LRU, backed by Redis
// when configured.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	mem := cache.NewMemoryCache(
		cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
		cache.WithMemoryTTL(cfg.Cache.TTL),
	)
	if !cfg.Cache.Redis.Enabled {
		return mem, nil
	}
	r := cfg.Cache.Redis
	remote, err := cache.NewRedisCache(
		cache.WithRedisAddr(r.Host, r.Port),
		cache.WithRedisAuth(r.Password, r.DB),
		cache.WithRedisPool(10, 2),
		cache.WithRedisPrefix(r.Prefix),
	)
	if err != nil {
		_ = mem.Close()
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(mem, remote), nil
}

// ProvideModels loads both predictors and wraps them with metrics.
func ProvideModels(cfg *config.Config, m repository.Metrics, log *applogger.Logger) (Models, error) {
	survival, err := predictor.Load(predictor.RoleSurvival, cfg.Models.Survival, features.SurvivalColumns)
	if err != nil {
		return Models{}, fmt.Errorf("survival model: %w", err)
	}
	abw, err := predictor.Load(predictor.RoleABW, cfg.Models.ABW, features.ABWColumns)
	if err != nil {
		return Models{}, fmt.Errorf("abw model: %w", err)
	}
	for _, p := range []domsvc.Predictor{survival, abw} {
		info := p.Info()
		log.Info("model loaded",
			applogger.String("role", info.Role),
			applogger.String("name", info.Name),
			applogger.String("kind", info.Kind),
			applogger.Int("features", info.Features))
	}
	return Models{
		Survival: predictor.Instrument(survival, m, log),
		ABW:      predictor.Instrument(abw, m, log),
	}, nil
}

// ProvideForecaster creates the forecast use case.
func ProvideForecaster(
	cfg *config.Config,
	ms Models,
	c cache.Service,
	history repository.ForecastHistory,
	events repository.EventPublisher,
	m repository.Metrics,
	log *applogger.Logger,
) (*usecase.Forecaster, error) {
	defaults := models.ParameterSet(cfg.Forecast.Defaults)
	if err := defaults.Validate(cfg.Forecast.MaxHorizonDays); err != nil {
		return nil, fmt.Errorf("forecast defaults: %w", err)
	}
	return usecase.NewForecaster(usecase.ForecasterConfig{
		ExchangeRate:   cfg.Forecast.ExchangeRate,
		Currency:       cfg.Forecast.Currency,
		MaxHorizonDays: cfg.Forecast.MaxHorizonDays,
		Defaults:       defaults,
		CacheTTL:       cfg.Cache.TTL,
	}, ms.Survival, ms.ABW,
		usecase.WithCache(c),
		usecase.WithHistory(history),
		usecase.WithEvents(events),
		usecase.WithMetrics(m),
		usecase.WithLogger(log),
	), nil
}

// ProvideLimiter creates the per-client limiter, or nil when disabled.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
}

// ProvideHandlers assembles the API and dashboard routes.
func ProvideHandlers(
	cfg *config.Config,
	f *usecase.Forecaster,
	history repository.ForecastHistory,
	limiter *ratelimit.Limiter,
	log *applogger.Logger,
) (xhttp.Handler, error) {
	opts := []api.HandlerOption{api.WithHistory(history), api.WithRateLimit(limiter)}
	if cfg.WebSocket.Enabled {
		opts = append(opts, api.WithWebSocket(api.WSConfig{
			ReadLimit:      cfg.WebSocket.ReadLimit,
			PongWait:       cfg.WebSocket.PongWait,
			WriteWait:      cfg.WebSocket.WriteWait,
			AllowedOrigins: cfg.WebSocket.AllowedOrigins,
		}))
	}
	forecast := api.NewForecastHandler(f, api.Info{
		Name:           "ShrimpCast",
		Version:        config.Version,
		Environment:    cfg.Environment,
		Currency:       cfg.Forecast.Currency,
		ExchangeRate:   cfg.Forecast.ExchangeRate,
		MaxHorizonDays: cfg.Forecast.MaxHorizonDays,
	}, log, opts...)

	dash, err := web.NewDashboard(f.Defaults(), cfg.WebSocket.Enabled, log)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	return xhttp.Handlers{forecast, dash}, nil
}

// ProvideHTTPServer creates the echo server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, log *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h, log,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideKafkaConsumer creates the request consumer when enabled.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger, reg prometheus.Registerer) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers, c.GroupID),
		pkgkafka.WithConsumerWorkers(c.Workers, c.BufferSize),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
		pkgkafka.WithConsumerFetch(c.MinBytes, c.MaxBytes),
		pkgkafka.WithConsumerLogger(log),
		pkgkafka.WithConsumerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRequestHandler answers forecast requests read from Kafka.
func ProvideRequestHandler(
	cfg *config.Config,
	f *usecase.Forecaster,
	events repository.EventPublisher,
	log *applogger.Logger,
) pkgkafka.MessageHandler {
	if events == nil || !cfg.Kafka.Consumer.Enabled {
		return nil
	}
	return usecase.NewForecastRequestHandler(cfg.Kafka.Topics.Requests, f, events, log)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	history *mid.HistoryPipeline,
	limiter *ratelimit.Limiter,
	events repository.EventPublisher,
	c cache.Service,
) *server.App {
	app := server.New(cfg, log, srv, consumer, kh, history, limiter)
	if events != nil {
		app.OnClose("kafka producer", events)
	}
	if c != nil {
		app.OnClose("cache", c)
	}
	if history != nil {
		app.OnClose("history", history)
	}
	return app
}

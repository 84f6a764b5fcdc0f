package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ShrimpCast/internal/middleware"
	"ShrimpCast/internal/service/ratelimit"
	"ShrimpCast/pkg/config"
	xhttp "ShrimpCast/pkg/http"
	pkgkafka "ShrimpCast/pkg/kafka"
	applogger "ShrimpCast/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	history    *middleware.HistoryPipeline
	limiter    *ratelimit.Limiter
	closers    []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New creates a new App. consumer, kh, history and limiter may be nil.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	history *middleware.HistoryPipeline,
	limiter *ratelimit.Limiter,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		consumer:   consumer,
		kh:         kh,
		history:    history,
		limiter:    limiter,
	}
}

// OnClose registers a resource closed at shutdown, in reverse order.
func (a *App) OnClose(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	bg, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.history != nil {
		a.history.Start(bg)
		a.log.Info("forecast history pipeline started")
	}

	if a.limiter != nil {
		go a.sweepLimiter(bg)
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		a.consumer.WithConsumerHook(pkgkafka.TraceHook())
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) sweepLimiter(ctx context.Context) {
	idle := a.limiter.Idle()
	ticker := time.NewTicker(max(idle, time.Minute))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := a.limiter.Sweep(idle)
			a.log.Debug("rate limiter swept", applogger.Int("buckets", n))
		}
	}
}

// shutdown stops intake first, then drains and closes resources.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	if a.history != nil {
		if err := a.history.Stop(ctx); err != nil {
			a.log.Warn("history pipeline stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	// Flush aggregated error logs while the producer is still open.
	a.log.RemoveCollector()

	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}

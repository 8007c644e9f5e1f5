package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockDash/pkg/config"
	xhttp "StockDash/pkg/http"
	applogger "StockDash/pkg/logger"
)

// Scheduler is a background job runner started with the app.
type Scheduler interface {
	Start()
	Stop(ctx context.Context)
}

// Closer is an infrastructure client released on shutdown, in registration order.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	scheduler  Scheduler // nil when disabled
	closers    []Closer
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, httpServer *xhttp.Server, scheduler Scheduler, closers ...Closer) *App {
	return &App{
		cfg:        cfg,
		log:        l,
		httpServer: httpServer,
		scheduler:  scheduler,
		closers:    closers,
	}
}

// Logger returns the application logger.
func (a *App) Logger() *applogger.Logger { return a.log }

// Run starts the application and blocks until interrupted or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("stockdash started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("default_symbol", a.cfg.Dashboard.DefaultSymbol),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.scheduler != nil {
		a.scheduler.Stop(ctx)
	}

	// flush aggregated error logs while the producer is still open
	a.log.RemoveCollector()

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("component", c.Name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}

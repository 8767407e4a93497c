package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"FinCollect/internal/handler/ws"
	"FinCollect/internal/usecase"
	"FinCollect/pkg/config"
	xhttp "FinCollect/pkg/http"
	applogger "FinCollect/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	sched      *usecase.CollectionScheduler
	store      *usecase.LedgerStore
	hub        *ws.Hub
	handlers   []xhttp.Handler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	sched *usecase.CollectionScheduler,
	store *usecase.LedgerStore,
	hub *ws.Hub,
	handlers []xhttp.Handler,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		sched:    sched,
		store:    store,
		hub:      hub,
		handlers: handlers,
	}
}

// Run boots the collector and the HTTP server, then blocks until ctx is
// cancelled or an interrupt arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.boot(ctx); err != nil {
		return err
	}

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.handlers,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithRateLimit(a.cfg.Server.RatePerSecond, a.cfg.Server.RateBurst),
		xhttp.WithLogger(a.l),
	)
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// boot restores persisted ledgers and applies the configured start policy.
func (a *App) boot(ctx context.Context) error {
	if a.cfg.Store.RestoreOnBoot {
		if err := a.store.Restore(ctx); err != nil {
			a.l.Warn("ledger restore failed", applogger.Error(err))
		}
	}

	if a.cfg.Collector.StartOnBoot {
		if err := a.sched.Start(ctx); err != nil {
			a.l.Warn("collector start on boot failed", applogger.Error(err))
		}
	}
	if a.cfg.Collector.AutoMode {
		a.sched.SetAutoMode(true)
	}

	st := a.sched.Status()
	a.l.Info("collector ready",
		applogger.String("symbol", st.Symbol),
		applogger.String("market", string(st.Market)),
		applogger.String("state", string(st.State)),
		applogger.Bool("auto_mode", st.AutoMode),
	)
	return nil
}

// shutdown gracefully stops all services. Infrastructure clients are closed
// by the DI cleanup.
func (a *App) shutdown() error {
	a.l.Info("shutting down...")

	if err := a.sched.Close(); err != nil {
		a.l.Warn("collector stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}
	if err := a.hub.Close(); err != nil {
		a.l.Warn("websocket hub close error", applogger.Error(err))
	}

	a.l.Info("shutdown complete")
	return nil
}

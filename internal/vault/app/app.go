package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aussiebroadwan/domainvault/internal/vault/coordinator"
	"github.com/aussiebroadwan/domainvault/internal/vault/datemath"
	"github.com/aussiebroadwan/domainvault/internal/vault/derive"
	"github.com/aussiebroadwan/domainvault/internal/vault/export"
	vaulthttp "github.com/aussiebroadwan/domainvault/internal/vault/http"
	"github.com/aussiebroadwan/domainvault/internal/vault/metrics"
	"github.com/aussiebroadwan/domainvault/internal/vault/portfolio"
	"github.com/aussiebroadwan/domainvault/internal/vault/service"
	"github.com/aussiebroadwan/domainvault/internal/vault/session"
	"github.com/aussiebroadwan/domainvault/internal/vault/store"
	"github.com/aussiebroadwan/domainvault/pkg/authsdk"
	"github.com/aussiebroadwan/domainvault/pkg/idx"
	"github.com/aussiebroadwan/domainvault/pkg/jwtx"
	"github.com/aussiebroadwan/domainvault/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// memoTTL bounds how long a derived view may outlive its revision.
const memoTTL = time.Minute

// Application encapsulates the vault server with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Storage
	cache  store.LocalCache
	remote store.RemoteStore

	// Core
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	coord    *coordinator.Coordinator
	gate     *session.Gate

	// Background jobs
	scheduler *service.Scheduler
	sweeper   *service.RenewalSweeper
	refresher *service.KeyRefresher // nil when sign-in is disabled

	// Token verification, nil when sign-in is disabled
	keys     *jwtx.KeySet
	verifier jwtx.Verifier

	// HTTP server
	server *http.Server
	router *vaulthttp.Router
}

// New creates an Application with every dependency initialised. Nothing
// is hydrated or scheduled until Run.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "domainvault",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initStores(context.Background()); err != nil {
		return nil, err
	}

	if err := app.initCore(); err != nil {
		app.closeStores()
		return nil, err
	}

	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}

	app.initHTTP()
	return app, nil
}

// Handler exposes the routed API.
func (app *Application) Handler() http.Handler { return app.router }

// Start hydrates the anonymous portfolio, loads verification keys and
// starts the background jobs. It does not serve.
func (app *Application) Start(ctx context.Context) error {
	ctx = slogx.WithContext(ctx, app.logger)

	if err := app.gate.Start(ctx); err != nil {
		return fmt.Errorf("failed to hydrate portfolio: %w", err)
	}

	if app.refresher != nil {
		app.scheduler.RunNow(app.refresher)
	}
	app.scheduler.RunNow(app.sweeper)
	app.scheduler.Start()
	return nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	if err := app.Start(context.Background()); err != nil {
		return err
	}

	app.logger.Info("vault starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"cache", app.cfg.CacheDriver,
		"remote", app.cfg.RemoteDriver,
		"sign_in", app.verifier != nil,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops the server, waits for queued remote writes and closes
// both stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down vault...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.scheduler.Stop()

	if err := app.coord.Close(ctx); err != nil {
		app.logger.Warn("remote writes still pending at shutdown", "error", err)
	}

	err := app.closeStores()
	app.logger.Info("vault stopped")
	return err
}

func (app *Application) initStores(ctx context.Context) error {
	cache, err := OpenCache(ctx, app.cfg, app.logger)
	if err != nil {
		return err
	}
	app.cache = cache

	remote, err := OpenRemote(ctx, app.cfg, app.logger)
	if err != nil {
		_ = cache.Close()
		return err
	}
	app.remote = remote
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.remote != nil {
		if err := app.remote.Close(); err != nil {
			app.logger.Error("error closing remote store", "error", err)
			errs = append(errs, err)
		}
	}
	if err := app.cache.Close(); err != nil {
		app.logger.Error("error closing cache", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (app *Application) initCore() error {
	sealer, err := OpenSealer(app.cfg, true)
	if err != nil {
		return err
	}

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New(app.registry)

	coord, err := coordinator.New(coordinator.Config{
		Portfolio: portfolio.New(idx.NewGenerator(nil)),
		Cache:     app.cache,
		Remote:    app.remote,
		Sealer:    sealer,
		Logger:    app.logger,
		Metrics:   app.metrics,
		RemoteRPS: app.cfg.RemoteRPS,
	})
	if err != nil {
		return err
	}
	app.coord = coord
	app.gate = session.NewGate(coord, app.logger)
	return nil
}

func (app *Application) initServices() error {
	app.scheduler = service.NewScheduler(app.logger)

	app.sweeper = service.NewRenewalSweeper(app.coord, datemath.SystemClock{}, app.logger, app.metrics)
	if err := app.scheduler.Add(app.cfg.SweepSchedule, app.sweeper); err != nil {
		return fmt.Errorf("invalid VAULT_SWEEP_SCHEDULE: %w", err)
	}

	if app.cfg.AuthURL == "" {
		app.logger.Info("sign-in disabled; VAULT_AUTH_URL is not set")
		return nil
	}

	app.keys = jwtx.NewKeySet()
	app.verifier = jwtx.NewVerifier(app.keys, app.cfg.AuthIssuer, app.cfg.AuthAudience)
	app.refresher = service.NewKeyRefresher(authsdk.NewSDKClient(app.cfg.AuthURL), app.keys, app.logger)
	if err := app.scheduler.Add(app.cfg.JWKSRefresh, app.refresher); err != nil {
		return fmt.Errorf("invalid VAULT_JWKS_REFRESH: %w", err)
	}
	return nil
}

func (app *Application) initHTTP() {
	router := vaulthttp.NewRouter(app.coord, app.gate, datemath.SystemClock{}, BuildVersion, app.logger)

	if app.verifier != nil {
		router.Verifier = app.verifier
		router.Keys = app.keys
		router.SessionScope = app.cfg.SessionScope
	}
	router.Cache = app.cache
	router.Remote = app.remote
	router.Gatherer = app.registry
	router.Encoder = export.NewEncoder(app.cfg.ICSNamespace)
	router.Memo = derive.NewMemo(memoTTL)
	router.Limits = app.cfg.Limits
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

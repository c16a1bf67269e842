package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medappt/medappt/internal/config"
	"github.com/medappt/medappt/internal/domain/scheduling"
	"github.com/medappt/medappt/internal/platform/db"
	"github.com/medappt/medappt/internal/platform/metrics"
	"github.com/medappt/medappt/internal/platform/middleware"
	"github.com/medappt/medappt/internal/platform/notify"
)

const metricsNamespace = "appointment"

func newLogger(cfg *config.Config, out io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// app holds the wired components of a running server.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	pool      *pgxpool.Pool
	redis     *redis.Client
	repo      scheduling.AppointmentRepository
	svc       *scheduling.Service
	collector *metrics.Collector
	webhook   *notify.WebhookPublisher
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, poolConfig(cfg))
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.repo = scheduling.NewAppointmentRepoPG(pool)
		logger.Info().Msg("connected to database")
	default:
		a.repo = scheduling.NewMemoryRepo()
	}

	a.svc = scheduling.NewService(a.repo)
	a.svc.SetLogger(logger.With().Str("component", "scheduling").Logger())

	if cfg.SeedMockData && cfg.StoreBackend == config.BackendMemory {
		n, err := scheduling.SeedMockData(ctx, a.repo, a.svc.Now())
		if err != nil {
			a.close()
			return nil, fmt.Errorf("seed mock data: %w", err)
		}
		logger.Info().Int("count", n).Msg("seeded mock appointments")
	}

	if cfg.MetricsEnabled {
		a.collector = metrics.NewCollector(metricsNamespace)
		a.svc.SetRecorder(a.collector)
		if a.pool != nil {
			if err := db.RegisterPoolMetrics(a.collector.Registerer(), metricsNamespace, a.pool); err != nil {
				a.close()
				return nil, fmt.Errorf("register pool metrics: %w", err)
			}
		}
	}

	notifiers := scheduling.Notifiers{scheduling.NewLogNotifier(logger.With().Str("component", "notifier").Logger())}

	if cfg.WebhookURL != "" {
		opts := []notify.WebhookOption{
			notify.WithQueueSize(cfg.NotifyQueueSize),
			notify.WithMaxAttempts(cfg.NotifyAttempts),
			notify.WithLogger(logger.With().Str("component", "webhook").Logger()),
		}
		if cfg.SigningSecret != "" {
			opts = append(opts, notify.WithSigningSecret(cfg.SigningSecret))
		}
		wh, err := notify.NewWebhookPublisher(cfg.WebhookURL, opts...)
		if err != nil {
			a.close()
			return nil, err
		}
		a.webhook = wh
		notifiers = append(notifiers, scheduling.NewPublishingNotifier(wh))
	}

	if cfg.RedisURL != "" {
		client, err := notify.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.redis = client
		notifiers = append(notifiers, scheduling.NewPublishingNotifier(notify.NewRedisPublisher(client, cfg.RedisChannel)))
		logger.Info().Str("channel", cfg.RedisChannel).Msg("publishing appointment events to redis")
	}

	a.svc.SetNotifier(notifiers)
	return a, nil
}

func (a *app) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	if a.collector != nil {
		e.Use(a.collector.Middleware())
	}
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit(a.cfg.BodyLimit))
	if a.cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(a.cfg.RequestTimeout))
	}
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: a.cfg.RateLimitRPS,
		BurstSize:         a.cfg.RateLimitBurst,
	}))

	scheduling.NewHandler(a.svc).RegisterRoutes(e)

	if a.pool != nil {
		e.GET("/health/db", db.HealthHandler(a.pool))
	}
	if a.collector != nil {
		e.GET("/metrics", echo.WrapHandler(a.collector.Handler()))
	}
	return e
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := newLogger(cfg, os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start")
		return err
	}
	defer a.close()

	if a.webhook != nil {
		go a.webhook.Run(ctx)
	}

	e := a.routes()
	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreBackend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// Command syncserver runs the Chargebee webhook reconciliation service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/makehaven/chargebee-status-sync/pkg/chargebee"
	prommetrics "github.com/makehaven/chargebee-status-sync/pkg/chargebee/metrics/prometheus"
	"github.com/makehaven/chargebee-status-sync/pkg/membersync"
	zerologadapter "github.com/makehaven/chargebee-status-sync/pkg/membersync/logger/zerolog"
	"github.com/makehaven/chargebee-status-sync/storage/postgres"
	redisstore "github.com/makehaven/chargebee-status-sync/storage/redis"
)

// config holds process configuration loaded from environment variables.
// Webhook-time settings (token, role id) can come from the environment or
// from the settings store written by the admin surface; environment values
// take precedence.
type config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisAddr   string `envconfig:"REDIS_ADDR" default:""`

	WebhookToken string `envconfig:"WEBHOOK_TOKEN" default:""`
	MemberRoleID string `envconfig:"MEMBER_ROLE_ID" default:""`
	NotifyEmail  string `envconfig:"NOTIFY_EMAIL" default:""`

	RateLimitRequests int           `envconfig:"WEBHOOK_RATE_LIMIT" default:"100"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().
		Timestamp().
		Str("service", "syncserver").
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pgConfig := postgres.DefaultConfig()
	pgConfig.ConnectionString = cfg.DatabaseURL
	store, err := postgres.New(ctx, pgConfig)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	settings, err := resolveSettings(ctx, cfg, store, logger)
	if err != nil {
		return err
	}

	syncLogger := zerologadapter.NewLogger(logger)
	registry := membersync.NewRegistry(store, store, syncLogger)

	router, err := chargebee.NewRouter(chargebee.Config{
		Directory:         store,
		Profiles:          store,
		Registry:          registry,
		SecretToken:       settings.SecretToken,
		MemberRoleID:      settings.MemberRoleID,
		Logger:            syncLogger,
		Metrics:           prommetrics.NewMetrics(prometheus.DefaultRegisterer, "chargebee_sync"),
		RateLimitRequests: cfg.RateLimitRequests,
	})
	if err != nil {
		return fmt.Errorf("create webhook router: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Method(http.MethodPost, "/chargebee-webhook/{token}", router.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info().Int("port", cfg.Port).Msg("webhook server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info().Msg("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// resolveSettings loads webhook settings from redis when configured, falling
// back to the postgres settings table, with environment values taking
// precedence over both.
func resolveSettings(ctx context.Context, cfg config, store membersync.SettingsStore, logger zerolog.Logger) (*membersync.Settings, error) {
	settings := &membersync.Settings{}

	var settingsStore membersync.SettingsStore = store
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		redisStore, err := redisstore.New(client, redisstore.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("create redis settings store: %w", err)
		}
		settingsStore = redisStore
	}

	stored, err := settingsStore.LoadSettings(ctx)
	switch {
	case errors.Is(err, membersync.ErrSettingsNotFound):
		logger.Warn().Msg("no stored settings found, using environment values only")
	case err != nil:
		return nil, fmt.Errorf("load settings: %w", err)
	default:
		settings = stored
	}

	if cfg.WebhookToken != "" {
		settings.SecretToken = cfg.WebhookToken
	}
	if cfg.MemberRoleID != "" {
		settings.MemberRoleID = cfg.MemberRoleID
	}
	if cfg.NotifyEmail != "" {
		settings.NotifyEmail = cfg.NotifyEmail
	}

	if settings.SecretToken == "" {
		return nil, fmt.Errorf("no webhook secret token configured")
	}
	if settings.MemberRoleID == "" {
		logger.Warn().Msg("member role id not configured, role changes will be skipped")
	}

	return settings, nil
}

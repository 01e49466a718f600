package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"campnest/internal/api"
	"campnest/internal/config"
	"campnest/internal/database"
	"campnest/internal/events"
	"campnest/internal/logging"
	"campnest/internal/metrics"
	"campnest/internal/models"
	"campnest/internal/notify"
	"campnest/internal/payments"
	"campnest/internal/repository"
	"campnest/internal/service"
	"campnest/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if err := seedCatalog(context.Background(), db, &logger); err != nil {
		return err
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}
	cache := repository.NewAvailabilityCache(redisClient, time.Duration(cfg.Redis.CacheTTLSeconds)*time.Second)

	provider := payments.NewClient(cfg.Payments, &logger)

	notifier, err := notify.New(cfg.Telegram, &logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without ops notifications")
	}

	bus := events.NewEventBus()
	subscribeEventLog(bus, &logger)

	alerts := service.NewAlertService(db, &logger)
	booking := service.NewBookingService(db, alerts, provider, bus, nil, notifier, cache, cfg.Payments, &logger)
	availability := service.NewAvailabilityService(db, cache, &logger)
	exports := service.NewExportService(db, cfg.API.Exports, &logger)

	reconciler := worker.NewReconciler(db, provider, booking, notifier, redisClient, cfg.Worker, &logger)
	booking.SetScheduler(reconciler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Worker.Enabled {
		go reconciler.Start(ctx)
	} else {
		logger.Warn().Msg("reconcile worker disabled; checkout sessions settle only when customers return")
	}

	go database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger).Start(ctx)

	startMetrics(ctx, cfg, &logger)

	server := api.NewServer(cfg, booking, availability, alerts, exports, &logger)
	return serve(ctx, server, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

type seedFile struct {
	Campgrounds []seedCampground `yaml:"campgrounds"`
}

type seedCampground struct {
	models.Campground `yaml:",inline"`
	Campsites         []models.Campsite `yaml:"campsites"`
}

// seedCatalog loads the campground catalog into the database. The yaml
// file is the source of truth for campgrounds and campsites; ids are
// fixed there so restarts are idempotent.
func seedCatalog(ctx context.Context, db *database.DB, logger *zerolog.Logger) error {
	seedPath := os.Getenv("SEED_PATH")
	if seedPath == "" {
		seedPath = "configs/campgrounds.yaml"
	}

	data, err := os.ReadFile(seedPath)
	if os.IsNotExist(err) {
		// No catalog file on this host; the database keeps whatever was
		// seeded before.
		logger.Warn().Str("seed_path", seedPath).Msg("campground catalog not found, skipping seed")
		return nil
	}
	if err != nil {
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("read campground catalog")
		return err
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("parse campground catalog")
		return err
	}

	campsites := 0
	for i := range seed.Campgrounds {
		cg := &seed.Campgrounds[i]
		if err := db.UpsertCampground(ctx, &cg.Campground); err != nil {
			return fmt.Errorf("upsert campground %q: %w", cg.Name, err)
		}
		for j := range cg.Campsites {
			site := &cg.Campsites[j]
			site.CampgroundID = cg.ID
			if err := db.UpsertCampsite(ctx, site); err != nil {
				return fmt.Errorf("upsert campsite %q: %w", site.Name, err)
			}
			campsites++
		}
	}

	logger.Info().
		Int("campgrounds", len(seed.Campgrounds)).
		Int("campsites", campsites).
		Str("seed_path", seedPath).
		Msg("campground catalog loaded")
	return nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = repository.Close(client)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// subscribeEventLog writes every domain event to the debug log. It keeps
// an audit trail even when nothing else consumes the bus.
func subscribeEventLog(bus *events.EventBus, logger *zerolog.Logger) {
	for _, eventType := range []string{
		events.EventCheckoutCreated,
		events.EventBookingConfirmed,
		events.EventBookingCancelled,
		events.EventBookingCompleted,
		events.EventPaymentConflict,
	} {
		bus.Subscribe(eventType, func(event *events.Event) error {
			logger.Debug().Str("event_type", event.Type).RawJSON("payload", event.Payload).Msg("domain event")
			return nil
		})
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func serve(ctx context.Context, server *api.Server, logger *zerolog.Logger) error {
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}

	logger.Info().Msg("api server stopped")
	return nil
}

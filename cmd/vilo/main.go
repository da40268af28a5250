package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"vilo/internal/api"
	"vilo/internal/booking"
	"vilo/internal/cache"
	"vilo/internal/config"
	"vilo/internal/database"
	"vilo/internal/events"
	"vilo/internal/metrics"
	"vilo/internal/report"
	"vilo/internal/stay"
)

const propertiesPollInterval = 30 * time.Second

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.Format == "json" {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		logger = zerolog.New(output).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("VILO_CONFIG_PATH"))
	if err != nil {
		boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbLogger := logger.With().Str("component", "database").Logger()
	db, err := database.NewDB(cfg.Database.Path, &dbLogger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, availability will be read from storage")
		}
	}
	availability := cache.NewAvailabilityCache(rdb, cfg.AvailabilityTTL())

	busLogger := logger.With().Str("component", "events").Logger()
	bus := events.NewEventBus(&busLogger)
	bus.SubscribeAll(func(_ context.Context, e events.Event) error {
		busLogger.Debug().Str("type", e.Type).Str("tenant", e.TenantID).Str("key", e.Key).Msg("Event")
		return nil
	}, events.BookingCreated, events.BookingCancelled, events.CatalogSynced)

	if cfg.Kafka.Enabled {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, &busLogger)
		if err != nil {
			logger.Fatal().Err(err).Msg("kafka producer error")
		}
		defer publisher.Close()
		bus.SubscribeAll(publisher.Handle, events.BookingCreated, events.BookingCancelled)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka publisher enabled")
	}

	svcLogger := logger.With().Str("component", "booking").Logger()
	svc := booking.NewService(db, availability, bus, &svcLogger, booking.Options{
		MaxQuoteNights: cfg.MaxQuoteNights(),
		MaxAdvanceDays: cfg.MaxAdvanceDays(),
		SessionTimeout: cfg.SessionTimeout(),
	})

	// The initial load runs synchronously; a broken catalog stops startup.
	var catalog *config.Catalog
	err = config.WatchProperties(ctx, cfg.PropertiesPath, propertiesPollInterval, &logger, func(p *config.PropertiesConfig) {
		if err := svc.SyncCatalog(ctx, p); err != nil {
			logger.Error().Err(err).Msg("Catalog sync failed, keeping previous catalog")
			return
		}
		if catalog == nil {
			catalog = config.NewCatalog(p)
		} else {
			catalog.Set(p)
		}
		logger.Info().Str("catalog", p.String()).Msg("Catalog active")
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load properties")
	}
	if catalog == nil {
		logger.Fatal().Msg("initial catalog sync failed")
	}

	backupLogger := logger.With().Str("component", "backup").Logger()
	go database.NewBackupService(db, cfg.Backup, &backupLogger).Start(ctx)
	go cleanupSessions(ctx, svc, cfg.SessionTimeout(), &logger)

	if cfg.Google.SheetsEnabled {
		sheetsLogger := logger.With().Str("component", "sheets").Logger()
		exporter, err := report.NewSheetsExporter(ctx, cfg.Google.CredentialsFile, cfg.Google.SpreadsheetID, cfg.Google.SheetName, &sheetsLogger)
		if err != nil {
			logger.Fatal().Err(err).Msg("google sheets client error")
		}
		go syncSheets(ctx, svc, exporter, cfg.SheetsSyncInterval(), &sheetsLogger)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, svc, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	apiLogger := logger.With().Str("component", "api").Logger()
	server := api.NewServer(cfg.HTTP, svc, catalog, &apiLogger)
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("api shutdown error")
		}
	}()

	logger.Info().Int("port", cfg.HTTP.Port).Msg("Vilo started")
	if err := server.Start(); err != nil {
		logger.Error().Err(err).Msg("api server error")
	}
	logger.Info().Msg("Vilo stopped")
}

func cleanupSessions(ctx context.Context, svc *booking.Service, timeout time.Duration, logger *zerolog.Logger) {
	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := svc.CleanupSessions(); n > 0 {
				logger.Debug().Int("removed", n).Msg("Expired selection sessions removed")
			}
		}
	}
}

// syncSheets mirrors bookings from 30 days back to a year ahead into the spreadsheet.
func syncSheets(ctx context.Context, svc *booking.Service, exporter *report.SheetsExporter, interval time.Duration, logger *zerolog.Logger) {
	run := func() {
		today := stay.FromTime(time.Now().UTC())
		bookings, err := svc.AllBookings(ctx, stay.NewRange(today.AddDays(-30), today.AddDays(365)))
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list bookings for sheets sync")
			return
		}
		if err := exporter.Export(ctx, bookings); err != nil {
			logger.Error().Err(err).Msg("Sheets sync failed")
		}
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func startHealthServer(ctx context.Context, port int, svc *booking.Service, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := svc.Ping(ctxPing); err != nil {
			http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
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

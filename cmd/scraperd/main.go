package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/finpoint/bankscrape/internal/alerts"
	"github.com/finpoint/bankscrape/internal/api/handler"
	"github.com/finpoint/bankscrape/internal/api/router"
	"github.com/finpoint/bankscrape/internal/archive"
	"github.com/finpoint/bankscrape/internal/config"
	"github.com/finpoint/bankscrape/internal/health"
	"github.com/finpoint/bankscrape/internal/metrics"
	"github.com/finpoint/bankscrape/internal/proxy"
	"github.com/finpoint/bankscrape/internal/queue"
	"github.com/finpoint/bankscrape/internal/session"
	"github.com/finpoint/bankscrape/internal/strategy"
	"github.com/finpoint/bankscrape/shared/logger"
	"github.com/finpoint/bankscrape/shared/postgresql"
	"github.com/finpoint/bankscrape/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("SCRAPERD_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting bank scraper service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Optional PostgreSQL outcome archive
	var (
		dbClient *postgresql.Client
		outcomes *archive.Storage
	)
	if cfg.Archive.Enabled {
		dbClient, err = initPostgreSQL(&cfg.Archive, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize archive database: %w", err)
		}
		outcomes = archive.NewStorage(dbClient.GetDB(), appLogger.Logger)
		appLogger.Info("Outcome archive enabled")
	}

	// Alert channels; the message bus channel is added when configured
	channels := []alerts.Channel{
		alerts.NewEmailChannel(appLogger.Logger),
		alerts.NewSlackChannel(appLogger.Logger),
		alerts.NewSMSChannel(appLogger.Logger),
	}

	var rabbitClient *rabbitmq.Client
	if cfg.AlertBus.Enabled {
		rabbitClient, err = initRabbitMQ(&cfg.AlertBus, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize alert bus: %w", err)
		}
		channels = append(channels, alerts.NewBusChannel(rabbitClient))
		appLogger.Info("Alert bus enabled")
	}

	dispatcher := alerts.NewDispatcher(alerts.Config{
		Enabled: cfg.Alerts.Enabled,
		Channels: alerts.ChannelsConfig{
			Email: cfg.Alerts.Email,
			Slack: cfg.Alerts.Slack,
			SMS:   cfg.Alerts.SMS,
		},
		Thresholds: alerts.ThresholdsConfig{
			ErrorRate:      cfg.Alerts.ErrorRateThreshold,
			ResponseTimeMs: cfg.Alerts.ResponseTimeThreshold,
		},
	}, appLogger.Logger, channels...)

	// Core components
	agg := metrics.NewAggregator(appLogger.Logger)
	proxies := proxy.FromConfig(cfg.Proxy, appLogger.Logger)
	sessions := session.NewStore(cfg.Session.TTL, appLogger.Logger)

	registry := strategy.NewRegistry(appLogger.Logger)
	for _, targetID := range []string{"kb", "shinhan", "ibk"} {
		registry.Register(targetID, strategy.NewMockBank(targetID))
	}

	orchestrator := queue.NewOrchestrator(cfg.Queue, registry, proxies, agg, outcomes, appLogger.Logger)
	evaluator := health.NewEvaluator(agg, dispatcher, cfg.Health.Interval, appLogger.Logger)
	sweeper := session.NewSweeper(sessions, cfg.Session.SweepInterval, appLogger.Logger)

	// Background loops
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orchestrator.Start(ctx)
	go evaluator.Run(ctx)
	go sweeper.Run(ctx)

	// HTTP server
	r := initRouter(cfg.App.Environment, &handler.Dependencies{
		Logger:       appLogger.Logger,
		Orchestrator: orchestrator,
		Sessions:     sessions,
		Registry:     registry,
		Metrics:      agg,
		Health:       evaluator,
		Alerts:       dispatcher,
		Outcomes:     outcomes,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Bank scraper service is running",
		slog.String("address", addr),
		slog.Int("workers", cfg.Queue.Concurrency),
		slog.Int("proxies", proxies.Count()),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	appLogger.Info("Received signal, shutting down gracefully",
		slog.String("signal", sig.String()),
	)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
	}

	// Stop background loops, then wait for in-flight jobs
	cancel()

	done := make(chan struct{})
	go func() {
		orchestrator.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker pool stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	if dbClient != nil {
		dbClient.Close()
	}
	if rabbitClient != nil {
		rabbitClient.Close()
	}

	appLogger.Info("Bank scraper service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL archive client
func initPostgreSQL(cfg *config.ArchiveConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the alert bus client
func initRabbitMQ(cfg *config.AlertBusConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:          cfg.Host,
		Port:          cfg.Port,
		User:          cfg.User,
		Password:      cfg.Password,
		VHost:         cfg.VHost,
		ExchangeName:  cfg.Exchange,
		ExchangeType:  "fanout",
		RoutingKey:    cfg.RoutingKey,
		RetryAttempts: cfg.RetryAttempts,
		RetryInterval: cfg.RetryInterval,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, deps *handler.Dependencies) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps)
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gartstein/consulting/internal/engagement/config"
	"github.com/gartstein/consulting/internal/engagement/controller"
	gorm "github.com/gartstein/consulting/internal/engagement/db"
	"github.com/gartstein/consulting/internal/engagement/events"
	"github.com/gartstein/consulting/internal/engagement/handlers"
	"github.com/gartstein/consulting/internal/engagement/policy"
	"github.com/gartstein/consulting/internal/engagement/store/memory"
	"go.uber.org/zap"
)

type producerCloser interface {
	controller.EventProducer
	Close()
}

func main() {
	configPath := flag.String("config", filepath.Join("internal", "engagement", "config", "config.yaml"), "path to the YAML config")
	flag.Parse()

	logger := initLogger()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	deadlines, err := cfg.Deadlines()
	if err != nil {
		logger.Fatal("invalid deadline policy", zap.Error(err))
	}
	calculator, err := cfg.Calculator()
	if err != nil {
		logger.Fatal("invalid commission tiers", zap.Error(err))
	}

	repo, err := initStore(cfg, deadlines)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close store", zap.Error(err))
		}
	}()

	producer, err := initProducer(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	engagementSvc := controller.NewEngagementService(repo, producer, calculator, logger)
	engagementHandler := handlers.NewEngagementHandler(engagementSvc, logger)

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger)
	if err := server.RegisterHTTPHandler(engagementHandler, cfg.JWTSecret); err != nil {
		logger.Fatal("Failed to register HTTP routes", zap.Error(err))
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

// initStore picks the store implementation named by the STORE setting.
func initStore(cfg *config.Config, deadlines policy.DeadlinePolicy) (controller.Repository, error) {
	if cfg.Store == config.StoreMemory {
		return memory.NewStore(deadlines), nil
	}

	repo, err := gorm.NewRepository(&gorm.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		return nil, err
	}
	if err := repo.SeedDeadlinePolicy(context.Background(), deadlines); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}

// initProducer connects to Kafka, or discards events when no brokers are set.
func initProducer(cfg *config.Config, logger *zap.Logger) (producerCloser, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("No Kafka brokers configured, lifecycle events are discarded")
		return events.NopProducer{}, nil
	}
	return events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}

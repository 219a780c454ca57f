package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/fluxmon/fluxmon/configs"
	"github.com/fluxmon/fluxmon/internal/queue"
	"github.com/fluxmon/fluxmon/internal/scrape"
	"github.com/fluxmon/fluxmon/internal/storage"
	"github.com/fluxmon/fluxmon/internal/worker"
)

func main() {
	cfg := configs.AppLoad()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Connect(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	repo := storage.NewGormRepository(db)

	producer := queue.NewProducer(cfg.Kafka.Broker, cfg.Kafka.Topic, logger)
	defer producer.Close()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{cfg.Kafka.Broker},
		Topic:          cfg.Kafka.Topic,
		GroupID:        cfg.Kafka.GroupID,
		CommitInterval: 0, // Important: offsets are committed manually after each job settles
	})

	orchestrator := scrape.New(repo, logger, scrape.Config{
		UserAgent:         cfg.Scrape.UserAgent,
		NavigationTimeout: cfg.Scrape.NavigationTimeout,
		SettleDelay:       cfg.Scrape.SettleDelay,
		PolitenessMin:     cfg.Scrape.PolitenessMin,
		PolitenessMax:     cfg.Scrape.PolitenessMax,
	})

	pool := worker.NewPool(reader, producer, orchestrator, logger, worker.Config{
		Workers:       cfg.Worker.Count,
		RatePerSecond: cfg.Worker.RatePerSecond,
	})

	logger.WithFields(logrus.Fields{
		"workers": cfg.Worker.Count,
		"topic":   cfg.Kafka.Topic,
		"group":   cfg.Kafka.GroupID,
	}).Info("Worker pool starting")

	if err := pool.Start(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("Worker pool stopped with error")
	}

	logger.Info("Worker pool shutdown complete")
}

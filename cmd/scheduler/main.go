package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/fluxmon/fluxmon/configs"
	"github.com/fluxmon/fluxmon/internal/queue"
	"github.com/fluxmon/fluxmon/internal/scheduler"
	"github.com/fluxmon/fluxmon/internal/storage"
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

	s := scheduler.New(repo, producer, cfg.Scheduler.Interval, logger)
	s.Run(ctx)
}

package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fluxmon/fluxmon/configs"
	"github.com/fluxmon/fluxmon/internal/api"
	"github.com/fluxmon/fluxmon/internal/queue"
	"github.com/fluxmon/fluxmon/internal/storage"
)

func main() {
	cfg := configs.AppLoad()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	db, err := storage.Connect(context.Background(), cfg.DatabaseDSN)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	repo := storage.NewGormRepository(db)

	producer := queue.NewProducer(cfg.Kafka.Broker, cfg.Kafka.Topic, logger)
	defer producer.Close()

	handler := api.NewHandler(repo, producer, logger)
	router := api.NewRouter(handler)

	logger.WithField("port", cfg.ServerPort).Info("API server starting")
	if err := router.Run(fmt.Sprintf(":%s", cfg.ServerPort)); err != nil {
		logger.WithError(err).Fatal("API server stopped")
	}
}

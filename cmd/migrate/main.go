package main

import (
	"database/sql"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/fluxmon/fluxmon/configs"
)

func main() {
	cfg := configs.AppLoad()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	// Verify connection
	if err := db.Ping(); err != nil {
		logger.WithError(err).Error("Failed to ping database")
		os.Exit(1)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		logger.WithError(err).Error("Goose: failed to set dialect")
		os.Exit(1)
	}

	logger.Info("Running database migrations...")
	if err := goose.Up(db, "internal/migrations"); err != nil {
		logger.WithError(err).Error("Goose migration failed")
		os.Exit(1)
	}

	logger.Info("Migrations completed successfully")
}

package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/safar/retail-store/internal/config"
	"github.com/safar/retail-store/internal/database"
	"github.com/safar/retail-store/internal/logging"
	"github.com/safar/retail-store/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := database.MigrateDirection(os.Args[1])
	if direction != database.MigrateUp && direction != database.MigrateDown {
		log.Fatal("Direction must be 'up' or 'down'")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}
	logger := logging.New(cfg.Log)

	version, err := database.Migrate(cfg.Database.URL, migrations.FS, direction)
	if err != nil {
		logger.WithError(err).Fatal("Run migrations")
	}

	logger.WithFields(log.Fields{
		"direction": direction,
		"version":   version,
	}).Info("Migrations complete")
}

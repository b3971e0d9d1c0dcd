package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/runlog"
	"github.com/gorozooo/my-stock-portfolio-sub001/pkg/config"
	"github.com/gorozooo/my-stock-portfolio-sub001/pkg/database"
	"github.com/gorozooo/my-stock-portfolio-sub001/pkg/logger"
)

// initDeps loads config and builds the logger, applying the global
// --env/--verbose flags on top of the environment.
func initDeps() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)
	return cfg, log, nil
}

// printSummary emits the machine-readable run summary: exactly one JSON
// object on stdout.
func printSummary(summary any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// mirrorRunLog best-effort records the run summary into Postgres when a
// database is configured. Never fails the command.
func mirrorRunLog(cfg *config.Config, log *logger.Logger, runID, stage string, summary any, startedAt time.Time) {
	if !database.Enabled(cfg) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(cfg)
	if err != nil {
		log.WithError(err).Warn("run-log mirror unavailable, skipping")
		return
	}
	defer db.Close()

	repo := runlog.NewRepository(db.Pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.WithError(err).Warn("run-log schema setup failed, skipping")
		return
	}
	if err := repo.Record(ctx, runID, stage, summary, startedAt, time.Now()); err != nil {
		log.WithError(err).Warn("run-log insert failed")
		return
	}
	log.WithField("stage", stage).Debug("run summary mirrored to database")
}

package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/po-extract/internal/common"
	repo "github.com/joseph-ayodele/po-extract/internal/repository"
)

// OpenJournal connects to the extraction journal and creates its table.
// An empty DSN disables the journal and returns nils.
func OpenJournal(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repo.DB, repo.ExtractJobRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DSN == "" {
		logger.Info("extraction journal disabled")
		return nil, nil, nil
	}

	db, err := repo.Open(ctx, repo.Config{
		DSN:              cfg.DSN,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, nil, err
	}

	if err := PingDB(ctx, db, logger, 3*time.Second); err != nil {
		db.Close(logger)
		return nil, nil, err
	}

	jobs := repo.NewExtractJobRepository(db, logger)
	if err := jobs.EnsureSchema(ctx); err != nil {
		db.Close(logger)
		return nil, nil, err
	}
	logger.Info("extraction journal ready", "dialect", db.Dialect)
	return db, jobs, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("pinging database")
	if err := db.HealthCheck(ctx, timeout, logger); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

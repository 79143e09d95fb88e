// Package server wires the registry together: configuration, storage
// backends, services and the HTTP API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-project/custodia/internal/logging"
	"github.com/custodia-project/custodia/internal/server/config"
	"github.com/custodia-project/custodia/internal/server/httpapi"
	"github.com/custodia-project/custodia/internal/server/repositories/repomanager"
	"github.com/custodia-project/custodia/internal/server/services"
	"github.com/custodia-project/custodia/internal/server/storage"
)

type App struct {
	config *config.Config
	logger logging.Logger
}

func NewApp(cfg *config.Config) *App {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	return &App{config: cfg, logger: logger}
}

// Run starts the registry and blocks until the context is cancelled or an
// interrupt arrives. An empty DSN selects the in-memory backends, which keep
// nothing across restarts and are only meant for local experimentation.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	var manager repomanager.RepositoryManager
	var gateway storage.Gateway

	if a.config.DatabaseDSN == "" {
		a.logger.Warn(ctx, "no database DSN configured, using in-memory stores")
		manager = repomanager.NewInMemoryRepositoryManager()
		gateway = storage.NewMemoryGateway(a.config.WriteCredentialTTL)
	} else {
		var err error
		db, err = sql.Open("pgx", a.config.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}

		manager = repomanager.NewPostgresRepositoryManager()
		if err := manager.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		gateway = storage.NewS3Gateway(storage.S3Config{
			RootUser:      a.config.S3RootUser,
			RootPassword:  a.config.S3RootPassword,
			Bucket:        a.config.S3Bucket,
			Region:        a.config.S3Region,
			BaseEndpoint:  a.config.S3BaseEndpoint,
			CredentialTTL: a.config.WriteCredentialTTL,
		})
	}

	clock := services.NewMonotonicClock()

	evidence := services.NewEvidenceService(db, manager, gateway, clock, a.logger, a.config.MaxUploadSizeBytes)
	manifest, err := services.NewManifestService(db, manager, a.config.SecretKey, clock, a.logger)
	if err != nil {
		return err
	}
	replay := services.NewReplayService(db, manager, gateway, clock, a.logger, a.config.ReplayConcurrency)

	srv := httpapi.NewServer(a.config, a.logger, evidence, manifest, replay)
	return srv.Run(ctx)
}

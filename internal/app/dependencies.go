package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/foodcart/internal/health"
	"github.com/vladislavdragonenkov/foodcart/internal/storage/memory"
	"github.com/vladislavdragonenkov/foodcart/internal/storage/postgres"
)

// runtimeDeps: хранилище выбранного драйвера и всё, что из него строится.
type runtimeDeps struct {
	transactor      domain.Transactor
	outboxRepo      domain.OutboxRepository
	idempotencyRepo domain.IdempotencyRepository
	storageChecker  healthcheck.Checker
	closeFn         func() error
}

// initRuntimeDependencies создаёт хранилище по cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDeps, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		store := memory.NewStore()
		logger.Info("using in-memory storage")
		return &runtimeDeps{
			transactor:      store,
			outboxRepo:      memory.NewOutboxRepository(store),
			idempotencyRepo: memory.NewIdempotencyRepository(),
			storageChecker:  healthcheck.NewStorageChecker("storage", store),
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres dsn is required for storage driver %q", StorageDriverPostgres)
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN, postgres.WithMaxConns(cfg.PostgresMaxConns))
		if err != nil {
			return nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			version, applied, err := store.MigrationStatus(ctx)
			if err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("migration status: %w", err)
			}
			logger.WithFields(log.Fields{"version": version, "applied": applied}).Info("postgres migrations applied")
		}
		logger.WithField("max_conns", store.MaxConns()).Info("using postgres storage")
		return &runtimeDeps{
			transactor:      store,
			outboxRepo:      postgres.NewOutboxRepository(store),
			idempotencyRepo: postgres.NewIdempotencyRepository(store),
			storageChecker:  healthcheck.NewStorageChecker("storage", store),
			closeFn:         store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func (d *runtimeDeps) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}

package bootstrap

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/batch-trace/internal/config"
	"github.com/kursadbilgin/batch-trace/internal/infra/memory"
	"github.com/kursadbilgin/batch-trace/internal/infra/postgresql"
	"github.com/kursadbilgin/batch-trace/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/batch-trace/internal/infra/redis"
	"github.com/kursadbilgin/batch-trace/internal/infra/sqlite"
	"github.com/kursadbilgin/batch-trace/internal/repository"
	"github.com/kursadbilgin/batch-trace/internal/snapshot"
	"gorm.io/gorm"
)

// OpenStore connects the snapshot store selected by cfg.StoreDriver. The
// returned close func releases the underlying connection.
func OpenStore(ctx context.Context, cfg *config.Config) (snapshot.Store, func() error, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		return memory.New(), func() error { return nil }, nil

	case config.StoreDriverRedis:
		client, err := infraredis.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		store, err := infraredis.NewSnapshotStore(client, cfg.SnapshotKeyPrefix)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, client.Close, nil

	case config.StoreDriverPostgres:
		db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return openGormStore(db)

	case config.StoreDriverSQLite:
		db, err := sqlite.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return openGormStore(db)
	}

	return nil, nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
}

func openGormStore(db *gorm.DB) (snapshot.Store, func() error, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get underlying db: %w", err)
	}

	if err := migrations.Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}

	return repository.NewGormSnapshotStore(db), sqlDB.Close, nil
}

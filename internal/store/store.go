package store

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/pkg/config"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
)

// Compactor is implemented by backends that can reclaim space after deletes.
type Compactor interface {
	Compact(ctx context.Context) error
}

// New creates the storage backend selected by the indexer configuration.
func New(ctx context.Context, cfg config.IndexerConfig, log *logger.Logger) (events.Storage, error) {
	switch cfg.Storage {
	case config.StorageMemory, "":
		return NewMemoryStorage(), nil
	case config.StorageSQLite:
		return NewSQLiteStorage(cfg.DB, log)
	case config.StorageRedis:
		if cfg.Redis == nil {
			return nil, fmt.Errorf("redis storage selected without redis configuration")
		}
		return NewRedisStorage(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

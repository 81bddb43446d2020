package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/openbiocard/openbiocard-backend/pkg/config"
	"github.com/openbiocard/openbiocard-backend/pkg/db"
	"github.com/openbiocard/openbiocard-backend/pkg/logger"
	pkgredis "github.com/openbiocard/openbiocard-backend/pkg/redis"
)

// Opened bundles the backend with the SQL client it was built on, if any,
// so callers can run migrations against the same pool.
type Opened struct {
	Backend Backend
	SQL     *db.Client
}

// Open selects the shard backend named by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config, redisClient *pkgredis.Client, logg *logger.Logger) (*Opened, error) {
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		if logg != nil {
			logg.Warn(ctx, "using in-memory storage; data is lost on restart")
		}
		return &Opened{Backend: NewMemory()}, nil
	case config.StorageSQLite, config.StoragePostgres:
		client, err := db.New(ctx, cfg.Storage.Backend, cfg.DB, logg)
		if err != nil {
			return nil, fmt.Errorf("open sql storage: %w", err)
		}
		return &Opened{Backend: NewSQL(client), SQL: client}, nil
	case config.StorageRedis:
		if redisClient == nil {
			return nil, errors.New("redis storage requires a redis client")
		}
		return &Opened{Backend: NewRedis(redisClient)}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

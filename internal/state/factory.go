package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ETAnderson/offersync/internal/db"
)

type FactoryConfig struct {
	Backend  string
	Path     string // file and sqlite
	MySQLDSN string
	Redis    RedisConfig
}

type FactoryResult struct {
	Backend Backend
	// Close releases connections held by the backend. Never nil.
	Close func() error
}

func noopClose() error { return nil }

// NewBackend builds the snapshot backend named by cfg.Backend; file is the default.
func NewBackend(ctx context.Context, cfg FactoryConfig) (FactoryResult, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "file"
	}

	switch backend {
	case "memory":
		return FactoryResult{Backend: NewMemoryBackend(), Close: noopClose}, nil

	case "file":
		if strings.TrimSpace(cfg.Path) == "" {
			return FactoryResult{}, errors.New("database.path is required when database.backend=file")
		}
		return FactoryResult{Backend: NewFileBackend(cfg.Path), Close: noopClose}, nil

	case "sqlite":
		gdb, err := OpenSQLite(cfg.Path)
		if err != nil {
			return FactoryResult{}, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return FactoryResult{}, err
		}
		return FactoryResult{Backend: NewSQLiteBackend(gdb, DefaultSnapshotName), Close: sqlDB.Close}, nil

	case "mysql":
		if strings.TrimSpace(cfg.MySQLDSN) == "" {
			return FactoryResult{}, errors.New("database.dsn is required when database.backend=mysql")
		}

		sqlDB, err := db.Open(db.Config{DSN: cfg.MySQLDSN})
		if err != nil {
			return FactoryResult{}, err
		}

		if err := db.Ping(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return FactoryResult{}, err
		}

		b := NewMySQLBackend(sqlDB, DefaultSnapshotName)
		if err := b.Migrate(ctx); err != nil {
			_ = sqlDB.Close()
			return FactoryResult{}, fmt.Errorf("migrate mysql: %w", err)
		}

		return FactoryResult{Backend: b, Close: sqlDB.Close}, nil

	case "redis":
		b, err := NewRedisBackend(ctx, cfg.Redis)
		if err != nil {
			return FactoryResult{}, err
		}
		return FactoryResult{Backend: b, Close: b.Close}, nil

	default:
		return FactoryResult{}, fmt.Errorf("unknown database.backend %q (use file, memory, sqlite, mysql or redis)", cfg.Backend)
	}
}

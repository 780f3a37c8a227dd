// Package bootstrap wires the process-level dependencies shared by the
// server and the command-line tools.
package bootstrap

import (
	"context"
	"fmt"

	"bucketlist/internal/cache"
	"bucketlist/internal/config"
	"bucketlist/internal/database"
	"bucketlist/internal/middleware"
	"bucketlist/internal/models"
	"bucketlist/internal/seed"
	"bucketlist/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// Migrate applies AutoMigrate before returning.
	Migrate bool
	// SeedDemo fills an empty development database with the default preset.
	SeedDemo bool
}

// Runtime holds the connections a process needs.
type Runtime struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Storage storage.Storage
}

// InitRuntime connects to the database, Redis and media storage. Redis may
// be nil when it is not configured or unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return nil, err
		}
	}

	if opts.SeedDemo && cfg.Env == "development" {
		if err := seedIfEmpty(ctx, db, cfg); err != nil {
			return nil, fmt.Errorf("demo seed failed: %w", err)
		}
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("media storage: %w", err)
	}

	return &Runtime{
		DB:      db,
		Redis:   cache.InitRedis(cfg.RedisURL),
		Storage: store,
	}, nil
}

func seedIfEmpty(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}
	middleware.Logger.InfoContext(ctx, "empty database, seeding demo data")
	_, err := seed.NewSeeder(db, cfg.BcryptCost).Run(ctx, seed.DefaultPreset())
	return err
}

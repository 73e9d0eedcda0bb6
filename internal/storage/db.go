package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pairchat/backend/internal/config"
	"pairchat/backend/internal/models"
)

// OpenDatabase connects to PostgreSQL when a DSN is configured and to a local
// SQLite file otherwise.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{}
	if !cfg.IsDevelopment() {
		gormCfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	var dialector gorm.Dialector
	if cfg.UsePostgres() {
		dialector = postgres.Open(cfg.DatabaseURL)
	} else {
		dialector = sqlite.Open(cfg.SQLitePath)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the tables used by the backend.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ChatRoom{},
		&models.ChatHistory{},
		&models.UserProfile{},
	)
}

// OpenRedis connects to Redis from a redis:// URL.
func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	return rdb, nil
}

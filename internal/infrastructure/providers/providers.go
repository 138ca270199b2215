package providers

import (
	"context"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ehdrbdndns/steelart-dashboard/internal/config"
	"github.com/ehdrbdndns/steelart-dashboard/internal/infrastructure/cache"
	"github.com/ehdrbdndns/steelart-dashboard/internal/infrastructure/database"
	"github.com/ehdrbdndns/steelart-dashboard/internal/usecase"
)

// NewDatabase opens a Postgres connection using the configured DSN.
func NewDatabase(conf config.Server) (*gorm.DB, error) {
	return database.NewPostgres(conf.PostgresDsn, database.PostgresOptions{
		MaxOpenConns:    conf.MaxOpenConns,
		MaxIdleConns:    conf.MaxIdleConns,
		ConnMaxLifetime: conf.ConnMaxLifetime,
	})
}

// MigrateDatabase applies migrations for the application models.
func MigrateDatabase(db *gorm.DB) error {
	return database.MigratePostgres(db)
}

// NewRedis connects to redis, or returns nil when no address is configured.
func NewRedis(ctx context.Context, conf config.Server) (*redis.Client, error) {
	if conf.RedisAddr == "" {
		return nil, nil
	}
	return database.NewRedis(ctx, database.RedisOptions{
		Addr:     conf.RedisAddr,
		Password: conf.RedisPassword,
		DB:       conf.RedisDB,
	})
}

// NewMemcache creates a memcache client, or nil when none is configured.
func NewMemcache(addr string) *memcache.Client {
	return database.NewMemcached(addr)
}

// NewListCache builds the listing cache on top of an optional memcache client.
func NewListCache(mc *memcache.Client, conf config.Cache) *cache.ListCache {
	return cache.New(mc, cache.Options{
		LocalTTL:  conf.LocalTTL,
		RemoteTTL: conf.RemoteTTL,
	})
}

// SequencerOptions translates the sequence settings into sequencer options.
func SequencerOptions(conf config.Sequence) []usecase.SequencerOption {
	if conf.PositionOffset == nil {
		return nil
	}
	return []usecase.SequencerOption{usecase.WithPositionOffset(*conf.PositionOffset)}
}

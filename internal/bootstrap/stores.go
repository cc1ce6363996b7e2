// Package bootstrap opens the configured storage backends. It is shared by
// the gateway and the maintenance CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fakestore-offline/internal/cache"
	"fakestore-offline/internal/compression"
	"fakestore-offline/internal/config"
	"fakestore-offline/internal/repository"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Stores bundles the opened backends. Close releases all of them.
type Stores struct {
	Cache      cache.Store
	Records    repository.RecordStore
	Redis      *redis.Client
	compressor *compression.Compressor
}

// NeedsRedis reports whether either backend is configured as redis.
func NeedsRedis(cfg *config.Config) bool {
	return cfg.Cache.Backend == cache.BackendRedis || cfg.Storage.Backend == repository.BackendRedis
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(ctx context.Context, cfg *config.CacheConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddress(), err)
	}
	return client, nil
}

// Open opens the cache and record backends named in cfg.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{}
	logger := log.WithField("component", "Bootstrap")

	if NeedsRedis(cfg) {
		client, err := NewRedisClient(ctx, &cfg.Cache)
		if err != nil {
			return nil, err
		}
		s.Redis = client
		logger.WithField("addr", cfg.Cache.RedisAddress()).Info("Redis client initialized")
	}

	compressor, err := compression.NewCompressor(cfg.Cache.CompressionLevel, cfg.Cache.Compression)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("compressor: %w", err)
	}
	s.compressor = compressor

	if s.Cache, err = OpenCache(cfg, s.Redis, compressor); err != nil {
		s.Close()
		return nil, err
	}
	logger.WithField("backend", cfg.Cache.Backend).Info("Response cache initialized")

	if s.Records, err = OpenRecords(cfg, s.Redis); err != nil {
		s.Close()
		return nil, err
	}
	logger.WithField("backend", cfg.Storage.Backend).Info("Record store initialized")

	return s, nil
}

// OpenCache opens the response cache backend.
func OpenCache(cfg *config.Config, client *redis.Client, compressor *compression.Compressor) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case cache.BackendMemory:
		return cache.NewMemoryStore(), nil
	case cache.BackendRedis:
		if client == nil {
			return nil, errors.New("redis cache backend needs a redis client")
		}
		return cache.NewRedisStore(client, cfg.Cache.KeyPrefix, compressor)
	default:
		store, err := cache.NewSQLiteStore(cfg.Cache.SQLitePath, compressor)
		if err != nil {
			return nil, fmt.Errorf("sqlite cache: %w", err)
		}
		return store, nil
	}
}

// OpenRecords opens the durable record backend.
func OpenRecords(cfg *config.Config, client *redis.Client) (repository.RecordStore, error) {
	switch cfg.Storage.Backend {
	case repository.BackendMemory:
		return repository.NewMemoryRecordStore(), nil
	case repository.BackendPostgres:
		return repository.NewPostgresRecordStore(cfg.Storage.PostgresDSN())
	case repository.BackendMySQL:
		return repository.NewMySQLRecordStore(cfg.Storage.MySQLDSN())
	case repository.BackendRedis:
		if client == nil {
			return nil, errors.New("redis storage backend needs a redis client")
		}
		return repository.NewRedisRecordStore(client, "")
	default:
		return repository.NewSQLiteRecordStore(cfg.Storage.Path)
	}
}

// Close releases every opened backend.
func (s *Stores) Close() error {
	var errs []error
	if s.Cache != nil {
		errs = append(errs, s.Cache.Close())
	}
	if s.Records != nil {
		errs = append(errs, s.Records.Close())
	}
	if s.compressor != nil {
		errs = append(errs, s.compressor.Close())
	}
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	return errors.Join(errs...)
}

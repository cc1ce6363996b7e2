package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// DefaultRedisRecordPrefix namespaces record keys.
const DefaultRedisRecordPrefix = "fakestore:offline:record:"

// RedisRecordStore implements RecordStore with one Redis string per record so
// several gateway instances share cart and update state.
type RedisRecordStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRecordStore creates a Redis-backed record store and verifies the connection.
func NewRedisRecordStore(client *redis.Client, keyPrefix string) (*RedisRecordStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	if keyPrefix == "" {
		keyPrefix = DefaultRedisRecordPrefix
	}

	log.WithField("component", "RedisRecordStore").Infof("started - prefix:%s", keyPrefix)
	return &RedisRecordStore{client: client, keyPrefix: keyPrefix}, nil
}

// GetRecord retrieves a record.
func (r *RedisRecordStore) GetRecord(ctx context.Context, name string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.keyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", name, err)
	}
	return data, nil
}

// PutRecord stores a record without expiry.
func (r *RedisRecordStore) PutRecord(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return ErrEmptyName
	}
	if err := r.client.Set(ctx, r.keyPrefix+name, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to put record %s: %w", name, err)
	}
	return nil
}

// DeleteRecord removes a record.
func (r *RedisRecordStore) DeleteRecord(ctx context.Context, name string) error {
	if err := r.client.Del(ctx, r.keyPrefix+name).Err(); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", name, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisRecordStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close is a no-op; the Redis client belongs to the caller.
func (r *RedisRecordStore) Close() error {
	return nil
}

var _ RecordStore = (*RedisRecordStore)(nil)

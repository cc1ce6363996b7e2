package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"fakestore-offline/internal/compression"
	"fakestore-offline/internal/model"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// DefaultRedisKeyPrefix namespaces every key the Redis store writes.
const DefaultRedisKeyPrefix = "fakestore:offline:cache"

// putScript writes an entry unless the generation was evicted after the
// write was issued or a newer entry holds the slot.
//
// KEYS: entries hash, timestamps hash, evictions hash, generations set
// ARGV: generation, slot, envelope, stored_at (unix micro)
var putScript = redis.NewScript(`
	local evicted = redis.call("HGET", KEYS[3], ARGV[1])
	if evicted and tonumber(evicted) >= tonumber(ARGV[4]) then
		return -2
	end
	local current = redis.call("HGET", KEYS[2], ARGV[2])
	if current and tonumber(current) > tonumber(ARGV[4]) then
		return -1
	end
	redis.call("HSET", KEYS[1], ARGV[2], ARGV[3])
	redis.call("HSET", KEYS[2], ARGV[2], ARGV[4])
	redis.call("SADD", KEYS[4], ARGV[1])
	return 1
`)

// evictScript drops a generation and records its tombstone atomically.
//
// KEYS: entries hash, timestamps hash, evictions hash, generations set
// ARGV: generation, evicted_at (unix micro)
var evictScript = redis.NewScript(`
	local removed = redis.call("HLEN", KEYS[1])
	redis.call("DEL", KEYS[1], KEYS[2])
	redis.call("SREM", KEYS[4], ARGV[1])
	redis.call("HSET", KEYS[3], ARGV[1], ARGV[2])
	return removed
`)

// redisEnvelope is the stored form of a CachedEntry.
type redisEnvelope struct {
	ContentType string `json:"content_type"`
	StatusCode  int    `json:"status_code"`
	StoredAt    int64  `json:"stored_at"`
	Payload     []byte `json:"payload"`
}

// RedisStore implements Store on Redis so several gateway instances share
// one cache. Each generation lives in its own hash; Lua scripts keep put and
// eviction atomic.
type RedisStore struct {
	client     *redis.Client
	compressor *compression.Compressor
	keyPrefix  string
}

// NewRedisStore creates a Redis-backed store and verifies the connection.
func NewRedisStore(client *redis.Client, keyPrefix string, compressor *compression.Compressor) (*RedisStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}

	log.WithField("component", "RedisStore").Infof("started - prefix:%s", keyPrefix)
	return &RedisStore{client: client, compressor: compressor, keyPrefix: keyPrefix}, nil
}

func (s *RedisStore) entriesKey(generation string) string {
	return s.keyPrefix + ":gen:" + generation
}

func (s *RedisStore) timestampsKey(generation string) string {
	return s.keyPrefix + ":gen:" + generation + ":ts"
}

func (s *RedisStore) evictionsKey() string {
	return s.keyPrefix + ":evicted"
}

func (s *RedisStore) generationsKey() string {
	return s.keyPrefix + ":generations"
}

func (s *RedisStore) scriptKeys(generation string) []string {
	return []string{s.entriesKey(generation), s.timestampsKey(generation), s.evictionsKey(), s.generationsKey()}
}

// Get retrieves an entry from the generation hash.
func (s *RedisStore) Get(ctx context.Context, generation string, key model.RequestKey) (*model.CachedEntry, error) {
	data, err := s.client.HGet(ctx, s.entriesKey(generation), key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var env redisEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.drop(ctx, generation, key, err)
		return nil, ErrCacheMiss
	}
	payload, err := s.compressor.Decode(env.Payload)
	if err != nil {
		s.drop(ctx, generation, key, err)
		return nil, ErrCacheMiss
	}

	return &model.CachedEntry{
		Key:         key,
		Payload:     payload,
		ContentType: env.ContentType,
		StatusCode:  env.StatusCode,
		StoredAt:    time.UnixMicro(env.StoredAt),
	}, nil
}

// Put stores an entry through putScript.
func (s *RedisStore) Put(ctx context.Context, generation string, key model.RequestKey, entry *model.CachedEntry) error {
	if err := validGeneration(generation); err != nil {
		return err
	}
	storedAt := entry.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now()
	}

	env, err := json.Marshal(redisEnvelope{
		ContentType: entry.ContentType,
		StatusCode:  entry.StatusCode,
		StoredAt:    storedAt.UnixMicro(),
		Payload:     s.compressor.Encode(entry.Payload),
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	res, err := putScript.Run(ctx, s.client, s.scriptKeys(generation),
		generation, key.String(), env, strconv.FormatInt(storedAt.UnixMicro(), 10)).Int()
	if err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	switch res {
	case -2:
		return ErrGenerationEvicted
	case -1:
		return ErrStaleWrite
	}
	return nil
}

// EvictGeneration drops the generation hash through evictScript.
func (s *RedisStore) EvictGeneration(ctx context.Context, generation string) error {
	removed, err := evictScript.Run(ctx, s.client, s.scriptKeys(generation),
		generation, strconv.FormatInt(time.Now().UnixMicro(), 10)).Int()
	if err != nil {
		return fmt.Errorf("failed to evict generation %s: %w", generation, err)
	}
	log.WithFields(log.Fields{"component": "RedisStore", "generation": generation}).
		Infof("evicted %d entries", removed)
	return nil
}

// ListGenerations returns the live generations.
func (s *RedisStore) ListGenerations(ctx context.Context) ([]string, error) {
	generations, err := s.client.SMembers(ctx, s.generationsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	sort.Strings(generations)
	return generations, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the Redis client belongs to the caller.
func (s *RedisStore) Close() error {
	return nil
}

func (s *RedisStore) drop(ctx context.Context, generation string, key model.RequestKey, cause error) {
	log.WithFields(log.Fields{"component": "RedisStore", "generation": generation, "key": key.String()}).
		Warnf("dropping corrupt entry: %v", cause)
	pipe := s.client.Pipeline()
	pipe.HDel(ctx, s.entriesKey(generation), key.String())
	pipe.HDel(ctx, s.timestampsKey(generation), key.String())
	if _, err := pipe.Exec(ctx); err != nil {
		log.WithField("component", "RedisStore").Warnf("failed to drop corrupt entry: %v", err)
	}
}

var _ Store = (*RedisStore)(nil)

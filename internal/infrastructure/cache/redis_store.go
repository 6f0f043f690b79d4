// Package cache provides the CacheStore implementations: a Redis-backed
// store for normal operation and an in-memory store for tests and for
// running without a Redis deployment.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/repository"
)

// RedisStore implements the CacheStore interface using Redis as the backend.
// Every operation degrades to a miss or no-op when Redis is unreachable;
// connection state is tracked across operations and exposed via Connected.
type RedisStore struct {
	client    *redis.Client
	log       *slog.Logger
	connected atomic.Bool
}

var _ repository.CacheStore = (*RedisStore)(nil)

// NewRedisStore connects to Redis at addr and probes it once. A failed
// probe is logged, not fatal: the store starts disconnected and recovers
// as soon as an operation succeeds.
func NewRedisStore(addr, password string, db int, log *slog.Logger) *RedisStore {
	s := &RedisStore{log: log}
	s.client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		OnConnect: func(ctx context.Context, cn *redis.Conn) error {
			s.markUp()
			return nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, cache degrades to miss", "addr", addr, "error", err)
		s.connected.Store(false)
	} else {
		s.connected.Store(true)
	}
	return s
}

// NewRedisStoreWithClient wraps an existing client. Used by tests.
func NewRedisStoreWithClient(client *redis.Client, log *slog.Logger) *RedisStore {
	s := &RedisStore{client: client, log: log}
	s.connected.Store(true)
	return s
}

func (s *RedisStore) Get(ctx context.Context, key string, dest any) bool {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.markDown(err)
		}
		return false
	}
	s.markUp()
	if err := json.Unmarshal(data, dest); err != nil {
		// Malformed payloads are a miss, never a failure.
		s.log.Debug("discarding undecodable cache entry", "key", key, "error", err)
		return false
	}
	return true
}

func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("cache value not serializable", "key", key, "error", err)
		return false
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		s.markDown(err)
		return false
	}
	s.markUp()
	return true
}

func (s *RedisStore) Delete(ctx context.Context, key string) bool {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		s.markDown(err)
		return false
	}
	s.markUp()
	return n > 0
}

// DeleteByPattern scans for keys matching the glob pattern and removes
// them. Returns however many deletions landed before any failure.
func (s *RedisStore) DeleteByPattern(ctx context.Context, pattern string) int {
	deleted := 0
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)

	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		n, err := s.client.Del(ctx, batch...).Result()
		if err != nil {
			s.markDown(err)
			return false
		}
		deleted += int(n)
		batch = batch[:0]
		return true
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 && !flush() {
			return deleted
		}
	}
	if err := iter.Err(); err != nil {
		s.markDown(err)
		return deleted
	}
	if flush() {
		s.markUp()
	}
	return deleted
}

func (s *RedisStore) Exists(ctx context.Context, key string) bool {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		s.markDown(err)
		return false
	}
	s.markUp()
	return n > 0
}

func (s *RedisStore) TTL(ctx context.Context, key string) time.Duration {
	d, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		s.markDown(err)
		return -1
	}
	s.markUp()
	if d < 0 {
		// Covers both "no such key" and "no expiry".
		return -1
	}
	return d
}

func (s *RedisStore) Connected() bool {
	return s.connected.Load()
}

// Close releases the underlying client connections.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) markUp() {
	if s.connected.CompareAndSwap(false, true) {
		s.log.Info("redis connection restored")
	}
}

func (s *RedisStore) markDown(err error) {
	if s.connected.CompareAndSwap(true, false) {
		s.log.Warn("redis connection lost, cache degrades to miss", "error", err)
	}
}

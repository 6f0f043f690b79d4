package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/repository"
)

// MemoryStore is a process-local CacheStore. It backs tests and local runs
// without a Redis deployment. Values round-trip through JSON exactly like
// the Redis store so both behave identically to callers.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	log     *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

var _ repository.CacheStore = (*MemoryStore)(nil)

// NewMemoryStore starts a store and its sweeper goroutine. Call Close to
// release the sweeper.
func NewMemoryStore(log *slog.Logger) *MemoryStore {
	if log == nil {
		log = slog.Default()
	}
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		log:     log,
		stop:    make(chan struct{}),
	}
	go s.sweeper()
	return s
}

func (s *MemoryStore) Get(ctx context.Context, key string, dest any) bool {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if e.expired(time.Now()) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return false
	}
	if err := json.Unmarshal(e.data, dest); err != nil {
		s.log.Debug("discarding undecodable cache entry", "key", key, "error", err)
		return false
	}
	return true
}

func (s *MemoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("cache value not serializable", "key", key, "error", err)
		return false
	}
	e := memoryEntry{data: data}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return true
}

func (s *MemoryStore) Delete(ctx context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

func (s *MemoryStore) DeleteByPattern(ctx context.Context, pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key := range s.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted
}

func (s *MemoryStore) Exists(ctx context.Context, key string) bool {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	return ok && !e.expired(time.Now())
}

func (s *MemoryStore) TTL(ctx context.Context, key string) time.Duration {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || e.expiresAt.IsZero() {
		return -1
	}
	rem := time.Until(e.expiresAt)
	if rem <= 0 {
		return -1
	}
	return rem
}

// Connected always reports true: the process-local map cannot be unreachable.
func (s *MemoryStore) Connected() bool { return true }

// Close stops the background sweeper.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func (s *MemoryStore) sweeper() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for key, e := range s.entries {
				if e.expired(now) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

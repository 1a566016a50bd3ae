package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryItem struct {
	data     []byte
	expireAt time.Time // zero = never
}

// MemoryCache implements Service in process. Values go through JSON so callers
// see the same copy semantics as with Redis.
type MemoryCache struct {
	mu    sync.Mutex
	data  map[string]memoryItem
	now   func() time.Time
	stop  chan struct{}
	close sync.Once
}

// NewMemoryCache creates an in-memory cache with a background sweeper.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		CleanupInterval: 5 * time.Minute,
		Now:             time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data: make(map[string]memoryItem),
		now:  cfg.Now,
		stop: make(chan struct{}),
	}
	go mc.sweep(cfg.CleanupInterval)
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.data[key] = memoryItem{data: data, expireAt: mc.expiry(expiration)}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	item, ok := mc.lookup(key)
	mc.mu.Unlock()
	if !ok {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(item.data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.data, key)
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		if _, ok := mc.lookup(key); ok {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if _, ok := mc.lookup(key); ok {
		return false, nil
	}
	data, _ := json.Marshal(token)
	mc.data[key] = memoryItem{data: data, expireAt: mc.expiry(ttl)}
	return true, nil
}

func (mc *MemoryCache) Unlock(_ context.Context, key, token string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	item, ok := mc.lookup(key)
	if !ok {
		return ErrNotOwner
	}
	var held string
	if err := json.Unmarshal(item.data, &held); err != nil || held != token {
		return ErrNotOwner
	}
	delete(mc.data, key)
	return nil
}

// Close stops the sweeper.
func (mc *MemoryCache) Close() error {
	mc.close.Do(func() { close(mc.stop) })
	return nil
}

// lookup drops the key when expired. Caller holds mu.
func (mc *MemoryCache) lookup(key string) (memoryItem, bool) {
	item, ok := mc.data[key]
	if !ok {
		return memoryItem{}, false
	}
	if !item.expireAt.IsZero() && !mc.now().Before(item.expireAt) {
		delete(mc.data, key)
		return memoryItem{}, false
	}
	return item, true
}

func (mc *MemoryCache) expiry(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return mc.now().Add(d)
}

func (mc *MemoryCache) sweep(interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			mc.mu.Lock()
			for key := range mc.data {
				mc.lookup(key)
			}
			mc.mu.Unlock()
		case <-mc.stop:
			return
		}
	}
}

var _ Service = (*MemoryCache)(nil)

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-console/internal/models"
)

// ErrViewNotFound is returned when no view is stored for a key.
var ErrViewNotFound = errors.New("roster view not found")

const viewKeyPrefix = "roster:view:"

// ViewStateRepository persists the coordinator's per-session view between
// requests. Writes are last-write-wins.
type ViewStateRepository interface {
	Load(ctx context.Context, key string) (*models.RosterView, error)
	Save(ctx context.Context, key string, view *models.RosterView) error
	Delete(ctx context.Context, key string) error
}

// RedisViewStateRepository stores views as JSON in Redis with a TTL.
type RedisViewStateRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisViewStateRepository constructs a Redis-backed view store.
func NewRedisViewStateRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisViewStateRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisViewStateRepository{client: client, ttl: ttl, logger: logger}
}

// Load retrieves the view stored under key.
func (r *RedisViewStateRepository) Load(ctx context.Context, key string) (*models.RosterView, error) {
	raw, err := r.client.Get(ctx, viewKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrViewNotFound
		}
		return nil, fmt.Errorf("redis get view %s: %w", key, err)
	}

	var view models.RosterView
	if err := json.Unmarshal(raw, &view); err != nil {
		// A payload from an older layout is as good as absent.
		r.logger.Warn("dropping undecodable roster view", zap.String("key", key), zap.Error(err))
		return nil, ErrViewNotFound
	}
	return &view, nil
}

// Save marshals the view and stores it with the configured TTL.
func (r *RedisViewStateRepository) Save(ctx context.Context, key string, view *models.RosterView) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal view %s: %w", key, err)
	}
	if err := r.client.Set(ctx, viewKeyPrefix+key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set view %s: %w", key, err)
	}
	return nil
}

// Delete removes the view stored under key.
func (r *RedisViewStateRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, viewKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete view %s: %w", key, err)
	}
	return nil
}

// Close releases the Redis connection.
func (r *RedisViewStateRepository) Close() error {
	return r.client.Close()
}

type memoryEntry struct {
	payload []byte
	expires time.Time
}

// MemoryViewStateRepository keeps views in process. Entries are stored as
// JSON so callers never share mutable state with the store.
type MemoryViewStateRepository struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryViewStateRepository constructs an in-memory view store. A zero ttl
// keeps entries until deleted.
func NewMemoryViewStateRepository(ttl time.Duration) *MemoryViewStateRepository {
	return &MemoryViewStateRepository{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Load retrieves the view stored under key.
func (r *MemoryViewStateRepository) Load(_ context.Context, key string) (*models.RosterView, error) {
	r.mu.RLock()
	entry, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok || r.expired(entry) {
		return nil, ErrViewNotFound
	}

	var view models.RosterView
	if err := json.Unmarshal(entry.payload, &view); err != nil {
		return nil, fmt.Errorf("unmarshal view %s: %w", key, err)
	}
	return &view, nil
}

// Save stores a snapshot of view under key.
func (r *MemoryViewStateRepository) Save(_ context.Context, key string, view *models.RosterView) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal view %s: %w", key, err)
	}
	entry := memoryEntry{payload: payload}
	if r.ttl > 0 {
		entry.expires = r.now().Add(r.ttl)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = entry
	r.sweepLocked()
	return nil
}

// Delete removes the view stored under key.
func (r *MemoryViewStateRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
	return nil
}

func (r *MemoryViewStateRepository) expired(e memoryEntry) bool {
	return !e.expires.IsZero() && r.now().After(e.expires)
}

func (r *MemoryViewStateRepository) sweepLocked() {
	for key, entry := range r.entries {
		if r.expired(entry) {
			delete(r.entries, key)
		}
	}
}

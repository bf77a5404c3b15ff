// Package staging holds profiles between the submit gate and the candidate's
// final confirmation. Staged entries are short-lived: an unconfirmed submit
// simply evaporates.
package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ciportal/api/internal/store"
)

// ErrNotStaged is returned when no staged profile exists for the candidate.
var ErrNotStaged = errors.New("no staged submission")

// DefaultTTL is how long a gate-passed profile waits for confirmation.
const DefaultTTL = 30 * time.Minute

// Store stages validated profiles keyed by candidate ID.
type Store interface {
	Stage(ctx context.Context, userID string, profile store.Profile) error
	Take(ctx context.Context, userID string) (store.Profile, error)
	Discard(ctx context.Context, userID string) error
}

type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: "staged:", ttl: ttl}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}

func (s *RedisStore) Stage(ctx context.Context, userID string, profile store.Profile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal staged profile: %w", err)
	}
	if err := s.client.Set(ctx, s.key(userID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("stage profile: %w", err)
	}
	return nil
}

// Take removes and returns the staged profile, so a confirmation consumes it
// exactly once.
func (s *RedisStore) Take(ctx context.Context, userID string) (store.Profile, error) {
	payload, err := s.client.GetDel(ctx, s.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return store.Profile{}, ErrNotStaged
	}
	if err != nil {
		return store.Profile{}, fmt.Errorf("take staged profile: %w", err)
	}

	var profile store.Profile
	if err := json.Unmarshal([]byte(payload), &profile); err != nil {
		return store.Profile{}, fmt.Errorf("unmarshal staged profile: %w", err)
	}
	return profile, nil
}

func (s *RedisStore) Discard(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("discard staged profile: %w", err)
	}
	return nil
}

// MemoryStore is the fallback when no Redis is configured. Entries expire on
// access.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	profile   store.Profile
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Stage(_ context.Context, userID string, profile store.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = memoryEntry{profile: profile, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Take(_ context.Context, userID string) (store.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[userID]
	if !ok {
		return store.Profile{}, ErrNotStaged
	}
	delete(s.entries, userID)
	if time.Now().After(entry.expiresAt) {
		return store.Profile{}, ErrNotStaged
	}
	return entry.profile, nil
}

func (s *MemoryStore) Discard(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}

package staging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"ciportal/api/internal/store"
)

func newRedisStageStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Minute), mr
}

func TestRedisStageTakeOnce(t *testing.T) {
	st, _ := newRedisStageStore(t)
	ctx := context.Background()

	profile := store.Profile{Name: "Asha Kumar", NationalID: "123456789012"}
	if err := st.Stage(ctx, "usr_1", profile); err != nil {
		t.Fatalf("stage: %v", err)
	}

	got, err := st.Take(ctx, "usr_1")
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if got.Name != profile.Name || got.NationalID != profile.NationalID {
		t.Fatalf("took %+v, want %+v", got, profile)
	}

	if _, err := st.Take(ctx, "usr_1"); !errors.Is(err, ErrNotStaged) {
		t.Fatalf("second take should fail with ErrNotStaged, got %v", err)
	}
}

func TestRedisStageExpiry(t *testing.T) {
	st, mr := newRedisStageStore(t)
	ctx := context.Background()

	if err := st.Stage(ctx, "usr_2", store.Profile{Name: "B"}); err != nil {
		t.Fatalf("stage: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := st.Take(ctx, "usr_2"); !errors.Is(err, ErrNotStaged) {
		t.Fatalf("expected ErrNotStaged after expiry, got %v", err)
	}
}

func TestRedisDiscard(t *testing.T) {
	st, _ := newRedisStageStore(t)
	ctx := context.Background()

	if err := st.Stage(ctx, "usr_3", store.Profile{Name: "C"}); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := st.Discard(ctx, "usr_3"); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if _, err := st.Take(ctx, "usr_3"); !errors.Is(err, ErrNotStaged) {
		t.Fatalf("expected ErrNotStaged after discard, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	st := NewMemoryStore(time.Minute)
	ctx := context.Background()

	if _, err := st.Take(ctx, "usr_1"); !errors.Is(err, ErrNotStaged) {
		t.Fatalf("empty take: %v", err)
	}

	profile := store.Profile{Name: "Asha Kumar"}
	if err := st.Stage(ctx, "usr_1", profile); err != nil {
		t.Fatalf("stage: %v", err)
	}

	got, err := st.Take(ctx, "usr_1")
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if got.Name != profile.Name {
		t.Fatalf("took %q, want %q", got.Name, profile.Name)
	}

	if _, err := st.Take(ctx, "usr_1"); !errors.Is(err, ErrNotStaged) {
		t.Fatalf("second take: %v", err)
	}
}

package auth

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestMemoryStoreSweepsExpiredOnSave(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Save(ctx, sessionFixture("old-1", now.Add(time.Minute)))
	_ = store.Save(ctx, sessionFixture("old-2", now.Add(time.Minute)))
	_ = store.Save(ctx, sessionFixture("long", now.Add(time.Hour)))

	now = now.Add(10 * time.Minute)
	_ = store.Save(ctx, sessionFixture("new", now.Add(time.Hour)))

	if store.Len() != 2 {
		t.Fatalf("expected expired sessions to be swept, %d left", store.Len())
	}
	if _, err := store.Get(ctx, "long"); err != nil {
		t.Fatalf("live session swept: %v", err)
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()

	store, err := NewStore(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	redisStore, ok := store.(*RedisStore)
	if !ok {
		t.Fatalf("expected *RedisStore, got %T", store)
	}
	defer redisStore.Close()

	session := sessionFixture(uuid.NewString(), time.Now().Add(time.Minute))
	session.AccessToken = "upstream-token"
	if err := redisStore.Save(ctx, session); err != nil {
		t.Fatal(err)
	}

	ttl, err := redisStore.rdb.TTL(ctx, sessionKey(session.ID)).Result()
	if err != nil {
		t.Fatal(err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("unexpected ttl %s", ttl)
	}
	raw, err := redisStore.rdb.Get(ctx, "session:"+session.ID).Bytes()
	if err != nil || len(raw) == 0 || raw[0] != '{' {
		t.Fatalf("expected a JSON value under session:<id>, got %q %v", raw, err)
	}

	loaded, err := redisStore.Get(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ID != session.ID || loaded.AccessToken != "upstream-token" || loaded.User.ID != "u" {
		t.Fatalf("unexpected session %+v", loaded)
	}

	if err := redisStore.Delete(ctx, session.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := redisStore.Get(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := redisStore.rdb.Get(ctx, sessionKey(session.ID)).Err(); !errors.Is(err, redis.Nil) {
		t.Fatalf("key still present: %v", err)
	}
}

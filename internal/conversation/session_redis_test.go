package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSessionStore(client, ttl), mr
}

func TestRedisSessionStoreTouchAndGet(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	session, err := store.Touch(ctx, "+919876543210", IntentReservation)
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if session.Intent != IntentReservation {
		t.Errorf("intent = %s", session.Intent)
	}

	updated, err := store.Touch(ctx, "+919876543210", IntentConfirmation)
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if updated.Intent != IntentConfirmation {
		t.Errorf("intent not updated, got %s", updated.Intent)
	}
	if !updated.CreatedAt.Equal(session.CreatedAt) {
		t.Error("CreatedAt must be stable across touches")
	}

	got, ok, err := store.Get(ctx, "+919876543210")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Intent != IntentConfirmation {
		t.Errorf("Get intent = %s", got.Intent)
	}
}

func TestRedisSessionStoreExpires(t *testing.T) {
	store, mr := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	if _, err := store.Touch(ctx, "+919876543210", IntentGreeting); err != nil {
		t.Fatal(err)
	}

	mr.FastForward(2 * time.Minute)

	if _, ok, err := store.Get(ctx, "+919876543210"); err != nil || ok {
		t.Fatalf("session should expire after ttl: ok=%v err=%v", ok, err)
	}
}

func TestRedisSessionStoreEmptySender(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Minute)
	if _, err := store.Touch(context.Background(), "", IntentGreeting); err == nil {
		t.Fatal("expected error for empty sender")
	}
}

func TestNewRedisSessionStoreNilClient(t *testing.T) {
	if store := NewRedisSessionStore(nil, time.Minute); store != nil {
		t.Fatal("nil client must yield nil store for fallback selection")
	}
}

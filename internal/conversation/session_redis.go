package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "wa_session:"

// RedisSessionStore keeps sessions in Redis with a per-key TTL, so session
// state survives restarts and multiple service instances share it.
type RedisSessionStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisSessionStore builds a Redis-backed store. Returns nil when no
// client is configured so callers can fall back to the in-memory store.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisSessionStore{redis: client, ttl: ttl}
}

var _ SessionStore = (*RedisSessionStore)(nil)

func (s *RedisSessionStore) Touch(ctx context.Context, sender string, intent Intent) (Session, error) {
	if sender == "" {
		return Session{}, errors.New("conversation: session sender required")
	}

	now := time.Now().UTC()
	session, ok, err := s.Get(ctx, sender)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		session = Session{Sender: sender, CreatedAt: now}
	}
	session.Intent = intent
	session.LastMessageAt = now

	data, err := json.Marshal(session)
	if err != nil {
		return Session{}, fmt.Errorf("conversation: marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sender), data, s.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("conversation: store session: %w", err)
	}
	return session, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, sender string) (Session, bool, error) {
	raw, err := s.redis.Get(ctx, sessionKey(sender)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("conversation: load session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return Session{}, false, fmt.Errorf("conversation: decode session: %w", err)
	}
	return session, true, nil
}

func sessionKey(sender string) string {
	return sessionKeyPrefix + sender
}

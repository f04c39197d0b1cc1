package conversation

import (
	"context"
	"sync"
	"time"
)

// Session is the per-sender conversational state: the last detected intent
// plus timestamps. Ephemeral; never persisted to the relational store.
type Session struct {
	Sender        string    `json:"sender"`
	Intent        Intent    `json:"intent"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// SessionStore tracks sessions keyed by normalized sender phone. Safe for
// concurrent use by webhook-delivery requests.
type SessionStore interface {
	// Touch records an inbound message: it creates the session lazily,
	// updates the intent and last-message time, and returns the new state.
	Touch(ctx context.Context, sender string, intent Intent) (Session, error)
	// Get returns the current session, if any.
	Get(ctx context.Context, sender string) (Session, bool, error)
}

// MemorySessionStore keeps sessions in-process with a TTL sweep and a hard
// entry ceiling so memory stays bounded regardless of inbound volume.
type MemorySessionStore struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemorySessionStore builds an in-process store. Non-positive ttl or
// maxEntries fall back to 30 minutes and 10000 entries.
func NewMemorySessionStore(ttl time.Duration, maxEntries int) *MemorySessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &MemorySessionStore{
		sessions:   make(map[string]*Session),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

var _ SessionStore = (*MemorySessionStore)(nil)

func (s *MemorySessionStore) Touch(ctx context.Context, sender string, intent Intent) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	session, ok := s.sessions[sender]
	if !ok {
		if len(s.sessions) >= s.maxEntries {
			s.evictOldestLocked()
		}
		session = &Session{Sender: sender, CreatedAt: now}
		s.sessions[sender] = session
	}
	session.Intent = intent
	session.LastMessageAt = now
	return *session, nil
}

func (s *MemorySessionStore) Get(ctx context.Context, sender string) (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sender]
	if !ok {
		return Session{}, false, nil
	}
	if s.now().Sub(session.LastMessageAt) > s.ttl {
		delete(s.sessions, sender)
		return Session{}, false, nil
	}
	return *session, true, nil
}

// Len reports the live entry count, for tests and metrics.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemorySessionStore) sweepLocked(now time.Time) {
	cutoff := now.Add(-s.ttl)
	for sender, session := range s.sessions {
		if session.LastMessageAt.Before(cutoff) {
			delete(s.sessions, sender)
		}
	}
}

func (s *MemorySessionStore) evictOldestLocked() {
	var oldestSender string
	var oldest time.Time
	for sender, session := range s.sessions {
		if oldestSender == "" || session.LastMessageAt.Before(oldest) {
			oldestSender = sender
			oldest = session.LastMessageAt
		}
	}
	if oldestSender != "" {
		delete(s.sessions, oldestSender)
	}
}

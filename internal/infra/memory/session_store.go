package memory

import (
	"context"
	"sync"
	"time"

	"anxiety-quiz-bot/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Sessions idle for longer than ttl read as absent; ttl <= 0 keeps them forever.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[int64]storedSession
}

type storedSession struct {
	session   domain.Session
	expiresAt time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return NewSessionStoreWithClock(ttl, time.Now)
}

// NewSessionStoreWithClock allows deterministic expiry in tests.
func NewSessionStoreWithClock(ttl time.Duration, clock func() time.Time) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    clock,
		sessions: make(map[int64]storedSession),
	}
}

func (s *SessionStore) Get(_ context.Context, userID int64) (domain.Session, bool, error) {
	s.mu.RLock()
	entry, ok := s.sessions[userID]
	s.mu.RUnlock()
	if !ok {
		return domain.Session{}, false, nil
	}
	if s.expired(entry) {
		s.mu.Lock()
		if current, ok := s.sessions[userID]; ok && s.expired(current) {
			delete(s.sessions, userID)
		}
		s.mu.Unlock()
		return domain.Session{}, false, nil
	}
	return entry.session.Clone(), true, nil
}

func (s *SessionStore) Put(_ context.Context, session domain.Session) error {
	entry := storedSession{session: session.Clone()}
	if s.ttl > 0 {
		entry.expiresAt = s.clock().Add(s.ttl)
	}

	s.mu.Lock()
	s.sessions[session.UserID] = entry
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
	return nil
}

// Sweep drops every expired session and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.sessions {
		if s.expired(entry) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *SessionStore) expired(entry storedSession) bool {
	return !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock())
}

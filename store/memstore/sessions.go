package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"rental_service/domain"
)

type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]domain.Session
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{ttl: ttl, sessions: map[string]domain.Session{}}
}

func (s *SessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if time.Now().After(session.ExpiresAt) {
		delete(s.sessions, id)
		return nil, domain.ErrNotFound
	}
	return cloneSession(&session), nil
}

func (s *SessionStore) Save(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.ExpiresAt = time.Now().Add(s.ttl)
	s.sessions[session.ID] = *cloneSession(session)
	return nil
}

func (s *SessionStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) Regenerate(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	if err := s.Destroy(ctx, session.ID); err != nil {
		return nil, err
	}
	regenerated := cloneSession(session)
	regenerated.ID = uuid.NewString()
	return regenerated, nil
}

// Len reports how many sessions are currently held.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func cloneSession(session *domain.Session) *domain.Session {
	c := *session
	if session.User != nil {
		user := *session.User
		c.User = &user
	}
	return &c
}

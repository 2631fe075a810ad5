package telegram

import (
	"sync"
	"time"

	"tryonapi/models"
)

type session struct {
	selfie    models.ImageReference
	updatedAt time.Time
}

// SessionStore keeps the selfie each chat sent last.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*session
	ttl      time.Duration
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{sessions: make(map[int64]*session), ttl: ttl}
}

func (s *SessionStore) Selfie(chatID int64) (models.ImageReference, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[chatID]
	if !ok {
		return models.ImageReference{}, false
	}
	if s.ttl > 0 && time.Since(current.updatedAt) > s.ttl {
		delete(s.sessions, chatID)
		return models.ImageReference{}, false
	}
	return current.selfie, true
}

func (s *SessionStore) SetSelfie(chatID int64, selfie models.ImageReference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.sweep(now)
	s.sessions[chatID] = &session{selfie: selfie, updatedAt: now}
}

// sweep drops every expired session. Callers hold mu.
func (s *SessionStore) sweep(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for chatID, current := range s.sessions {
		if now.Sub(current.updatedAt) > s.ttl {
			delete(s.sessions, chatID)
		}
	}
}

func (s *SessionStore) Reset(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

package store

import (
	"sync"

	"github.com/example/zinco/internal/logger"
	"github.com/example/zinco/internal/models"
	"github.com/example/zinco/internal/storage"
)

type sessionRecord struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
}

// SessionStore holds the authenticated identity of the device.
// Authenticated is true exactly when a user is present.
type SessionStore struct {
	mu      sync.RWMutex
	storage storage.Storage
	last    *LastIdentityCache
	user    *models.User
}

// NewSessionStore loads the session from s. last receives the
// remember-me record on every login and profile update.
func NewSessionStore(s storage.Storage, last *LastIdentityCache, log *logger.Logger) (*SessionStore, error) {
	rec, err := loadJSON(s, SessionKey, sessionRecord{}, log)
	if err != nil {
		return nil, err
	}

	st := &SessionStore{storage: s, last: last}
	if rec.Authenticated && rec.User != nil {
		st.user = rec.User
	}
	return st, nil
}

// IsAuthenticated reports whether an identity is active.
func (s *SessionStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// User returns a copy of the active identity, or nil.
func (s *SessionStore) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Login activates user and overwrites the last-identity record.
func (s *SessionStore) Login(user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := saveJSON(s.storage, SessionKey, sessionRecord{Authenticated: true, User: &user}); err != nil {
		return err
	}
	s.user = &user

	return s.last.Set(models.LastIdentityOf(user))
}

// Logout clears the session. The PIN vault and last identity are untouched.
func (s *SessionStore) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Remove(SessionKey); err != nil {
		return err
	}
	s.user = nil
	return nil
}

// UpdateProfile merges update into the active identity. It is a no-op
// when nobody is logged in.
func (s *SessionStore) UpdateProfile(update models.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil
	}

	updated := update.Apply(*s.user)
	if err := saveJSON(s.storage, SessionKey, sessionRecord{Authenticated: true, User: &updated}); err != nil {
		return err
	}
	s.user = &updated

	return s.last.Set(models.LastIdentityOf(updated))
}

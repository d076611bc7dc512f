// Package session provides issuance, validation, and revocation of
// cookie-backed sessions.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrMissingToken is returned when no session token was supplied.
var ErrMissingToken = errors.New("session token is missing")

// ErrUnknownToken is returned when no session is assigned to the token.
var ErrUnknownToken = errors.New("no session assigned to token")

// ErrExpired is returned when the session's expiry has passed.
var ErrExpired = errors.New("session is expired")

// Session binds an opaque token to an authenticated identity and an expiry.
type Session struct {
	Token    string
	Identity string
	// ExpiresAt is the instant at which the session stops being valid.
	// A Validate call at exactly ExpiresAt sees the session as expired.
	ExpiresAt time.Time
}

// Store tracks active sessions in memory.
// All methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty session Store whose sessions live for ttl.
//
// Precondition: ttl must be positive.
func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a session for the given identity and returns it.
// The token is a random UUID, unique among live sessions.
//
// Precondition: identity must be non-empty.
// Postcondition: The returned session is stored and valid until ExpiresAt.
func (s *Store) Issue(identity string) Session {
	sess := Session{
		Token:     uuid.NewString(),
		Identity:  identity,
		ExpiresAt: s.now().Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()

	return sess
}

// Validate checks the token and returns the identity it was issued for.
// Expired sessions are treated as absent; they are not purged here and
// no expiry refresh takes place.
//
// Postcondition: Returns ErrMissingToken for an empty token,
// ErrUnknownToken for a token with no session, ErrExpired when the
// expiry has passed, or the identity on success. State is never mutated.
func (s *Store) Validate(token string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}

	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return "", ErrUnknownToken
	}
	if !s.now().Before(sess.ExpiresAt) {
		return "", ErrExpired
	}
	return sess.Identity, nil
}

// Revoke deletes the session for the given token.
// Revoking a token with no session is not an error.
//
// Postcondition: Returns ErrMissingToken for an empty token; otherwise
// the token no longer maps to a session.
func (s *Store) Revoke(token string) error {
	if token == "" {
		return ErrMissingToken
	}

	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()

	return nil
}

// Count returns the number of stored sessions, expired ones included.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

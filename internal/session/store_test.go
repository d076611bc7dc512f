package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	s := NewStore(5 * time.Hour)

	sess := s.Issue("alice")
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "alice", sess.Identity)

	identity, err := s.Validate(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity)
}

func TestIssueUniqueTokens(t *testing.T) {
	s := NewStore(time.Hour)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		sess := s.Issue("bob")
		assert.False(t, seen[sess.Token], "token %q issued twice", sess.Token)
		seen[sess.Token] = true
	}
}

func TestValidateMissingToken(t *testing.T) {
	s := NewStore(time.Hour)
	_, err := s.Validate("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestValidateUnknownToken(t *testing.T) {
	s := NewStore(time.Hour)
	_, err := s.Validate("nonexistent")
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestValidateExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: now}
	s := NewStore(5*time.Hour, WithClock(clock.Now))

	sess := s.Issue("alice")
	assert.Equal(t, now.Add(5*time.Hour), sess.ExpiresAt)

	// One instant before expiry the session is still valid.
	clock.Set(now.Add(5*time.Hour - time.Nanosecond))
	identity, err := s.Validate(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity)

	// Exactly at expiry counts as expired.
	clock.Set(now.Add(5 * time.Hour))
	_, err = s.Validate(sess.Token)
	assert.ErrorIs(t, err, ErrExpired)

	clock.Set(now.Add(6 * time.Hour))
	_, err = s.Validate(sess.Token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestValidateDoesNotPurgeExpired(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := NewStore(time.Hour, WithClock(clock.Now))

	sess := s.Issue("alice")
	clock.Set(clock.t.Add(2 * time.Hour))

	_, err := s.Validate(sess.Token)
	assert.ErrorIs(t, err, ErrExpired)
	// Lazy expiry: the record stays until revoked.
	assert.Equal(t, 1, s.Count())
}

func TestValidateDoesNotRefresh(t *testing.T) {
	now := time.Now()
	clock := &fakeClock{t: now}
	s := NewStore(time.Hour, WithClock(clock.Now))

	sess := s.Issue("alice")

	clock.Set(now.Add(30 * time.Minute))
	_, err := s.Validate(sess.Token)
	require.NoError(t, err)

	// Validation must not extend the session.
	clock.Set(now.Add(61 * time.Minute))
	_, err = s.Validate(sess.Token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestRevoke(t *testing.T) {
	s := NewStore(time.Hour)
	sess := s.Issue("alice")

	require.NoError(t, s.Revoke(sess.Token))

	_, err := s.Validate(sess.Token)
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestRevokeMissingToken(t *testing.T) {
	s := NewStore(time.Hour)
	assert.ErrorIs(t, s.Revoke(""), ErrMissingToken)
}

func TestRevokeUnknownTokenIsNotAnError(t *testing.T) {
	s := NewStore(time.Hour)
	assert.NoError(t, s.Revoke("never-issued"))
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := s.Issue("user")
			_, err := s.Validate(sess.Token)
			assert.NoError(t, err)
			assert.NoError(t, s.Revoke(sess.Token))
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, s.Count())
}

// fakeClock is a settable time source for expiry tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

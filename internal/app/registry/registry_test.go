package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer5167/chatspotWebservices/internal/domain/user"
)

// recordingSink captures sent events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) Send(event string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	copy(out, s.events)
	return out
}

func TestRegistry_RegisterAndIdentify(t *testing.T) {
	r := New()
	sink := &recordingSink{}

	c := r.Register(sink)
	require.NotEmpty(t, c.ID)
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, 0, r.IdentifiedCount())
	assert.Empty(t, c.UserID())

	entry := user.NewEntry("u1", "M", user.InterestAny)
	require.NoError(t, r.Identify(c.ID, entry))
	assert.Equal(t, 1, r.IdentifiedCount())
	assert.Equal(t, "u1", c.UserID())

	got, ok := r.GetByUser("u1")
	require.True(t, ok)
	assert.Equal(t, c.ID, got.ID)

	assert.ErrorIs(t, r.Identify("nope", entry), ErrInvalidConnection)
}

func TestRegistry_ReconnectMovesBinding(t *testing.T) {
	r := New()

	c1 := r.Register(&recordingSink{})
	c2 := r.Register(&recordingSink{})

	require.NoError(t, r.Identify(c1.ID, user.NewEntry("u1", "M", "F")))
	require.NoError(t, r.Identify(c2.ID, user.NewEntry("u1", "M", "F")))

	got, ok := r.GetByUser("u1")
	require.True(t, ok)
	assert.Equal(t, c2.ID, got.ID)

	// Dropping the stale connection must not clear the new binding.
	r.Unregister(c1.ID)
	_, ok = r.GetByUser("u1")
	assert.True(t, ok)
}

func TestRegistry_UnregisterIsIdempotent(t *testing.T) {
	r := New()
	c := r.Register(&recordingSink{})
	entry := user.NewEntry("u1", "F", "M")
	require.NoError(t, r.Identify(c.ID, entry))

	got := r.Unregister(c.ID)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, user.StateDisconnected, got.State)
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0, r.IdentifiedCount())

	assert.Nil(t, r.Unregister(c.ID))
}

func TestRegistry_Broadcast(t *testing.T) {
	r := New()
	s1 := &recordingSink{}
	s2 := &recordingSink{}
	r.Register(s1)
	r.Register(s2)

	r.Broadcast("updateUserCount", map[string]int{"totalUsers": 2})

	assert.Equal(t, []string{"updateUserCount"}, s1.Events())
	assert.Equal(t, []string{"updateUserCount"}, s2.Events())
}

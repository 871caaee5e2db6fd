package matchmaking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/developer5167/chatspotWebservices/internal/infra/clock"
)

func TestScheduler_FiresOnce(t *testing.T) {
	fake := clock.NewFake(time.Now())
	s := NewScheduler(fake)

	fires := 0
	s.Arm("u1", 30*time.Second, func(key string) {
		fires++
		assert.Equal(t, "u1", key)
	})
	assert.Equal(t, 1, s.Count())

	fake.Advance(31 * time.Second)
	assert.Equal(t, 1, fires)
	assert.Equal(t, 0, s.Count(), "fired timer must release its slot")

	// Firing removed the slot, so a late cancel is a no-op.
	assert.False(t, s.Cancel("u1"))
}

func TestScheduler_CancelPreventsFiring(t *testing.T) {
	fake := clock.NewFake(time.Now())
	s := NewScheduler(fake)

	fires := 0
	s.Arm("u1", 30*time.Second, func(string) { fires++ })

	assert.True(t, s.Cancel("u1"))
	assert.Equal(t, 0, s.Count())

	fake.Advance(time.Minute)
	assert.Equal(t, 0, fires)
}

func TestScheduler_RearmReplacesTimer(t *testing.T) {
	fake := clock.NewFake(time.Now())
	s := NewScheduler(fake)

	var fired []string
	s.Arm("u1", 10*time.Second, func(string) { fired = append(fired, "first") })
	s.Arm("u1", 20*time.Second, func(string) { fired = append(fired, "second") })
	assert.Equal(t, 1, s.Count())

	fake.Advance(15 * time.Second)
	assert.Empty(t, fired, "replaced timer must not fire")

	fake.Advance(10 * time.Second)
	assert.Equal(t, []string{"second"}, fired)
}

func TestScheduler_CancelAll(t *testing.T) {
	fake := clock.NewFake(time.Now())
	s := NewScheduler(fake)

	fires := 0
	s.Arm("a", time.Second, func(string) { fires++ })
	s.Arm("b", time.Second, func(string) { fires++ })
	assert.Equal(t, 2, s.Count())

	s.CancelAll()
	fake.Advance(2 * time.Second)
	assert.Equal(t, 0, fires)
	assert.Equal(t, 0, s.Count())
}

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_AdvanceFiresInOrder(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := NewFake(start)

	var order []string
	fake.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	fake.AfterFunc(1*time.Second, func() { order = append(order, "a") })
	fake.AfterFunc(5*time.Second, func() { order = append(order, "late") })

	fake.Advance(3 * time.Second)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, start.Add(3*time.Second), fake.Now())

	fake.Advance(3 * time.Second)
	assert.Equal(t, []string{"a", "b", "late"}, order)
}

func TestFake_StopPreventsFiring(t *testing.T) {
	fake := NewFake(time.Now())

	fired := false
	timer := fake.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	fake.Advance(2 * time.Second)
	assert.False(t, fired)

	// Stopping again is a no-op.
	assert.False(t, timer.Stop())
}

func TestFake_CallbackSchedulesTimer(t *testing.T) {
	fake := NewFake(time.Now())

	var fires int
	fake.AfterFunc(time.Second, func() {
		fires++
		fake.AfterFunc(time.Second, func() { fires++ })
	})

	fake.Advance(3 * time.Second)
	assert.Equal(t, 2, fires)
}

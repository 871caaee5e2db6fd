package fleet

import (
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer5167/chatspotWebservices/internal/app/matchmaking"
	"github.com/developer5167/chatspotWebservices/internal/domain/profile"
	"github.com/developer5167/chatspotWebservices/internal/infra/clock"
)

func testConfig(min, max int) Config {
	return Config{
		MinCount:     min,
		MaxCount:     max,
		Tick:         10 * time.Second,
		PadCooldown:  2 * time.Minute,
		PickCooldown: 3 * time.Minute,
	}
}

func newSim(t *testing.T, cfg Config, queue *matchmaking.Queue, pool *profile.Pool, fc *clock.Fake, onChange func()) *Simulator {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	return New(cfg, queue, pool, fc, rng, onChange)
}

func TestStartSeedsToMinimum(t *testing.T) {
	fc := clock.NewFake(time.Unix(1000, 0))
	queue := matchmaking.NewQueue()
	pool := profile.NewPool(profile.Defaults(), rand.New(rand.NewSource(1)))

	var changes atomic.Int32
	sim := newSim(t, testConfig(5, 8), queue, pool, fc, func() { changes.Add(1) })
	sim.Start()
	defer sim.Stop()

	assert.Equal(t, 5, queue.VirtualCount())
	assert.Equal(t, int32(1), changes.Load())

	// Every padded entry is profile-backed.
	for _, e := range queue.Virtuals() {
		assert.Equal(t, matchmaking.KindVirtual, e.Kind)
		assert.NotEmpty(t, e.ProfileID)
		assert.Equal(t, "virtual_"+e.ProfileID, e.ID)
	}
}

func TestStartCappedByPool(t *testing.T) {
	fc := clock.NewFake(time.Unix(1000, 0))
	queue := matchmaking.NewQueue()
	pool := profile.NewPool(profile.Defaults(), rand.New(rand.NewSource(1)))

	// Band far above the 10 built-in profiles.
	sim := newSim(t, testConfig(100, 2000), queue, pool, fc, nil)
	sim.Start()
	defer sim.Stop()

	assert.Equal(t, pool.Size(), queue.VirtualCount())
}

func TestRebalanceGrowsTowardTarget(t *testing.T) {
	fc := clock.NewFake(time.Unix(1000, 0))
	queue := matchmaking.NewQueue()
	pool := profile.NewPool(profile.Defaults(), rand.New(rand.NewSource(1)))

	// min == max pins the target.
	sim := newSim(t, testConfig(6, 6), queue, pool, fc, nil)
	sim.Rebalance()

	assert.Equal(t, 6, queue.VirtualCount())
}

func TestRebalanceShrinksTowardTarget(t *testing.T) {
	fc := clock.NewFake(time.Unix(1000, 0))
	queue := matchmaking.NewQueue()
	pool := profile.NewPool(profile.Defaults(), rand.New(rand.NewSource(1)))

	grow := newSim(t, testConfig(8, 8), queue, pool, fc, nil)
	grow.Rebalance()
	require.Equal(t, 8, queue.VirtualCount())

	shrink := newSim(t, testConfig(3, 3), queue, pool, fc, nil)
	shrink.Rebalance()

	assert.Equal(t, 3, queue.VirtualCount())
}

func TestTickDrivesRebalance(t *testing.T) {
	fc := clock.NewFake(time.Unix(1000, 0))
	queue := matchmaking.NewQueue()
	pool := profile.NewPool(profile.Defaults(), rand.New(rand.NewSource(1)))

	cfg := testConfig(4, 4)
	sim := newSim(t, cfg, queue, pool, fc, nil)
	sim.Start()
	require.Equal(t, 4, queue.VirtualCount())

	// Drain below the band, then let the tick refill it from the
	// profiles still out of cooldown.
	for _, id := range queue.VirtualIDs()[:2] {
		queue.Remove(id)
	}
	require.Equal(t, 2, queue.VirtualCount())

	fc.Advance(cfg.Tick)
	assert.Equal(t, 4, queue.VirtualCount())

	sim.Stop()
	for _, id := range queue.VirtualIDs()[:1] {
		queue.Remove(id)
	}
	fc.Advance(10 * cfg.Tick)
	assert.Equal(t, 3, queue.VirtualCount(), "rebalance must not run after Stop")
}

func TestPickForEscalation(t *testing.T) {
	t.Run("consumes a queued entry and sets cooldown", func(t *testing.T) {
		fc := clock.NewFake(time.Unix(1000, 0))
		queue := matchmaking.NewQueue()
		pool := profile.NewPool(profile.Defaults(), rand.New(rand.NewSource(1)))

		sim := newSim(t, testConfig(3, 3), queue, pool, fc, nil)
		sim.Rebalance()
		require.Equal(t, 3, queue.VirtualCount())

		p := sim.PickForEscalation("")
		require.NotNil(t, p)
		assert.Equal(t, 2, queue.VirtualCount())
		assert.False(t, queue.Contains("virtual_"+p.ID))
		assert.True(t, p.InCooldown(fc.Now()))
		assert.True(t, p.InCooldown(fc.Now().Add(3*time.Minute-time.Second)))
		assert.False(t, p.InCooldown(fc.Now().Add(3*time.Minute+time.Second)))
	})

	t.Run("skips the excluded profile", func(t *testing.T) {
		fc := clock.NewFake(time.Unix(1000, 0))
		queue := matchmaking.NewQueue()
		pool := profile.NewPool(profile.Defaults(), rand.New(rand.NewSource(1)))

		sim := newSim(t, testConfig(3, 3), queue, pool, fc, nil)
		sim.Rebalance()

		exclude := queue.Virtuals()[0].ProfileID
		p := sim.PickForEscalation(exclude)
		require.NotNil(t, p)
		assert.NotEqual(t, exclude, p.ID)
	})

	t.Run("repeat bot beats no bot", func(t *testing.T) {
		fc := clock.NewFake(time.Unix(1000, 0))
		queue := matchmaking.NewQueue()
		only := []*profile.Profile{{ID: "solo", DisplayName: "Solo", Gender: "F", Persona: "friendly"}}
		pool := profile.NewPool(only, rand.New(rand.NewSource(1)))

		sim := newSim(t, testConfig(1, 1), queue, pool, fc, nil)
		sim.Rebalance()
		require.Equal(t, 1, queue.VirtualCount())

		p := sim.PickForEscalation("solo")
		require.NotNil(t, p)
		assert.Equal(t, "solo", p.ID)
		assert.Equal(t, 0, queue.VirtualCount())
	})

	t.Run("falls back to the pool when nothing is queued", func(t *testing.T) {
		fc := clock.NewFake(time.Unix(1000, 0))
		queue := matchmaking.NewQueue()
		pool := profile.NewPool(profile.Defaults(), rand.New(rand.NewSource(1)))

		sim := newSim(t, testConfig(0, 0), queue, pool, fc, nil)
		p := sim.PickForEscalation("")
		require.NotNil(t, p)
		assert.True(t, p.InCooldown(fc.Now()))
	})

	t.Run("nil when the pool is exhausted", func(t *testing.T) {
		fc := clock.NewFake(time.Unix(1000, 0))
		queue := matchmaking.NewQueue()
		only := []*profile.Profile{{ID: "solo", DisplayName: "Solo", Gender: "F", Persona: "friendly"}}
		pool := profile.NewPool(only, rand.New(rand.NewSource(1)))

		sim := newSim(t, testConfig(0, 0), queue, pool, fc, nil)
		require.NotNil(t, sim.PickForEscalation(""))
		assert.Nil(t, sim.PickForEscalation(""))
	})
}

// Package fleet keeps a band of synthetic waiting entries in the queue so
// the visible occupancy never drops to zero, and hands out virtual
// profiles for bot escalation.
package fleet

import (
	"math/rand"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/developer5167/chatspotWebservices/internal/app/matchmaking"
	"github.com/developer5167/chatspotWebservices/internal/domain/profile"
	"github.com/developer5167/chatspotWebservices/internal/domain/user"
	"github.com/developer5167/chatspotWebservices/internal/infra/clock"
)

// Config represents fleet configuration.
type Config struct {
	MinCount     int
	MaxCount     int
	Tick         time.Duration
	PadCooldown  time.Duration // rest period after a profile is used as queue padding
	PickCooldown time.Duration // rest period after a profile is picked for escalation
}

// Simulator injects and removes synthetic waiting entries so the virtual
// count drifts toward a random target inside [MinCount, MaxCount]. It is
// also the source pool for escalation picks.
type Simulator struct {
	cfg   Config
	queue *matchmaking.Queue
	pool  *profile.Pool
	clk   clock.Clock

	mu      sync.Mutex
	rng     *rand.Rand
	timer   clock.Timer
	stopped bool

	// Called after every rebalance so presence counts stay fresh.
	onChange func()
}

// New creates a fleet simulator. The random source is injected so tests
// can seed it; onChange may be nil.
func New(cfg Config, queue *matchmaking.Queue, pool *profile.Pool, clk clock.Clock, rng *rand.Rand, onChange func()) *Simulator {
	return &Simulator{
		cfg:      cfg,
		queue:    queue,
		pool:     pool,
		clk:      clk,
		rng:      rng,
		onChange: onChange,
	}
}

// Start seeds the queue up to the minimum band edge and begins the
// periodic rebalance loop.
func (s *Simulator) Start() {
	s.mu.Lock()
	s.stopped = false
	if n := s.cfg.MinCount - s.queue.VirtualCount(); n > 0 {
		s.addVirtualsLocked(n)
	}
	s.armLocked()
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange()
	}
	zlog.Info().Msgf("fleet started: band=[%d,%d] tick=%s pool=%d available=%d",
		s.cfg.MinCount, s.cfg.MaxCount, s.cfg.Tick, s.pool.Size(), s.pool.Available(s.clk.Now()))
}

// Stop halts the rebalance loop. Queued virtual entries are left in place.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// armLocked schedules the next rebalance tick.
func (s *Simulator) armLocked() {
	if s.stopped {
		return
	}
	s.timer = s.clk.AfterFunc(s.cfg.Tick, func() {
		s.Rebalance()
		s.mu.Lock()
		s.armLocked()
		s.mu.Unlock()
	})
}

// Rebalance performs one fluctuation pass: pick a random target inside the
// band and add or remove synthetic entries to approach it. When already at
// target there is a 40% chance of a small jitter so the count never looks
// frozen.
func (s *Simulator) Rebalance() {
	s.mu.Lock()

	current := s.queue.VirtualCount()
	target := s.cfg.MinCount
	if span := s.cfg.MaxCount - s.cfg.MinCount; span > 0 {
		target += s.rng.Intn(span + 1)
	}

	switch {
	case current == target:
		if s.rng.Float64() < 0.4 {
			jitter := s.rng.Intn(11) - 5 // -5..+5
			if jitter > 0 {
				s.addVirtualsLocked(jitter)
			} else if jitter < 0 {
				s.removeVirtualsLocked(-jitter)
			}
		}
	case current < target:
		s.addVirtualsLocked(target - current)
	default:
		s.removeVirtualsLocked(current - target)
	}

	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange()
	}
}

// addVirtualsLocked enqueues up to n profile-backed synthetic entries.
// Growth is bounded by the profiles currently out of cooldown, so the
// virtual count can sit below target when the pool is small or busy.
func (s *Simulator) addVirtualsLocked(n int) {
	now := s.clk.Now()
	for _, p := range s.pool.Take(n, now, s.cfg.PadCooldown) {
		e := &matchmaking.Entry{
			ID:           "virtual_" + p.ID,
			Gender:       p.Gender,
			InterestedIn: user.InterestAny,
			Kind:         matchmaking.KindVirtual,
			ProfileID:    p.ID,
			EnqueuedAt:   now,
		}
		if err := s.queue.Add(e); err != nil {
			continue
		}
		zlog.Debug().Msgf("virtual added to queue: id=%s name=%s", e.ID, p.DisplayName)
	}
}

// removeVirtualsLocked drops up to n random synthetic entries.
func (s *Simulator) removeVirtualsLocked(n int) {
	ids := s.queue.VirtualIDs()
	s.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	if n > len(ids) {
		n = len(ids)
	}
	for _, id := range ids[:n] {
		s.queue.Remove(id)
	}
}

// PickForEscalation returns one virtual profile for a bot session and
// marks it in cooldown. Entries already padding the queue are preferred
// and their waiting entry is consumed. A profile matching excludeProfileID
// is skipped unless it is the only candidate (a repeat bot beats no bot).
// Returns nil when no profile is available.
func (s *Simulator) PickForEscalation(excludeProfileID string) *profile.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.Now()

	var fallback *matchmaking.Entry
	for _, e := range s.queue.Virtuals() {
		if e.ProfileID == excludeProfileID {
			if fallback == nil {
				fallback = e
			}
			continue
		}
		if p, ok := s.pool.Get(e.ProfileID); ok {
			s.queue.RemoveVirtualByProfile(e.ProfileID)
			p.SetCooldown(now.Add(s.cfg.PickCooldown))
			return p
		}
	}

	if fallback != nil {
		if p, ok := s.pool.Get(fallback.ProfileID); ok {
			s.queue.RemoveVirtualByProfile(fallback.ProfileID)
			p.SetCooldown(now.Add(s.cfg.PickCooldown))
			return p
		}
	}

	// Queue holds no virtual entries; fall back to the pool directly.
	return s.pool.Pick(now, s.cfg.PickCooldown, excludeProfileID)
}

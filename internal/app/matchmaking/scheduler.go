package matchmaking

import (
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/developer5167/chatspotWebservices/internal/infra/clock"
)

// Scheduler manages at most one eviction timer per key. A cancelled timer
// never runs its callback, and a timer that already ran is authoritative:
// cancelling it afterwards is a no-op.
type Scheduler struct {
	mu     sync.Mutex
	clock  clock.Clock
	timers map[string]*handle
	gen    uint64
}

type handle struct {
	gen   uint64
	timer clock.Timer
}

// NewScheduler creates a scheduler on the given clock.
func NewScheduler(c clock.Clock) *Scheduler {
	return &Scheduler{
		clock:  c,
		timers: make(map[string]*handle),
	}
}

// Arm schedules fn to run after d, replacing any live timer for the key.
// The callback runs off the scheduler lock; by the time it runs, the key's
// slot is already cleared, so Cancel racing with the firing is harmless.
func (s *Scheduler) Arm(key string, d time.Duration, fn func(key string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[key]; ok {
		old.timer.Stop()
		zlog.Debug().Msgf("scheduler: replacing live timer: key=%s", key)
	}

	s.gen++
	gen := s.gen
	h := &handle{gen: gen}
	h.timer = s.clock.AfterFunc(d, func() {
		if !s.claim(key, gen) {
			return
		}
		fn(key)
	})
	s.timers[key] = h
}

// claim removes the key's slot if it still belongs to the given generation.
// Reports whether the caller may run the callback.
func (s *Scheduler) claim(key string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.timers[key]
	if !ok || h.gen != gen {
		return false
	}
	delete(s.timers, key)
	return true
}

// Cancel stops the live timer for the key, if any. Idempotent.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.timers[key]
	if !ok {
		return false
	}
	h.timer.Stop()
	delete(s.timers, key)
	return true
}

// CancelAll stops every live timer.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, h := range s.timers {
		h.timer.Stop()
		delete(s.timers, key)
	}
}

// Count returns the number of live timers.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

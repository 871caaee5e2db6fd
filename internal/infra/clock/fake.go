package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Clock for tests. Callbacks run synchronously
// on the goroutine that calls Advance, in due order.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	seq    int
}

type fakeTimer struct {
	clock   *Fake
	due     time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// NewFake creates a fake clock starting at the given time.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc schedules fn to run when the fake clock advances past d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	t := &fakeTimer{
		clock: f,
		due:   f.now.Add(d),
		seq:   f.seq,
		fn:    fn,
	}
	f.timers = append(f.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward and fires all timers that come due, in
// order. Callbacks may schedule further timers; those fire too if they fall
// within the advanced window.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		t := f.nextDue(target)
		if t == nil {
			break
		}

		f.mu.Lock()
		if t.due.After(f.now) {
			f.now = t.due
		}
		t.fired = true
		f.mu.Unlock()

		t.fn()
	}

	f.mu.Lock()
	f.now = target
	f.mu.Unlock()
}

// nextDue pops the earliest unfired, unstopped timer due at or before target.
func (f *Fake) nextDue(target time.Time) *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()

	var pending []*fakeTimer
	for _, t := range f.timers {
		if !t.fired && !t.stopped {
			pending = append(pending, t)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].due.Equal(pending[j].due) {
			return pending[i].seq < pending[j].seq
		}
		return pending[i].due.Before(pending[j].due)
	})

	for _, t := range pending {
		if !t.due.After(target) {
			return t
		}
	}
	return nil
}

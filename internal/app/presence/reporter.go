// Package presence broadcasts aggregate occupancy counts to every
// connected client.
package presence

import (
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/developer5167/chatspotWebservices/internal/app/matchmaking"
	"github.com/developer5167/chatspotWebservices/internal/app/registry"
	"github.com/developer5167/chatspotWebservices/internal/infra/clock"
)

// EventUserCount is the outbound presence event name.
const EventUserCount = "updateUserCount"

// Counts is the presence payload. The waiting count includes virtual
// padding so the queue never reads as empty.
type Counts struct {
	TotalUsers   int `json:"totalUsers"`
	WaitingUsers int `json:"waitingUsers"`
}

// Reporter derives counts from the registry and queue and broadcasts
// them, both on demand and on a periodic tick. Broadcasts are best-effort
// and may be stale by one tick.
type Reporter struct {
	reg   *registry.Registry
	queue *matchmaking.Queue
	clk   clock.Clock
	tick  time.Duration

	mu      sync.Mutex
	timer   clock.Timer
	stopped bool
}

// NewReporter creates a presence reporter.
func NewReporter(reg *registry.Registry, queue *matchmaking.Queue, clk clock.Clock, tick time.Duration) *Reporter {
	return &Reporter{
		reg:   reg,
		queue: queue,
		clk:   clk,
		tick:  tick,
	}
}

// Snapshot returns the current counts.
func (r *Reporter) Snapshot() Counts {
	return Counts{
		TotalUsers:   r.reg.IdentifiedCount(),
		WaitingUsers: r.queue.Len(),
	}
}

// Broadcast pushes the current counts to every connection.
func (r *Reporter) Broadcast() {
	counts := r.Snapshot()
	zlog.Debug().Msgf("presence update: total=%d waiting=%d", counts.TotalUsers, counts.WaitingUsers)
	r.reg.Broadcast(EventUserCount, counts)
}

// Start begins the periodic broadcast loop.
func (r *Reporter) Start() {
	r.mu.Lock()
	r.stopped = false
	r.armLocked()
	r.mu.Unlock()
	r.Broadcast()
}

// Stop halts the periodic loop.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Reporter) armLocked() {
	if r.stopped {
		return
	}
	r.timer = r.clk.AfterFunc(r.tick, func() {
		r.Broadcast()
		r.mu.Lock()
		r.armLocked()
		r.mu.Unlock()
	})
}

// Package alert pushes out-of-band notifications when a user is left
// waiting alone, behind a spam-prevention cooldown.
package alert

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/developer5167/chatspotWebservices/internal/infra/clock"
)

// Notification is one push notification.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Notifier delivers a notification to an external push channel.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Manager rate-limits waiting alerts. At most one notification goes out
// per cooldown window regardless of how often the trigger fires.
type Manager struct {
	notifier Notifier
	clk      clock.Clock
	cooldown time.Duration

	mu       sync.Mutex
	lastSent time.Time
}

// NewManager creates an alert manager.
func NewManager(notifier Notifier, clk clock.Clock, cooldown time.Duration) *Manager {
	return &Manager{
		notifier: notifier,
		clk:      clk,
		cooldown: cooldown,
	}
}

// UserWaiting fires the waiting alert unless the cooldown is active.
// Reports whether a notification was actually sent.
func (m *Manager) UserWaiting(ctx context.Context) bool {
	m.mu.Lock()
	now := m.clk.Now()
	if !m.lastSent.IsZero() && now.Sub(m.lastSent) < m.cooldown {
		m.mu.Unlock()
		zlog.Debug().Msg("waiting alert skipped: cooldown active")
		return false
	}
	m.lastSent = now
	m.mu.Unlock()

	err := m.notifier.Notify(ctx, Notification{
		Title: "Chat Partner Waiting!",
		Body:  "Someone is waiting to chat! Open the app now to connect with them.",
	})
	if err != nil {
		zlog.Error().Msgf("waiting alert failed: %v", err)
		// Keep the cooldown armed anyway; retrying every trigger would
		// hammer a broken webhook.
		return false
	}
	zlog.Info().Msg("waiting alert sent")
	return true
}

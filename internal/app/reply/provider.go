// Package reply provides bot reply generation strategies.
package reply

import (
	"context"
	"math/rand"
	"sync"

	"github.com/developer5167/chatspotWebservices/internal/domain/profile"
	"github.com/developer5167/chatspotWebservices/internal/infra/ollama"
)

// Request carries one inbound user utterance plus the session context a
// provider may need.
type Request struct {
	// Text is the raw user message.
	Text string
	// Profile is the virtual identity speaking for this session.
	Profile *profile.Profile
	// History holds the bounded recent turns, oldest first.
	History []ollama.Message
}

// Provider is the interface for bot reply providers.
// Different implementations can produce replies through various strategies
// (e.g., pattern-based, model-based, etc.).
type Provider interface {
	// Reply produces a reply for the request. The second return value
	// reports whether this provider handled the request; when false the
	// next provider in the chain is consulted.
	Reply(ctx context.Context, req *Request) (string, bool, error)

	// Name returns the provider name (used in config).
	Name() string
}

// ChatBackend defines the interface for the generative operations needed
// by reply providers.
type ChatBackend interface {
	Chat(ctx context.Context, messages []ollama.Message) (string, error)
}

// lockedRand makes a seeded rand.Rand safe for use across bot sessions.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand(r *rand.Rand) *lockedRand {
	return &lockedRand{r: r}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// pick returns a random element of options.
func (l *lockedRand) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[l.Intn(len(options))]
}

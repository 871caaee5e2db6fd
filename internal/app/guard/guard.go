// Package guard provides the message guard chain for relayed chat text.
package guard

import "context"

// Result represents the result of a guard check.
type Result struct {
	Accepted bool
	Code     string // e.g., "link_blocked"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Guard is the interface for message guards.
type Guard interface {
	// Name returns the guard name.
	Name() string
	// ReturnCodes returns the codes this guard can return.
	ReturnCodes() []string
	// Check performs the guard check on one chat message.
	Check(ctx context.Context, senderID, text string) Result
}

// Chain executes guards in sequence.
type Chain struct {
	guards []Guard
}

// NewChain creates a new guard chain.
func NewChain(guards ...Guard) *Chain {
	return &Chain{guards: guards}
}

// Check runs all guards in sequence. Returns immediately if any guard
// rejects the message.
func (c *Chain) Check(ctx context.Context, senderID, text string) Result {
	for _, g := range c.guards {
		result := g.Check(ctx, senderID, text)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Guards returns all guards in the chain.
func (c *Chain) Guards() []Guard {
	return c.guards
}

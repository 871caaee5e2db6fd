// Package user provides the chat user session entity and the
// mutual-compatibility predicate used for pairing.
package user

import "time"

// InterestAny matches any partner gender.
const InterestAny = "any"

// State represents a user's session state.
type State int

const (
	StateIdle         State = iota // Connected, not queued
	StateWaiting                   // In the matchmaking queue
	StatePaired                    // Paired with another human
	StateInBotSession              // Escalated to a bot conversation
	StateDisconnected              // Connection closed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StatePaired:
		return "paired"
	case StateInBotSession:
		return "in_bot_session"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Entry represents an identified user session.
type Entry struct {
	ID           string // Client-supplied correlation ID
	Gender       string
	InterestedIn string // Specific gender or InterestAny
	State        State
	ConnectedAt  time.Time
}

// NewEntry creates a new user entry in the idle state.
func NewEntry(id, gender, interestedIn string) *Entry {
	return &Entry{
		ID:           id,
		Gender:       gender,
		InterestedIn: interestedIn,
		State:        StateIdle,
		ConnectedAt:  time.Now(),
	}
}

// Compatible reports whether two users mutually accept each other.
// A side with InterestAny accepts any partner; otherwise the declared
// interest must equal the partner's gender, in both directions.
func Compatible(aGender, aInterest, bGender, bInterest string) bool {
	if aInterest != InterestAny && aInterest != bGender {
		return false
	}
	if bInterest != InterestAny && bInterest != aGender {
		return false
	}
	return true
}

package bot

// State represents the bot session conversation state.
type State int

const (
	// StateGreeting is the initial state while the opening line is sent.
	StateGreeting State = iota
	// StateConversing is the normal reply loop.
	StateConversing
	// StateClosing is entered when the message budget is exhausted.
	StateClosing
	// StateEnded is terminal; nothing is emitted after it.
	StateEnded
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateGreeting:
		return "greeting"
	case StateConversing:
		return "conversing"
	case StateClosing:
		return "closing"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

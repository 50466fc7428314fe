package session

// State is the session lifecycle state machine. It is the single source of
// truth for "is a conversation active", checked at the top of every public
// operation, so overlapping start/stop calls cannot race.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// active reports whether a conversation currently holds resources. Idle,
// Closed, and Failed are the states a new conversation may start from.
func (s State) active() bool {
	switch s {
	case StateConnecting, StateOpen, StateClosing:
		return true
	default:
		return false
	}
}

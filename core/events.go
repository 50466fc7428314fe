package core

type IEvent interface {
	GetId() string // Returns the unique identifier of the event.
}

type CriticalErrorEvent struct {
	Error string
}

func (e *CriticalErrorEvent) GetId() string {
	return "shared.critical_error"
}

type WarningEvent struct {
	Error string
}

func (e *WarningEvent) GetId() string {
	return "shared.warning"
}

// SessionStateEvent is emitted on every session state transition.
type SessionStateEvent struct {
	State string
}

func (e *SessionStateEvent) GetId() string {
	return "session.state"
}

// MicLevelEvent carries the RMS energy of the most recent capture chunk,
// for level meters in a UI.
type MicLevelEvent struct {
	RMS float64
}

func (e *MicLevelEvent) GetId() string {
	return "capture.level"
}

// PlaybackInterruptedEvent is emitted when the remote side barges in and all
// scheduled audio has been stopped.
type PlaybackInterruptedEvent struct{}

func (e *PlaybackInterruptedEvent) GetId() string {
	return "playback.interrupted"
}

package core

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied is returned when microphone access is refused or no
// capture device exists. Not retryable without user action; a conversation
// never starts when this is surfaced.
var ErrPermissionDenied = errors.New("microphone permission denied")

// ConnectionError wraps a transport failure: the session failed to open or
// dropped unexpectedly. Recovery is full teardown plus surfacing the error;
// there is no automatic retry.
type ConnectionError struct {
	Op  string // "connect", "send", "receive", "close"
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transport %s failed", e.Op)
	}
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DecodeError marks a single malformed inbound audio fragment. The fragment
// is dropped and the session continues.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode audio fragment: " + e.Reason
}

// SchedulingError is returned when the output sink rejects a scheduled start
// time. Playback timing can no longer be trusted, so callers escalate it to
// connection-level teardown.
type SchedulingError struct {
	Err error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("schedule playback: %v", e.Err)
}

func (e *SchedulingError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is a per-fragment decode failure that
// should be absorbed rather than tearing down the session.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Package transport defines the contract between a session and the remote
// conversational endpoint: an asynchronous, bidirectional, message-oriented
// channel. Inbound traffic is a single event stream (a tagged union) rather
// than scattered callbacks, so no closure can capture a stale handle.
package transport

import (
	"context"

	"livevoice/protocol"
)

// Config enumerates the session configuration sent on connect.
type Config struct {
	Voice            string // voice identity for synthesis
	SystemPrompt     string // system behavior text
	Modality         string // desired response modality; "audio"
	InputSampleRate  int    // rate of frames the client sends
	OutputSampleRate int    // rate of frames the server returns
}

// Provider dials the remote endpoint and returns a live Handle. Connect
// issues the request and returns as soon as the channel exists; the open
// acknowledgment arrives later as an OpenEvent.
type Provider interface {
	Connect(ctx context.Context, cfg Config) (Handle, error)
}

// Handle is one live connection. Exactly one handle exists per session; the
// session captures it locally so a stale handle from a previous start/stop
// cycle can never be used for sending.
type Handle interface {
	// Send transmits one encoded audio frame in capture order.
	Send(frame protocol.EncodedFrame) error
	// Close starts an orderly shutdown. Idempotent.
	Close() error
	// Events delivers the inbound stream. The channel is closed after a
	// ClosedEvent or ErrorEvent, whichever terminates the connection.
	Events() <-chan Event
}

// Event is the inbound tagged union: open, audio fragment, interrupted,
// error, or closed.
type Event interface {
	GetId() string
}

// OpenEvent is the transport's open acknowledgment. The session reacts by
// wiring capture -> encode -> send.
type OpenEvent struct{}

func (e *OpenEvent) GetId() string { return "transport.open" }

// AudioFrameEvent carries one encoded audio fragment destined for playback.
type AudioFrameEvent struct {
	Data       []byte
	MIMEType   string
	SampleRate int
}

func (e *AudioFrameEvent) GetId() string { return "transport.audio_frame" }

// InterruptedEvent signals that the remote side wants all currently playing
// audio stopped immediately (the user barged in).
type InterruptedEvent struct{}

func (e *InterruptedEvent) GetId() string { return "transport.interrupted" }

// ErrorEvent carries a fatal transport error. Terminal.
type ErrorEvent struct {
	Err error
}

func (e *ErrorEvent) GetId() string { return "transport.error" }

// ClosedEvent reports an orderly close, local or remote. Terminal.
type ClosedEvent struct {
	Reason string
}

func (e *ClosedEvent) GetId() string { return "transport.closed" }

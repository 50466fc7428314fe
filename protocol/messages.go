package protocol

import "encoding/json"

// MessageType enumerates all relay wire message types.
type MessageType string

const (
	// Client -> server
	MsgSetup MessageType = "setup"
	MsgAudio MessageType = "audio" // both directions
	MsgClose MessageType = "close"

	// Server -> client
	MsgSetupAck    MessageType = "setup_ack"
	MsgInterrupted MessageType = "interrupted"
	MsgError       MessageType = "error"
)

// Envelope is the outer JSON wrapper for all WebSocket messages.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SetupPayload is sent once by the client immediately after connecting. It
// carries the session configuration the remote endpoint needs to answer with
// synthesized audio.
type SetupPayload struct {
	Voice        string `json:"voice,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Modality     string `json:"modality"` // "audio"
	InputMIME    string `json:"input_mime"`
	OutputMIME   string `json:"output_mime"`
}

// AudioPayload carries one encoded audio frame. Data is base64 text on the
// wire (JSON []byte encoding).
type AudioPayload struct {
	Data []byte `json:"data"`
	MIME string `json:"mime"`
}

// InterruptedPayload signals that the user started talking while synthesized
// audio was still playing; the client must stop all scheduled playback now.
type InterruptedPayload struct {
	Reason string `json:"reason,omitempty"`
}

// ErrorPayload carries a fatal session error from the server.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ClosePayload announces an orderly close from either side.
type ClosePayload struct {
	Reason string `json:"reason,omitempty"`
}

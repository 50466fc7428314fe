// Package websocket implements the session transport over a JSON-envelope
// WebSocket relay: setup on connect, audio frames both ways, and explicit
// interrupted/error/close messages from the server.
package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"livevoice/core"
	"livevoice/protocol"
	"livevoice/transport"
)

const dialTimeout = 10 * time.Second

// Provider dials a relay endpoint such as wss://host/v1/live.
type Provider struct {
	URL    string
	Header map[string]string // extra headers, e.g. Authorization
}

// NewProvider creates a provider for the given endpoint URL.
func NewProvider(url string) *Provider {
	return &Provider{URL: url}
}

// Connect implements transport.Provider: dial, send the setup envelope, and
// hand the socket to a read loop. The relay acknowledges with setup_ack,
// which surfaces as OpenEvent.
func (p *Provider) Connect(ctx context.Context, cfg transport.Config) (transport.Handle, error) {
	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, dialTimeout)
		defer cancel()
	}

	header := make(map[string][]string, len(p.Header))
	for k, v := range p.Header {
		header[k] = []string{v}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, p.URL, header)
	if err != nil {
		return nil, &core.ConnectionError{Op: "connect", Err: err}
	}

	setup, err := protocol.Marshal(protocol.MsgSetup, protocol.SetupPayload{
		Voice:        cfg.Voice,
		SystemPrompt: cfg.SystemPrompt,
		Modality:     cfg.Modality,
		InputMIME:    protocol.PCMMIMEType(cfg.InputSampleRate),
		OutputMIME:   protocol.PCMMIMEType(cfg.OutputSampleRate),
	})
	if err != nil {
		conn.Close()
		return nil, &core.ConnectionError{Op: "connect", Err: err}
	}
	if err := conn.WriteMessage(websocket.TextMessage, setup); err != nil {
		conn.Close()
		return nil, &core.ConnectionError{Op: "connect", Err: err}
	}

	h := &handle{
		conn:       conn,
		events:     make(chan transport.Event, 32),
		outputRate: cfg.OutputSampleRate,
	}
	go h.readLoop()
	return h, nil
}

type handle struct {
	conn       *websocket.Conn
	outputRate int

	writeMu   sync.Mutex // protects writes
	events    chan transport.Event
	closeOnce sync.Once

	mu     sync.Mutex
	closed bool
}

// Send implements transport.Handle.
func (h *handle) Send(frame protocol.EncodedFrame) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return &core.ConnectionError{Op: "send", Err: errors.New("handle closed")}
	}

	msg, err := protocol.Marshal(protocol.MsgAudio, protocol.AudioPayload{
		Data: frame.Data,
		MIME: frame.MIMEType,
	})
	if err != nil {
		return &core.ConnectionError{Op: "send", Err: err}
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := h.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return &core.ConnectionError{Op: "send", Err: err}
	}
	return nil
}

// Close implements transport.Handle: announce the close, then drop the
// socket. The read loop notices and emits ClosedEvent.
func (h *handle) Close() error {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()

		if msg, err := protocol.Marshal(protocol.MsgClose, protocol.ClosePayload{Reason: "client stop"}); err == nil {
			h.writeMu.Lock()
			_ = h.conn.WriteMessage(websocket.TextMessage, msg)
			_ = h.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			h.writeMu.Unlock()
		}
		_ = h.conn.Close()
	})
	return nil
}

// Events implements transport.Handle.
func (h *handle) Events() <-chan transport.Event {
	return h.events
}

func (h *handle) readLoop() {
	defer close(h.events)

	for {
		_, data, err := h.conn.ReadMessage()
		if err != nil {
			h.mu.Lock()
			closedLocally := h.closed
			h.mu.Unlock()

			if closedLocally || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.events <- &transport.ClosedEvent{Reason: "connection closed"}
			} else {
				h.events <- &transport.ErrorEvent{
					Err: &core.ConnectionError{Op: "receive", Err: err},
				}
			}
			return
		}

		done, ev := h.translate(data)
		if ev != nil {
			h.events <- ev
		}
		if done {
			return
		}
	}
}

// translate maps one wire envelope to a transport event. The second return
// is nil for frames that carry nothing actionable (unknown types, malformed
// envelopes — both are dropped, not fatal).
func (h *handle) translate(data []byte) (done bool, ev transport.Event) {
	msgType, payload, err := protocol.Unmarshal(data)
	if err != nil {
		return false, nil
	}

	switch msgType {
	case protocol.MsgSetupAck:
		return false, &transport.OpenEvent{}

	case protocol.MsgAudio:
		audio, err := protocol.UnmarshalPayload[protocol.AudioPayload](payload)
		if err != nil || len(audio.Data) == 0 {
			return false, nil
		}
		return false, &transport.AudioFrameEvent{
			Data:       audio.Data,
			MIMEType:   audio.MIME,
			SampleRate: protocol.RateFromMIME(audio.MIME, h.outputRate),
		}

	case protocol.MsgInterrupted:
		return false, &transport.InterruptedEvent{}

	case protocol.MsgError:
		errPayload, _ := protocol.UnmarshalPayload[protocol.ErrorPayload](payload)
		return true, &transport.ErrorEvent{
			Err: &core.ConnectionError{Op: "receive", Err: errors.New(errPayload.Message)},
		}

	case protocol.MsgClose:
		closePayload, _ := protocol.UnmarshalPayload[protocol.ClosePayload](payload)
		return true, &transport.ClosedEvent{Reason: closePayload.Reason}

	default:
		return false, nil
	}
}

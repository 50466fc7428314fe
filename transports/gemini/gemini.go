// Package gemini implements the session transport over the Gemini Live API:
// realtime PCM input, synthesized audio output, and server-side barge-in
// signaling via the interrupted flag.
package gemini

import (
	"context"
	"errors"
	"io"
	"sync"

	"google.golang.org/genai"

	"livevoice/core"
	"livevoice/protocol"
	"livevoice/transport"
)

const defaultModel = "gemini-2.0-flash-live-001"

// Provider dials Gemini Live sessions.
type Provider struct {
	APIKey string
	Model  string
}

// NewProvider creates a provider for the given API key. An empty model
// selects the default live model.
func NewProvider(apiKey, model string) *Provider {
	if model == "" {
		model = defaultModel
	}
	return &Provider{APIKey: apiKey, Model: model}
}

// Connect implements transport.Provider.
func (p *Provider) Connect(ctx context.Context, cfg transport.Config) (transport.Handle, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &core.ConnectionError{Op: "connect", Err: err}
	}

	liveCfg := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
	}
	if cfg.SystemPrompt != "" {
		liveCfg.SystemInstruction = genai.NewContentFromText(cfg.SystemPrompt, genai.RoleUser)
	}
	if cfg.Voice != "" {
		liveCfg.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}

	session, err := client.Live.Connect(ctx, p.Model, liveCfg)
	if err != nil {
		return nil, &core.ConnectionError{Op: "connect", Err: err}
	}

	h := &handle{
		session:    session,
		events:     make(chan transport.Event, 32),
		outputRate: cfg.OutputSampleRate,
	}
	// The SDK completes the setup exchange inside Connect, so the channel is
	// open as soon as we get here.
	h.events <- &transport.OpenEvent{}
	go h.readLoop()
	return h, nil
}

type handle struct {
	session    *genai.Session
	outputRate int

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

	err := h.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{
			Data:     frame.Data,
			MIMEType: frame.MIMEType,
		},
	})
	if err != nil {
		return &core.ConnectionError{Op: "send", Err: err}
	}
	return nil
}

// Close implements transport.Handle.
func (h *handle) Close() error {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()
		_ = h.session.Close()
	})
	return nil
}

// Events implements transport.Handle.
func (h *handle) Events() <-chan transport.Event {
	return h.events
}

// readLoop receives server messages until the session ends, translating them
// into the tagged event union. It is the only sender on h.events after
// Connect returns, and it closes the channel on exit.
func (h *handle) readLoop() {
	defer close(h.events)

	for {
		msg, err := h.session.Receive()
		if err != nil {
			h.mu.Lock()
			closedLocally := h.closed
			h.mu.Unlock()

			if closedLocally || errors.Is(err, io.EOF) {
				h.events <- &transport.ClosedEvent{Reason: closeReason(closedLocally)}
			} else {
				h.events <- &transport.ErrorEvent{
					Err: &core.ConnectionError{Op: "receive", Err: err},
				}
			}
			return
		}
		h.dispatch(msg)
	}
}

func (h *handle) dispatch(msg *genai.LiveServerMessage) {
	content := msg.ServerContent
	if content == nil {
		return
	}

	if content.Interrupted {
		h.events <- &transport.InterruptedEvent{}
	}

	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			h.events <- &transport.AudioFrameEvent{
				Data:       part.InlineData.Data,
				MIMEType:   part.InlineData.MIMEType,
				SampleRate: protocol.RateFromMIME(part.InlineData.MIMEType, h.outputRate),
			}
		}
	}
}

func closeReason(local bool) string {
	if local {
		return "local close"
	}
	return "remote close"
}

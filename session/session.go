// Package session coordinates one live conversation: it owns the microphone,
// the transport handle, and the playback scheduler, and guarantees that every
// exit path — user stop, transport error, owner teardown — releases all of
// them together in reverse-acquisition order.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"livevoice/capture"
	"livevoice/core"
	"livevoice/diagnostics"
	"livevoice/playback"
	"livevoice/protocol"
	"livevoice/transport"
	"livevoice/utils/audio"
)

// Config holds the per-conversation settings.
type Config struct {
	Voice            string
	SystemPrompt     string
	InputSampleRate  int
	OutputSampleRate int
	ChunkSize        int
	Telephony        bool   // encode µ-law 8 kHz frames instead of PCM16
	LogDir           string // per-conversation jsonl logs; empty disables
	LogEndpoint      string // remote log collector websocket url; empty disables
}

// DefaultConfig returns a Config with the standard pipeline rates.
func DefaultConfig() Config {
	return Config{
		InputSampleRate:  core.CaptureSampleRate,
		OutputSampleRate: core.PlaybackSampleRate,
		ChunkSize:        core.CaptureChunkSize,
	}
}

// Stats are cumulative counters for the current or most recent conversation.
type Stats struct {
	FramesSent     uint64
	FramesReceived uint64
	DecodeFailures uint64
	Interrupts     uint64
	LastInterrupt  time.Time
}

// Manager is the resource lifecycle manager. It exposes exactly two
// operations, StartConversation and StopConversation, plus Close for owner
// teardown. At most one conversation is active at a time.
type Manager struct {
	provider  transport.Provider
	pipeline  *capture.Pipeline
	scheduler *playback.Scheduler
	cfg       Config
	logger    *core.Logger
	onEvent   func(core.IEvent)

	mu          sync.Mutex
	state       State
	stopPending bool // stop requested while still connecting
	active      *conversation

	framesSent     atomic.Uint64
	framesReceived atomic.Uint64
	decodeFailures atomic.Uint64
	interrupts     atomic.Uint64
	lastInterrupt  atomic.Int64 // unix nanos
}

// conversation bundles the resources of one session. The transport handle
// lives here, captured by the start call that created it, so a send can
// never go through a stale handle from a previous start/stop cycle.
type conversation struct {
	id        string
	startedAt time.Time
	handle    transport.Handle
	open      atomic.Bool // capture -> send wired after OpenEvent
	logWriter *core.ConversationLogWriter
	logStream core.LogWriter
	logger    *core.Logger
	teardown  sync.Once
	done      chan struct{}
}

// closeLogs closes every configured log destination for the conversation.
func (conv *conversation) closeLogs() {
	if conv.logWriter != nil {
		conv.logWriter.Close()
	}
	if conv.logStream != nil {
		conv.logStream.Close()
	}
}

// NewManager wires the manager over its collaborators. The scheduler's sink
// is injected by the caller, never pulled from ambient state.
func NewManager(provider transport.Provider, pipeline *capture.Pipeline, scheduler *playback.Scheduler, cfg Config, logger *core.Logger) *Manager {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Manager{
		provider:  provider,
		pipeline:  pipeline,
		scheduler: scheduler,
		cfg:       cfg,
		logger:    logger.With(map[string]interface{}{"component": "session"}),
		state:     StateIdle,
	}
}

// SetEventHandler registers an observer for session events (state changes,
// mic levels, interruptions). Must be called before StartConversation. The
// handler runs on pipeline goroutines and must not call back into the
// Manager.
func (m *Manager) SetEventHandler(fn func(core.IEvent)) {
	m.onEvent = fn
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns the cumulative counters.
func (m *Manager) Stats() Stats {
	s := Stats{
		FramesSent:     m.framesSent.Load(),
		FramesReceived: m.framesReceived.Load(),
		DecodeFailures: m.decodeFailures.Load(),
		Interrupts:     m.interrupts.Load(),
	}
	if ns := m.lastInterrupt.Load(); ns != 0 {
		s.LastInterrupt = time.Unix(0, ns)
	}
	return s
}

// StartConversation acquires the microphone, opens the transport, and wires
// capture -> encode -> send once the transport acknowledges open. No-op when
// a conversation is already active. On failure every partially acquired
// resource is released before the error is returned.
func (m *Manager) StartConversation(ctx context.Context) error {
	m.mu.Lock()
	if m.state.active() {
		m.mu.Unlock()
		return nil
	}
	m.stopPending = false
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	m.framesSent.Store(0)
	m.framesReceived.Store(0)
	m.decodeFailures.Store(0)
	m.interrupts.Store(0)
	m.lastInterrupt.Store(0)

	conv := &conversation{
		id:        uuid.New().String(),
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	conv.logger = m.logger.With(map[string]interface{}{"session_id": conv.id})

	if m.cfg.LogDir != "" {
		w, err := core.NewConversationLogWriter(m.cfg.LogDir, conv.id, m.cfg.Voice)
		if err != nil {
			conv.logger.Warn("conversation log disabled", "error", err)
		} else {
			conv.logWriter = w
			conv.logger = core.NewConversationLogger(conv.logger, w)
		}
	}
	if m.cfg.LogEndpoint != "" {
		stream, err := diagnostics.DialLogStream(ctx, diagnostics.StreamConfig{
			URL:       m.cfg.LogEndpoint,
			SessionID: conv.id,
			Voice:     m.cfg.Voice,
			Logger:    m.logger,
		})
		if err != nil {
			conv.logger.Warn("log stream disabled", "error", err)
		} else {
			conv.logStream = stream
			conv.logger = core.NewConversationLogger(conv.logger, stream)
		}
	}

	// Microphone first. A permission failure means the conversation never
	// starts and no transport dial is attempted.
	if err := m.pipeline.Start(m.captureFunc(conv)); err != nil {
		conv.closeLogs()
		m.mu.Lock()
		m.setStateLocked(StateIdle)
		m.mu.Unlock()
		return err
	}

	handle, err := m.provider.Connect(ctx, transport.Config{
		Voice:            m.cfg.Voice,
		SystemPrompt:     m.cfg.SystemPrompt,
		Modality:         "audio",
		InputSampleRate:  m.cfg.InputSampleRate,
		OutputSampleRate: m.cfg.OutputSampleRate,
	})
	if err != nil {
		// Unwind the partial acquisition.
		_ = m.pipeline.Stop()
		conv.closeLogs()
		m.mu.Lock()
		m.setStateLocked(StateFailed)
		m.mu.Unlock()
		return err
	}
	conv.handle = handle

	m.mu.Lock()
	m.active = conv
	stopPending := m.stopPending
	m.mu.Unlock()

	conv.logger.Info("conversation started", "voice", m.cfg.Voice)
	go m.runLoop(conv)

	if stopPending {
		// Stop arrived while the connect was in flight: open, then
		// immediately close.
		m.finish(conv, StateClosed, nil)
	}
	return nil
}

// StopConversation tears everything down in reverse-acquisition order: stop
// sending, close the transport, stop capture, release the microphone track,
// interrupt playback. Idempotent; safe before any start.
func (m *Manager) StopConversation() {
	m.mu.Lock()
	conv := m.active
	if conv == nil {
		if m.state == StateConnecting {
			// A start call is still connecting; have it close on open.
			m.stopPending = true
		}
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateClosing)
	m.mu.Unlock()

	m.finish(conv, StateClosed, nil)
}

// Close implements owner teardown; no stream, context, or connection
// outlives the manager.
func (m *Manager) Close() {
	m.StopConversation()
}

// captureFunc builds the capture callback for one conversation. The handle
// is reached through conv, local to this start cycle.
func (m *Manager) captureFunc(conv *conversation) capture.ChunkFunc {
	return func(chunk core.CaptureChunk) {
		if !conv.open.Load() {
			return
		}

		var frame protocol.EncodedFrame
		if m.cfg.Telephony {
			frame = protocol.EncodeTelephonyFrame(chunk.Samples, chunk.SampleRate)
		} else {
			frame = protocol.EncodeFrame(chunk.Samples, chunk.SampleRate)
		}

		if err := conv.handle.Send(frame); err != nil {
			// The read loop surfaces the transport failure; sending just
			// stops.
			conv.open.Store(false)
			conv.logger.Warn("frame send failed", "error", err)
			return
		}
		m.framesSent.Add(1)

		if chunk.Seq%8 == 0 {
			m.emit(&core.MicLevelEvent{RMS: core.RMSEnergy(chunk.Samples)})
		}
	}
}

// runLoop consumes the transport's inbound event stream. All session state
// mutation funnels through here and through finish, in event order.
func (m *Manager) runLoop(conv *conversation) {
	for ev := range conv.handle.Events() {
		switch ev := ev.(type) {
		case *transport.OpenEvent:
			m.mu.Lock()
			if m.active == conv && m.state == StateConnecting {
				// Wire sending before announcing the state, so audio
				// captured right after an observed StateOpen is never
				// discarded. A late open after teardown changes nothing.
				conv.open.Store(true)
				m.setStateLocked(StateOpen)
			}
			m.mu.Unlock()
			conv.logger.Info("transport open")

		case *transport.AudioFrameEvent:
			m.handleAudio(conv, ev)

		case *transport.InterruptedEvent:
			m.scheduler.Interrupt()
			m.interrupts.Add(1)
			m.lastInterrupt.Store(time.Now().UnixNano())
			conv.logger.Debug("barge-in: playback interrupted")
			m.emit(&core.PlaybackInterruptedEvent{})

		case *transport.ErrorEvent:
			conv.logger.Error("transport failed", "error", ev.Err)
			m.emit(&core.CriticalErrorEvent{Error: ev.Err.Error()})
			m.finish(conv, StateFailed, ev.Err)

		case *transport.ClosedEvent:
			conv.logger.Info("transport closed", "reason", ev.Reason)
			m.finish(conv, StateClosed, nil)
		}
	}
	// Transport gone; make sure resources are gone too.
	m.finish(conv, StateClosed, nil)
	close(conv.done)
}

// handleAudio decodes one inbound fragment and schedules it. Decode failures
// drop the fragment and continue; a scheduling failure means playback timing
// can no longer be trusted, which is connection-level.
func (m *Manager) handleAudio(conv *conversation, ev *transport.AudioFrameEvent) {
	buf, err := protocol.DecodeMIMEFrame(ev.Data, ev.MIMEType, ev.SampleRate)
	if err != nil {
		m.decodeFailures.Add(1)
		conv.logger.Warn("dropping malformed audio fragment", "error", err)
		m.emit(&core.WarningEvent{Error: err.Error()})
		return
	}
	m.framesReceived.Add(1)

	// A fragment at a different rate is a property of that fragment, not of
	// the connection; bring it to the device rate rather than letting the
	// sink reject it.
	if buf.SampleRate != m.cfg.OutputSampleRate {
		buf.Samples = audio.ResampleLinear(buf.Samples, buf.SampleRate, m.cfg.OutputSampleRate)
		buf.SampleRate = m.cfg.OutputSampleRate
	}

	if err := m.scheduler.Enqueue(buf); err != nil {
		conv.logger.Error("playback scheduling failed", "error", err)
		m.emit(&core.CriticalErrorEvent{Error: err.Error()})
		m.finish(conv, StateFailed, err)
	}
}

// finish releases one conversation's resources exactly once, in reverse
// order of acquisition, and records the final state.
func (m *Manager) finish(conv *conversation, finalState State, err error) {
	conv.teardown.Do(func() {
		conv.open.Store(false)  // stop sending
		_ = conv.handle.Close() // close transport
		_ = m.pipeline.Stop()   // stop capture, release mic track
		m.scheduler.Interrupt() // silence anything scheduled

		conv.logger.Info("conversation finished",
			"state", finalState.String(),
			"duration", time.Since(conv.startedAt).Round(time.Millisecond).String(),
			"frames_sent", m.framesSent.Load(),
			"frames_received", m.framesReceived.Load(),
		)
		conv.closeLogs()

		m.mu.Lock()
		if m.active == conv {
			m.active = nil
		}
		m.setStateLocked(finalState)
		m.mu.Unlock()
	})
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	m.emit(&core.SessionStateEvent{State: s.String()})
}

func (m *Manager) emit(ev core.IEvent) {
	if m.onEvent != nil {
		m.onEvent(ev)
	}
}

// Package diagnostics ships per-conversation log entries to a remote
// collector over WebSocket, as an alternative or addition to the on-disk
// jsonl files. Entries are fire-and-forget: a slow or dead collector must
// never stall the audio pipeline.
package diagnostics

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"livevoice/core"
)

const (
	dialTimeout    = 10 * time.Second
	writeTimeout   = 10 * time.Second
	sendBufferSize = 256
)

// StreamConfig configures one conversation's log stream.
type StreamConfig struct {
	URL       string            // collector endpoint, e.g. wss://host/v1/logs
	Header    map[string]string // extra headers, e.g. Authorization
	SessionID string
	Voice     string
	Logger    *core.Logger
}

// LogStream implements core.LogWriter over a WebSocket connection. The first
// message is the conversation metadata line, mirroring the file layout.
type LogStream struct {
	conn   *websocket.Conn
	logger *core.Logger

	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
}

// DialLogStream connects to the collector and starts the write loop.
func DialLogStream(ctx context.Context, cfg StreamConfig) (*LogStream, error) {
	if cfg.Logger == nil {
		cfg.Logger = core.GetLogger()
	}

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, dialTimeout)
		defer cancel()
	}

	header := make(map[string][]string, len(cfg.Header))
	for k, v := range cfg.Header {
		header[k] = []string{v}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, cfg.URL, header)
	if err != nil {
		return nil, &core.ConnectionError{Op: "connect", Err: err}
	}

	s := &LogStream{
		conn:   conn,
		logger: cfg.Logger,
		sendCh: make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}

	meta, _ := json.Marshal(core.ConversationMetadata{
		SessionID: cfg.SessionID,
		Voice:     cfg.Voice,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	})
	s.enqueue(meta)

	go s.writeLoop()
	return s, nil
}

// Write implements core.LogWriter. Entries are dropped when the send buffer
// is full.
func (s *LogStream) Write(level, msg string, attrs map[string]interface{}) {
	entry := core.LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Message:   msg,
		Attrs:     attrs,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	s.enqueue(data)
}

// Close implements core.LogWriter. Idempotent; buffered entries still queued
// when Close is called are discarded.
func (s *LogStream) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *LogStream) enqueue(data []byte) {
	select {
	case s.sendCh <- data:
	default:
		// Collector is not keeping up; drop rather than block the
		// session's goroutines.
	}
}

func (s *LogStream) writeLoop() {
	defer s.conn.Close()

	for {
		select {
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return

		case data := <-s.sendCh:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn("log stream write failed", "error", err)
				return
			}
		}
	}
}

package diagnostics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livevoice/core"
)

// collector is a minimal log endpoint: it records every message and whether
// the client ended with a normal close frame.
type collector struct {
	upgrader websocket.Upgrader

	mu          sync.Mutex
	messages    [][]byte
	normalClose bool
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.normalClose = websocket.IsCloseError(err, websocket.CloseNormalClosure)
			c.mu.Unlock()
			return
		}
		c.mu.Lock()
		c.messages = append(c.messages, data)
		c.mu.Unlock()
	}
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *collector) message(i int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[i]
}

func (c *collector) closedNormally() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.normalClose
}

func TestLogStreamShipsMetadataThenEntries(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c)
	defer srv.Close()

	stream, err := DialLogStream(context.Background(), StreamConfig{
		URL:       "ws" + strings.TrimPrefix(srv.URL, "http"),
		SessionID: "abc-123",
		Voice:     "Aoede",
	})
	require.NoError(t, err)

	stream.Write("info", "conversation started", map[string]interface{}{"voice": "Aoede"})
	stream.Write("warn", "dropping malformed audio fragment", nil)

	require.Eventually(t, func() bool {
		return c.count() == 3
	}, time.Second, 5*time.Millisecond)

	var meta core.ConversationMetadata
	require.NoError(t, json.Unmarshal(c.message(0), &meta))
	assert.Equal(t, "abc-123", meta.SessionID)
	assert.Equal(t, "Aoede", meta.Voice)

	var entry core.LogEntry
	require.NoError(t, json.Unmarshal(c.message(1), &entry))
	assert.Equal(t, "info", entry.Level)
	assert.Equal(t, "conversation started", entry.Message)

	stream.Close()
	require.Eventually(t, func() bool {
		return c.closedNormally()
	}, time.Second, 5*time.Millisecond, "close frame never reached the collector")
	stream.Close() // idempotent
}

func TestLogStreamDropsWhenBufferFull(t *testing.T) {
	// No write loop: the buffer fills and further entries are dropped
	// rather than blocking the caller.
	s := &LogStream{
		logger: core.GetLogger(),
		sendCh: make(chan []byte, 1),
		done:   make(chan struct{}),
	}

	s.Write("info", "first", nil)
	s.Write("info", "second", nil)
	s.Write("info", "third", nil)

	require.Len(t, s.sendCh, 1)
	var entry core.LogEntry
	require.NoError(t, json.Unmarshal(<-s.sendCh, &entry))
	assert.Equal(t, "first", entry.Message)
}

func TestLogStreamDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := DialLogStream(ctx, StreamConfig{
		URL:       "ws://127.0.0.1:1/v1/logs",
		SessionID: "x",
	})
	require.Error(t, err)
	var connErr *core.ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

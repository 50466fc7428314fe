package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livevoice/protocol"
	"livevoice/transport"
)

func envelope(t *testing.T, msgType protocol.MessageType, payload interface{}) []byte {
	t.Helper()
	data, err := protocol.Marshal(msgType, payload)
	require.NoError(t, err)
	return data
}

func TestTranslate(t *testing.T) {
	h := &handle{outputRate: 24000}

	tests := []struct {
		name     string
		data     []byte
		wantDone bool
		check    func(t *testing.T, ev transport.Event)
	}{
		{
			name: "setup ack opens the transport",
			data: envelope(t, protocol.MsgSetupAck, nil),
			check: func(t *testing.T, ev transport.Event) {
				assert.IsType(t, &transport.OpenEvent{}, ev)
			},
		},
		{
			name: "audio frame with rate from mime",
			data: envelope(t, protocol.MsgAudio, protocol.AudioPayload{
				Data: []byte{0x01, 0x02, 0x03, 0x04},
				MIME: "audio/pcm;rate=16000",
			}),
			check: func(t *testing.T, ev transport.Event) {
				frame, ok := ev.(*transport.AudioFrameEvent)
				require.True(t, ok)
				assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, frame.Data)
				assert.Equal(t, 16000, frame.SampleRate)
			},
		},
		{
			name: "audio frame without rate falls back to session rate",
			data: envelope(t, protocol.MsgAudio, protocol.AudioPayload{
				Data: []byte{0x01, 0x02},
				MIME: "audio/pcm",
			}),
			check: func(t *testing.T, ev transport.Event) {
				frame, ok := ev.(*transport.AudioFrameEvent)
				require.True(t, ok)
				assert.Equal(t, 24000, frame.SampleRate)
			},
		},
		{
			name: "empty audio payload dropped",
			data: envelope(t, protocol.MsgAudio, protocol.AudioPayload{MIME: "audio/pcm"}),
		},
		{
			name: "interrupted",
			data: envelope(t, protocol.MsgInterrupted, protocol.InterruptedPayload{Reason: "user speaking"}),
			check: func(t *testing.T, ev transport.Event) {
				assert.IsType(t, &transport.InterruptedEvent{}, ev)
			},
		},
		{
			name:     "server error is terminal",
			data:     envelope(t, protocol.MsgError, protocol.ErrorPayload{Message: "quota exceeded"}),
			wantDone: true,
			check: func(t *testing.T, ev transport.Event) {
				errEv, ok := ev.(*transport.ErrorEvent)
				require.True(t, ok)
				assert.Contains(t, errEv.Err.Error(), "quota exceeded")
			},
		},
		{
			name:     "server close is terminal",
			data:     envelope(t, protocol.MsgClose, protocol.ClosePayload{Reason: "session expired"}),
			wantDone: true,
			check: func(t *testing.T, ev transport.Event) {
				closed, ok := ev.(*transport.ClosedEvent)
				require.True(t, ok)
				assert.Equal(t, "session expired", closed.Reason)
			},
		},
		{
			name: "unknown type dropped",
			data: envelope(t, protocol.MessageType("transcript"), nil),
		},
		{
			name: "malformed envelope dropped",
			data: []byte(`{not json`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done, ev := h.translate(tt.data)
			assert.Equal(t, tt.wantDone, done)
			if tt.check == nil {
				assert.Nil(t, ev)
			} else {
				require.NotNil(t, ev)
				tt.check(t, ev)
			}
		})
	}
}

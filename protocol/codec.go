package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"livevoice/core"
	"livevoice/utils/audio"
)

// Marshal creates a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType MessageType, payload interface{}) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := sonic.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("protocol: marshal payload for %q: %w", msgType, err)
		}
		raw = b
	}
	return sonic.Marshal(Envelope{
		Type:    msgType,
		Payload: raw,
	})
}

// Unmarshal parses a JSON-encoded Envelope, returning the message type and raw payload.
func Unmarshal(data []byte) (MessageType, json.RawMessage, error) {
	var env Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: unmarshal envelope: %w", err)
	}
	if env.Type == "" {
		return "", nil, fmt.Errorf("protocol: envelope missing type field")
	}
	return env.Type, env.Payload, nil
}

// UnmarshalPayload decodes a raw JSON payload into a typed struct.
func UnmarshalPayload[T any](raw json.RawMessage) (T, error) {
	var v T
	if err := sonic.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("protocol: unmarshal payload: %w", err)
	}
	return v, nil
}

// EncodedFrame is an opaque, transport-ready audio payload: fixed-point
// samples in the wire format plus the metadata the remote endpoint needs to
// interpret them. Frames are transient; they are handed to the transport and
// discarded.
type EncodedFrame struct {
	Data       []byte
	MIMEType   string
	SampleRate int
	Channels   int
}

// Base64 returns the text encoding of the frame payload.
func (f EncodedFrame) Base64() string {
	return base64.StdEncoding.EncodeToString(f.Data)
}

// PCMMIMEType returns the MIME string for raw 16-bit PCM at the given rate.
func PCMMIMEType(rate int) string {
	return fmt.Sprintf("audio/pcm;rate=%d", rate)
}

// EncodeFrame converts one capture chunk to a 16-bit PCM wire frame. Pure and
// stateless: each sample is clamped to [-1, 1] (NaN/Inf included) and scaled
// to signed 16-bit little-endian. Malformed samples are never an error.
func EncodeFrame(samples []float32, sampleRate int) EncodedFrame {
	return EncodedFrame{
		Data:       audio.Float32ToPCM16LE(samples),
		MIMEType:   PCMMIMEType(sampleRate),
		SampleRate: sampleRate,
		Channels:   1,
	}
}

// EncodeTelephonyFrame converts a capture chunk to G.711 µ-law at 8 kHz for
// telephony-grade relays. 16 kHz input is decimated to 8 kHz first.
func EncodeTelephonyFrame(samples []float32, sampleRate int) EncodedFrame {
	if sampleRate == 16000 {
		samples = audio.DecimateBy2(samples)
		sampleRate = 8000
	}
	pcm := audio.Float32ToPCM16LE(samples)
	return EncodedFrame{
		Data:       audio.EncodeUlaw(pcm),
		MIMEType:   fmt.Sprintf("audio/ulaw;rate=%d", sampleRate),
		SampleRate: sampleRate,
		Channels:   1,
	}
}

// RateFromMIME extracts the sample rate from a MIME string such as
// "audio/pcm;rate=24000", falling back when no rate parameter is present.
func RateFromMIME(mime string, fallback int) int {
	const marker = "rate="
	idx := strings.Index(mime, marker)
	if idx < 0 {
		return fallback
	}
	rate := 0
	for _, c := range mime[idx+len(marker):] {
		if c < '0' || c > '9' {
			break
		}
		rate = rate*10 + int(c-'0')
	}
	if rate == 0 {
		return fallback
	}
	return rate
}

// DecodeFrame converts an inbound encoded fragment (16-bit LE PCM) into a
// directly playable buffer at the given output rate. Fails with DecodeError
// if the payload is not a whole multiple of the sample width; callers drop
// the fragment and continue.
func DecodeFrame(data []byte, sampleRate int) (core.AudioBuffer, error) {
	if len(data)%2 != 0 {
		return core.AudioBuffer{}, &core.DecodeError{
			Reason: fmt.Sprintf("payload length %d is not a multiple of the 2-byte sample width", len(data)),
		}
	}
	return core.AudioBuffer{
		Samples:    audio.PCM16LEToFloat32(data),
		SampleRate: sampleRate,
	}, nil
}

// DecodeMIMEFrame decodes an inbound fragment according to its MIME type:
// G.711 µ-law and A-law payloads are expanded to PCM first, everything else
// is treated as 16-bit LE PCM.
func DecodeMIMEFrame(data []byte, mimeType string, sampleRate int) (core.AudioBuffer, error) {
	switch {
	case strings.Contains(mimeType, "ulaw"):
		return core.AudioBuffer{
			Samples:    audio.PCM16LEToFloat32(audio.DecodeUlaw(data)),
			SampleRate: sampleRate,
		}, nil
	case strings.Contains(mimeType, "alaw"):
		return core.AudioBuffer{
			Samples:    audio.PCM16LEToFloat32(audio.DecodeAlaw(data)),
			SampleRate: sampleRate,
		}, nil
	default:
		return DecodeFrame(data, sampleRate)
	}
}

// DecodeBase64Frame decodes a text-encoded fragment, then frames it as
// DecodeFrame does.
func DecodeBase64Frame(encoded string, sampleRate int) (core.AudioBuffer, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return core.AudioBuffer{}, &core.DecodeError{Reason: "invalid base64 payload"}
	}
	return DecodeFrame(data, sampleRate)
}

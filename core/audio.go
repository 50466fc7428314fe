package core

import (
	"math"
	"time"
)

// Default pipeline rates. Capture runs at 16 kHz mono; the remote service
// synthesizes at 24 kHz mono.
const (
	CaptureSampleRate  = 16000
	PlaybackSampleRate = 24000
	CaptureChunkSize   = 4096 // samples per capture chunk
)

// CaptureChunk is one fixed-length block of normalized float samples from the
// microphone. Seq is the capture-order position; chunks are consumed and
// discarded immediately by the frame encoder, never retained.
type CaptureChunk struct {
	Samples    []float32
	SampleRate int
	Seq        uint64
}

// Duration returns the chunk's play time.
func (c CaptureChunk) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// AudioBuffer is a decoded, directly playable block of normalized float
// samples at a fixed output rate.
type AudioBuffer struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the buffer's play time.
func (b AudioBuffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / float64(b.SampleRate) * float64(time.Second))
}

// RMSEnergy computes the root-mean-square energy of normalized samples,
// in [0, 1]. Used for mic level metering.
func RMSEnergy(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

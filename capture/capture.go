// Package capture acquires a microphone stream and exposes it as a sequence
// of fixed-size chunks of normalized float samples. Chunk cadence is dictated
// by the audio hardware clock, so there is no buffering beyond one chunk and
// no back-pressure handling downstream.
package capture

import (
	"errors"
	"sync"

	"livevoice/core"
)

// ChunkFunc receives capture chunks in capture order. It runs on the device's
// delivery goroutine and must not block.
type ChunkFunc func(core.CaptureChunk)

// Device is a raw microphone: variable-size runs of normalized float samples
// delivered via callback. Implementations map an access refusal or a missing
// device to core.ErrPermissionDenied on Start.
type Device interface {
	Start(onSamples func([]float32)) error
	Stop() error
	Close() error
}

// Pipeline reframes a device's sample runs into fixed-size chunks.
type Pipeline struct {
	device     Device
	sampleRate int
	chunkSize  int

	mu      sync.Mutex
	running bool
	pending []float32
	seq     uint64
}

// NewPipeline creates a pipeline over device delivering chunkSize-sample
// chunks at sampleRate.
func NewPipeline(device Device, sampleRate, chunkSize int) *Pipeline {
	return &Pipeline{
		device:     device,
		sampleRate: sampleRate,
		chunkSize:  chunkSize,
		pending:    make([]float32, 0, chunkSize),
	}
}

// Start requests microphone access and begins delivering chunks to fn.
// Returns core.ErrPermissionDenied (wrapped) when access is refused or no
// device exists.
func (p *Pipeline) Start(fn ChunkFunc) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("capture: already started")
	}
	p.running = true
	p.pending = p.pending[:0]
	p.seq = 0
	p.mu.Unlock()

	err := p.device.Start(func(samples []float32) {
		p.deliver(samples, fn)
	})
	if err != nil {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
		return err
	}
	return nil
}

func (p *Pipeline) deliver(samples []float32, fn ChunkFunc) {
	var ready []core.CaptureChunk

	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.pending = append(p.pending, samples...)
	for len(p.pending) >= p.chunkSize {
		chunk := make([]float32, p.chunkSize)
		copy(chunk, p.pending[:p.chunkSize])
		p.pending = p.pending[p.chunkSize:]
		ready = append(ready, core.CaptureChunk{
			Samples:    chunk,
			SampleRate: p.sampleRate,
			Seq:        p.seq,
		})
		p.seq++
	}
	p.mu.Unlock()

	for _, chunk := range ready {
		fn(chunk)
	}
}

// Stop halts capture and releases the device track. Idempotent.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.pending = p.pending[:0]
	p.mu.Unlock()

	return p.device.Stop()
}

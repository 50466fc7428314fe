package capture

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"livevoice/core"
)

// Microphone is the malgo-backed capture Device: mono float32 frames at a
// fixed rate, delivered on the miniaudio callback thread.
type Microphone struct {
	malgoCtx   *malgo.AllocatedContext
	sampleRate int

	mu     sync.Mutex
	device *malgo.Device
}

// NewMicrophone initializes the audio backend. The device itself is not
// acquired until Start, so construction succeeds even without a microphone.
func NewMicrophone(sampleRate int) (*Microphone, error) {
	cfg := malgo.ContextConfig{}
	cfg.ThreadPriority = malgo.ThreadPriorityRealtime

	malgoCtx, err := malgo.InitContext(nil, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("capture: init audio context: %w", err)
	}
	return &Microphone{
		malgoCtx:   malgoCtx,
		sampleRate: sampleRate,
	}, nil
}

// Start acquires the capture device and begins delivering samples. Failure
// to open or start the device is surfaced as core.ErrPermissionDenied: on
// every supported backend that is what an access refusal or a missing device
// looks like at this layer.
func (m *Microphone) Start(onSamples func([]float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		return fmt.Errorf("capture: microphone already started")
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(m.sampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			onSamples(bytesToFloat32(pInputSamples))
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrPermissionDenied, err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("%w: %v", core.ErrPermissionDenied, err)
	}

	m.device = device
	return nil
}

// Stop releases the capture device track. Idempotent.
func (m *Microphone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return nil
	}
	_ = m.device.Stop()
	m.device.Uninit()
	m.device = nil
	return nil
}

// Close releases the audio backend context.
func (m *Microphone) Close() error {
	_ = m.Stop()
	if m.malgoCtx != nil {
		_ = m.malgoCtx.Uninit()
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

func bytesToFloat32(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// Package audio provides sample-format conversions between the pipeline's
// normalized float representation and the 16-bit PCM / G.711 wire formats.
package audio

import (
	"encoding/binary"
	"math"

	"github.com/zaf/g711"
)

// PCM constants
const (
	pcmMax = 32767  // Max 16-bit PCM value
	pcmMin = -32768 // Min 16-bit PCM value
)

// ClampSample converts one normalized float sample to signed 16-bit PCM.
// NaN and Inf collapse to silence / full scale rather than propagating.
func ClampSample(s float32) int16 {
	f := float64(s)
	if math.IsNaN(f) {
		return 0
	}
	v := f * 32768.0
	if v > pcmMax {
		return pcmMax
	}
	if v < pcmMin {
		return pcmMin
	}
	return int16(v)
}

// Float32ToPCM16LE converts normalized float samples to 16-bit little-endian
// PCM bytes. Out-of-range samples are clamped, never rejected.
func Float32ToPCM16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(ClampSample(s)))
	}
	return out
}

// PCM16LEToFloat32 converts 16-bit little-endian PCM bytes to normalized
// float samples. A trailing odd byte, if any, is ignored; callers that need
// strict framing validate length before calling.
func PCM16LEToFloat32(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float32(s) / 32768.0
	}
	return out
}

// EncodeUlaw converts 16-bit LE PCM bytes to G.711 µ-law.
func EncodeUlaw(pcm []byte) []byte {
	return g711.EncodeUlaw(pcm)
}

// DecodeUlaw converts G.711 µ-law bytes to 16-bit LE PCM.
func DecodeUlaw(uBytes []byte) []byte {
	return g711.DecodeUlaw(uBytes)
}

// EncodeAlaw converts 16-bit LE PCM bytes to G.711 A-law.
func EncodeAlaw(pcm []byte) []byte {
	return g711.EncodeAlaw(pcm)
}

// DecodeAlaw converts G.711 A-law bytes to 16-bit LE PCM.
func DecodeAlaw(aBytes []byte) []byte {
	return g711.DecodeAlaw(aBytes)
}

// DecimateBy2 halves the sample rate by dropping every other sample, for the
// 16 kHz capture -> 8 kHz telephony path. Adequate for speech; the band above
// 4 kHz carries little voice energy at this chunk size.
func DecimateBy2(samples []float32) []float32 {
	out := make([]float32, 0, (len(samples)+1)/2)
	for i := 0; i < len(samples); i += 2 {
		out = append(out, samples[i])
	}
	return out
}

// ResampleLinear converts samples between rates by linear interpolation,
// bringing inbound fragments whose rate differs from the output device to
// the device rate. Adequate for speech.
func ResampleLinear(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(samples) == 0 {
		return samples
	}
	n := int(int64(len(samples)) * int64(toRate) / int64(fromRate))
	if n == 0 {
		return nil
	}
	out := make([]float32, n)
	step := float64(fromRate) / float64(toRate)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = samples[j] + (samples[j+1]-samples[j])*frac
	}
	return out
}

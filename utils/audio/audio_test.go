package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampSample(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want int16
	}{
		{"silence", 0, 0},
		{"half scale", 0.5, 16384},
		{"negative half scale", -0.5, -16384},
		{"full scale clamps to max", 1.0, 32767},
		{"full scale negative", -1.0, -32768},
		{"overdrive", 10, 32767},
		{"negative overdrive", -10, -32768},
		{"nan collapses to silence", float32(math.NaN()), 0},
		{"positive inf", float32(math.Inf(1)), 32767},
		{"negative inf", float32(math.Inf(-1)), -32768},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampSample(tt.in))
		})
	}
}

func TestPCMConversionRoundTrip(t *testing.T) {
	in := []float32{0, 0.125, -0.125, 0.75, -0.75}
	out := PCM16LEToFloat32(Float32ToPCM16LE(in))
	assert.Len(t, out, len(in))
	for i := range in {
		assert.InDelta(t, in[i], out[i], 1.0/32768, "sample %d", i)
	}
}

func TestPCM16LEToFloat32IgnoresTrailingByte(t *testing.T) {
	out := PCM16LEToFloat32([]byte{0x00, 0x40, 0xFF})
	assert.Len(t, out, 1)
	assert.InDelta(t, 0.5, out[0], 1.0/32768)
}

func TestUlawRoundTripPreservesSpeechShape(t *testing.T) {
	// A low-amplitude sine, the regime µ-law is designed for.
	in := make([]float32, 160)
	for i := range in {
		in[i] = 0.1 * float32(math.Sin(2*math.Pi*float64(i)/40))
	}
	pcm := Float32ToPCM16LE(in)

	out := PCM16LEToFloat32(DecodeUlaw(EncodeUlaw(pcm)))
	assert.Len(t, out, len(in))
	for i := range in {
		// µ-law is lossy; companding error at this amplitude stays small.
		assert.InDelta(t, in[i], out[i], 0.01, "sample %d", i)
	}
}

func TestResampleLinear(t *testing.T) {
	t.Run("same rate passes through", func(t *testing.T) {
		in := []float32{0.1, 0.2, 0.3}
		out := ResampleLinear(in, 24000, 24000)
		assert.Equal(t, in, out)
	})

	t.Run("length scales with rate ratio", func(t *testing.T) {
		assert.Len(t, ResampleLinear(make([]float32, 1600), 16000, 24000), 2400)
		assert.Len(t, ResampleLinear(make([]float32, 800), 8000, 24000), 2400)
		assert.Len(t, ResampleLinear(make([]float32, 2400), 24000, 16000), 1600)
	})

	t.Run("interpolates between neighbors", func(t *testing.T) {
		out := ResampleLinear([]float32{0, 1}, 1, 2)
		require.Len(t, out, 4)
		assert.InDelta(t, 0, out[0], 1e-6)
		assert.InDelta(t, 0.5, out[1], 1e-6)
		// Positions past the last input sample hold its value.
		assert.InDelta(t, 1, out[2], 1e-6)
		assert.InDelta(t, 1, out[3], 1e-6)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, ResampleLinear(nil, 16000, 24000))
	})
}

func TestDecimateBy2(t *testing.T) {
	assert.Equal(t, []float32{0, 2, 4}, DecimateBy2([]float32{0, 1, 2, 3, 4, 5}))
	assert.Equal(t, []float32{0, 2, 4}, DecimateBy2([]float32{0, 1, 2, 3, 4}))
	assert.Empty(t, DecimateBy2(nil))
}

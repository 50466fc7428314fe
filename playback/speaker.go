package playback

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"livevoice/core"
	"livevoice/utils/audio"
)

// SpeakerSink plays scheduled buffers through the system speaker via oto.
// It implements Sink with a sample-position clock: Now() is the number of
// samples handed to the device divided by the output rate. Gaps between
// scheduled entries are filled with silence, which keeps the clock running
// while the remote side is thinking.
type SpeakerSink struct {
	sampleRate int

	mu      sync.Mutex
	otoCtx  *oto.Context
	player  *oto.Player
	entries []*speakerSource
	played  int64 // samples delivered to the device
	closed  bool
}

// NewSpeakerSink opens the output device at the given rate (16-bit mono).
func NewSpeakerSink(sampleRate int) (*SpeakerSink, error) {
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   50 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("speaker: init output device: %w", err)
	}
	<-ready

	return &SpeakerSink{
		sampleRate: sampleRate,
		otoCtx:     otoCtx,
	}, nil
}

// Now implements Clock.
func (s *SpeakerSink) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.played) * time.Second / time.Duration(s.sampleRate)
}

// ScheduleAt implements Sink. A negative start time or a buffer at the wrong
// rate is rejected. A start time that has already passed is clamped to the
// current clock so the audio begins immediately.
func (s *SpeakerSink) ScheduleAt(buf core.AudioBuffer, startAt time.Duration, onDone func()) (Source, error) {
	if startAt < 0 {
		return nil, errors.New("speaker: negative start time")
	}
	if buf.SampleRate != s.sampleRate {
		return nil, fmt.Errorf("speaker: buffer rate %d does not match device rate %d", buf.SampleRate, s.sampleRate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("speaker: sink closed")
	}

	start := int64(startAt) * int64(s.sampleRate) / int64(time.Second)
	if start < s.played {
		start = s.played
	}

	src := &speakerSource{
		sink:   s,
		start:  start,
		pcm:    audio.Float32ToPCM16LE(buf.Samples),
		onDone: onDone,
	}
	s.entries = append(s.entries, src)

	// The player pulls from Read on its own thread; create it on first use.
	if s.player == nil && s.otoCtx != nil {
		s.player = s.otoCtx.NewPlayer(s)
		s.player.Play()
	}
	return src, nil
}

// Read implements io.Reader for the oto player. It renders the scheduled
// entries at their absolute sample positions and silence everywhere else.
func (s *SpeakerSink) Read(p []byte) (int, error) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return 0, io.EOF
	}

	n := len(p) / 2
	var completed []func()
	for i := 0; i < n; i++ {
		pos := s.played + int64(i)

		// Retire entries that ended at or before this position.
		for len(s.entries) > 0 {
			e := s.entries[0]
			if e.start+int64(len(e.pcm)/2) > pos {
				break
			}
			if e.onDone != nil {
				completed = append(completed, e.onDone)
				e.onDone = nil
			}
			s.entries = s.entries[1:]
		}

		var lo, hi byte
		if len(s.entries) > 0 {
			e := s.entries[0]
			if pos >= e.start {
				off := (pos - e.start) * 2
				lo, hi = e.pcm[off], e.pcm[off+1]
			}
		}
		p[2*i], p[2*i+1] = lo, hi
	}
	s.played += int64(n)
	s.mu.Unlock()

	// Completion callbacks run outside the lock; they re-enter the scheduler.
	if len(completed) > 0 {
		go func() {
			for _, fn := range completed {
				fn()
			}
		}()
	}
	return n * 2, nil
}

// Close releases the output device. Scheduled entries are discarded without
// completion callbacks.
func (s *SpeakerSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.entries = nil
	player := s.player
	s.player = nil
	s.mu.Unlock()

	if player != nil {
		_ = player.Close()
	}
	return nil
}

type speakerSource struct {
	sink   *SpeakerSink
	start  int64 // absolute sample position
	pcm    []byte
	onDone func()
}

// Stop implements Source: the entry is removed from the render queue within
// one device pull, and its completion callback never fires.
func (src *speakerSource) Stop() {
	s := src.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	src.onDone = nil
	for i, e := range s.entries {
		if e == src {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
}

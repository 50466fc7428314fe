// Package playback schedules decoded audio buffers onto an output sink with
// gapless timing and immediate interruption. The sink is an explicit,
// injected resource, never ambient process state, so tests substitute a fake
// clock.
package playback

import (
	"sync"
	"time"

	"livevoice/core"
)

// Clock is a monotonic output-device clock.
type Clock interface {
	Now() time.Duration
}

// Source is one scheduled buffer, alive from scheduling until it finishes or
// is forcibly stopped.
type Source interface {
	// Stop silences the source immediately. A stopped source never fires
	// its completion callback.
	Stop()
}

// Sink is an output device that can schedule a buffer to start playing at a
// given future time. ScheduleAt must not invoke onDone before it returns,
// and must not invoke it at all for stopped sources.
type Sink interface {
	Clock
	ScheduleAt(buf core.AudioBuffer, startAt time.Duration, onDone func()) (Source, error)
}

// Scheduler lays buffers end-to-end on the sink's clock. Fragments arrive at
// irregular intervals; the cursor guarantees each begins exactly when the
// previous one ends, with no silence and no overlap.
type Scheduler struct {
	mu        sync.Mutex
	sink      Sink
	nextStart time.Duration // playback cursor; monotonically non-decreasing between interrupts
	inflight  map[Source]struct{}
}

// NewScheduler creates a scheduler on the given sink.
func NewScheduler(sink Sink) *Scheduler {
	return &Scheduler{
		sink:     sink,
		inflight: make(map[Source]struct{}),
	}
}

// Enqueue schedules buf at max(cursor, now), advances the cursor by the
// buffer's duration, and tracks the source until it completes naturally.
// A sink rejection is returned as SchedulingError; playback timing can no
// longer be trusted and callers escalate to session teardown.
func (s *Scheduler) Enqueue(buf core.AudioBuffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	startAt := s.nextStart
	if now := s.sink.Now(); now > startAt {
		startAt = now
	}

	var src Source
	src, err := s.sink.ScheduleAt(buf, startAt, func() {
		s.remove(src)
	})
	if err != nil {
		return &core.SchedulingError{Err: err}
	}

	s.inflight[src] = struct{}{}
	s.nextStart = startAt + buf.Duration()
	return nil
}

// Interrupt stops every in-flight source, clears the set, and resets the
// cursor to zero so the next Enqueue schedules relative to "now", not a
// stale future cursor. Invoked on a transport interruption signal and as
// part of full teardown.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for src := range s.inflight {
		src.Stop()
	}
	clear(s.inflight)
	s.nextStart = 0
}

// InFlight returns the number of sources that have not yet finished playing.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// Cursor returns the earliest time the next source may begin.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

func (s *Scheduler) remove(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, src)
}

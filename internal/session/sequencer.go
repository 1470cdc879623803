package session

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is the quiet period after the last filter edit
// before the dependent fetch is issued.
const DefaultDebounceWindow = 400 * time.Millisecond

// FetchKind selects how a fetch is scheduled.
type FetchKind int

const (
	// FetchImmediate executes without delay (initial load, sort toggle,
	// explicit load-more).
	FetchImmediate FetchKind = iota
	// FetchDebounced coalesces bursts of filter edits into one execution.
	FetchDebounced
)

// Sequencer orders fetches for one session. A monotonic generation counter
// marks the current filter/sort intent; every scheduled execution captures
// the generation at schedule time, and results are committed only while that
// generation is still current. Committed state therefore always reflects the
// most recently issued intent, regardless of completion order.
//
// Cancellation is cooperative only: an outstanding fetch is never aborted
// mid-flight, its result is simply discarded on arrival.
type Sequencer struct {
	mu     sync.Mutex
	gen    uint64
	window time.Duration
	timer  *time.Timer
}

// NewSequencer creates a sequencer. A zero window selects
// DefaultDebounceWindow.
func NewSequencer(window time.Duration) *Sequencer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Sequencer{window: window}
}

// Generation returns the current generation.
func (s *Sequencer) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Bump invalidates all in-flight work by advancing the generation. Called on
// every filter or sort change, before scheduling the replacing fetch.
func (s *Sequencer) Bump() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

// Current reports whether gen is still the latest generation.
func (s *Sequencer) Current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

// Schedule runs work, tagged with the generation captured now. Immediate
// work runs synchronously in the caller's goroutine. Debounced work restarts
// the quiet window; only the last schedule within a burst actually runs.
func (s *Sequencer) Schedule(kind FetchKind, work func(gen uint64)) {
	s.mu.Lock()
	gen := s.gen
	if kind == FetchImmediate {
		s.mu.Unlock()
		work(gen)
		return
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.window, func() {
		work(gen)
	})
	s.mu.Unlock()
}

// Stop cancels any pending debounced execution. Used on session close.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequencer_Generations(t *testing.T) {
	s := NewSequencer(time.Millisecond)

	assert.Equal(t, uint64(0), s.Generation())
	assert.True(t, s.Current(0))

	g1 := s.Bump()
	g2 := s.Bump()
	assert.Equal(t, uint64(1), g1)
	assert.Equal(t, uint64(2), g2)
	assert.False(t, s.Current(g1), "older generation must be superseded")
	assert.True(t, s.Current(g2))
}

func TestSequencer_ImmediateRunsSynchronously(t *testing.T) {
	s := NewSequencer(time.Hour)

	var got []uint64
	s.Bump()
	s.Schedule(FetchImmediate, func(gen uint64) {
		got = append(got, gen)
	})

	require.Len(t, got, 1, "immediate work must run before Schedule returns")
	assert.Equal(t, uint64(1), got[0])
}

func TestSequencer_DebounceCoalescesBurst(t *testing.T) {
	s := NewSequencer(20 * time.Millisecond)

	var (
		mu   sync.Mutex
		runs []uint64
	)
	for i := 0; i < 5; i++ {
		s.Bump()
		s.Schedule(FetchDebounced, func(gen uint64) {
			mu.Lock()
			runs = append(runs, gen)
			mu.Unlock()
		})
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(runs) > 0
	}, time.Second, 5*time.Millisecond)

	// Give any spurious extra executions a chance to fire before asserting.
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, runs, 1, "a burst within the quiet window must run once")
	assert.Equal(t, uint64(5), runs[0], "the surviving run carries the last generation")
}

func TestSequencer_StopCancelsPendingRun(t *testing.T) {
	s := NewSequencer(20 * time.Millisecond)

	var (
		mu  sync.Mutex
		ran bool
	)
	s.Schedule(FetchDebounced, func(uint64) {
		mu.Lock()
		ran = true
		mu.Unlock()
	})
	s.Stop()

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, ran, "Stop must cancel the pending debounced run")
}

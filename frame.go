package velaterm

import (
	"strings"
	"sync"
)

// TriggerReason records why a frame was requested. Reasons combine as a
// bitmask when several triggers coalesce into one frame.
type TriggerReason uint8

const (
	// TriggerInput is keyboard or mouse activity.
	TriggerInput TriggerReason = 1 << iota

	// TriggerOutput is new emulator output.
	TriggerOutput

	// TriggerBlink is a cursor blink phase flip.
	TriggerBlink

	// TriggerResize is a window or layout geometry change.
	TriggerResize

	// TriggerOverlay is a selection, card, or cursor override change.
	TriggerOverlay
)

// String returns the joined reason names, e.g. "input|blink".
func (t TriggerReason) String() string {
	if t == 0 {
		return "none"
	}
	var parts []string
	for _, r := range []struct {
		bit  TriggerReason
		name string
	}{
		{TriggerInput, "input"},
		{TriggerOutput, "output"},
		{TriggerBlink, "blink"},
		{TriggerResize, "resize"},
		{TriggerOverlay, "overlay"},
	} {
		if t&r.bit != 0 {
			parts = append(parts, r.name)
		}
	}
	return strings.Join(parts, "|")
}

// frameScheduler coalesces render requests: triggers arriving while a
// frame is in flight merge into at most one pending frame.
type frameScheduler struct {
	mu      sync.Mutex
	pending TriggerReason

	// kick has capacity 1; a request that finds it full has already
	// been merged into pending.
	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// newFrameScheduler starts the scheduler loop. render is called once
// per batch of coalesced triggers, never concurrently.
func newFrameScheduler(render func(TriggerReason)) *frameScheduler {
	s := &frameScheduler{
		kick: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run(render)
	return s
}

// Request merges a trigger into the pending frame and wakes the loop.
// Never blocks; safe from any goroutine.
func (s *frameScheduler) Request(t TriggerReason) {
	s.mu.Lock()
	s.pending |= t
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Close stops the loop. Pending triggers at close time are dropped.
func (s *frameScheduler) Close() {
	close(s.done)
	s.wg.Wait()
}

func (s *frameScheduler) run(render func(TriggerReason)) {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.kick:
		}

		s.mu.Lock()
		t := s.pending
		s.pending = 0
		s.mu.Unlock()

		if t != 0 {
			render(t)
		}
	}
}

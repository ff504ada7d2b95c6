package velaterm

import (
	"sync"
	"testing"
	"time"
)

func TestTriggerReasonString(t *testing.T) {
	tests := []struct {
		r    TriggerReason
		want string
	}{
		{0, "none"},
		{TriggerInput, "input"},
		{TriggerBlink, "blink"},
		{TriggerInput | TriggerBlink, "input|blink"},
		{TriggerOutput | TriggerResize | TriggerOverlay, "output|resize|overlay"},
	}
	for _, tt := range tests {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("String(%b) = %q, want %q", tt.r, got, tt.want)
		}
	}
}

func TestFrameSchedulerDelivers(t *testing.T) {
	var mu sync.Mutex
	var got []TriggerReason
	done := make(chan struct{}, 8)

	s := newFrameScheduler(func(r TriggerReason) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
		done <- struct{}{}
	})
	defer s.Close()

	s.Request(TriggerInput)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("render not triggered")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) == 0 || got[0]&TriggerInput == 0 {
		t.Errorf("rendered reasons = %v, want input bit set", got)
	}
}

func TestFrameSchedulerCoalesces(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var got []TriggerReason
	first := true

	s := newFrameScheduler(func(r TriggerReason) {
		mu.Lock()
		got = append(got, r)
		blocking := first
		first = false
		mu.Unlock()
		if blocking {
			close(started)
			<-release
		}
	})
	defer s.Close()

	// Occupy the render loop, then pile up requests: they must merge
	// into one render with the union of the reason bits.
	s.Request(TriggerInput)
	<-started
	s.Request(TriggerOutput)
	s.Request(TriggerBlink)
	s.Request(TriggerOutput)
	close(release)

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("coalesced render never ran")
		case <-time.After(time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if got[1] != TriggerOutput|TriggerBlink {
		t.Errorf("coalesced reasons = %v, want output|blink", got[1])
	}
}

func TestFrameSchedulerCloseWaits(t *testing.T) {
	rendering := make(chan struct{})
	finished := make(chan struct{})

	s := newFrameScheduler(func(TriggerReason) {
		close(rendering)
		time.Sleep(20 * time.Millisecond)
		close(finished)
	})

	s.Request(TriggerInput)
	<-rendering
	s.Close()

	select {
	case <-finished:
	default:
		t.Error("Close returned while a render was in flight")
	}

	// Requests after Close are dropped without panicking.
	s.Request(TriggerInput)
}

package present

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"
)

// defaultQueueDepth is the frame channel capacity. A shallow queue keeps
// latency low; the render scheduler already coalesces triggers upstream.
const defaultQueueDepth = 2

// Presenter owns a Device and presents frames in submission order.
//
// All device calls happen on a dedicated goroutine locked to its OS
// thread. Submit may be called from any goroutine.
type Presenter struct {
	dev    Device
	frames chan *Frame
	log    *slog.Logger

	mu     sync.Mutex
	closed bool
	// senders tracks Submit calls in flight so Close can wait for the
	// last one before closing the frame channel.
	senders sync.WaitGroup
	// presented counts successfully presented frames; dropped counts
	// frames abandoned after a failed recovery.
	presented uint64
	dropped   uint64

	quit chan struct{}
	done chan struct{}
}

// NewPresenter starts the presentation loop on its own goroutine.
func NewPresenter(dev Device, log *slog.Logger) (*Presenter, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	p := &Presenter{
		dev:    dev,
		frames: make(chan *Frame, defaultQueueDepth),
		log:    log,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go p.run()
	return p, nil
}

// Submit queues a frame for presentation. It blocks when the queue is
// full, applying backpressure to the render scheduler. The presenter
// takes ownership of the frame.
func (p *Presenter) Submit(f *Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.senders.Add(1)
	p.mu.Unlock()
	defer p.senders.Done()

	select {
	case p.frames <- f:
		return nil
	case <-p.quit:
		return ErrClosed
	}
}

// Stats returns presented and dropped frame counts.
func (p *Presenter) Stats() (presented, dropped uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.presented, p.dropped
}

// Close stops the presentation loop, drains queued frames and destroys
// the device. Safe to call once; Submit after Close returns ErrClosed.
func (p *Presenter) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	// Unpark blocked Submits, wait for the last sender to exit, then
	// close the channel so the run loop drains and stops. Closing a
	// channel with live senders would panic.
	close(p.quit)
	p.senders.Wait()
	close(p.frames)
	<-p.done
	return nil
}

// run is the presentation loop. GPU backends require all calls on one
// thread, so the goroutine is locked for its lifetime.
func (p *Presenter) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(p.done)
	defer p.dev.Destroy()

	var width, height int
	for f := range p.frames {
		if f.Width != width || f.Height != height {
			if err := p.dev.Configure(f.Width, f.Height); err != nil {
				if !p.recoverAndRetryConfigure(f) {
					continue
				}
			}
			width, height = f.Width, f.Height
		}

		if err := p.present(f); err != nil {
			if !errors.Is(err, ErrDeviceLost) {
				p.log.Error("present failed", "err", err)
				p.drop()
				continue
			}
			// One recovery attempt, then retry the frame once.
			if rerr := p.dev.Recover(); rerr != nil {
				p.log.Error("device recovery failed", "err", rerr)
				p.drop()
				continue
			}
			if err := p.dev.Configure(f.Width, f.Height); err != nil {
				p.log.Error("reconfigure after recovery failed", "err", err)
				p.drop()
				continue
			}
			if err := p.present(f); err != nil {
				p.log.Error("present failed after recovery", "err", err)
				p.drop()
				continue
			}
		}

		p.mu.Lock()
		p.presented++
		p.mu.Unlock()
	}
}

// recoverAndRetryConfigure handles device loss during Configure.
// Returns true when the device is usable again.
func (p *Presenter) recoverAndRetryConfigure(f *Frame) bool {
	if err := p.dev.Recover(); err != nil {
		p.log.Error("device recovery failed", "err", err)
		p.drop()
		return false
	}
	if err := p.dev.Configure(f.Width, f.Height); err != nil {
		p.log.Error("reconfigure after recovery failed", "err", err)
		p.drop()
		return false
	}
	return true
}

func (p *Presenter) drop() {
	p.mu.Lock()
	p.dropped++
	p.mu.Unlock()
}

// present encodes one frame in the fixed layer order.
func (p *Presenter) present(f *Frame) error {
	if err := p.dev.BeginFrame(); err != nil {
		return err
	}
	if err := p.dev.UploadTerminal(f.Width, f.Height, f.Terminal); err != nil {
		return err
	}
	for _, layer := range drawLayers {
		if err := p.dev.DrawLayer(layer, f.quads(layer)); err != nil {
			return err
		}
	}
	return p.dev.EndFrame()
}

package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewWorkerPool(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()
	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
}

func TestNewWorkerPoolDefaultsToGOMAXPROCS(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Close()
	if pool.Workers() != runtime.GOMAXPROCS(0) {
		t.Errorf("Workers() = %d, want GOMAXPROCS", pool.Workers())
	}
}

func TestExecuteAllRunsEverything(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 64)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}
	pool.ExecuteAll(work)

	if counter.Load() != 64 {
		t.Errorf("executed %d items, want 64", counter.Load())
	}
}

func TestExecuteAllIsABarrier(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	// Every item sleeps; ExecuteAll must not return before all of them
	// have finished.
	var running atomic.Int64
	var maxSeen atomic.Int64
	work := make([]func(), 8)
	for i := range work {
		work[i] = func() {
			n := running.Add(1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}
	}
	pool.ExecuteAll(work)

	if r := running.Load(); r != 0 {
		t.Errorf("%d items still running after ExecuteAll returned", r)
	}
	if maxSeen.Load() == 0 {
		t.Error("no work observed running")
	}
}

func TestExecuteAllUnevenWork(t *testing.T) {
	// One slow item among many fast ones: stealing keeps the frame
	// barrier correct regardless of distribution.
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 16)
	for i := range work {
		i := i
		work[i] = func() {
			if i == 0 {
				time.Sleep(20 * time.Millisecond)
			}
			counter.Add(1)
		}
	}
	pool.ExecuteAll(work)

	if counter.Load() != 16 {
		t.Errorf("executed %d items, want 16", counter.Load())
	}
}

func TestExecuteAllEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()
	pool.ExecuteAll(nil)
	pool.ExecuteAll([]func(){})
}

func TestExecuteAllConcurrentCallers(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			work := make([]func(), 32)
			for i := range work {
				work[i] = func() { counter.Add(1) }
			}
			pool.ExecuteAll(work)
		}()
	}
	wg.Wait()

	if counter.Load() != 4*32 {
		t.Errorf("executed %d items, want %d", counter.Load(), 4*32)
	}
}

func TestCloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()

	// ExecuteAll after Close is a no-op, not a deadlock.
	ran := false
	pool.ExecuteAll([]func(){func() { ran = true }})
	if ran {
		t.Error("work executed after Close")
	}
}

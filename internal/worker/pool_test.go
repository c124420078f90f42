package worker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_RunsAllJobs(t *testing.T) {
	pool := NewPool(3)
	defer pool.Stop()

	var count atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		pool.Execute(func() {
			count.Add(1)
			wg.Done()
		})
	}
	wg.Wait()

	if count.Load() != 50 {
		t.Errorf("Expected 50 jobs run, got %d", count.Load())
	}
}

// Execute must return immediately even when every worker is busy; the
// queue is unbounded.
func TestPool_ExecuteNeverBlocks(t *testing.T) {
	pool := NewPool(1)
	defer pool.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	pool.Execute(func() {
		close(started)
		<-release
	})
	<-started

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			pool.Execute(func() {})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Execute blocked while the worker was busy")
	}
	close(release)
}

func TestPool_ConcurrencyBounded(t *testing.T) {
	pool := NewPool(2)
	defer pool.Stop()

	var running atomic.Int64
	var peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		pool.Execute(func() {
			defer wg.Done()
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		})
	}
	wg.Wait()

	if peak.Load() > 2 {
		t.Errorf("Expected at most 2 jobs in flight, saw %d", peak.Load())
	}
}

func TestPool_StopWaitsForRunningJobs(t *testing.T) {
	pool := NewPool(1)

	var finished atomic.Bool
	started := make(chan struct{})
	pool.Execute(func() {
		close(started)
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	})
	<-started

	pool.Stop()
	if !finished.Load() {
		t.Error("Expected Stop to wait for the running job")
	}
}

func TestPool_ExecuteAfterStopIsDropped(t *testing.T) {
	pool := NewPool(1)
	pool.Stop()

	var ran atomic.Bool
	pool.Execute(func() { ran.Store(true) })
	time.Sleep(20 * time.Millisecond)

	if ran.Load() {
		t.Error("Expected job submitted after Stop to be dropped")
	}
}

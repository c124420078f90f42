// Package worker provides the fixed-size pool that runs feed-check and
// download jobs off the controller's message loop.
package worker

import "sync"

// Pool runs submitted jobs on a fixed number of goroutines. The queue
// is unbounded, so Execute never blocks the submitter; queued jobs wait
// until a slot frees up. Each job is responsible for reporting its own
// completion message.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	stopped bool
	wg      sync.WaitGroup
}

// NewPool starts a pool with n execution slots.
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.work()
	}
	return p
}

// Execute enqueues a job. Submission is fire-and-forget; jobs submitted
// after Stop are dropped.
func (p *Pool) Execute(job func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.queue = append(p.queue, job)
	p.cond.Signal()
}

// Stop prevents further submissions and waits for running jobs to
// finish. Jobs still waiting in the queue are discarded.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.queue = nil
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if p.stopped {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		job()
	}
}

package parallel

import (
	"errors"
	"runtime"
	"sync"
)

// ErrPoolClosed is returned when work is handed to a closed pool.
var ErrPoolClosed = errors.New("parallel: worker pool is closed")

// WorkerPool is a pool of goroutines that executes compute workgroups.
//
// Every worker owns a queue. A worker whose queue is empty steals from the
// other queues, which keeps all workers busy when workgroups differ in cost
// (edge partitions of a scan, clamped averaging windows).
//
// Thread safety: WorkerPool is safe for concurrent use. Several pipeline runs
// may dispatch on the same pool at once, but a task running on the pool must
// not dispatch onto it again.
type WorkerPool struct {
	workers int

	// queues holds per-worker work queues.
	queues []chan func()

	done chan struct{}
	wg   sync.WaitGroup

	// mu orders enqueueing against Close. Dispatch holds it shared while it
	// hands out tasks; Close takes it exclusively before closing done, so no
	// task is ever queued after the workers start draining.
	mu      sync.RWMutex
	running bool
}

// NewWorkerPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}

	p.running = true

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case work := <-own:
			work()
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case work := <-own:
				work()
			}
		}
	}
}

// drain runs whatever is still queued so that waiting dispatchers return.
func (p *WorkerPool) drain(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

func (p *WorkerPool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case work := <-p.queues[i]:
			return work
		default:
		}
	}
	return nil
}

// Dispatch runs fn(i) for every i in [0, n) and blocks until all of them
// have returned. Tasks are distributed round robin and may be stolen.
// Dispatch is a full join: every write made by a task is visible to the
// caller when Dispatch returns. A Close racing Dispatch waits until every
// task has been queued; the queued tasks still run.
func (p *WorkerPool) Dispatch(n int, fn func(i int)) error {
	p.mu.RLock()
	if !p.running {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	if n <= 0 {
		p.mu.RUnlock()
		return nil
	}

	var pending sync.WaitGroup
	pending.Add(n)
	for i := range n {
		p.queues[i%p.workers] <- func() {
			defer pending.Done()
			fn(i)
		}
	}
	p.mu.RUnlock()

	pending.Wait()
	return nil
}

// Close stops the pool after queued work has run.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

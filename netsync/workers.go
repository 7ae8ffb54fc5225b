package netsync

import (
	"errors"
	"sync"
)

var (
	ErrBacklogFull = errors.New("broadcast backlog full")
	ErrClosed      = errors.New("manager closed")
)

type job func()

// workerPool runs broadcast serialization on a fixed number of goroutines
// fed by a bounded queue.
type workerPool struct {
	jobs chan job

	wg  sync.WaitGroup
	die chan struct{}

	closeOnce sync.Once
}

func newWorkerPool(workers, backlog int) *workerPool {
	wp := &workerPool{
		jobs: make(chan job, backlog),
		die:  make(chan struct{}),
	}
	wp.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go wp.workRoutine()
	}
	return wp
}

// submit never blocks. It fails when the backlog is full or the pool is closed.
func (wp *workerPool) submit(j job) error {
	select {
	case <-wp.die:
		return ErrClosed
	default:
	}
	select {
	case wp.jobs <- j:
		return nil
	case <-wp.die:
		return ErrClosed
	default:
		return ErrBacklogFull
	}
}

func (wp *workerPool) workRoutine() {
	defer wp.wg.Done()
	for {
		select {
		case j := <-wp.jobs:
			j()
		case <-wp.die:
			return
		}
	}
}

// close stops the workers. Jobs still queued are discarded.
func (wp *workerPool) close() {
	wp.closeOnce.Do(func() {
		close(wp.die)
	})
	wp.wg.Wait()
}

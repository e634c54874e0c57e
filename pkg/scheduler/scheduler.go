// Package scheduler provides the shared worker pool and the per-container
// auto-termination timer map. Immediate work (asynchronous starts, timer
// fires) and delayed work (the timers themselves) are both dispatched through
// the same pool, and each container identifier holds at most one pending
// timer at any time.
package scheduler

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/berth/pkg/types"
)

// minWorkers is the minimum size of the worker pool. One worker handles
// run-now work while another is blocked on a runtime invocation.
const minWorkers = 2

// taskQueueSize is the buffer of the pool's task channel.
const taskQueueSize = 64

// entry is one pending auto-termination timer. The generation distinguishes
// a live timer from a stale one whose fire raced with Cancel or Register.
type entry struct {
	timer *time.Timer
	gen   uint64
}

// Pool is a types.Scheduler backed by a fixed set of worker goroutines and a
// mutex-guarded timer map. Timer fires are at-most-once: the entry is removed
// under the lock before its task is dispatched, and a stale generation never
// dispatches at all.
type Pool struct {
	tasks   chan func()
	quit    chan struct{}
	workers sync.WaitGroup

	mu      sync.Mutex
	timers  map[types.ContainerID]*entry
	nextGen uint64
	closed  bool
}

// New creates a pool with the given number of workers, raised to the minimum
// of two if necessary, and starts them.
func New(workers int) *Pool {
	if workers < minWorkers {
		workers = minWorkers
	}

	pool := &Pool{
		tasks:  make(chan func(), taskQueueSize),
		quit:   make(chan struct{}),
		timers: make(map[types.ContainerID]*entry),
	}

	for range workers {
		pool.workers.Add(1)

		go pool.worker()
	}

	return pool
}

// Go dispatches a task for immediate asynchronous execution on the pool.
// Tasks submitted after Stop are dropped with a warning.
func (p *Pool) Go(task func()) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		logrus.Warn("Scheduler is stopped, dropping task")

		return
	}

	select {
	case p.tasks <- task:
	case <-p.quit:
		logrus.Warn("Scheduler stopped while dispatching, dropping task")
	}
}

// Register schedules the task to run once after the delay elapses, replacing
// any pending timer for the same identifier. The displaced timer is stopped
// first, so at most one timer per identifier is pending at any time.
func (p *Pool) Register(id types.ContainerID, delay time.Duration, task func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		logrus.WithField("container", id.ShortID()).
			Warn("Scheduler is stopped, not registering timer")

		return
	}

	if old, ok := p.timers[id]; ok {
		old.timer.Stop()
	}

	p.nextGen++
	gen := p.nextGen

	pending := &entry{gen: gen}
	pending.timer = time.AfterFunc(delay, func() {
		p.fire(id, gen, task)
	})
	p.timers[id] = pending

	logrus.WithFields(logrus.Fields{
		"container": id.ShortID(),
		"delay":     delay,
	}).Debug("Registered auto-termination timer")
}

// Cancel removes the pending timer for the identifier, if any. Cancellation
// is best-effort: a task that has already been dispatched is not interrupted,
// only a future firing is prevented.
func (p *Pool) Cancel(id types.ContainerID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pending, ok := p.timers[id]
	if !ok {
		return
	}

	pending.timer.Stop()
	delete(p.timers, id)

	logrus.WithField("container", id.ShortID()).
		Debug("Cancelled auto-termination timer")
}

// Stop cancels all pending timers, shuts the workers down, and waits for
// in-flight tasks to finish. Queued tasks that no worker picked up are
// dropped.
func (p *Pool) Stop() {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()

		return
	}

	p.closed = true

	for id, pending := range p.timers {
		pending.timer.Stop()
		delete(p.timers, id)
	}
	p.mu.Unlock()

	close(p.quit)
	p.workers.Wait()
}

// fire runs when an auto-termination timer elapses. It removes the entry
// under the lock, verifies the generation still matches so a replaced or
// cancelled timer cannot dispatch, and hands the task to the pool.
func (p *Pool) fire(id types.ContainerID, gen uint64, task func()) {
	p.mu.Lock()

	pending, ok := p.timers[id]
	if !ok || pending.gen != gen || p.closed {
		p.mu.Unlock()

		return
	}

	delete(p.timers, id)
	p.mu.Unlock()

	select {
	case p.tasks <- task:
	case <-p.quit:
		logrus.WithField("container", id.ShortID()).
			Warn("Scheduler stopped, dropping fired timer task")
	}
}

// worker consumes tasks until the pool is stopped.
func (p *Pool) worker() {
	defer p.workers.Done()

	for {
		select {
		case task := <-p.tasks:
			p.invoke(task)
		case <-p.quit:
			return
		}
	}
}

// invoke runs a single task, containing panics so one bad task cannot take
// down the pool.
func (p *Pool) invoke(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("Scheduled task panicked")
		}
	}()

	task()
}

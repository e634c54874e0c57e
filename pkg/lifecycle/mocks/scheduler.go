package mocks

import (
	"sync"
	"time"

	"github.com/nicholas-fedor/berth/pkg/types"
)

// RegisteredTimer is a pending timer captured by the mock scheduler.
type RegisteredTimer struct {
	Delay time.Duration
	Task  func()
}

// Scheduler is a deterministic types.Scheduler double. With Immediate set,
// Go runs tasks inline; otherwise they queue until RunPending. Registered
// timers never fire on their own and are triggered explicitly via Fire.
type Scheduler struct {
	Immediate bool

	mu        sync.Mutex
	pending   []func()
	timers    map[types.ContainerID]RegisteredTimer
	cancelled []types.ContainerID
}

// NewScheduler creates a mock scheduler that runs Go tasks inline.
func NewScheduler() *Scheduler {
	return &Scheduler{
		Immediate: true,
		timers:    make(map[types.ContainerID]RegisteredTimer),
	}
}

// NewDeferredScheduler creates a mock scheduler that queues Go tasks until
// RunPending is called.
func NewDeferredScheduler() *Scheduler {
	scheduler := NewScheduler()
	scheduler.Immediate = false

	return scheduler
}

// Go runs the task inline or queues it, depending on Immediate.
func (s *Scheduler) Go(task func()) {
	if s.Immediate {
		task()

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, task)
}

// Register captures the timer, replacing any pending one for the identifier.
func (s *Scheduler) Register(id types.ContainerID, delay time.Duration, task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timers[id] = RegisteredTimer{Delay: delay, Task: task}
}

// Cancel removes the pending timer and records the cancellation.
func (s *Scheduler) Cancel(id types.ContainerID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.timers, id)
	s.cancelled = append(s.cancelled, id)
}

// RunPending executes all queued Go tasks in submission order.
func (s *Scheduler) RunPending() {
	s.mu.Lock()
	tasks := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, task := range tasks {
		task()
	}
}

// Fire triggers the registered timer for the identifier, removing it first
// the way a real fire does. It reports whether a timer was pending.
func (s *Scheduler) Fire(id types.ContainerID) bool {
	s.mu.Lock()
	timer, ok := s.timers[id]

	if ok {
		delete(s.timers, id)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}

	timer.Task()

	return true
}

// Timer returns the pending timer for the identifier, if any.
func (s *Scheduler) Timer(id types.ContainerID) (RegisteredTimer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer, ok := s.timers[id]

	return timer, ok
}

// Cancelled returns the identifiers whose timers were cancelled, in order.
func (s *Scheduler) Cancelled() []types.ContainerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancelled := make([]types.ContainerID, len(s.cancelled))
	copy(cancelled, s.cancelled)

	return cancelled
}

package types

import "time"

// Scheduler dispatches lifecycle work onto a shared worker pool. Two classes
// of work flow through it: run-now tasks (asynchronous starts, timer fires)
// and run-after-delay tasks (the auto-termination timers themselves).
//
// At most one pending timer exists per container identifier, and a timer
// fires at most once: registering replaces the prior timer, cancelling is
// best-effort and never interrupts a task that has already begun.
type Scheduler interface {
	// Go dispatches a task for immediate asynchronous execution.
	Go(task func())
	// Register schedules the task to run once after the delay elapses,
	// replacing any pending timer for the same identifier.
	Register(id ContainerID, delay time.Duration, task func())
	// Cancel removes the pending timer for the identifier, if any.
	Cancel(id ContainerID)
}

package types

// ContainerID is the unique identifier (UUID) Berth assigns to a managed
// container. It is distinct from the identifier the external runtime assigns
// to the underlying resource, which is tracked on the record.
type ContainerID string

// shortIDLength is the number of characters used for log-friendly IDs.
const shortIDLength = 12

// ShortID returns the 12-character short version of a container ID.
//
// Returns:
//   - string: Shortened ID, or the full ID if it is already shorter.
func (id ContainerID) ShortID() string {
	if len(id) <= shortIDLength {
		return string(id)
	}

	return string(id[:shortIDLength])
}

// Status describes where a container currently sits in its lifecycle.
type Status string

// Lifecycle statuses for a managed container.
const (
	// StatusStarting means the record is persisted and the runtime
	// invocation is in flight.
	StatusStarting Status = "STARTING"
	// StatusRunning means the runtime accepted the start request.
	StatusRunning Status = "RUNNING"
	// StatusPaused means the runtime has suspended the container.
	StatusPaused Status = "PAUSED"
	// StatusFailed means the runtime rejected the start request or the
	// invocation faulted; the record carries a diagnostic message.
	StatusFailed Status = "FAILED"
	// StatusTerminated is the terminal status; only the idempotent
	// terminate self-loop leaves it unchanged.
	StatusTerminated Status = "TERMINATED"
)

// transitions holds the permitted next statuses for each status. Terminate
// is allowed from every status, which makes it idempotent and lets it absorb
// races with the auto-termination timer.
var transitions = map[Status][]Status{
	StatusStarting:   {StatusRunning, StatusFailed, StatusTerminated},
	StatusRunning:    {StatusPaused, StatusTerminated},
	StatusPaused:     {StatusRunning, StatusTerminated},
	StatusFailed:     {StatusTerminated},
	StatusTerminated: {StatusTerminated},
}

// CanTransitionTo reports whether the state machine permits moving from the
// current status to the next one.
//
// Parameters:
//   - next: Candidate next status.
//
// Returns:
//   - bool: True if the transition is permitted, false otherwise.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// Terminal reports whether no status other than TERMINATED can follow.
func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusTerminated
}

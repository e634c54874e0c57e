package types

import "context"

// Result captures the outcome of one runtime invocation: the combined output
// text and the integer exit status. Exit status 0 is success; any other value
// is a failure and the output is treated as a human-readable diagnostic.
type Result struct {
	Output   string // Combined stdout/stderr text.
	ExitCode int    // Process exit status, 0 on success.
}

// Success reports whether the invocation exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runtime is the contract with the external containerization runtime. Each
// method maps to one runtime subcommand. The returned error is reserved for
// invocation faults (the runtime could not be executed at all); a runtime
// that ran but reported failure is expressed through the Result exit status.
//
// On a successful Run, the first line of the output (up to 64 characters) is
// the runtime-assigned container identifier.
type Runtime interface {
	// Run creates and starts a container from the image reference with the
	// given environment variable assignments.
	Run(ctx context.Context, imageRef string, env map[string]string) (Result, error)
	// Pause suspends a running container.
	Pause(ctx context.Context, runtimeID string) (Result, error)
	// Unpause resumes a paused container.
	Unpause(ctx context.Context, runtimeID string) (Result, error)
	// Stop stops a running or paused container.
	Stop(ctx context.Context, runtimeID string) (Result, error)
	// Remove force-removes a container resource.
	Remove(ctx context.Context, runtimeID string) (Result, error)
}

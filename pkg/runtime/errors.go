package runtime

import "errors"

// Errors for runtime adapter operations.
var (
	// errInvokeRuntimeFailed indicates the runtime binary could not be
	// executed at all, as opposed to running and exiting non-zero.
	errInvokeRuntimeFailed = errors.New("failed to invoke runtime binary")
	// errCreateClientFailed indicates the Docker API client could not be
	// constructed from the environment.
	errCreateClientFailed = errors.New("failed to create Docker API client")
)

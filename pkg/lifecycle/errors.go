package lifecycle

import (
	"errors"

	"github.com/nicholas-fedor/berth/pkg/types"
)

// ErrNotFound indicates no record exists for the requested identifier. It is
// the store's sentinel, re-exported so callers match errors against this
// package alone.
var ErrNotFound = types.ErrRecordNotFound

// Errors for lifecycle operations.
var (
	// ErrInvalidState indicates an operation was requested from a status
	// that forbids it. The wrapped message names the actual and the
	// expected status.
	ErrInvalidState = errors.New("operation not permitted in current container status")
	// ErrNegativeAutoTerminate indicates a caller supplied a negative
	// auto-termination delay.
	ErrNegativeAutoTerminate = errors.New("auto-terminate seconds must not be negative")
	// ErrEmptyImageReference indicates a caller supplied no image reference.
	ErrEmptyImageReference = errors.New("image reference must not be empty")
	// ErrRuntimeCommand indicates the external runtime ran but reported
	// failure; the wrapped message carries the command diagnostic.
	ErrRuntimeCommand = errors.New("runtime command failed")
)

package types

import "errors"

// ErrRecordNotFound indicates the store holds no record for the requested
// container identifier. Store implementations return it (possibly wrapped)
// from Read.
var ErrRecordNotFound = errors.New("record not found")

// Store is the durable key-value storage contract for container records:
// one record per container identifier, written whole on every mutation.
// Writes must be atomic as observed by concurrent readers.
type Store interface {
	// Write durably persists the full record under the given identifier,
	// overwriting any prior representation.
	Write(id ContainerID, record *Record) error
	// Read returns the current record for the identifier, with its ID field
	// populated, or an error wrapping ErrRecordNotFound.
	Read(id ContainerID) (*Record, error)
	// ListIDs enumerates all currently known container identifiers.
	ListIDs() ([]ContainerID, error)
}

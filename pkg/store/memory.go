package store

import (
	"fmt"
	"sync"

	"github.com/nicholas-fedor/berth/pkg/types"
)

// Memory is a types.Store backed by a mutex-guarded map. It offers the same
// whole-record-write contract as the file store without durability, which
// makes it suitable for tests and ephemeral deployments.
type Memory struct {
	mu      sync.RWMutex
	records map[types.ContainerID]*types.Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[types.ContainerID]*types.Record)}
}

// Write stores a deep copy of the record, so later caller mutations do not
// leak into the stored state.
func (s *Memory) Write(id types.ContainerID, record *types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := record.Clone()
	clone.ID = id
	s.records[id] = clone

	return nil
}

// Read returns a deep copy of the stored record, or an error wrapping
// types.ErrRecordNotFound.
func (s *Memory) Read(id types.ContainerID) (*types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrRecordNotFound, id)
	}

	return record.Clone(), nil
}

// ListIDs enumerates all stored container identifiers.
func (s *Memory) ListIDs() ([]types.ContainerID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]types.ContainerID, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}

	return ids, nil
}

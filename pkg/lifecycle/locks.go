package lifecycle

import (
	"sync"

	"github.com/nicholas-fedor/berth/pkg/types"
)

// lockTable provides per-identifier mutual exclusion around the
// read-modify-write cycle of every status transition. Operations on distinct
// identifiers proceed independently. Entries are never removed; records
// outlive their containers as an audit trail, and a mutex per known
// container is a negligible cost next to its record.
type lockTable struct {
	mu    sync.Mutex
	locks map[types.ContainerID]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[types.ContainerID]*sync.Mutex)}
}

// lock acquires the mutex for the identifier, creating it on first use, and
// returns the matching unlock function.
func (t *lockTable) lock(id types.ContainerID) func() {
	t.mu.Lock()

	idLock, ok := t.locks[id]
	if !ok {
		idLock = &sync.Mutex{}
		t.locks[id] = idLock
	}
	t.mu.Unlock()

	idLock.Lock()

	return idLock.Unlock
}

package types

import "maps"

// Record is the persisted metadata for one managed container. The store keys
// records by container ID, so the ID itself is not part of the encoded body;
// store implementations fill it in on read.
//
// ErrorMessage is present only while the status is FAILED. RuntimeContainerID
// is present once the runtime has accepted the start request and stays set
// through PAUSED and TERMINATED.
type Record struct {
	ID                   ContainerID       `json:"-"`
	ImageReference       string            `json:"imageReference"`
	EnvironmentVariables map[string]string `json:"environmentVariables,omitempty"`
	Status               Status            `json:"status"`
	AutoTerminateSeconds int               `json:"autoTerminateSeconds"`
	CreatedAt            int64             `json:"createdAt"`
	ErrorMessage         string            `json:"errorMessage,omitempty"`
	RuntimeContainerID   string            `json:"runtimeContainerId,omitempty"`
}

// Clone returns a deep copy of the record, so callers can hand records out
// without sharing the environment map with the store's copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	clone := *r
	clone.EnvironmentVariables = maps.Clone(r.EnvironmentVariables)

	return &clone
}

// Handle is a lightweight reference to a managed container. It carries only
// the identifier; all mutable state is fetched fresh from the store.
type Handle struct {
	ID ContainerID
}

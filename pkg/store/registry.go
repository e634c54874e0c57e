package store

import (
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/berth/pkg/types"
)

// Registry enumerates the containers known to a store. Listing is best
// effort, not a transactional snapshot: records that fail to read or decode
// are skipped rather than aborting the enumeration, since a concurrent
// writer may remove or replace a document while the scan is in progress.
type Registry struct {
	store types.Store
}

// NewRegistry creates a registry over the given store.
func NewRegistry(store types.Store) *Registry {
	return &Registry{store: store}
}

// IDs returns the identifiers of all known containers.
func (r *Registry) IDs() ([]types.ContainerID, error) {
	return r.store.ListIDs()
}

// Records returns all readable container records, skipping any identifier
// whose record cannot be read or parsed.
func (r *Registry) Records() ([]*types.Record, error) {
	ids, err := r.store.ListIDs()
	if err != nil {
		return nil, err
	}

	records := make([]*types.Record, 0, len(ids))

	for _, id := range ids {
		record, err := r.store.Read(id)
		if err != nil {
			logrus.WithError(err).WithField("container", id.ShortID()).
				Debug("Skipping unreadable record during enumeration")

			continue
		}

		records = append(records, record)
	}

	return records, nil
}

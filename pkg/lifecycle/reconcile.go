package lifecycle

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/berth/pkg/types"
)

// ReconcileExpiry walks all records and re-arms auto-termination for every
// live container with an expiry policy. Timers live in memory, so a process
// restart would otherwise orphan containers whose expiry was pending.
// Containers already past their deadline are terminated immediately via the
// pool; the rest get a timer for the remaining delay. Re-registering an
// already-armed timer is harmless since both point at the same deadline.
//
// PAUSED containers are included: pausing suspends the workload, not the
// expiry clock.
func (m *Manager) ReconcileExpiry() error {
	records, err := m.registry.Records()
	if err != nil {
		return fmt.Errorf("enumerating records: %w", err)
	}

	now := time.Now()

	for _, record := range records {
		if record.AutoTerminateSeconds <= 0 {
			continue
		}

		if record.Status != types.StatusRunning && record.Status != types.StatusPaused {
			continue
		}

		id := record.ID
		deadline := time.Unix(record.CreatedAt, 0).
			Add(time.Duration(record.AutoTerminateSeconds) * time.Second)

		if remaining := deadline.Sub(now); remaining > 0 {
			m.scheduler.Register(id, remaining, func() {
				m.autoTerminate(id)
			})
		} else {
			logrus.WithField("container", id.ShortID()).
				Info("Container past its expiry deadline, terminating")
			m.scheduler.Go(func() {
				m.autoTerminate(id)
			})
		}
	}

	return nil
}

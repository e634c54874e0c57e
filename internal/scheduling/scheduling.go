// Package scheduling runs the Berth daemon loop: it reconciles persisted
// records against their expiry deadlines on startup and on a periodic cron
// cadence, and shuts the worker pool down gracefully on interrupt.
package scheduling

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/berth/pkg/lifecycle"
	"github.com/nicholas-fedor/berth/pkg/scheduler"
)

// RunDaemon blocks until the context is cancelled or an interrupt signal
// (SIGINT, SIGTERM) arrives. On startup it rebuilds the in-memory expiry
// timers from the persisted records, then keeps them honest by reconciling
// again at every interval: auto-termination timers do not survive a process
// restart, but the deadlines derived from each record do.
//
// Parameters:
//   - ctx: Controls the daemon's lifetime alongside signal handling.
//   - manager: The lifecycle manager whose expiry state is reconciled.
//   - pool: The scheduler pool, stopped on the way out.
//   - interval: Cadence of the periodic reconciliation sweep.
//
// Returns:
//   - error: An error if the initial reconciliation or the cron setup fails,
//     nil on graceful shutdown.
func RunDaemon(
	ctx context.Context,
	manager *lifecycle.Manager,
	pool *scheduler.Pool,
	interval time.Duration,
) error {
	if err := manager.ReconcileExpiry(); err != nil {
		return fmt.Errorf("initial expiry reconciliation failed: %w", err)
	}

	cronScheduler := cron.New()

	err := cronScheduler.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if err := manager.ReconcileExpiry(); err != nil {
			logrus.WithError(err).Warn("Expiry reconciliation sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule expiry reconciliation: %w", err)
	}

	cronScheduler.Start()

	logrus.WithField("interval", interval).Info("Berth daemon running")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		logrus.Debug("Context canceled, stopping daemon...")
	case <-interrupt:
		logrus.Debug("Received interrupt signal, stopping daemon...")
	}

	cronScheduler.Stop()
	pool.Stop()

	logrus.Debug("Daemon stopped and worker pool drained.")

	return nil
}

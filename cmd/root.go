// Package cmd contains the command-line interface definitions and execution
// logic for Berth. The root command runs the daemon that keeps auto-
// termination honest across restarts; subcommands perform one-shot lifecycle
// operations against the same persisted records.
package cmd

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nicholas-fedor/berth/internal/flags"
	"github.com/nicholas-fedor/berth/internal/meta"
	"github.com/nicholas-fedor/berth/internal/scheduling"
	"github.com/nicholas-fedor/berth/pkg/lifecycle"
	"github.com/nicholas-fedor/berth/pkg/runtime"
	"github.com/nicholas-fedor/berth/pkg/scheduler"
	"github.com/nicholas-fedor/berth/pkg/store"
	"github.com/nicholas-fedor/berth/pkg/types"
)

// manager orchestrates all lifecycle operations. It is initialized during
// the preRun phase from command-line flags and BERTH_* environment variables.
var manager *lifecycle.Manager

// pool is the shared scheduler worker pool backing asynchronous starts and
// auto-termination timers.
var pool *scheduler.Pool

// reconcileInterval is the cadence of the daemon's expiry sweep, populated
// during preRun from the --reconcile-interval flag.
var reconcileInterval time.Duration

var rootCmd = newRootCommand()

// newRootCommand creates the berth root command. Invoked without a
// subcommand it runs the daemon loop.
func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "berth",
		Short: "Local lifecycle manager for containers run by an external runtime",
		Long: `Berth manages the bookkeeping and timing around a local container runtime:
it persists one durable record per container, enforces the lifecycle state
machine, and terminates containers automatically after a configured delay.
Run without a subcommand it stays resident and reconciles expiry deadlines
periodically.`,
		Version:           meta.Version,
		PersistentPreRunE: preRun,
		PersistentPostRun: postRun,
		RunE:              runDaemon,
		SilenceUsage:      true,
	}
}

func init() {
	flags.RegisterSystemFlags(rootCmd)
	flags.RegisterRuntimeFlags(rootCmd)

	rootCmd.AddCommand(
		newStartCommand(),
		newPauseCommand(),
		newUnpauseCommand(),
		newTerminateCommand(),
		newGetCommand(),
		newListCommand(),
	)
}

// Execute runs the root command and exits fatally on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

// preRun configures logging and wires the store, the runtime adapter, the
// scheduler pool, and the lifecycle manager from persistent flags.
func preRun(cmd *cobra.Command, _ []string) error {
	persistentFlags := cmd.Root().PersistentFlags()

	if err := flags.SetupLogging(persistentFlags); err != nil {
		return err
	}

	dataDir, err := persistentFlags.GetString("data-dir")
	if err != nil {
		return err
	}

	workers, err := persistentFlags.GetInt("workers")
	if err != nil {
		return err
	}

	reconcileInterval, err = persistentFlags.GetDuration("reconcile-interval")
	if err != nil {
		return err
	}

	stopTimeout, err := flags.StopTimeout(persistentFlags)
	if err != nil {
		return err
	}

	runtimeAdapter, err := buildRuntime(persistentFlags, stopTimeout)
	if err != nil {
		return err
	}

	fileStore, err := store.NewFile(dataDir)
	if err != nil {
		return err
	}

	pool = scheduler.New(workers)
	manager = lifecycle.New(lifecycle.Config{
		Store:     fileStore,
		Runtime:   runtimeAdapter,
		Scheduler: pool,
	})

	logrus.WithFields(logrus.Fields{
		"version":  meta.Version,
		"data_dir": dataDir,
	}).Debug("Berth initialized")

	return nil
}

// postRun drains the worker pool once the command is done. The daemon stops
// the pool itself on shutdown; stopping twice is safe.
func postRun(_ *cobra.Command, _ []string) {
	if pool != nil {
		pool.Stop()
	}
}

// runDaemon runs the resident daemon loop until interrupted.
func runDaemon(cmd *cobra.Command, _ []string) error {
	return scheduling.RunDaemon(cmd.Context(), manager, pool, reconcileInterval)
}

// buildRuntime selects the runtime adapter: the Engine API client when
// --runtime-api is set, the runtime binary otherwise.
func buildRuntime(persistentFlags *pflag.FlagSet, stopTimeout time.Duration) (types.Runtime, error) {
	useAPI, err := persistentFlags.GetBool("runtime-api")
	if err != nil {
		return nil, err
	}

	if useAPI {
		return runtime.NewAPI(stopTimeout)
	}

	binary, err := persistentFlags.GetString("runtime-binary")
	if err != nil {
		return nil, err
	}

	return runtime.NewCLI(binary, stopTimeout), nil
}

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/berth/pkg/types"
)

// startPollInterval is how often the start command re-reads the record while
// waiting for the asynchronous launch to settle.
const startPollInterval = 250 * time.Millisecond

// recordOutput wraps a record with its identifier for JSON printing. The
// identifier is the store key and is not serialized inside the record itself.
type recordOutput struct {
	ID string `json:"id"`
	*types.Record
}

func newStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start IMAGE",
		Short: "Start a container from an image reference",
		Long: `Start creates a durable record for a new container and launches it
asynchronously. By default the command waits until the launch settles into
RUNNING or FAILED before returning; pass --wait 0 to return as soon as the
record is persisted.

Auto-termination timers armed here fire only while a berth process is
resident. Run the berth daemon to enforce deadlines across restarts.`,
		Args: cobra.ExactArgs(1),
		RunE: runStart,
	}

	cmd.Flags().StringArrayP("env", "e", nil, "Environment variable as KEY=VALUE (repeatable)")
	cmd.Flags().Int("auto-terminate", 0, "Seconds after creation to terminate automatically (0 disables)")
	cmd.Flags().Duration("wait", time.Minute, "How long to wait for the launch to settle (0 returns immediately)")

	return cmd
}

func runStart(cmd *cobra.Command, args []string) error {
	assignments, err := cmd.Flags().GetStringArray("env")
	if err != nil {
		return err
	}

	env, err := parseEnvAssignments(assignments)
	if err != nil {
		return err
	}

	autoTerminate, err := cmd.Flags().GetInt("auto-terminate")
	if err != nil {
		return err
	}

	wait, err := cmd.Flags().GetDuration("wait")
	if err != nil {
		return err
	}

	handle, err := manager.Start(args[0], env, autoTerminate)
	if err != nil {
		return err
	}

	record, err := waitForLaunch(handle.ID, wait)
	if err != nil {
		return err
	}

	if record.Status == types.StatusFailed {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", handle.ID, record.Status)

		return fmt.Errorf("container %s failed to start: %s", handle.ID.ShortID(), record.ErrorMessage)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", handle.ID, record.Status)

	return nil
}

// waitForLaunch polls the record until it leaves STARTING or the wait window
// elapses. A zero wait returns the record as-is after a single read.
func waitForLaunch(id types.ContainerID, wait time.Duration) (*types.Record, error) {
	deadline := time.Now().Add(wait)

	for {
		record, err := manager.Get(id)
		if err != nil {
			return nil, err
		}

		if record.Status != types.StatusStarting || wait <= 0 || !time.Now().Before(deadline) {
			return record, nil
		}

		time.Sleep(startPollInterval)
	}
}

func newPauseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pause CONTAINER_ID",
		Short: "Pause a running container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle := types.Handle{ID: types.ContainerID(args[0])}
			if err := manager.Pause(cmd.Context(), handle); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", handle.ID, types.StatusPaused)

			return nil
		},
	}
}

func newUnpauseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unpause CONTAINER_ID",
		Short: "Resume a paused container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle := types.Handle{ID: types.ContainerID(args[0])}
			if err := manager.Unpause(cmd.Context(), handle); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", handle.ID, types.StatusRunning)

			return nil
		},
	}
}

func newTerminateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "terminate CONTAINER_ID",
		Short: "Terminate a container and release its runtime resources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle := types.Handle{ID: types.ContainerID(args[0])}
			if err := manager.Terminate(cmd.Context(), handle); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", handle.ID, types.StatusTerminated)

			return nil
		},
	}
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get CONTAINER_ID",
		Short: "Print a container record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := manager.Get(types.ContainerID(args[0]))
			if err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(recordOutput{ID: args[0], Record: record}, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))

			return nil
		},
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all container records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := manager.List()
			if err != nil {
				return err
			}

			for _, record := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%-10s\t%s\n", record.ID, record.Status, record.ImageReference)
			}

			return nil
		},
	}
}

// parseEnvAssignments converts repeated KEY=VALUE flags into the environment
// map handed to the runtime. Empty values are allowed; empty keys are not.
func parseEnvAssignments(assignments []string) (map[string]string, error) {
	if len(assignments) == 0 {
		return nil, nil
	}

	env := make(map[string]string, len(assignments))

	for _, assignment := range assignments {
		key, value, found := strings.Cut(assignment, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid environment variable %q: expected KEY=VALUE", assignment)
		}

		env[key] = value
	}

	return env, nil
}

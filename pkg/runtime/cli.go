package runtime

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os/exec"
	"slices"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/berth/pkg/types"
)

// DefaultBinary is the runtime binary used when none is configured.
const DefaultBinary = "docker"

// DefaultStopTimeout is how long the runtime is given to stop a container
// gracefully before killing it.
const DefaultStopTimeout = 10 * time.Second

// CLI is a types.Runtime that executes the external runtime binary and
// captures its combined output and exit status. The binary is expected to
// understand the docker-style subcommands run, pause, unpause, stop, and rm,
// which also covers podman.
type CLI struct {
	binary      string
	stopTimeout time.Duration
}

// NewCLI creates a CLI adapter for the given runtime binary. An empty binary
// falls back to DefaultBinary, a non-positive stop timeout to
// DefaultStopTimeout.
func NewCLI(binary string, stopTimeout time.Duration) *CLI {
	if binary == "" {
		binary = DefaultBinary
	}

	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}

	return &CLI{binary: binary, stopTimeout: stopTimeout}
}

// Run starts a detached container from the image reference. Environment
// variables are passed as -e KEY=VALUE assignments in sorted key order. On
// success the runtime prints the new container identifier as the first
// output line.
func (c *CLI) Run(ctx context.Context, imageRef string, env map[string]string) (types.Result, error) {
	args := []string{"run", "-d"}

	for _, key := range slices.Sorted(maps.Keys(env)) {
		args = append(args, "-e", key+"="+env[key])
	}

	args = append(args, imageRef)

	return c.exec(ctx, args...)
}

// Pause suspends a running container.
func (c *CLI) Pause(ctx context.Context, runtimeID string) (types.Result, error) {
	return c.exec(ctx, "pause", runtimeID)
}

// Unpause resumes a paused container.
func (c *CLI) Unpause(ctx context.Context, runtimeID string) (types.Result, error) {
	return c.exec(ctx, "unpause", runtimeID)
}

// Stop stops a container, giving it the configured timeout to exit.
func (c *CLI) Stop(ctx context.Context, runtimeID string) (types.Result, error) {
	timeout := strconv.Itoa(int(c.stopTimeout.Seconds()))

	return c.exec(ctx, "stop", "-t", timeout, runtimeID)
}

// Remove force-removes a container resource.
func (c *CLI) Remove(ctx context.Context, runtimeID string) (types.Result, error) {
	return c.exec(ctx, "rm", "-f", runtimeID)
}

// exec runs the runtime binary with the given arguments, blocking until it
// exits. A non-zero exit is reported through the result, not the error; the
// error is reserved for the binary being unrunnable.
func (c *CLI) exec(ctx context.Context, args ...string) (types.Result, error) {
	logrus.WithFields(logrus.Fields{
		"binary":     c.binary,
		"subcommand": args[0],
	}).Debug("Invoking runtime")

	output, err := exec.CommandContext(ctx, c.binary, args...).CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return types.Result{Output: string(output), ExitCode: exitErr.ExitCode()}, nil
		}

		return types.Result{}, fmt.Errorf("%w: %w", errInvokeRuntimeFailed, err)
	}

	return types.Result{Output: string(output), ExitCode: 0}, nil
}

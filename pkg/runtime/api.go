package runtime

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	dockerContainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/berth/pkg/types"
)

// apiFailureExitCode is the exit status synthesized for a failed API call,
// mirroring what the runtime CLI reports for a failed subcommand.
const apiFailureExitCode = 1

// API is a types.Runtime that speaks to the Docker Engine API directly
// instead of shelling out. API errors are folded into the result as a
// synthesized non-zero exit status with the error text as the diagnostic
// output, so callers observe the same contract as with the CLI adapter.
//
// Unlike `docker run`, ContainerCreate does not pull missing images; a start
// against an image absent from the local daemon fails and is absorbed into
// the record like any other runtime rejection.
type API struct {
	api         client.APIClient
	stopTimeout time.Duration
}

// NewAPI creates an API adapter from the environment (DOCKER_HOST et al.)
// with API version negotiation, matching the Docker CLI's own client setup.
func NewAPI(stopTimeout time.Duration) (*API, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errCreateClientFailed, err)
	}

	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}

	return &API{api: cli, stopTimeout: stopTimeout}, nil
}

// Run creates and starts a container from the image reference. On success
// the result output is the runtime-assigned container identifier.
func (a *API) Run(ctx context.Context, imageRef string, env map[string]string) (types.Result, error) {
	envAssignments := make([]string, 0, len(env))
	for _, key := range slices.Sorted(maps.Keys(env)) {
		envAssignments = append(envAssignments, key+"="+env[key])
	}

	created, err := a.api.ContainerCreate(ctx, &dockerContainer.Config{
		Image: imageRef,
		Env:   envAssignments,
	}, nil, nil, nil, "")
	if err != nil {
		return apiFailure(err), nil
	}

	if err := a.api.ContainerStart(ctx, created.ID, dockerContainer.StartOptions{}); err != nil {
		// Leave the created-but-unstarted container to the terminate path's
		// forced remove; reporting the failure matters more here.
		logrus.WithError(err).WithField("runtime_id", created.ID).
			Debug("Container created but failed to start")

		return apiFailure(err), nil
	}

	return types.Result{Output: created.ID, ExitCode: 0}, nil
}

// Pause suspends a running container.
func (a *API) Pause(ctx context.Context, runtimeID string) (types.Result, error) {
	if err := a.api.ContainerPause(ctx, runtimeID); err != nil {
		return apiFailure(err), nil
	}

	return types.Result{}, nil
}

// Unpause resumes a paused container.
func (a *API) Unpause(ctx context.Context, runtimeID string) (types.Result, error) {
	if err := a.api.ContainerUnpause(ctx, runtimeID); err != nil {
		return apiFailure(err), nil
	}

	return types.Result{}, nil
}

// Stop stops a container, giving it the configured timeout to exit.
func (a *API) Stop(ctx context.Context, runtimeID string) (types.Result, error) {
	timeoutSeconds := int(a.stopTimeout.Seconds())

	err := a.api.ContainerStop(ctx, runtimeID, dockerContainer.StopOptions{
		Timeout: &timeoutSeconds,
	})
	if err != nil {
		return apiFailure(err), nil
	}

	return types.Result{}, nil
}

// Remove force-removes a container resource.
func (a *API) Remove(ctx context.Context, runtimeID string) (types.Result, error) {
	err := a.api.ContainerRemove(ctx, runtimeID, dockerContainer.RemoveOptions{
		Force: true,
	})
	if err != nil {
		return apiFailure(err), nil
	}

	return types.Result{}, nil
}

// apiFailure folds an Engine API error into a CLI-shaped failure result.
func apiFailure(err error) types.Result {
	return types.Result{Output: err.Error(), ExitCode: apiFailureExitCode}
}

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/berth/internal/util"
	"github.com/nicholas-fedor/berth/pkg/metrics"
	"github.com/nicholas-fedor/berth/pkg/store"
	"github.com/nicholas-fedor/berth/pkg/types"
)

// maxDiagnosticLength caps the error message recorded on a FAILED record.
const maxDiagnosticLength = 1000

// maxRuntimeIDLength caps the runtime container identifier parsed from the
// first line of a successful run's output.
const maxRuntimeIDLength = 64

// Config carries the collaborators a Manager orchestrates.
type Config struct {
	Store     types.Store
	Runtime   types.Runtime
	Scheduler types.Scheduler
	// Metrics is optional; the process-wide default handler is used when nil.
	Metrics *metrics.Metrics
}

// Manager orchestrates all container lifecycle operations. It enforces the
// state machine, persists every transition as a whole-record write, and
// coordinates the runtime adapter and the auto-termination scheduler. Every
// transition runs under a per-identifier lock, so a manual terminate and an
// auto-termination fire against the same container cannot lose updates.
type Manager struct {
	store     types.Store
	runtime   types.Runtime
	scheduler types.Scheduler
	registry  *store.Registry
	metrics   *metrics.Metrics
	locks     *lockTable
}

// New creates a Manager over the given collaborators.
func New(config Config) *Manager {
	handler := config.Metrics
	if handler == nil {
		handler = metrics.Default()
	}

	return &Manager{
		store:     config.Store,
		runtime:   config.Runtime,
		scheduler: config.Scheduler,
		registry:  store.NewRegistry(config.Store),
		metrics:   handler,
		locks:     newLockTable(),
	}
}

// Start allocates a new container identifier, persists its record in status
// STARTING, and returns a handle immediately. The runtime invocation proceeds
// on the scheduler pool; callers observe the terminal outcome by polling Get.
//
// Parameters:
//   - imageRef: Image reference to run, must be non-empty.
//   - env: Environment variable assignments for the container.
//   - autoTerminateSeconds: Delay before automatic termination, 0 disables.
//
// Returns:
//   - (types.Handle, error): Handle carrying the new identifier, or an
//     input-validation or persistence error before any work is dispatched.
func (m *Manager) Start(imageRef string, env map[string]string, autoTerminateSeconds int) (types.Handle, error) {
	if imageRef == "" {
		return types.Handle{}, ErrEmptyImageReference
	}

	if autoTerminateSeconds < 0 {
		return types.Handle{}, fmt.Errorf("%w: %d", ErrNegativeAutoTerminate, autoTerminateSeconds)
	}

	id := types.ContainerID(uuid.NewString())

	record := &types.Record{
		ID:                   id,
		ImageReference:       imageRef,
		EnvironmentVariables: maps.Clone(env),
		Status:               types.StatusStarting,
		AutoTerminateSeconds: autoTerminateSeconds,
		CreatedAt:            time.Now().Unix(),
	}
	if err := m.store.Write(id, record); err != nil {
		return types.Handle{}, fmt.Errorf("persisting new record: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"container":      id.ShortID(),
		"image":          imageRef,
		"auto_terminate": autoTerminateSeconds,
	}).Info("Starting container")

	m.scheduler.Go(func() {
		m.completeStart(id, imageRef, env, autoTerminateSeconds)
	})

	return types.Handle{ID: id}, nil
}

// Get returns the current record for the identifier.
func (m *Manager) Get(id types.ContainerID) (*types.Record, error) {
	return m.read(id)
}

// List returns all readable container records. Listing is best-effort:
// records that fail to read or decode are skipped.
func (m *Manager) List() ([]*types.Record, error) {
	return m.registry.Records()
}

// Pause suspends a RUNNING container. The runtime is invoked synchronously;
// on failure the record is left unchanged and the command diagnostic is
// surfaced to the caller.
func (m *Manager) Pause(ctx context.Context, handle types.Handle) error {
	unlock := m.locks.lock(handle.ID)
	defer unlock()

	record, err := m.read(handle.ID)
	if err != nil {
		return err
	}

	if record.Status != types.StatusRunning || record.RuntimeContainerID == "" {
		return invalidState("pause", record, types.StatusRunning)
	}

	if err := m.invoke(ctx, "pause", m.runtime.Pause, record.RuntimeContainerID); err != nil {
		return err
	}

	record.Status = types.StatusPaused
	if err := m.store.Write(handle.ID, record); err != nil {
		return fmt.Errorf("persisting paused record: %w", err)
	}

	m.metrics.RegisterPause()
	logrus.WithField("container", handle.ID.ShortID()).Info("Paused container")

	return nil
}

// Unpause resumes a PAUSED container, symmetric to Pause.
func (m *Manager) Unpause(ctx context.Context, handle types.Handle) error {
	unlock := m.locks.lock(handle.ID)
	defer unlock()

	record, err := m.read(handle.ID)
	if err != nil {
		return err
	}

	if record.Status != types.StatusPaused || record.RuntimeContainerID == "" {
		return invalidState("unpause", record, types.StatusPaused)
	}

	if err := m.invoke(ctx, "unpause", m.runtime.Unpause, record.RuntimeContainerID); err != nil {
		return err
	}

	record.Status = types.StatusRunning
	if err := m.store.Write(handle.ID, record); err != nil {
		return fmt.Errorf("persisting unpaused record: %w", err)
	}

	m.metrics.RegisterUnpause()
	logrus.WithField("container", handle.ID.ShortID()).Info("Unpaused container")

	return nil
}

// Terminate terminates a container. It is idempotent: a container that is
// already TERMINATED is left untouched. Any pending auto-termination timer is
// cancelled, the runtime resource (when one exists) is stopped and removed on
// a best-effort basis, and the record is marked TERMINATED unconditionally.
func (m *Manager) Terminate(ctx context.Context, handle types.Handle) error {
	return m.terminate(ctx, handle.ID, metrics.TriggerManual)
}

// terminate is the shared implementation behind manual termination and the
// auto-termination timer.
func (m *Manager) terminate(ctx context.Context, id types.ContainerID, trigger string) error {
	unlock := m.locks.lock(id)
	defer unlock()

	record, err := m.read(id)
	if err != nil {
		return err
	}

	if record.Status == types.StatusTerminated {
		logrus.WithField("container", id.ShortID()).
			Debug("Container already terminated, nothing to do")

		return nil
	}

	m.scheduler.Cancel(id)

	// A FAILED record can still carry a runtime identifier when the runtime
	// accepted the start but a later step failed; the dangling resource is
	// cleaned up here like any other.
	if record.RuntimeContainerID != "" {
		m.releaseRuntime(ctx, id, record.RuntimeContainerID)
	}

	record.Status = types.StatusTerminated
	record.ErrorMessage = ""

	if err := m.store.Write(id, record); err != nil {
		return fmt.Errorf("persisting terminated record: %w", err)
	}

	m.metrics.RegisterTermination(trigger)
	logrus.WithFields(logrus.Fields{
		"container": id.ShortID(),
		"trigger":   trigger,
	}).Info("Terminated container")

	return nil
}

// completeStart finishes an asynchronous start on a pool worker: it invokes
// the runtime, then transitions the record to RUNNING or FAILED under the
// identifier lock.
func (m *Manager) completeStart(id types.ContainerID, imageRef string, env map[string]string, autoTerminateSeconds int) {
	// The caller that triggered the start has long returned; this work is
	// bounded by the runtime invocation itself, not a request context.
	ctx := context.Background()

	result, runErr := m.runtime.Run(ctx, imageRef, env)

	unlock := m.locks.lock(id)
	defer unlock()

	record, err := m.read(id)
	if err != nil {
		logrus.WithError(err).WithField("container", id.ShortID()).
			Error("Failed to read record after runtime start")

		return
	}

	// A terminate may have raced the start. The record stays TERMINATED;
	// whatever the runtime created is torn down instead of resurrected.
	if record.Status == types.StatusTerminated {
		if runErr == nil && result.Success() {
			if runtimeID := parseRuntimeID(result.Output); runtimeID != "" {
				logrus.WithField("container", id.ShortID()).
					Info("Container terminated during start, releasing runtime resource")
				m.releaseRuntime(ctx, id, runtimeID)
			}
		}

		return
	}

	runtimeID := parseRuntimeID(result.Output)

	switch {
	case runErr != nil:
		m.failStart(record, runErr.Error())
	case !result.Success():
		m.failStart(record, startDiagnostic(result))
	case runtimeID == "":
		m.failStart(record, "runtime did not report a container identifier")
	default:
		record.Status = types.StatusRunning
		record.RuntimeContainerID = runtimeID
		m.metrics.RegisterStart()
		logrus.WithFields(logrus.Fields{
			"container":  id.ShortID(),
			"runtime_id": runtimeID,
		}).Info("Container running")
	}

	if err := m.store.Write(id, record); err != nil {
		logrus.WithError(err).WithField("container", id.ShortID()).
			Error("Failed to persist record after runtime start")

		return
	}

	if record.Status == types.StatusRunning && autoTerminateSeconds > 0 {
		delay := time.Duration(autoTerminateSeconds) * time.Second
		m.scheduler.Register(id, delay, func() {
			m.autoTerminate(id)
		})
	}
}

// autoTerminate runs when an auto-termination timer fires. Termination is
// idempotent, so racing a manual terminate is harmless.
func (m *Manager) autoTerminate(id types.ContainerID) {
	logrus.WithField("container", id.ShortID()).
		Info("Auto-termination timer fired")

	if err := m.terminate(context.Background(), id, metrics.TriggerAuto); err != nil {
		logrus.WithError(err).WithField("container", id.ShortID()).
			Warn("Auto-termination failed")
	}
}

// failStart marks a record FAILED with a truncated diagnostic.
func (m *Manager) failStart(record *types.Record, diagnostic string) {
	record.Status = types.StatusFailed
	record.ErrorMessage = util.Truncate(diagnostic, maxDiagnosticLength)
	m.metrics.RegisterStartFailure()

	logrus.WithFields(logrus.Fields{
		"container": record.ID.ShortID(),
		"image":     record.ImageReference,
	}).Warn("Container start failed")
}

// releaseRuntime stops and force-removes the runtime resource. Both steps are
// best-effort: bookkeeping cleanup must complete even under partial runtime
// failure, so failures are logged, not returned.
func (m *Manager) releaseRuntime(ctx context.Context, id types.ContainerID, runtimeID string) {
	steps := []struct {
		name string
		call func(context.Context, string) (types.Result, error)
	}{
		{name: "stop", call: m.runtime.Stop},
		{name: "remove", call: m.runtime.Remove},
	}
	for _, step := range steps {
		result, err := step.call(ctx, runtimeID)
		if err != nil || !result.Success() {
			logrus.WithFields(logrus.Fields{
				"container":  id.ShortID(),
				"runtime_id": runtimeID,
				"subcommand": step.name,
				"output":     util.Truncate(result.Output, maxDiagnosticLength),
			}).Warn("Runtime cleanup step failed")
		}
	}
}

// invoke runs one synchronous runtime subcommand and converts failures into
// caller-facing errors carrying the command diagnostic.
func (m *Manager) invoke(
	ctx context.Context,
	name string,
	call func(context.Context, string) (types.Result, error),
	runtimeID string,
) error {
	result, err := call(ctx, runtimeID)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRuntimeCommand, name, err)
	}

	if !result.Success() {
		return fmt.Errorf("%w: %s exited with status %d: %s",
			ErrRuntimeCommand, name, result.ExitCode,
			util.Truncate(result.Output, maxDiagnosticLength))
	}

	return nil
}

// read fetches a record, passing the not-found sentinel through unwrapped
// paths and wrapping any other store failure.
func (m *Manager) read(id types.ContainerID) (*types.Record, error) {
	record, err := m.store.Read(id)
	if err != nil {
		if errors.Is(err, types.ErrRecordNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("reading record: %w", err)
	}

	return record, nil
}

// parseRuntimeID extracts the runtime-assigned container identifier from the
// first line of a successful run's output, capped at 64 characters.
func parseRuntimeID(output string) string {
	return util.Truncate(util.FirstLine(output), maxRuntimeIDLength)
}

// startDiagnostic renders a failed run result as a diagnostic message.
func startDiagnostic(result types.Result) string {
	if result.Output == "" {
		return fmt.Sprintf("runtime run exited with status %d", result.ExitCode)
	}

	return result.Output
}

// invalidState reports an operation requested from a forbidden status,
// naming both the actual and the expected status.
func invalidState(op string, record *types.Record, expected types.Status) error {
	return fmt.Errorf("%w: %s requires status %s, container %s is %s",
		ErrInvalidState, op, expected, record.ID.ShortID(), record.Status)
}

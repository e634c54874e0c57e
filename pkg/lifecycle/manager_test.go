package lifecycle_test

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/berth/pkg/lifecycle"
	"github.com/nicholas-fedor/berth/pkg/lifecycle/mocks"
	"github.com/nicholas-fedor/berth/pkg/store"
	"github.com/nicholas-fedor/berth/pkg/types"
)

// errFault stands in for a runtime binary that could not be executed.
var errFault = errors.New("runtime socket fault")

var _ = ginkgo.Describe("the lifecycle manager", func() {
	var (
		runtime   *mocks.Runtime
		scheduler *mocks.Scheduler
		manager   *lifecycle.Manager
		memory    *store.Memory
	)

	ginkgo.BeforeEach(func() {
		runtime = mocks.NewRuntime()
		scheduler = mocks.NewScheduler()
		manager, memory = newTestManager(runtime, scheduler)
	})

	ginkgo.Describe("starting a container", func() {
		ginkgo.It("rejects a negative auto-termination delay before creating a record", func() {
			_, err := manager.Start("library/nginx:latest", nil, -1)
			gomega.Expect(err).To(gomega.MatchError(lifecycle.ErrNegativeAutoTerminate))

			records, listErr := manager.List()
			gomega.Expect(listErr).ToNot(gomega.HaveOccurred())
			gomega.Expect(records).To(gomega.BeEmpty())
		})

		ginkgo.It("rejects an empty image reference", func() {
			_, err := manager.Start("", nil, 0)
			gomega.Expect(err).To(gomega.MatchError(lifecycle.ErrEmptyImageReference))
		})

		ginkgo.It("transitions STARTING to RUNNING and acquires the runtime identifier", func() {
			handle, err := manager.Start("library/nginx:latest", map[string]string{"PORT": "8080"}, 0)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(handle.ID).ToNot(gomega.BeEmpty())

			record, err := manager.Get(handle.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.Status).To(gomega.Equal(types.StatusRunning))
			gomega.Expect(record.RuntimeContainerID).To(gomega.Equal(mocks.DefaultRuntimeID))
			gomega.Expect(record.ImageReference).To(gomega.Equal("library/nginx:latest"))
			gomega.Expect(record.EnvironmentVariables).To(gomega.HaveKeyWithValue("PORT", "8080"))
			gomega.Expect(record.CreatedAt).To(gomega.BeNumerically(">", 0))
			gomega.Expect(record.ErrorMessage).To(gomega.BeEmpty())
		})

		ginkgo.It("caps the runtime identifier at 64 characters from the first output line", func() {
			runtime.RunResult = types.Result{
				Output: strings.Repeat("a", 80) + "\nWARNING: something unrelated",
			}

			handle, err := manager.Start("library/nginx:latest", nil, 0)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			record, err := manager.Get(handle.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.RuntimeContainerID).To(gomega.Equal(strings.Repeat("a", 64)))
		})

		ginkgo.It("transitions STARTING to FAILED on a non-zero exit with a truncated diagnostic", func() {
			runtime.RunResult = types.Result{
				Output:   strings.Repeat("x", 1500),
				ExitCode: 125,
			}

			handle, err := manager.Start("library/nginx:latest", nil, 0)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			record, err := manager.Get(handle.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.Status).To(gomega.Equal(types.StatusFailed))
			gomega.Expect(record.ErrorMessage).To(gomega.HaveLen(1000))
			gomega.Expect(record.RuntimeContainerID).To(gomega.BeEmpty())
		})

		ginkgo.It("records an invocation fault as FAILED", func() {
			runtime.RunErr = errFault

			handle, err := manager.Start("library/nginx:latest", nil, 0)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			record, err := manager.Get(handle.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.Status).To(gomega.Equal(types.StatusFailed))
			gomega.Expect(record.ErrorMessage).To(gomega.ContainSubstring("fault"))
		})

		ginkgo.It("fails a start whose runtime reported no container identifier", func() {
			runtime.RunResult = types.Result{Output: "\n"}

			handle, err := manager.Start("library/nginx:latest", nil, 0)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			record, err := manager.Get(handle.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.Status).To(gomega.Equal(types.StatusFailed))
		})

		ginkgo.It("registers an auto-termination timer when a delay is configured", func() {
			handle, err := manager.Start("library/nginx:latest", nil, 5)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			timer, ok := scheduler.Timer(handle.ID)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(timer.Delay).To(gomega.Equal(5 * time.Second))
		})

		ginkgo.It("registers no timer when the delay is zero", func() {
			handle, err := manager.Start("library/nginx:latest", nil, 0)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, ok := scheduler.Timer(handle.ID)
			gomega.Expect(ok).To(gomega.BeFalse())
		})

		ginkgo.It("registers no timer when the start failed", func() {
			runtime.RunResult = types.Result{Output: "no such image", ExitCode: 125}

			handle, err := manager.Start("library/nginx:latest", nil, 5)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, ok := scheduler.Timer(handle.ID)
			gomega.Expect(ok).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("pausing and unpausing", func() {
		ginkgo.It("pauses a RUNNING container", func() {
			handle := mustStart(manager)

			gomega.Expect(manager.Pause(context.Background(), handle)).To(gomega.Succeed())

			record, err := manager.Get(handle.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.Status).To(gomega.Equal(types.StatusPaused))
			gomega.Expect(record.RuntimeContainerID).To(gomega.Equal(mocks.DefaultRuntimeID))

			calls := runtime.Calls()
			gomega.Expect(calls[len(calls)-1].Subcommand).To(gomega.Equal("pause"))
			gomega.Expect(calls[len(calls)-1].RuntimeID).To(gomega.Equal(mocks.DefaultRuntimeID))
		})

		ginkgo.It("rejects pausing a STARTING container, naming both statuses", func() {
			deferred := mocks.NewDeferredScheduler()
			deferredManager, _ := newTestManager(runtime, deferred)

			handle, err := deferredManager.Start("library/nginx:latest", nil, 0)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			err = deferredManager.Pause(context.Background(), handle)
			gomega.Expect(err).To(gomega.MatchError(lifecycle.ErrInvalidState))
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("STARTING"))
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("RUNNING"))

			record, err := deferredManager.Get(handle.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.Status).To(gomega.Equal(types.StatusStarting))
			gomega.Expect(runtime.CallCount("pause")).To(gomega.Equal(0))
		})

		ginkgo.It("rejects pausing a PAUSED container", func() {
			handle := mustStart(manager)
			gomega.Expect(manager.Pause(context.Background(), handle)).To(gomega.Succeed())

			err := manager.Pause(context.Background(), handle)
			gomega.Expect(err).To(gomega.MatchError(lifecycle.ErrInvalidState))
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("PAUSED"))
		})

		ginkgo.It("leaves the record unchanged when the runtime rejects the pause", func() {
			handle := mustStart(manager)
			runtime.PauseResult = types.Result{Output: "no such container", ExitCode: 1}

			err := manager.Pause(context.Background(), handle)
			gomega.Expect(err).To(gomega.MatchError(lifecycle.ErrRuntimeCommand))
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("no such container"))

			record, getErr := manager.Get(handle.ID)
			gomega.Expect(getErr).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.Status).To(gomega.Equal(types.StatusRunning))
		})

		ginkgo.It("unpauses a PAUSED container back to RUNNING", func() {
			handle := mustStart(manager)
			gomega.Expect(manager.Pause(context.Background(), handle)).To(gomega.Succeed())

			gomega.Expect(manager.Unpause(context.Background(), handle)).To(gomega.Succeed())

			record, err := manager.Get(handle.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.Status).To(gomega.Equal(types.StatusRunning))
		})

		ginkgo.It("rejects unpausing a RUNNING container", func() {
			handle := mustStart(manager)

			err := manager.Unpause(context.Background(), handle)
			gomega.Expect(err).To(gomega.MatchError(lifecycle.ErrInvalidState))
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("RUNNING"))
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("PAUSED"))
		})
	})

	ginkgo.Describe("terminating", func() {
		ginkgo.It("stops and removes the runtime resource and marks the record TERMINATED", func() {
			handle := mustStart(manager)

			gomega.Expect(manager.Terminate(context.Background(), handle)).To(gomega.Succeed())

			record, err := manager.Get(handle.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.Status).To(gomega.Equal(types.StatusTerminated))
			gomega.Expect(record.RuntimeContainerID).To(gomega.Equal(mocks.DefaultRuntimeID))
			gomega.Expect(runtime.CallCount("stop")).To(gomega.Equal(1))
			gomega.Expect(runtime.CallCount("remove")).To(gomega.Equal(1))
		})

		ginkgo.It("is idempotent: a second terminate produces no further runtime invocations", func() {
			handle := mustStart(manager)

			gomega.Expect(manager.Terminate(context.Background(), handle)).To(gomega.Succeed())
			gomega.Expect(manager.Terminate(context.Background(), handle)).To(gomega.Succeed())

			gomega.Expect(runtime.CallCount("stop")).To(gomega.Equal(1))
			gomega.Expect(runtime.CallCount("remove")).To(gomega.Equal(1))

			record, err := manager.Get(handle.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.Status).To(gomega.Equal(types.StatusTerminated))
		})

		ginkgo.It("cancels the pending auto-termination timer", func() {
			handle := mustStartWithExpiry(manager, 30)

			gomega.Expect(manager.Terminate(context.Background(), handle)).To(gomega.Succeed())

			_, ok := scheduler.Timer(handle.ID)
			gomega.Expect(ok).To(gomega.BeFalse())
			gomega.Expect(scheduler.Cancelled()).To(gomega.ContainElement(handle.ID))
			gomega.Expect(scheduler.Fire(handle.ID)).To(gomega.BeFalse(),
				"the original fire time must not produce a second terminate")
		})

		ginkgo.It("terminates a FAILED container without touching the runtime", func() {
			runtime.RunResult = types.Result{Output: "no such image", ExitCode: 125}
			handle, err := manager.Start("library/nginx:latest", nil, 0)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(manager.Terminate(context.Background(), handle)).To(gomega.Succeed())

			record, err := manager.Get(handle.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.Status).To(gomega.Equal(types.StatusTerminated))
			gomega.Expect(record.ErrorMessage).To(gomega.BeEmpty(),
				"the diagnostic belongs to FAILED only")
			gomega.Expect(runtime.CallCount("stop")).To(gomega.Equal(0))
			gomega.Expect(runtime.CallCount("remove")).To(gomega.Equal(0))
		})

		ginkgo.It("cleans up a dangling runtime resource on a FAILED record that carries one", func() {
			id := types.ContainerID(uuid.NewString())
			gomega.Expect(memory.Write(id, &types.Record{
				ImageReference:     "library/nginx:latest",
				Status:             types.StatusFailed,
				ErrorMessage:       "post-start step failed",
				RuntimeContainerID: mocks.DefaultRuntimeID,
				CreatedAt:          time.Now().Unix(),
			})).To(gomega.Succeed())

			gomega.Expect(manager.Terminate(context.Background(), types.Handle{ID: id})).
				To(gomega.Succeed())

			gomega.Expect(runtime.CallCount("stop")).To(gomega.Equal(1))
			gomega.Expect(runtime.CallCount("remove")).To(gomega.Equal(1))
		})

		ginkgo.It("still marks the record TERMINATED when runtime cleanup fails", func() {
			handle := mustStart(manager)
			runtime.StopResult = types.Result{Output: "daemon unreachable", ExitCode: 1}
			runtime.RemoveResult = types.Result{Output: "daemon unreachable", ExitCode: 1}

			gomega.Expect(manager.Terminate(context.Background(), handle)).To(gomega.Succeed())

			record, err := manager.Get(handle.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.Status).To(gomega.Equal(types.StatusTerminated))
		})

		ginkgo.It("reports not-found for an unknown identifier", func() {
			err := manager.Terminate(context.Background(), types.Handle{
				ID: types.ContainerID(uuid.NewString()),
			})
			gomega.Expect(err).To(gomega.MatchError(lifecycle.ErrNotFound))
		})
	})

	ginkgo.Describe("racing terminate against an in-flight start", func() {
		ginkgo.It("keeps the record TERMINATED and releases the runtime resource", func() {
			deferred := mocks.NewDeferredScheduler()
			deferredManager, _ := newTestManager(runtime, deferred)

			handle, err := deferredManager.Start("library/nginx:latest", nil, 0)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			// Terminate wins the race: no runtime resource exists yet.
			gomega.Expect(deferredManager.Terminate(context.Background(), handle)).
				To(gomega.Succeed())
			gomega.Expect(runtime.CallCount("stop")).To(gomega.Equal(0))

			// The start completes afterwards and must not resurrect the record.
			deferred.RunPending()

			record, err := deferredManager.Get(handle.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.Status).To(gomega.Equal(types.StatusTerminated))
			gomega.Expect(runtime.CallCount("stop")).To(gomega.Equal(1))
			gomega.Expect(runtime.CallCount("remove")).To(gomega.Equal(1))
		})
	})

	ginkgo.Describe("auto-termination", func() {
		ginkgo.It("fires at most once and terminates the container", func() {
			handle := mustStartWithExpiry(manager, 2)

			gomega.Expect(scheduler.Fire(handle.ID)).To(gomega.BeTrue())

			record, err := manager.Get(handle.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(record.Status).To(gomega.Equal(types.StatusTerminated))
			gomega.Expect(record.RuntimeContainerID).To(gomega.Equal(mocks.DefaultRuntimeID))

			gomega.Expect(scheduler.Fire(handle.ID)).To(gomega.BeFalse())
			gomega.Expect(runtime.CallCount("stop")).To(gomega.Equal(1))
		})

		ginkgo.It("tolerates firing after a manual terminate already won", func() {
			handle := mustStartWithExpiry(manager, 2)

			// Keep a reference to the task as the real pool would after dispatch.
			timer, ok := scheduler.Timer(handle.ID)
			gomega.Expect(ok).To(gomega.BeTrue())

			gomega.Expect(manager.Terminate(context.Background(), handle)).To(gomega.Succeed())

			// Late fire: terminate absorbs it idempotently.
			timer.Task()

			gomega.Expect(runtime.CallCount("stop")).To(gomega.Equal(1))
		})
	})

	ginkgo.Describe("reading containers", func() {
		ginkgo.It("distinguishes not-found from invalid-state", func() {
			_, err := manager.Get(types.ContainerID(uuid.NewString()))
			gomega.Expect(err).To(gomega.MatchError(lifecycle.ErrNotFound))
			gomega.Expect(err).ToNot(gomega.MatchError(lifecycle.ErrInvalidState))
		})

		ginkgo.It("lists all known records", func() {
			first := mustStart(manager)
			second := mustStart(manager)

			records, err := manager.List()
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			ids := make([]types.ContainerID, 0, len(records))
			for _, record := range records {
				ids = append(ids, record.ID)
			}

			gomega.Expect(ids).To(gomega.ConsistOf(first.ID, second.ID))
		})
	})
})

// mustStart starts a container with no expiry and asserts it reached RUNNING.
func mustStart(manager *lifecycle.Manager) types.Handle {
	return mustStartWithExpiry(manager, 0)
}

func mustStartWithExpiry(manager *lifecycle.Manager, autoTerminateSeconds int) types.Handle {
	ginkgo.GinkgoHelper()

	handle, err := manager.Start("library/nginx:latest", map[string]string{"PORT": "8080"}, autoTerminateSeconds)
	gomega.Expect(err).ToNot(gomega.HaveOccurred())

	record, err := manager.Get(handle.ID)
	gomega.Expect(err).ToNot(gomega.HaveOccurred())
	gomega.Expect(record.Status).To(gomega.Equal(types.StatusRunning))

	return handle
}

package lifecycle_test

import (
	"time"

	"github.com/google/uuid"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/berth/pkg/lifecycle/mocks"
	"github.com/nicholas-fedor/berth/pkg/types"
)

var _ = ginkgo.Describe("expiry reconciliation", func() {
	var (
		runtime   *mocks.Runtime
		scheduler *mocks.Scheduler
	)

	ginkgo.BeforeEach(func() {
		runtime = mocks.NewRuntime()
		scheduler = mocks.NewDeferredScheduler()
	})

	seed := func(memory interface {
		Write(types.ContainerID, *types.Record) error
	}, status types.Status, createdAt time.Time, autoTerminateSeconds int,
	) types.ContainerID {
		id := types.ContainerID(uuid.NewString())
		gomega.Expect(memory.Write(id, &types.Record{
			ImageReference:       "library/nginx:latest",
			Status:               status,
			AutoTerminateSeconds: autoTerminateSeconds,
			CreatedAt:            createdAt.Unix(),
			RuntimeContainerID:   mocks.DefaultRuntimeID,
		})).To(gomega.Succeed())

		return id
	}

	ginkgo.It("terminates containers already past their deadline", func() {
		manager, memory := newTestManager(runtime, scheduler)
		id := seed(memory, types.StatusRunning, time.Now().Add(-time.Hour), 60)

		gomega.Expect(manager.ReconcileExpiry()).To(gomega.Succeed())
		scheduler.RunPending()

		record, err := manager.Get(id)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(record.Status).To(gomega.Equal(types.StatusTerminated))
		gomega.Expect(runtime.CallCount("stop")).To(gomega.Equal(1))
	})

	ginkgo.It("re-arms a timer for the remaining delay", func() {
		manager, memory := newTestManager(runtime, scheduler)
		id := seed(memory, types.StatusRunning, time.Now(), 3600)

		gomega.Expect(manager.ReconcileExpiry()).To(gomega.Succeed())

		timer, ok := scheduler.Timer(id)
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(timer.Delay).To(gomega.BeNumerically(">", 0))
		gomega.Expect(timer.Delay).To(gomega.BeNumerically("<=", 3600*time.Second))
	})

	ginkgo.It("includes PAUSED containers: pausing suspends the workload, not the clock", func() {
		manager, memory := newTestManager(runtime, scheduler)
		id := seed(memory, types.StatusPaused, time.Now().Add(-time.Hour), 60)

		gomega.Expect(manager.ReconcileExpiry()).To(gomega.Succeed())
		scheduler.RunPending()

		record, err := manager.Get(id)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(record.Status).To(gomega.Equal(types.StatusTerminated))
	})

	ginkgo.It("ignores containers without an expiry policy or already settled", func() {
		manager, memory := newTestManager(runtime, scheduler)
		noExpiry := seed(memory, types.StatusRunning, time.Now().Add(-time.Hour), 0)
		settled := seed(memory, types.StatusTerminated, time.Now().Add(-time.Hour), 60)
		failed := seed(memory, types.StatusFailed, time.Now().Add(-time.Hour), 60)

		gomega.Expect(manager.ReconcileExpiry()).To(gomega.Succeed())
		scheduler.RunPending()

		for _, id := range []types.ContainerID{noExpiry, settled, failed} {
			_, ok := scheduler.Timer(id)
			gomega.Expect(ok).To(gomega.BeFalse())
		}

		gomega.Expect(runtime.CallCount("stop")).To(gomega.Equal(0))
	})
})

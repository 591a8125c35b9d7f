package worker_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"personacard.app/agent/internal/credits"
	"personacard.app/agent/internal/model"
	"personacard.app/agent/internal/queue"
	"personacard.app/agent/internal/service"
	"personacard.app/agent/internal/worker"
)

func usersWithFIDs(fids ...int64) []model.PublicUser {
	users := make([]model.PublicUser, 0, len(fids))
	for i := range fids {
		users = append(users, model.PublicUser{ID: int64(i + 1), FID: &fids[i]})
	}
	return users
}

var _ = Describe("BatchRunner", func() {
	var (
		ctx       context.Context
		users     *mockUserReader
		processor *mockProcessor
	)

	BeforeEach(func() {
		ctx = context.Background()
		users = &mockUserReader{users: usersWithFIDs(1, 2, 3)}
		processor = &mockProcessor{}
	})

	It("runs every user and counts outcomes", func() {
		processor.processFn = func(_ context.Context, msg queue.Message) error {
			if msg.FID == 2 {
				return errors.New("boom")
			}
			return nil
		}
		runner := worker.NewBatchRunner(users, processor, worker.BatchConfig{Concurrency: 2})

		summary, err := runner.RunAll(ctx, queue.TaskTypeIngest)

		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Users).To(Equal(3))
		Expect(summary.Succeeded).To(Equal(2))
		Expect(summary.Failed).To(Equal(1))
		Expect(summary.QuotaExceeded).To(BeFalse())
		Expect(processor.seen).To(ConsistOf(int64(1), int64(2), int64(3)))
	})

	It("stops launching users once credits run out", func() {
		processor.processFn = func(_ context.Context, _ queue.Message) error {
			return &service.RunError{Phase: model.PhaseIngestion, State: service.StateFetching, Reason: service.ReasonQuotaExceeded, Err: credits.ErrQuotaExceeded}
		}
		runner := worker.NewBatchRunner(users, processor, worker.BatchConfig{Concurrency: 1})

		summary, err := runner.RunAll(ctx, queue.TaskTypeIngest)

		Expect(err).NotTo(HaveOccurred())
		Expect(summary.QuotaExceeded).To(BeTrue())
		Expect(summary.Failed).To(Equal(1))
		Expect(summary.NotStarted).To(Equal(2))
		Expect(processor.seen).To(Equal([]int64{1}))
	})

	It("does not run a user that was waiting for a slot when credits ran out", func() {
		users = &mockUserReader{users: usersWithFIDs(1, 2, 3, 4)}
		processor.processFn = func(_ context.Context, _ queue.Message) error {
			return &service.RunError{Phase: model.PhasePersona, State: service.StateIdle, Reason: service.ReasonQuotaExceeded, Err: credits.ErrQuotaExceeded}
		}
		runner := worker.NewBatchRunner(users, processor, worker.BatchConfig{Concurrency: 1, Pause: 0})

		summary, err := runner.RunAll(ctx, queue.TaskTypePipeline)

		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Succeeded).To(BeZero())
		Expect(summary.Failed).To(Equal(1))
		Expect(summary.NotStarted).To(Equal(3))
		Expect(processor.seen).To(Equal([]int64{1}))
	})

	It("fails when users cannot be listed", func() {
		users.err = errors.New("db down")
		runner := worker.NewBatchRunner(users, processor, worker.BatchConfig{})

		_, err := runner.RunAll(ctx, queue.TaskTypePersona)
		Expect(err).To(MatchError(ContainSubstring("listing users")))
	})
})

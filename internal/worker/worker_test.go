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

var _ = Describe("Worker.ProcessMessage", func() {
	var (
		consumer  *mockConsumer
		processor *mockProcessor
		w         *worker.Worker
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		consumer = &mockConsumer{}
		processor = &mockProcessor{}
		w = worker.New(consumer, processor, nil, worker.Config{MaxAttempts: 3})
	})

	msg := func(attempt int) queue.Message {
		return queue.Message{ID: "1-0", TaskType: queue.TaskTypeIngest, FID: 42, Attempt: attempt}
	}

	It("acks a successful task", func() {
		Expect(w.ProcessMessage(ctx, msg(1))).To(Succeed())
		Expect(consumer.acked).To(ConsistOf("1-0"))
		Expect(consumer.requeued).To(BeEmpty())
	})

	It("requeues a transient failure", func() {
		processor.processFn = func(_ context.Context, _ queue.Message) error {
			return &service.RunError{Phase: model.PhaseIngestion, State: service.StateFetching, Reason: service.ReasonExternalFailure, Err: errors.New("502")}
		}

		Expect(w.ProcessMessage(ctx, msg(1))).NotTo(Succeed())
		Expect(consumer.requeued).To(ConsistOf("1-0"))
		Expect(consumer.acked).To(BeEmpty())
	})

	It("sends to the DLQ once attempts are used up", func() {
		processor.processFn = func(_ context.Context, _ queue.Message) error {
			return errors.New("db down")
		}

		Expect(w.ProcessMessage(ctx, msg(3))).NotTo(Succeed())
		Expect(consumer.dlq).To(ConsistOf("1-0"))
		Expect(consumer.requeued).To(BeEmpty())
	})

	DescribeTable("drops failures a retry cannot fix",
		func(reason service.Reason, cause error) {
			processor.processFn = func(_ context.Context, _ queue.Message) error {
				return &service.RunError{Phase: model.PhaseIngestion, State: service.StateFetching, Reason: reason, Err: cause}
			}

			Expect(w.ProcessMessage(ctx, msg(1))).NotTo(Succeed())
			Expect(consumer.acked).To(ConsistOf("1-0"))
			Expect(consumer.requeued).To(BeEmpty())
			Expect(consumer.dlq).To(BeEmpty())
		},
		Entry("quota", service.ReasonQuotaExceeded, credits.ErrQuotaExceeded),
		Entry("missing precondition", service.ReasonMissingPrecondition, service.ErrNoContext),
		Entry("malformed output", service.ReasonMalformedResponse, errors.New("bad json")),
		Entry("busy", service.ReasonBusy, errors.New("locked")),
	)

	It("recovers from a panicking processor", func() {
		processor.processFn = func(_ context.Context, _ queue.Message) error {
			panic("boom")
		}

		Expect(w.ProcessMessage(ctx, msg(1))).To(MatchError(ContainSubstring("panic")))
		Expect(consumer.requeued).To(ConsistOf("1-0"))
	})
})

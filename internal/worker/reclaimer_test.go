package worker_test

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"personacard.app/agent/internal/queue"
	"personacard.app/agent/internal/worker"
)

type fakeClaimer struct {
	stale    []redis.XPendingExt
	messages map[string]redis.XMessage
	staleErr error
}

func (f *fakeClaimer) Stale(_ context.Context, _ time.Duration, _ int64) ([]redis.XPendingExt, error) {
	return f.stale, f.staleErr
}

func (f *fakeClaimer) Claim(_ context.Context, id string, _ time.Duration) (*redis.XMessage, error) {
	msg, ok := f.messages[id]
	if !ok {
		return nil, nil
	}
	return &msg, nil
}

var _ = Describe("Reclaimer", func() {
	var (
		ctx       context.Context
		claimer   *fakeClaimer
		consumer  *mockConsumer
		processed []int64
		reclaimer *worker.Reclaimer
	)

	taskValues := func(fid string) map[string]any {
		return map[string]any{"task_type": "pipeline", "fid": fid, "attempt": "1"}
	}

	BeforeEach(func() {
		ctx = context.Background()
		processed = nil
		claimer = &fakeClaimer{messages: map[string]redis.XMessage{}}
		consumer = &mockConsumer{}
		reclaimer = worker.NewReclaimer(claimer, consumer, func(_ context.Context, msg queue.Message) error {
			processed = append(processed, msg.FID)
			return nil
		}, worker.ReclaimerConfig{MinIdle: time.Minute, MaxDeliveries: 3})
	})

	It("reprocesses stale messages", func() {
		claimer.stale = []redis.XPendingExt{{ID: "1-0", Consumer: "dead", RetryCount: 1}}
		claimer.messages["1-0"] = redis.XMessage{ID: "1-0", Values: taskValues("42")}

		n, err := reclaimer.ReclaimOnce(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
		Expect(processed).To(Equal([]int64{42}))
	})

	It("skips entries another reclaimer already took", func() {
		claimer.stale = []redis.XPendingExt{{ID: "1-0", RetryCount: 1}}

		n, err := reclaimer.ReclaimOnce(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(0))
		Expect(processed).To(BeEmpty())
	})

	It("dead-letters a message that keeps stalling", func() {
		claimer.stale = []redis.XPendingExt{{ID: "2-0", RetryCount: 3}}
		claimer.messages["2-0"] = redis.XMessage{ID: "2-0", Values: taskValues("7")}

		n, err := reclaimer.ReclaimOnce(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
		Expect(processed).To(BeEmpty())
		Expect(consumer.dlq).To(ConsistOf("2-0"))
	})

	It("acks messages it cannot parse", func() {
		claimer.stale = []redis.XPendingExt{{ID: "3-0", RetryCount: 1}}
		claimer.messages["3-0"] = redis.XMessage{ID: "3-0", Values: map[string]any{"fid": "7"}}

		_, err := reclaimer.ReclaimOnce(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(consumer.acked).To(ConsistOf("3-0"))
		Expect(processed).To(BeEmpty())
	})

	It("reports a failed listing", func() {
		claimer.staleErr = errors.New("connection refused")

		_, err := reclaimer.ReclaimOnce(ctx)
		Expect(err).To(MatchError(ContainSubstring("listing pending entries")))
	})
})

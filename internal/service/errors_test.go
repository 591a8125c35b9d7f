package service

import (
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"personacard.app/agent/internal/credits"
	"personacard.app/agent/internal/lock"
	"personacard.app/agent/internal/model"
	"personacard.app/agent/internal/neynar"
	"personacard.app/agent/internal/persona"
	"personacard.app/agent/internal/stats"
)

var _ = DescribeTable("classify",
	func(state State, err error, want Reason) {
		Expect(classify(state, err)).To(Equal(want))
	},
	Entry("quota anywhere", StateFetching, fmt.Errorf("page: %w", credits.ErrQuotaExceeded), ReasonQuotaExceeded),
	Entry("held lock", StateIdle, lock.ErrLocked, ReasonBusy),
	Entry("no context", StateSampling, ErrNoContext, ReasonMissingPrecondition),
	Entry("no casts to aggregate", StateAggregating, stats.ErrNoCasts, ReasonMissingPrecondition),
	Entry("unknown profile", StateFetching, neynar.ErrProfileNotFound, ReasonMissingPrecondition),
	Entry("bad model reply", StateSummarizing, persona.ErrMalformedOutput, ReasonMalformedResponse),
	Entry("api status", StatePersisting, &neynar.APIError{StatusCode: 500}, ReasonExternalFailure),
	Entry("network while fetching", StateFetching, errors.New("dial tcp: refused"), ReasonExternalFailure),
	Entry("database while storing", StateStoring, errors.New("conn closed"), ReasonInternal),
)

var _ = Describe("RunError", func() {
	It("should unwrap to the cause", func() {
		err := error(&RunError{Phase: model.PhasePersona, State: StateSampling, Reason: ReasonMissingPrecondition, Err: ErrNoCasts})

		Expect(errors.Is(err, ErrNoCasts)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("persona failed while sampling"))
	})

	It("should expose the caller wording for a known sentinel", func() {
		re := &RunError{Err: fmt.Errorf("%w: %w", ErrNoProfile, neynar.ErrProfileNotFound)}
		Expect(re.Message()).To(Equal("Failed to fetch profile"))
	})

	It("should keep the wrapped text for unknown causes", func() {
		re := &RunError{Err: fmt.Errorf("storing persona: %w", errors.New("conn closed"))}
		Expect(re.Message()).To(Equal("storing persona: conn closed"))
	})

	DescribeTable("sentinel text stays lowercase without trailing punctuation",
		func(err error, message string) {
			text := err.Error()
			Expect(text[:1]).To(Equal(strings.ToLower(text[:1])))
			Expect(text).NotTo(HaveSuffix("."))
			Expect((&RunError{Err: fmt.Errorf("loading: %w", err)}).Message()).To(Equal(message))
		},
		Entry("no context", ErrNoContext, "No user_context found. Run ingestion first."),
		Entry("no casts", ErrNoCasts, "No casts found. Run ingestion first."),
		Entry("no profile", ErrNoProfile, "Failed to fetch profile"),
		Entry("held lock", lock.ErrLocked, "A run for this user is already in progress"),
	)
})

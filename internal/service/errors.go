package service

import (
	"errors"
	"fmt"

	"personacard.app/agent/internal/credits"
	"personacard.app/agent/internal/lock"
	"personacard.app/agent/internal/model"
	"personacard.app/agent/internal/neynar"
	"personacard.app/agent/internal/persona"
	"personacard.app/agent/internal/stats"
)

var (
	ErrNoContext = errors.New("no user context found")
	ErrNoCasts   = errors.New("no casts found")
	ErrNoProfile = errors.New("failed to fetch profile")
	ErrNoCard    = errors.New("no card data found")
)

// userMessages is the caller-facing wording for the sentinels runs fail with.
var userMessages = []struct {
	err error
	msg string
}{
	{ErrNoContext, "No user_context found. Run ingestion first."},
	{ErrNoCasts, "No casts found. Run ingestion first."},
	{ErrNoProfile, "Failed to fetch profile"},
	{lock.ErrLocked, "A run for this user is already in progress"},
}

// Reason is the machine-checkable failure category reported to callers.
type Reason string

const (
	ReasonQuotaExceeded       Reason = "quota_exceeded"
	ReasonMissingPrecondition Reason = "missing_precondition"
	ReasonMalformedResponse   Reason = "malformed_response"
	ReasonExternalFailure     Reason = "external_failure"
	ReasonBusy                Reason = "busy"
	ReasonInternal            Reason = "internal"
)

// State is a step of a run. Error is reachable from every other state.
type State string

const (
	StateIdle        State = "idle"
	StateGating      State = "gating"
	StateFetching    State = "fetching"
	StatePersisting  State = "persisting"
	StateAggregating State = "aggregating"
	StateSampling    State = "sampling"
	StateSummarizing State = "summarizing"
	StateStoring     State = "storing"
	StateDone        State = "done"
	StateError       State = "error"
)

// RunError is the only error type runs return. It names the phase and the
// state the run failed in.
type RunError struct {
	Phase  model.Phase
	State  State
	Reason Reason
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s failed while %s (%s): %v", e.Phase, e.State, e.Reason, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Message is the underlying error text, safe to show to callers.
func (e *RunError) Message() string {
	if errors.Is(e.Err, credits.ErrQuotaExceeded) {
		return credits.QuotaMessage
	}
	return rootMessage(e.Err)
}

// rootMessage returns the caller-facing wording of a known sentinel in the
// chain, otherwise the full text.
func rootMessage(err error) string {
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return err.Error()
}

// AsRunError unwraps err into a *RunError when it is one.
func AsRunError(err error) (*RunError, bool) {
	var re *RunError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsQuotaExceeded reports whether err stems from the daily credit budget.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, credits.ErrQuotaExceeded)
}

func classify(state State, err error) Reason {
	var apiErr *neynar.APIError
	switch {
	case errors.Is(err, credits.ErrQuotaExceeded):
		return ReasonQuotaExceeded
	case errors.Is(err, lock.ErrLocked):
		return ReasonBusy
	case errors.Is(err, ErrNoContext),
		errors.Is(err, ErrNoCasts),
		errors.Is(err, ErrNoProfile),
		errors.Is(err, stats.ErrNoCasts),
		errors.Is(err, neynar.ErrProfileNotFound):
		return ReasonMissingPrecondition
	case errors.Is(err, persona.ErrMalformedOutput):
		return ReasonMalformedResponse
	case errors.As(err, &apiErr):
		return ReasonExternalFailure
	case state == StateFetching || state == StateSummarizing:
		return ReasonExternalFailure
	default:
		return ReasonInternal
	}
}

// Package credits meters calls against the Farcaster API's daily credit budget.
package credits

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"personacard.app/agent/common/clock"
)

// Per-object credit costs of the endpoints this service may call.
const (
	CostUserBulk          = 2
	CostFeedUserCasts     = 4
	CostCastGet           = 4
	CostCastPost          = 150
	CostReactionByID      = 100
	CostReactionsByCast   = 150
	CostStorageLimits     = 5
	CostSubscriptionCheck = 2
)

const (
	DefaultDailyLimit = 10000
	MaxPageSize       = 150
	DefaultMaxCasts   = 500

	dateLayout = "2006-01-02"
)

// ErrQuotaExceeded means today's budget cannot cover the call. It clears at
// the next UTC midnight.
var ErrQuotaExceeded = errors.New("daily credit limit exceeded")

// QuotaMessage is the user-facing text for ErrQuotaExceeded.
const QuotaMessage = "Today's operating was already finished. Please do it tomorrow."

type Status struct {
	Date        string `json:"date"`
	Used        int    `json:"used"`
	Limit       int    `json:"limit"`
	Remaining   int    `json:"remaining"`
	PercentUsed int    `json:"percentUsed"`
}

type state struct {
	date  string
	used  int
	limit int
}

// rollover returns s unchanged on the same day and a zeroed budget otherwise.
func rollover(s state, today string, limit int) state {
	if s.date == today {
		return s
	}
	return state{date: today, limit: limit}
}

// Tracker is an in-process daily budget. Every process keeps its own count.
type Tracker struct {
	clock clock.Clock
	limit int

	mu      sync.Mutex
	state   state
	observe func(Status)
}

func NewTracker(clk clock.Clock, dailyLimit int) *Tracker {
	if clk == nil {
		clk = clock.Real()
	}
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	t := &Tracker{clock: clk, limit: dailyLimit}
	t.state = state{date: t.today(), limit: dailyLimit}
	return t
}

// OnChange registers fn to receive the status after every successful consume
// and every rollover.
func (t *Tracker) OnChange(fn func(Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observe = fn
}

func (t *Tracker) today() string {
	return t.clock.Now().UTC().Format(dateLayout)
}

// refresh must be called with mu held.
func (t *Tracker) refresh() {
	next := rollover(t.state, t.today(), t.limit)
	if next == t.state {
		return
	}
	slog.Info("credit day rolled over",
		"previous_date", t.state.date,
		"previous_used", t.state.used,
		"limit", t.state.limit)
	t.state = next
	t.notify()
}

func (t *Tracker) notify() {
	if t.observe != nil {
		t.observe(t.status())
	}
}

func (t *Tracker) HasCredits(cost int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refresh()
	return t.state.used+cost <= t.state.limit
}

// Consume charges cost for operation, or returns ErrQuotaExceeded and charges
// nothing.
func (t *Tracker) Consume(cost int, operation string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refresh()

	if t.state.used+cost > t.state.limit {
		slog.Warn("credit limit exceeded",
			"operation", operation,
			"requested", cost,
			"used", t.state.used,
			"limit", t.state.limit)
		return fmt.Errorf("%s needs %d credits, %d/%d used: %w",
			operation, cost, t.state.used, t.state.limit, ErrQuotaExceeded)
	}

	t.state.used += cost
	slog.Debug("credits consumed",
		"operation", operation,
		"cost", cost,
		"used", t.state.used,
		"limit", t.state.limit)
	t.notify()
	return nil
}

func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refresh()
	return t.status()
}

func (t *Tracker) status() Status {
	s := t.state
	return Status{
		Date:        s.date,
		Used:        s.used,
		Limit:       s.limit,
		Remaining:   s.limit - s.used,
		PercentUsed: int(math.Round(float64(s.used) / float64(s.limit) * 100)),
	}
}

// EstimateCastFetch is the cost of paging through castCount casts. A
// non-positive pageSize means the API maximum.
func EstimateCastFetch(castCount, pageSize int) int {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if castCount <= 0 {
		return 0
	}
	pages := (castCount + pageSize - 1) / pageSize
	return pages * CostFeedUserCasts
}

// CanFetchUserCasts checks the budget for one profile lookup plus a full
// cast fetch of maxCasts at the API page size.
func (t *Tracker) CanFetchUserCasts(maxCasts int) bool {
	return t.HasCredits(CostUserBulk + EstimateCastFetch(maxCasts, MaxPageSize))
}

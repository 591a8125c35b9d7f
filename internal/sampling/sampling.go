// Package sampling picks the bounded set of casts handed to the persona
// summarizer.
package sampling

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"personacard.app/agent/common/clock"
	"personacard.app/agent/internal/model"
)

const (
	RecentWindow = 30 * 24 * time.Hour

	TopRecent    = 5
	RandomRecent = 5
	TopAllTime   = 3
	MaxSamples   = 15
)

// Sampler mixes recent top casts, a random draw of other recent casts and
// all-time top casts. It is safe for concurrent use.
type Sampler struct {
	clock clock.Clock

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a sampler drawing from src. A nil src seeds from the runtime.
func New(src rand.Source, clk clock.Clock) *Sampler {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Sampler{clock: clk, rng: rand.New(src)}
}

// Sample returns at most MaxSamples casts, most recent first. Every cast is
// picked at most once.
func (s *Sampler) Sample(casts []model.Cast) []model.SampledCast {
	if len(casts) == 0 {
		return []model.SampledCast{}
	}

	recentStart := s.clock.Now().Add(-RecentWindow)
	picked := make(map[int]bool, MaxSamples)
	order := make([]int, 0, MaxSamples)
	pick := func(i int) {
		if !picked[i] && len(order) < MaxSamples {
			picked[i] = true
			order = append(order, i)
		}
	}

	var recent []int
	for i, c := range casts {
		if !c.Timestamp.Before(recentStart) {
			recent = append(recent, i)
		}
	}
	byLikes := func(idx []int) {
		slices.SortStableFunc(idx, func(a, b int) int {
			return cmp.Compare(casts[b].LikesCount, casts[a].LikesCount)
		})
	}

	byLikes(recent)
	for _, i := range recent[:min(TopRecent, len(recent))] {
		pick(i)
	}

	rest := recent[min(TopRecent, len(recent)):]
	for _, i := range s.draw(rest, RandomRecent) {
		pick(i)
	}

	all := make([]int, len(casts))
	for i := range all {
		all[i] = i
	}
	byLikes(all)

	// The first TopAllTime unpicked entries are the all-time top; the rest
	// of the same ordering backfills.
	for _, i := range all {
		if len(order) >= MaxSamples {
			break
		}
		pick(i)
	}

	out := make([]model.SampledCast, 0, len(order))
	for _, i := range order {
		out = append(out, project(casts[i]))
	}
	slices.SortStableFunc(out, func(a, b model.SampledCast) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

// draw returns up to n entries of idx chosen uniformly without replacement.
func (s *Sampler) draw(idx []int, n int) []int {
	if len(idx) <= n {
		return idx
	}
	s.mu.Lock()
	perm := s.rng.Perm(len(idx))
	s.mu.Unlock()

	out := make([]int, n)
	for k := range out {
		out[k] = idx[perm[k]]
	}
	return out
}

func project(c model.Cast) model.SampledCast {
	return model.SampledCast{
		Hash:      c.Hash,
		Text:      c.TextOrEmpty(),
		Likes:     c.LikesCount,
		Recasts:   c.RecastsCount,
		Replies:   c.RepliesCount,
		Timestamp: c.Timestamp,
		Channel:   c.Channel,
	}
}

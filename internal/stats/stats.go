// Package stats computes a user's activity snapshot from their full cast history.
package stats

import (
	"errors"
	"slices"
	"time"

	"personacard.app/agent/internal/model"
)

// ErrNoCasts is returned when there is nothing to aggregate. Ingestion has to
// have stored at least one cast first.
var ErrNoCasts = errors.New("no casts found for user")

const (
	RecentWindow   = 7 * 24 * time.Hour
	ActivityWindow = 30 * 24 * time.Hour

	TopChannelLimit = 5

	dailyActiveMinCasts  = 7 // in RecentWindow
	weeklyActiveMinCasts = 4 // in ActivityWindow

	risingFactor    = 1.2
	decliningFactor = 0.8
)

// Compute builds the snapshot for fid as of now. A cast exactly on a window
// boundary counts as inside the window. The returned context has no ID; the
// store assigns one on first insert.
func Compute(fid int64, casts []model.Cast, followers, following int, now time.Time) (*model.UserContext, error) {
	if len(casts) == 0 {
		return nil, ErrNoCasts
	}

	recentStart := now.Add(-RecentWindow)
	activityStart := now.Add(-ActivityWindow)

	var (
		last7d, last30d                     int
		totalLikes, totalRecasts, totalReps int64
		recentLikes, olderLikes             int64
		recentCount, olderCount             int
	)

	first, latest, top := casts[0], casts[0], casts[0]
	channels := newChannelCounter()

	for _, c := range casts {
		inRecent := !c.Timestamp.Before(recentStart)
		inActivity := !c.Timestamp.Before(activityStart)

		if inRecent {
			last7d++
			recentCount++
			recentLikes += int64(c.LikesCount)
		}
		if inActivity {
			last30d++
			if !inRecent {
				olderCount++
				olderLikes += int64(c.LikesCount)
			}
		}

		if c.Timestamp.Before(first.Timestamp) {
			first = c
		}
		if c.Timestamp.After(latest.Timestamp) {
			latest = c
		}
		if c.LikesCount > top.LikesCount {
			top = c
		}

		totalLikes += int64(c.LikesCount)
		totalRecasts += int64(c.RecastsCount)
		totalReps += int64(c.RepliesCount)

		if c.Channel != nil && *c.Channel != "" {
			channels.add(*c.Channel)
		}
	}

	n := float64(len(casts))
	topHash := top.Hash
	latestHash := latest.Hash

	return &model.UserContext{
		FID:                  fid,
		TotalCastsAnalyzed:   len(casts),
		CastsLast7d:          last7d,
		CastsLast30d:         last30d,
		FirstCastAt:          first.Timestamp,
		LastCastAt:           latest.Timestamp,
		AvgLikesPerCast:      float64(totalLikes) / n,
		AvgRecastsPerCast:    float64(totalRecasts) / n,
		TotalEngagement:      totalLikes + totalRecasts + totalReps,
		EngagementTrend:      ClassifyTrend(mean(recentLikes, recentCount), mean(olderLikes, olderCount)),
		TopCastHash:          &topHash,
		TopCastLikes:         top.LikesCount,
		TopChannels:          channels.top(TopChannelLimit),
		CastsPerWeek:         float64(last30d) / (30.0 / 7.0),
		ActivityPattern:      ClassifyActivity(last7d, last30d),
		FollowerCount:        followers,
		FollowingCount:       following,
		FollowRatio:          FollowRatio(followers, following),
		ActiveSince:          first.Timestamp.UTC().Format("2006-01"),
		LastAnalyzedCastHash: &latestHash,
		WindowStart:          activityStart,
		WindowEnd:            now,
		UpdatedAt:            now,
	}, nil
}

// ClassifyActivity applies the first matching rule: daily_active, weekly_active, occasional.
func ClassifyActivity(castsLast7d, castsLast30d int) model.ActivityPattern {
	switch {
	case castsLast7d >= dailyActiveMinCasts:
		return model.PatternDailyActive
	case castsLast30d >= weeklyActiveMinCasts:
		return model.PatternWeeklyActive
	default:
		return model.PatternOccasional
	}
}

// ClassifyTrend compares mean likes of the last 7 days against days 7 to 30.
// With no older baseline any recent likes count as rising.
func ClassifyTrend(recentAvg, olderAvg float64) model.EngagementTrend {
	if olderAvg == 0 {
		if recentAvg > 0 {
			return model.TrendRising
		}
		return model.TrendStable
	}
	switch {
	case recentAvg > olderAvg*risingFactor:
		return model.TrendRising
	case recentAvg < olderAvg*decliningFactor:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

func FollowRatio(followers, following int) float64 {
	if following <= 0 {
		return 0
	}
	return float64(followers) / float64(following)
}

func mean(sum int64, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// channelCounter keeps first-seen order so ties rank by encounter.
type channelCounter struct {
	order  []string
	counts map[string]int
}

func newChannelCounter() *channelCounter {
	return &channelCounter{counts: make(map[string]int)}
}

func (c *channelCounter) add(channel string) {
	if _, ok := c.counts[channel]; !ok {
		c.order = append(c.order, channel)
	}
	c.counts[channel]++
}

func (c *channelCounter) top(limit int) []model.ChannelCount {
	out := make([]model.ChannelCount, 0, len(c.order))
	for _, ch := range c.order {
		out = append(out, model.ChannelCount{Channel: ch, Count: c.counts[ch]})
	}
	slices.SortStableFunc(out, func(a, b model.ChannelCount) int {
		return b.Count - a.Count
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

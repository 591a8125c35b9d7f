package model

import "time"

type EngagementTrend string

const (
	TrendRising    EngagementTrend = "rising"
	TrendStable    EngagementTrend = "stable"
	TrendDeclining EngagementTrend = "declining"
)

type ActivityPattern string

const (
	PatternDailyActive  ActivityPattern = "daily_active"
	PatternWeeklyActive ActivityPattern = "weekly_active"
	PatternOccasional   ActivityPattern = "occasional"
)

// ChannelCount is one entry of a user's most-used channels.
type ChannelCount struct {
	Channel string `json:"channel"`
	Count   int    `json:"count"`
}

// UserContext is the aggregated activity snapshot for one user. There is at
// most one per FID; every recomputation replaces it. UpdatedAt is the
// computation time.
type UserContext struct {
	ID                   int64           `json:"id"`
	FID                  int64           `json:"fid"`
	TotalCastsAnalyzed   int             `json:"total_casts_analyzed"`
	CastsLast7d          int             `json:"casts_last_7d"`
	CastsLast30d         int             `json:"casts_last_30d"`
	FirstCastAt          time.Time       `json:"first_cast_at"`
	LastCastAt           time.Time       `json:"last_cast_at"`
	AvgLikesPerCast      float64         `json:"avg_likes_per_cast"`
	AvgRecastsPerCast    float64         `json:"avg_recasts_per_cast"`
	TotalEngagement      int64           `json:"total_engagement"`
	EngagementTrend      EngagementTrend `json:"engagement_trend"`
	TopCastHash          *string         `json:"top_cast_hash,omitempty"`
	TopCastLikes         int             `json:"top_cast_likes"`
	TopChannels          []ChannelCount  `json:"top_channels"`
	CastsPerWeek         float64         `json:"casts_per_week"`
	ActivityPattern      ActivityPattern `json:"activity_pattern"`
	FollowerCount        int             `json:"follower_count"`
	FollowingCount       int             `json:"following_count"`
	FollowRatio          float64         `json:"follow_ratio"`
	ActiveSince          string          `json:"active_since"`
	LastAnalyzedCastHash *string         `json:"last_analyzed_cast_hash,omitempty"`
	WindowStart          time.Time       `json:"window_start"`
	WindowEnd            time.Time       `json:"window_end"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// ChannelNames returns the channel names of TopChannels in rank order.
func (c UserContext) ChannelNames() []string {
	names := make([]string, len(c.TopChannels))
	for i, ch := range c.TopChannels {
		names[i] = ch.Channel
	}
	return names
}

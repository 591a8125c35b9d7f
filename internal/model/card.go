package model

// Card is the display-ready profile card built from a persona and its context.
type Card struct {
	ID              int64          `json:"id"`
	FID             int64          `json:"fid"`
	Headline        string         `json:"headline"`
	Subheadline     string         `json:"subheadline"`
	SummaryLine     string         `json:"summary_line"`
	Badges          []string       `json:"badges"`
	Topics          []string       `json:"topics"`
	Stats           []StatItem     `json:"stats"`
	FeaturedCasts   []FeaturedCast `json:"featured_casts"`
	Tone            string         `json:"tone"`
	ActivityPattern string         `json:"activity_pattern"`
	ActiveSince     string         `json:"active_since"`
	PfpURL          *string        `json:"pfp_url,omitempty"`
	ConfidenceScore float64        `json:"confidence_score"`
	GeneratedAt     string         `json:"generated_at"`
}

type StatItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

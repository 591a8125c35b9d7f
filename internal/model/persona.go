package model

import (
	"encoding/json"
	"time"
)

// Persona is a generated summary of a user. Rows are append-only; the latest
// by GeneratedAt is current.
type Persona struct {
	ID              int64           `json:"id"`
	FID             int64           `json:"fid"`
	ContextID       *int64          `json:"context_id,omitempty"`
	GeneratedAt     time.Time       `json:"generated_at"`
	Tone            string          `json:"tone"`
	PrimaryTopics   []string        `json:"primary_topics"`
	SecondaryTopics []string        `json:"secondary_topics"`
	PersonaLabels   []string        `json:"persona_labels"`
	Summary         string          `json:"summary"`
	Tagline         string          `json:"tagline"`
	FeaturedCasts   []FeaturedCast  `json:"featured_casts"`
	ConfidenceScore float64         `json:"confidence_score"`
	ModelUsed       string          `json:"model_used"`
	PromptVersion   string          `json:"prompt_version"`
	RawJSON         json.RawMessage `json:"raw_json,omitempty"`
}

type FeaturedCast struct {
	Hash   string `json:"hash"`
	Text   string `json:"text"`
	Likes  int    `json:"likes"`
	Reason string `json:"reason"`
	URL    string `json:"url"`
}

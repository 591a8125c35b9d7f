package model

import (
	"encoding/json"
	"time"
)

// Cast is a single post authored by a Farcaster user.
type Cast struct {
	ID              int64           `json:"id"`
	FID             int64           `json:"fid"`
	Hash            string          `json:"hash"`
	Timestamp       time.Time       `json:"timestamp"`
	Text            *string         `json:"text,omitempty"`
	Channel         *string         `json:"channel,omitempty"`
	ParentHash      *string         `json:"parent_hash,omitempty"`
	ParentAuthorFID *int64          `json:"parent_author_fid,omitempty"`
	Mentions        []int64         `json:"mentions"`
	Embeds          []Embed         `json:"embeds"`
	RepliesCount    int             `json:"replies_count"`
	RecastsCount    int             `json:"recasts_count"`
	LikesCount      int             `json:"likes_count"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

// Embed is a URL or quoted cast attached to a cast.
type Embed struct {
	URL      string `json:"url,omitempty"`
	CastHash string `json:"cast_hash,omitempty"`
}

// TextOrEmpty returns the cast text, or "" for casts without text.
func (c Cast) TextOrEmpty() string {
	if c.Text == nil {
		return ""
	}
	return *c.Text
}

// SampledCast is the projection of a cast handed to the summarizer.
type SampledCast struct {
	Hash      string    `json:"hash"`
	Text      string    `json:"text"`
	Likes     int       `json:"likes"`
	Recasts   int       `json:"recasts"`
	Replies   int       `json:"replies"`
	Timestamp time.Time `json:"timestamp"`
	Channel   *string   `json:"channel,omitempty"`
}

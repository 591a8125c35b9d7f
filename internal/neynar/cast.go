package neynar

import (
	"encoding/json"
	"fmt"
	"time"

	"personacard.app/agent/internal/model"
)

// Cast is a cast as returned by the feed endpoint. Raw holds the original
// JSON for audit.
type Cast struct {
	Hash         string  `json:"hash"`
	ParentHash   *string `json:"parent_hash"`
	ParentAuthor struct {
		FID *int64 `json:"fid"`
	} `json:"parent_author"`
	Author struct {
		FID      int64  `json:"fid"`
		Username string `json:"username"`
	} `json:"author"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Embeds    []struct {
		URL    string `json:"url"`
		CastID *struct {
			FID  int64  `json:"fid"`
			Hash string `json:"hash"`
		} `json:"cast_id"`
	} `json:"embeds"`
	Channel *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"channel"`
	Reactions struct {
		LikesCount   int `json:"likes_count"`
		RecastsCount int `json:"recasts_count"`
	} `json:"reactions"`
	Replies struct {
		Count int `json:"count"`
	} `json:"replies"`
	MentionedProfiles []struct {
		FID int64 `json:"fid"`
	} `json:"mentioned_profiles"`

	Raw json.RawMessage `json:"-"`
}

// ToModel maps an API cast to the stored form. The caller assigns the ID.
func ToModel(fid int64, c Cast) (*model.Cast, error) {
	ts, err := time.Parse(time.RFC3339, c.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("cast %s: parsing timestamp %q: %w", c.Hash, c.Timestamp, err)
	}

	out := &model.Cast{
		FID:             fid,
		Hash:            c.Hash,
		Timestamp:       ts.UTC(),
		ParentHash:      c.ParentHash,
		ParentAuthorFID: c.ParentAuthor.FID,
		Mentions:        make([]int64, 0, len(c.MentionedProfiles)),
		Embeds:          make([]model.Embed, 0, len(c.Embeds)),
		RepliesCount:    c.Replies.Count,
		RecastsCount:    c.Reactions.RecastsCount,
		LikesCount:      c.Reactions.LikesCount,
		Raw:             c.Raw,
	}
	if c.Text != "" {
		text := c.Text
		out.Text = &text
	}
	if c.Channel != nil && c.Channel.ID != "" {
		ch := c.Channel.ID
		out.Channel = &ch
	}
	for _, m := range c.MentionedProfiles {
		out.Mentions = append(out.Mentions, m.FID)
	}
	for _, e := range c.Embeds {
		embed := model.Embed{URL: e.URL}
		if e.CastID != nil {
			embed.CastHash = e.CastID.Hash
		}
		out.Embeds = append(out.Embeds, embed)
	}
	return out, nil
}

package persona

import (
	"errors"
	"fmt"
	"strings"

	"personacard.app/agent/internal/model"
)

// ErrMalformedOutput means the model replied but the reply can't be used.
var ErrMalformedOutput = errors.New("malformed persona output")

const featuredCastURLPrefix = "https://warpcast.com/~/conversations/"

type FeaturedCast struct {
	Hash   string `json:"hash" jsonschema:"description=Hash of the cast exactly as given"`
	Text   string `json:"text" jsonschema:"description=Short excerpt of the cast"`
	Likes  int    `json:"likes"`
	Reason string `json:"reason" jsonschema:"description=Why this cast is notable"`
	URL    string `json:"url,omitempty"`
}

// Output is the structured reply requested from the model.
type Output struct {
	Tone               string         `json:"tone" jsonschema:"description=Communication tone"`
	PrimaryTopics      []string       `json:"primaryTopics" jsonschema:"description=What they talk about. At most 3 very short topics,maxItems=3"`
	SecondaryTopics    []string       `json:"secondaryTopics"`
	PersonaLabels      []string       `json:"personaLabels" jsonschema:"description=Who they are. At most 3 short identity or role labels,maxItems=3"`
	Summary            string         `json:"summary" jsonschema:"description=2-3 sentence summary"`
	Tagline            string         `json:"tagline" jsonschema:"description=Headline of at most 5 words"`
	SampleQuotes       []string       `json:"sampleQuotes"`
	CommunicationStyle string         `json:"communicationStyle"`
	ContentFocus       string         `json:"contentFocus"`
	EngagementPattern  string         `json:"engagementPattern"`
	InfluenceType      string         `json:"influenceType"`
	FeaturedCasts      []FeaturedCast `json:"featuredCasts" jsonschema:"description=Exactly 3 notable casts from the list"`
	ConfidenceScore    float64        `json:"confidenceScore" jsonschema:"minimum=0,maximum=1"`
}

// Validate checks the fields a card can't be rendered without.
func (o *Output) Validate() error {
	var missing []string
	if strings.TrimSpace(o.Tone) == "" {
		missing = append(missing, "tone")
	}
	if strings.TrimSpace(o.Summary) == "" {
		missing = append(missing, "summary")
	}
	if strings.TrimSpace(o.Tagline) == "" {
		missing = append(missing, "tagline")
	}
	if len(o.PrimaryTopics) == 0 {
		missing = append(missing, "primaryTopics")
	}
	if len(o.PersonaLabels) == 0 {
		missing = append(missing, "personaLabels")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedOutput, strings.Join(missing, ", "))
	}
	if o.ConfidenceScore < 0 || o.ConfidenceScore > 1 {
		return fmt.Errorf("%w: confidenceScore %v out of range", ErrMalformedOutput, o.ConfidenceScore)
	}
	for i, fc := range o.FeaturedCasts {
		if fc.Hash == "" {
			return fmt.Errorf("%w: featuredCasts[%d] has no hash", ErrMalformedOutput, i)
		}
	}
	return nil
}

// normalize fills in defaults the model is allowed to omit.
func (o *Output) normalize() {
	for i := range o.FeaturedCasts {
		if o.FeaturedCasts[i].URL == "" {
			o.FeaturedCasts[i].URL = featuredCastURLPrefix + o.FeaturedCasts[i].Hash
		}
	}
	if o.SecondaryTopics == nil {
		o.SecondaryTopics = []string{}
	}
}

// ToModel builds the persona row for fid from a validated output.
func (o *Output) ToModel(fid int64) *model.Persona {
	featured := make([]model.FeaturedCast, len(o.FeaturedCasts))
	for i, fc := range o.FeaturedCasts {
		featured[i] = model.FeaturedCast{
			Hash:   fc.Hash,
			Text:   fc.Text,
			Likes:  fc.Likes,
			Reason: fc.Reason,
			URL:    fc.URL,
		}
	}
	return &model.Persona{
		FID:             fid,
		Tone:            o.Tone,
		PrimaryTopics:   o.PrimaryTopics,
		SecondaryTopics: o.SecondaryTopics,
		PersonaLabels:   o.PersonaLabels,
		Summary:         o.Summary,
		Tagline:         o.Tagline,
		FeaturedCasts:   featured,
		ConfidenceScore: o.ConfidenceScore,
	}
}

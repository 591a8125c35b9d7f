package persona

import (
	"fmt"
	"strings"

	"personacard.app/agent/common/logger"
	"personacard.app/agent/internal/model"
)

// PromptVersion is stored with every persona so outputs can be compared
// across prompt changes.
const PromptVersion = "v3.1.0-gemini-3"

const (
	promptCastLimit    = 15
	promptChannelLimit = 3
	castTextLimit      = 150
)

const systemPrompt = `You are an expert social media analyst. Analyze this Farcaster user and generate a JSON persona profile.
Keep topics and labels very short. Pick exactly 3 featured casts from the list and copy their hashes exactly.
Return only the JSON object.`

// Metrics is the slice of the activity snapshot the model sees.
type Metrics struct {
	AvgCastsPerWeek   float64
	AvgLikesPerCast   float64
	AvgRecastsPerCast float64
	FollowersCount    int
	FollowingCount    int
	TotalCasts        int
	TopChannels       []string
	ActiveSince       string
}

// MetricsFromContext projects a snapshot into prompt metrics.
func MetricsFromContext(uc *model.UserContext) Metrics {
	return Metrics{
		AvgCastsPerWeek:   uc.CastsPerWeek,
		AvgLikesPerCast:   uc.AvgLikesPerCast,
		AvgRecastsPerCast: uc.AvgRecastsPerCast,
		FollowersCount:    uc.FollowerCount,
		FollowingCount:    uc.FollowingCount,
		TotalCasts:        uc.TotalCastsAnalyzed,
		TopChannels:       uc.ChannelNames(),
		ActiveSince:       uc.ActiveSince,
	}
}

type Input struct {
	FID     int64
	Metrics Metrics
	Casts   []model.SampledCast
}

func buildPrompt(in Input) string {
	var b strings.Builder

	activeSince := in.Metrics.ActiveSince
	if activeSince == "" {
		activeSince = "Unknown"
	}
	channels := "None"
	if len(in.Metrics.TopChannels) > 0 {
		channels = strings.Join(in.Metrics.TopChannels[:min(promptChannelLimit, len(in.Metrics.TopChannels))], ", ")
	}

	b.WriteString("## User Info\n")
	fmt.Fprintf(&b, "- Active since: %s\n", activeSince)
	fmt.Fprintf(&b, "- Followers: %d\n", in.Metrics.FollowersCount)
	fmt.Fprintf(&b, "- Following: %d\n", in.Metrics.FollowingCount)
	fmt.Fprintf(&b, "- Total casts: %d\n", in.Metrics.TotalCasts)
	fmt.Fprintf(&b, "- Casts per week: %.1f\n", in.Metrics.AvgCastsPerWeek)
	fmt.Fprintf(&b, "- Avg likes per cast: %.1f\n", in.Metrics.AvgLikesPerCast)
	fmt.Fprintf(&b, "- Avg recasts per cast: %.1f\n", in.Metrics.AvgRecastsPerCast)
	fmt.Fprintf(&b, "- Top channels: %s\n", channels)

	casts := in.Casts[:min(promptCastLimit, len(in.Casts))]
	fmt.Fprintf(&b, "\n## Top %d Casts\n", len(casts))
	for i, c := range casts {
		fmt.Fprintf(&b, "%d. [%s] %q (%d likes, %d recasts, %d replies)\n",
			i+1, c.Hash, logger.Truncate(c.Text, castTextLimit), c.Likes, c.Recasts, c.Replies)
	}
	return b.String()
}

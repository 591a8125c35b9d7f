package sampling_test

import (
	"fmt"
	"math/rand/v2"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"personacard.app/agent/common/clock"
	"personacard.app/agent/internal/model"
	"personacard.app/agent/internal/sampling"
)

const day = 24 * time.Hour

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func cast(hash string, age time.Duration, likes int) model.Cast {
	return model.Cast{Hash: hash, Timestamp: now.Add(-age), LikesCount: likes}
}

func hashes(out []model.SampledCast) []string {
	hs := make([]string, len(out))
	for i, c := range out {
		hs[i] = c.Hash
	}
	return hs
}

var _ = Describe("Sampler", func() {
	var sampler *sampling.Sampler

	BeforeEach(func() {
		sampler = sampling.New(rand.NewPCG(1, 2), clock.NewFixed(now))
	})

	It("returns an empty, non-nil slice for no casts", func() {
		out := sampler.Sample(nil)
		Expect(out).NotTo(BeNil())
		Expect(out).To(BeEmpty())
	})

	It("returns every cast when there are fewer than the cap", func() {
		casts := []model.Cast{
			cast("0xa", 40*day, 1),
			cast("0xb", 1*day, 2),
			cast("0xc", 90*day, 3),
		}

		out := sampler.Sample(casts)
		Expect(hashes(out)).To(Equal([]string{"0xb", "0xa", "0xc"}))
	})

	It("maps null text to an empty string and keeps counters", func() {
		text := "gm"
		c := cast("0xa", day, 4)
		c.RecastsCount = 2
		c.RepliesCount = 1
		withText := cast("0xb", 2*day, 1)
		withText.Text = &text

		out := sampler.Sample([]model.Cast{c, withText})
		Expect(out[0]).To(Equal(model.SampledCast{
			Hash: "0xa", Text: "", Likes: 4, Recasts: 2, Replies: 1, Timestamp: c.Timestamp,
		}))
		Expect(out[1].Text).To(Equal("gm"))
	})

	Context("with a long history", func() {
		var casts []model.Cast

		BeforeEach(func() {
			casts = nil
			// 20 recent casts with 100..119 likes, 20 old casts with 0..19
			// likes except three old standouts.
			for i := 0; i < 20; i++ {
				casts = append(casts, cast(fmt.Sprintf("recent-%02d", i), time.Duration(i)*time.Hour, 100+i))
			}
			for i := 0; i < 20; i++ {
				casts = append(casts, cast(fmt.Sprintf("old-%02d", i), 60*day+time.Duration(i)*time.Hour, i))
			}
			casts = append(casts,
				cast("legend-1", 200*day, 5000),
				cast("legend-2", 300*day, 4000),
				cast("legend-3", 400*day, 3000),
			)
		})

		It("caps the sample at fifteen distinct casts", func() {
			for range 20 {
				out := sampler.Sample(casts)
				Expect(out).To(HaveLen(sampling.MaxSamples))

				seen := map[string]bool{}
				for _, c := range out {
					Expect(seen).NotTo(HaveKey(c.Hash))
					seen[c.Hash] = true
				}
			}
		})

		It("always includes the five best recent casts and the all-time top three", func() {
			for range 20 {
				out := hashes(sampler.Sample(casts))
				Expect(out).To(ContainElements(
					"recent-19", "recent-18", "recent-17", "recent-16", "recent-15",
					"legend-1", "legend-2", "legend-3",
				))
			}
		})

		It("fills the remaining slots only from recent casts", func() {
			out := hashes(sampler.Sample(casts))
			var randomPicks int
			for _, h := range out {
				switch h {
				case "recent-19", "recent-18", "recent-17", "recent-16", "recent-15",
					"legend-1", "legend-2", "legend-3":
				default:
					Expect(h).To(HavePrefix("recent-"))
					randomPicks++
				}
			}
			// Random draws plus backfill, which prefers the better liked recent casts.
			Expect(randomPicks).To(Equal(sampling.MaxSamples - sampling.TopRecent - sampling.TopAllTime))
		})

		It("orders the output most recent first", func() {
			out := sampler.Sample(casts)
			for i := 1; i < len(out); i++ {
				Expect(out[i-1].Timestamp).NotTo(BeTemporally("<", out[i].Timestamp))
			}
		})
	})

	It("backfills from all-time likes when recent casts run short", func() {
		var casts []model.Cast
		casts = append(casts, cast("recent-a", day, 1), cast("recent-b", 2*day, 2))
		for i := 0; i < 20; i++ {
			casts = append(casts, cast(fmt.Sprintf("old-%02d", i), 60*day+time.Duration(i)*time.Hour, i))
		}

		out := hashes(sampler.Sample(casts))
		Expect(out).To(HaveLen(sampling.MaxSamples))
		Expect(out).To(ContainElements("recent-a", "recent-b"))
		// 13 slots left: old-19 down to old-07.
		Expect(out).To(ContainElement("old-07"))
		Expect(out).NotTo(ContainElement("old-06"))
	})

	It("counts a cast exactly thirty days old as recent", func() {
		casts := []model.Cast{cast("edge", sampling.RecentWindow, 0)}
		for i := 0; i < 20; i++ {
			casts = append(casts, cast(fmt.Sprintf("old-%02d", i), 40*day, 10+i))
		}

		Expect(hashes(sampler.Sample(casts))).To(ContainElement("edge"))
	})
})

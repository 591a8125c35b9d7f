package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"personacard.app/agent/common/clock"
	"personacard.app/agent/internal/freshness"
	"personacard.app/agent/internal/lock"
	"personacard.app/agent/internal/model"
	"personacard.app/agent/internal/persona"
	"personacard.app/agent/internal/service"
)

var _ = Describe("PersonaService", func() {
	const fid int64 = 42

	var (
		ctx       context.Context
		now       time.Time
		clk       *clock.Fixed
		casts     *memCastStore
		contexts  *memContextStore
		personas  *memPersonaStore
		runs      *memRunStore
		evals     *memEvalStore
		generator *mockGenerator
		svc       service.PersonaService
	)

	seedCast := func(hash string, age time.Duration, likes int) {
		text := "text " + hash
		_, err := casts.Upsert(ctx, &model.Cast{FID: fid, Hash: hash, Text: &text, Timestamp: now.Add(-age), LikesCount: likes})
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
		clk = clock.NewFixed(now)
		casts = newMemCastStore()
		contexts = newMemContextStore()
		personas = &memPersonaStore{}
		runs = &memRunStore{}
		evals = &memEvalStore{}
		generator = &mockGenerator{}
	})

	JustBeforeEach(func() {
		svc = service.NewPersonaService(service.PersonaDeps{
			Casts:     casts,
			Contexts:  contexts,
			Personas:  personas,
			Runs:      runs,
			Evals:     evals,
			Gate:      freshness.New(clk, time.Hour, casts, contexts, personas),
			Sampler:   passSampler{},
			Generator: generator,
			Locker:    lock.NewLocalLocker(),
			Clock:     clk,
		})
	})

	Describe("Generate", func() {
		Context("with a context and casts", func() {
			BeforeEach(func() {
				seedCast("0xa", time.Hour, 10)
				seedCast("0xb", 2*time.Hour, 3)
				_, err := contexts.Upsert(ctx, &model.UserContext{
					ID:                 99,
					FID:                fid,
					TotalCastsAnalyzed: 2,
					FollowerCount:      300,
					ActiveSince:        "2024-01",
					TopChannels:        []model.ChannelCount{{Channel: "base", Count: 2}},
					UpdatedAt:          now.Add(-time.Minute),
				})
				Expect(err).NotTo(HaveOccurred())
			})

			It("should store a persona referencing the context", func() {
				res, err := svc.Generate(ctx, fid)

				Expect(err).NotTo(HaveOccurred())
				Expect(res.PersonaID).NotTo(BeZero())
				Expect(res.Sampled).To(Equal(2))

				p, err := svc.Latest(ctx, fid)
				Expect(err).NotTo(HaveOccurred())
				Expect(p.ID).To(Equal(res.PersonaID))
				Expect(*p.ContextID).To(Equal(int64(99)))
				Expect(p.GeneratedAt).To(Equal(now))
				Expect(p.Tagline).To(Equal("Onchain Builder"))
				Expect(p.ModelUsed).To(Equal("test-model"))
				Expect(p.PromptVersion).To(Equal(persona.PromptVersion))
				Expect(string(p.RawJSON)).To(Equal(`{"tone":"playful"}`))

				run := runs.last()
				Expect(run.Phase).To(Equal(model.PhasePersona))
				Expect(run.Status).To(Equal(model.RunStatusSucceeded))
			})

			It("should hand the snapshot metrics and the sample to the model", func() {
				_, err := svc.Generate(ctx, fid)
				Expect(err).NotTo(HaveOccurred())

				Expect(generator.inputs).To(HaveLen(1))
				in := generator.inputs[0]
				Expect(in.FID).To(Equal(fid))
				Expect(in.Metrics.FollowersCount).To(Equal(300))
				Expect(in.Metrics.TopChannels).To(Equal([]string{"base"}))
				Expect(in.Casts).To(HaveLen(2))
				Expect(in.Casts[0].Hash).To(Equal("0xa"))
			})

			It("should record the model call", func() {
				_, err := svc.Generate(ctx, fid)
				Expect(err).NotTo(HaveOccurred())

				Expect(evals.evals).To(HaveLen(1))
				e := evals.evals[0]
				Expect(e.Stage).To(Equal("persona"))
				Expect(e.InputText).To(Equal("prompt"))
				Expect(*e.LatencyMs).To(Equal(120))
				Expect(*e.PromptTokens).To(Equal(100))
			})

			Context("when the model output is malformed", func() {
				BeforeEach(func() {
					generator.generateFn = func(context.Context, persona.Input) (*persona.Result, error) {
						res := validResult()
						res.Output = nil
						res.RawJSON = "I am not JSON"
						return res, fmt.Errorf("%w: unexpected token", persona.ErrMalformedOutput)
					}
				})

				It("should fail without storing a persona", func() {
					res, err := svc.Generate(ctx, fid)

					Expect(res).To(BeNil())
					re, ok := service.AsRunError(err)
					Expect(ok).To(BeTrue())
					Expect(re.Phase).To(Equal(model.PhasePersona))
					Expect(re.State).To(Equal(service.StateSummarizing))
					Expect(re.Reason).To(Equal(service.ReasonMalformedResponse))
					Expect(personas.personas).To(BeEmpty())
				})

				It("should still record the raw reply as a JSON string", func() {
					_, _ = svc.Generate(ctx, fid)

					Expect(evals.evals).To(HaveLen(1))
					var raw string
					Expect(json.Unmarshal(evals.evals[0].OutputJSON, &raw)).To(Succeed())
					Expect(raw).To(Equal("I am not JSON"))
				})
			})

			Context("when the model call fails outright", func() {
				BeforeEach(func() {
					generator.generateFn = func(context.Context, persona.Input) (*persona.Result, error) {
						return nil, errors.New("connection reset")
					}
				})

				It("should fail as an external failure", func() {
					_, err := svc.Generate(ctx, fid)

					re, ok := service.AsRunError(err)
					Expect(ok).To(BeTrue())
					Expect(re.Reason).To(Equal(service.ReasonExternalFailure))
					Expect(evals.evals).To(BeEmpty())
				})
			})
		})

		Context("without a context", func() {
			It("should ask for ingestion first", func() {
				seedCast("0xa", time.Hour, 1)

				_, err := svc.Generate(ctx, fid)

				Expect(errors.Is(err, service.ErrNoContext)).To(BeTrue())
				re, _ := service.AsRunError(err)
				Expect(re.Reason).To(Equal(service.ReasonMissingPrecondition))
				Expect(re.Message()).To(Equal("No user_context found. Run ingestion first."))
				Expect(generator.inputs).To(BeEmpty())
			})
		})

		Context("with a context but no casts", func() {
			It("should ask for ingestion first", func() {
				_, err := contexts.Upsert(ctx, &model.UserContext{ID: 1, FID: fid})
				Expect(err).NotTo(HaveOccurred())

				_, err = svc.Generate(ctx, fid)

				Expect(errors.Is(err, service.ErrNoCasts)).To(BeTrue())
				Expect(generator.inputs).To(BeEmpty())
			})
		})
	})

	Describe("NeedsRegeneration", func() {
		BeforeEach(func() {
			seedCast("0xa", time.Hour, 1)
			hash := "0xa"
			_, err := contexts.Upsert(ctx, &model.UserContext{ID: 1, FID: fid, LastAnalyzedCastHash: &hash, UpdatedAt: now.Add(-time.Hour)})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should be true without a persona", func() {
			needs, err := svc.NeedsRegeneration(ctx, fid)
			Expect(err).NotTo(HaveOccurred())
			Expect(needs).To(BeTrue())
		})

		It("should be false right after generation", func() {
			_, err := svc.Generate(ctx, fid)
			Expect(err).NotTo(HaveOccurred())

			needs, err := svc.NeedsRegeneration(ctx, fid)
			Expect(err).NotTo(HaveOccurred())
			Expect(needs).To(BeFalse())
		})
	})

	Describe("GenerateIfStale", func() {
		BeforeEach(func() {
			seedCast("0xa", time.Hour, 1)
			hash := "0xa"
			_, err := contexts.Upsert(ctx, &model.UserContext{ID: 1, FID: fid, LastAnalyzedCastHash: &hash, UpdatedAt: now.Add(-time.Hour)})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should generate when there is no persona yet", func() {
			res, err := svc.GenerateIfStale(ctx, fid)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Skipped).To(BeFalse())
			Expect(res.PersonaID).NotTo(BeZero())
			Expect(generator.inputs).To(HaveLen(1))
		})

		It("should record a skipped run when the persona is current", func() {
			_, err := svc.Generate(ctx, fid)
			Expect(err).NotTo(HaveOccurred())

			res, err := svc.GenerateIfStale(ctx, fid)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Skipped).To(BeTrue())
			Expect(res.RunID).NotTo(BeZero())
			Expect(generator.inputs).To(HaveLen(1))
			Expect(personas.personas).To(HaveLen(1))
			Expect(runs.last().Status).To(Equal(model.RunStatusSkipped))
			Expect(runs.last().Reason).To(HaveValue(Equal("persona_current")))
		})

		It("should generate again once a newer cast is stored", func() {
			_, err := svc.Generate(ctx, fid)
			Expect(err).NotTo(HaveOccurred())
			seedCast("0xnew", time.Minute, 0)

			res, err := svc.GenerateIfStale(ctx, fid)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Skipped).To(BeFalse())
			Expect(generator.inputs).To(HaveLen(2))
		})
	})
})

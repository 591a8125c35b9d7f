package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"personacard.app/agent/core/config"
)

var _ = Describe("Load", func() {
	setEnv := func(key, value string) {
		prev, had := os.LookupEnv(key)
		Expect(os.Setenv(key, value)).To(Succeed())
		DeferCleanup(func() {
			if had {
				_ = os.Setenv(key, prev)
			} else {
				_ = os.Unsetenv(key)
			}
		})
	}

	BeforeEach(func() {
		// Keep godotenv away from any developer .env files.
		setEnv("AGENT_ENV", "test")
		setEnv("NEYNAR_API_KEY", "neynar-key")
		setEnv("LLM_API_KEY", "llm-key")
	})

	It("applies defaults", func() {
		cfg, err := config.Load(config.ServiceTypeWorker)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Neynar.DailyCreditLimit).To(Equal(10000))
		Expect(cfg.Neynar.MaxCasts).To(Equal(500))
		Expect(cfg.Neynar.PageSize).To(Equal(150))
		Expect(cfg.Neynar.PageInterval).To(Equal(100 * time.Millisecond))
		Expect(cfg.Ingestion.Cooldown).To(Equal(time.Hour))
		Expect(cfg.LLM.Provider).To(Equal("gemini"))
		Expect(cfg.LLM.Temperature).To(Equal(0.7))
		Expect(cfg.Pipeline.RedisConsumer).To(Equal("worker"))
	})

	It("reads overrides", func() {
		setEnv("NEYNAR_DAILY_CREDIT_LIMIT", "250")
		setEnv("INGESTION_COOLDOWN", "30m")
		setEnv("LLM_PROVIDER", "openai")

		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Neynar.DailyCreditLimit).To(Equal(250))
		Expect(cfg.Ingestion.Cooldown).To(Equal(30 * time.Minute))
		Expect(cfg.LLM.Provider).To(Equal("openai"))
	})

	It("reads the newer knobs", func() {
		setEnv("LLM_PROVIDER", "anthropic")
		setEnv("LLM_MAX_RETRIES", "4")
		setEnv("BATCH_INTERVAL", "6h")
		setEnv("DB_STATEMENT_TIMEOUT", "5s")

		cfg, err := config.Load(config.ServiceTypeWorker)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LLM.Provider).To(Equal("anthropic"))
		Expect(cfg.LLM.MaxRetries).To(Equal(4))
		Expect(cfg.Ingestion.BatchInterval).To(Equal(6 * time.Hour))
		Expect(cfg.DB.StatementTimeout).To(Equal(5 * time.Second))
		Expect(cfg.DB.AppName).To(Equal("persona-agent-worker"))
	})

	It("requires the Neynar API key", func() {
		setEnv("NEYNAR_API_KEY", "")
		_, err := config.Load(config.ServiceTypeWorker)
		Expect(err).To(MatchError(ContainSubstring("NEYNAR_API_KEY")))
	})

	It("rejects unsupported LLM providers", func() {
		setEnv("LLM_PROVIDER", "mystery")
		_, err := config.Load(config.ServiceTypeWorker)
		Expect(err).To(MatchError(ContainSubstring("LLM_PROVIDER")))
	})

	It("rejects page sizes above the API maximum", func() {
		setEnv("NEYNAR_PAGE_SIZE", "151")
		_, err := config.Load(config.ServiceTypeWorker)
		Expect(err).To(MatchError(ContainSubstring("NEYNAR_PAGE_SIZE")))
	})

	It("requires an admin key for the production server", func() {
		setEnv("AGENT_ENV", "production")
		setEnv("ADMIN_API_KEY", "")
		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(MatchError(ContainSubstring("ADMIN_API_KEY")))
	})
})

package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"personacard.app/agent/common/llm"
)

var _ = Describe("StripCodeFences", func() {
	DescribeTable("unwraps fenced JSON",
		func(input, expected string) {
			Expect(llm.StripCodeFences(input)).To(Equal(expected))
		},
		Entry("plain JSON unchanged", `{"a":1}`, `{"a":1}`),
		Entry("json fence", "```json\n{\"a\":1}\n```", `{"a":1}`),
		Entry("bare fence", "```\n{\"a\":1}\n```", `{"a":1}`),
		Entry("fence without newline", "```{\"a\":1}```", `{"a":1}`),
		Entry("surrounding whitespace", "  \n```json\n[1,2]\n```\n ", `[1,2]`),
	)
})

var _ = Describe("GenerateSchema", func() {
	type sample struct {
		Tone   string   `json:"tone"`
		Topics []string `json:"topics"`
	}

	It("reflects a closed object schema with every field required", func() {
		raw, err := json.Marshal(llm.GenerateSchema[sample]())
		Expect(err).NotTo(HaveOccurred())

		var schema map[string]any
		Expect(json.Unmarshal(raw, &schema)).To(Succeed())
		Expect(schema["type"]).To(Equal("object"))
		Expect(schema["additionalProperties"]).To(BeFalse())
		Expect(schema["required"]).To(ConsistOf("tone", "topics"))
	})
})

var _ = Describe("New", func() {
	It("requires an API key", func() {
		_, err := llm.New(context.Background(), llm.Config{Provider: llm.ProviderOpenAI})
		Expect(err).To(MatchError(ContainSubstring("API key is required")))
	})

	It("rejects unknown providers", func() {
		_, err := llm.New(context.Background(), llm.Config{Provider: "mystery", APIKey: "k"})
		Expect(err).To(MatchError(ContainSubstring("unsupported LLM provider")))
	})

	It("builds an OpenAI client with the default model", func() {
		c, err := llm.New(context.Background(), llm.Config{Provider: llm.ProviderOpenAI, APIKey: "k"})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Model()).To(Equal("gpt-4o-mini"))
	})
})

var _ = Describe("IsRetryable", func() {
	ctx := context.Background()

	It("does not retry cancellations", func() {
		Expect(llm.IsRetryable(ctx, context.Canceled)).To(BeFalse())
		Expect(llm.IsRetryable(ctx, fmt.Errorf("wrapped: %w", context.DeadlineExceeded))).To(BeFalse())
	})

	It("does not retry undecodable output", func() {
		Expect(llm.IsRetryable(ctx, fmt.Errorf("%w: bad", llm.ErrDecode))).To(BeFalse())
	})

	It("retries plain network errors", func() {
		Expect(llm.IsRetryable(ctx, errors.New("connection reset"))).To(BeTrue())
	})

	It("treats nil as not retryable", func() {
		Expect(llm.IsRetryable(ctx, nil)).To(BeFalse())
	})
})

var _ = Describe("Temp", func() {
	It("returns a pointer to the value", func() {
		Expect(*llm.Temp(0.7)).To(Equal(0.7))
	})
})

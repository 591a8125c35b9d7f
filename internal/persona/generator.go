// Package persona turns an activity snapshot and a cast sample into a
// structured persona through a language model.
package persona

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"personacard.app/agent/common/llm"
)

const (
	defaultTemperature = 0.7
	headlineTemp       = 0.8
	fallbackHeadline   = "Farcaster User"
	headlineWordLimit  = 5
)

var (
	outputSchema   = llm.GenerateSchema[Output]()
	headlineSchema = llm.GenerateSchema[headlineOutput]()
)

type headlineOutput struct {
	Headline string `json:"headline" jsonschema:"description=Profile card headline of at most 5 words"`
}

// Result is a validated persona plus what is needed to audit the call.
type Result struct {
	Output           *Output
	RawJSON          string
	Prompt           string
	Model            string
	PromptVersion    string
	Temperature      float64
	Latency          time.Duration
	PromptTokens     int
	CompletionTokens int
}

type Config struct {
	MaxTokens   int
	Temperature float64
	MaxRetries  int
}

type Generator struct {
	client llm.Client
	cfg    Config
}

func NewGenerator(client llm.Client, cfg Config) *Generator {
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Generator{client: client, cfg: cfg}
}

func (g *Generator) Model() string {
	return g.client.Model()
}

// Generate calls the model once per attempt. Rate limits and server errors are
// retried; an unusable reply is returned as ErrMalformedOutput together with
// the partial Result so the caller can record the raw text.
func (g *Generator) Generate(ctx context.Context, in Input) (*Result, error) {
	if len(in.Casts) == 0 {
		return nil, errors.New("persona input has no casts")
	}

	prompt := buildPrompt(in)
	res := &Result{
		Prompt:        prompt,
		Model:         g.client.Model(),
		PromptVersion: PromptVersion,
		Temperature:   g.cfg.Temperature,
	}

	var out Output
	start := time.Now()
	resp, err := g.chat(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		SchemaName:   "persona",
		Schema:       outputSchema,
		MaxTokens:    g.cfg.MaxTokens,
		Temperature:  llm.Temp(g.cfg.Temperature),
	}, &out)
	res.Latency = time.Since(start)
	if resp != nil {
		res.RawJSON = llm.StripCodeFences(resp.Content)
		res.PromptTokens = resp.PromptTokens
		res.CompletionTokens = resp.CompletionTokens
	}
	if err != nil {
		if errors.Is(err, llm.ErrDecode) {
			return res, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
		return res, fmt.Errorf("generating persona: %w", err)
	}

	if err := out.Validate(); err != nil {
		return res, err
	}
	out.normalize()
	res.Output = &out

	slog.InfoContext(ctx, "persona generated",
		"fid", in.FID,
		"model", res.Model,
		"latency_ms", res.Latency.Milliseconds(),
		"confidence", out.ConfidenceScore)
	return res, nil
}

// Headline asks for a short card headline and falls back to the first label,
// then to a generic title, when the model fails.
func (g *Generator) Headline(ctx context.Context, labels, topics []string, summary string) string {
	fallback := fallbackHeadline
	if len(labels) > 0 {
		fallback = labels[0]
	}

	prompt := fmt.Sprintf("Generate ONE short headline (max %d words) for a profile card.\nLabels: %s\nTopics: %s\nSummary: %s",
		headlineWordLimit, strings.Join(labels, ", "), strings.Join(topics, ", "), summary)

	var out headlineOutput
	_, err := g.chat(ctx, llm.Request{
		UserPrompt:  prompt,
		SchemaName:  "headline",
		Schema:      headlineSchema,
		MaxTokens:   64,
		Temperature: llm.Temp(headlineTemp),
	}, &out)
	if err != nil {
		slog.WarnContext(ctx, "headline generation failed, using fallback", "error", err)
		return fallback
	}

	headline := strings.Trim(strings.TrimSpace(out.Headline), `"'`)
	if headline == "" {
		return fallback
	}
	return headline
}

func (g *Generator) chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	policy := retrypolicy.NewBuilder[*llm.Response]().
		WithBackoff(time.Second, 10*time.Second).
		WithMaxRetries(g.cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ *llm.Response, err error) bool {
			return llm.IsRetryable(ctx, err)
		}).
		ReturnLastFailure().
		Build()

	return failsafe.With(policy).WithContext(ctx).Get(func() (*llm.Response, error) {
		return g.client.Chat(ctx, req, result)
	})
}

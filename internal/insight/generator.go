// Package insight turns a token snapshot into short narrative lines using a chat model.
package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dex-sentinel/internal/domain"
	"dex-sentinel/internal/metrics"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	MaxInsights         = 5
	FailurePlaceholder  = "Failed to generate insights"
	defaultModel        = "gpt-4o-mini"
	defaultInsightLimit = 30 * time.Second
)

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type Generator struct {
	tracer  trace.Tracer
	logger  *zap.Logger
	llm     LLMClient
	metrics *metrics.Metrics
	model   string
	timeout time.Duration
	now     func() time.Time
}

// NewGenerator builds a Generator. A nil llm makes every call return the placeholder.
func NewGenerator(tracer trace.Tracer, logger *zap.Logger, llm LLMClient, m *metrics.Metrics, model string, timeout time.Duration) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = defaultInsightLimit
	}
	return &Generator{
		tracer:  tracer,
		logger:  logger,
		llm:     llm,
		metrics: m,
		model:   model,
		timeout: timeout,
		now:     time.Now,
	}
}

// Generate returns up to MaxInsights lines about snap. Any failure yields
// the single FailurePlaceholder line.
func (g *Generator) Generate(ctx context.Context, snap domain.TokenSnapshot, weekly map[string]any, sentiment *domain.MarketSentiment) []string {
	ctx, span := g.tracer.Start(ctx, "insight.generate")
	defer span.End()
	span.SetAttributes(attribute.String("token.symbol", snap.BaseToken.Symbol))

	started := time.Now()
	lines, err := g.generate(ctx, snap, weekly, sentiment)
	if err != nil {
		span.RecordError(err)
		g.metrics.ObserveInsight("error", time.Since(started))
		g.logger.Warn("insight generation failed",
			zap.String("symbol", snap.BaseToken.Symbol),
			zap.Error(err),
		)
		return []string{FailurePlaceholder}
	}
	g.metrics.ObserveInsight("ok", time.Since(started))
	span.SetAttributes(attribute.Int("insight.count", len(lines)))
	return lines
}

func (g *Generator) generate(ctx context.Context, snap domain.TokenSnapshot, weekly map[string]any, sentiment *domain.MarketSentiment) ([]string, error) {
	if g.llm == nil {
		return nil, errors.New("no language model configured")
	}

	prompt, err := BuildPrompt(BuildSummary(snap, weekly, sentiment, g.now()))
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	completion, err := g.llm.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model:    g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	})
	if err != nil {
		return nil, err
	}
	if completion == nil || len(completion.Choices) == 0 {
		return nil, errors.New("no choices in LLM response")
	}

	lines := SplitInsights(completion.Choices[0].Message.Content, MaxInsights)
	if len(lines) == 0 {
		return nil, errors.New("empty LLM response")
	}
	return lines, nil
}

// openaiClient wraps the official SDK's chat completions service.
type openaiClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey string) LLMClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &openaiClient{client: client}
}

func (c *openaiClient) CreateChatCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}

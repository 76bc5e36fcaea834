package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kovanlabs/reviewrag/internal/domain"
	"github.com/kovanlabs/reviewrag/internal/metrics"
)

// Generator produces answers via the OpenAI-compatible chat completion API.
type Generator struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Logger    *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat generator.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    cfg.Logger,
	}
}

// Generate implements domain.Generator. An empty completion is surfaced as a
// provider error: the orchestrator must never hand an empty answer onward.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues("openai", g.model, "error").Inc()
		return "", fmt.Errorf("chat completion: %w: %w", domain.ErrGenerationProvider, err)
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues("openai", g.model, "error").Inc()
		return "", fmt.Errorf("%w: no completion choices returned", domain.ErrGenerationProvider)
	}

	answer := trimContent(resp.Choices[0].Message.Content)
	if answer == "" {
		metrics.GenerationRequestsTotal.WithLabelValues("openai", g.model, "error").Inc()
		return "", fmt.Errorf("%w: empty completion text", domain.ErrGenerationProvider)
	}

	metrics.GenerationRequestsTotal.WithLabelValues("openai", g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues("openai", g.model).Observe(duration.Seconds())

	g.logger.Debug("Generated answer",
		zap.String("model", g.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("latency", duration),
	)

	return answer, nil
}

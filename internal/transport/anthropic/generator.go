// Package anthropic adapts the Anthropic Messages API to the domain
// generation contract.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/kovanlabs/reviewrag/internal/domain"
	"github.com/kovanlabs/reviewrag/internal/metrics"
)

// Generator produces answers via the Anthropic Messages API.
type Generator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    *zap.Logger
}

// Config holds the generation provider settings.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	Logger    *zap.Logger
}

// NewGenerator creates an Anthropic chat generator.
func NewGenerator(cfg *Config) *Generator {
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Generator{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     cfg.Model,
		maxTokens: maxTokens,
		logger:    cfg.Logger,
	}
}

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	start := time.Now()
	resp, err := g.client.Messages.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues("anthropic", g.model, "error").Inc()
		return "", fmt.Errorf("messages new: %w: %w", domain.ErrGenerationProvider, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	answer := strings.TrimSpace(sb.String())
	if answer == "" {
		metrics.GenerationRequestsTotal.WithLabelValues("anthropic", g.model, "error").Inc()
		return "", fmt.Errorf("%w: empty message content", domain.ErrGenerationProvider)
	}

	metrics.GenerationRequestsTotal.WithLabelValues("anthropic", g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues("anthropic", g.model).Observe(duration.Seconds())

	g.logger.Debug("Generated answer",
		zap.String("model", g.model),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("latency", duration),
	)

	return answer, nil
}

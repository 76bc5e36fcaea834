package query

import (
	"context"

	"github.com/kovanlabs/reviewrag/internal/domain"
	"github.com/kovanlabs/reviewrag/internal/index"
)

// ArtifactSource loads the persisted pipeline artifacts.
type ArtifactSource interface {
	LoadIndex(ctx context.Context) (*index.Flat, error)
	LoadChunks(ctx context.Context) ([]string, error)
	LoadReviews(ctx context.Context) ([]domain.Review, error)
}

// StatsExtractor derives rating statistics from the raw review corpus.
type StatsExtractor interface {
	Extract(reviews []domain.Review) domain.ProductStats
}

// PromptBuilder renders the generation prompt. stats may be nil when the
// review corpus could not be loaded.
type PromptBuilder interface {
	Build(question string, chunks []string, stats *domain.ProductStats) string
}

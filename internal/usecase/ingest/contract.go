package ingest

import (
	"context"

	"github.com/kovanlabs/reviewrag/internal/domain"
	"github.com/kovanlabs/reviewrag/internal/index"
)

// ReviewSource loads the raw review corpus.
type ReviewSource interface {
	LoadReviews(ctx context.Context) ([]domain.Review, error)
}

// Segmenter splits review text into retrieval-sized chunks.
type Segmenter interface {
	Segment(text string) []string
}

// ArtifactSink persists the built index and its aligned chunk list.
type ArtifactSink interface {
	SaveIndex(ctx context.Context, idx *index.Flat) error
	SaveChunks(ctx context.Context, chunks []string) error
}

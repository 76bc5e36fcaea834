// Package ingest builds the retrieval artifacts offline: reviews are
// segmented into chunks, embedded in batch, and persisted as an index-aligned
// pair of files.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kovanlabs/reviewrag/internal/domain"
	"github.com/kovanlabs/reviewrag/internal/index"
)

// Report summarizes one completed build.
type Report struct {
	Reviews int
	Chunks  int
	Dim     int
	Tokens  int
}

// Service runs the offline build pipeline.
type Service struct {
	source    ReviewSource
	segmenter Segmenter
	embedder  domain.BatchEmbedder
	sink      ArtifactSink
	logger    *zap.Logger
}

// New creates an ingest service.
func New(source ReviewSource, segmenter Segmenter, embedder domain.BatchEmbedder, sink ArtifactSink, logger *zap.Logger) *Service {
	return &Service{
		source:    source,
		segmenter: segmenter,
		embedder:  embedder,
		sink:      sink,
		logger:    logger,
	}
}

// Build segments the review corpus, embeds every chunk, and atomically
// replaces the persisted index/chunks pair. Chunks keep corpus order, so
// position i in the chunk list stays aligned with vector i in the index.
func (s *Service) Build(ctx context.Context) (Report, error) {
	reviews, err := s.source.LoadReviews(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load reviews: %w", err)
	}
	if len(reviews) == 0 {
		return Report{}, fmt.Errorf("%w: review corpus is empty", domain.ErrValidation)
	}

	var chunks []string
	for _, r := range reviews {
		chunks = append(chunks, s.segmenter.Segment(r.Comment)...)
	}
	if len(chunks) == 0 {
		return Report{}, fmt.Errorf("%w: no usable review text to index", domain.ErrValidation)
	}
	s.logger.Info("Segmented review corpus",
		zap.Int("reviews", len(reviews)),
		zap.Int("chunks", len(chunks)),
	)

	res, err := s.embedder.BatchEmbed(ctx, chunks)
	if err != nil {
		return Report{}, fmt.Errorf("embed chunks: %w", err)
	}
	if len(res.Embeddings) != len(chunks) {
		return Report{}, fmt.Errorf("%w: embedded %d of %d chunks",
			domain.ErrEmbeddingProvider, len(res.Embeddings), len(chunks))
	}

	idx, err := index.Build(res.Embeddings)
	if err != nil {
		return Report{}, fmt.Errorf("build index: %w", err)
	}

	if err := s.sink.SaveIndex(ctx, idx); err != nil {
		return Report{}, fmt.Errorf("save index: %w", err)
	}
	if err := s.sink.SaveChunks(ctx, chunks); err != nil {
		return Report{}, fmt.Errorf("save chunks: %w", err)
	}

	s.logger.Info("Index built",
		zap.Int("vectors", idx.Size()),
		zap.Int("dim", idx.Dim()),
		zap.Int("total_tokens", res.TotalTokens),
	)

	return Report{
		Reviews: len(reviews),
		Chunks:  len(chunks),
		Dim:     idx.Dim(),
		Tokens:  res.TotalTokens,
	}, nil
}

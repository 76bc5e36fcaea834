// Package query orchestrates the answer pipeline: validate, load artifacts,
// retrieve chunks, extract statistics, build the prompt, generate.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kovanlabs/reviewrag/internal/domain"
	"github.com/kovanlabs/reviewrag/internal/index"
	"github.com/kovanlabs/reviewrag/internal/logger"
	"github.com/kovanlabs/reviewrag/internal/metrics"
)

// Retrieval modes.
const (
	ModeFullCorpus = "full_corpus"
	ModeTopK       = "top_k"
)

// Service answers product questions grounded in the review corpus.
type Service struct {
	artifacts ArtifactSource
	embedder  domain.Embedder
	generator domain.Generator
	extractor StatsExtractor
	builder   PromptBuilder
	mode      string
	topK      int
}

// New creates a query service with full-corpus retrieval.
func New(
	artifacts ArtifactSource,
	embedder domain.Embedder,
	generator domain.Generator,
	extractor StatsExtractor,
	builder PromptBuilder,
) *Service {
	return &Service{
		artifacts: artifacts,
		embedder:  embedder,
		generator: generator,
		extractor: extractor,
		builder:   builder,
		mode:      ModeFullCorpus,
		topK:      5,
	}
}

// WithRetrieval configures the retrieval mode and neighbor count.
func (s *Service) WithRetrieval(mode string, topK int) *Service {
	if mode != "" {
		s.mode = mode
	}
	if topK > 0 {
		s.topK = topK
	}
	return s
}

// Answer runs the full pipeline for one question.
func (s *Service) Answer(ctx context.Context, req domain.QueryRequest) (domain.QueryResponse, error) {
	start := time.Now()

	resp, err := s.answer(ctx, req)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.QueryRequestsTotal.WithLabelValues(status).Inc()
	metrics.QueryDuration.Observe(time.Since(start).Seconds())

	return resp, err
}

func (s *Service) answer(ctx context.Context, req domain.QueryRequest) (domain.QueryResponse, error) {
	if err := req.Validate(); err != nil {
		return domain.QueryResponse{}, err
	}
	question := strings.TrimSpace(req.Question)

	idx, err := s.artifacts.LoadIndex(ctx)
	if err != nil {
		return domain.QueryResponse{}, fmt.Errorf("load index: %w", err)
	}
	chunks, err := s.artifacts.LoadChunks(ctx)
	if err != nil {
		return domain.QueryResponse{}, fmt.Errorf("load chunks: %w", err)
	}
	if len(chunks) != idx.Size() {
		return domain.QueryResponse{}, fmt.Errorf(
			"%w: artifact pair out of sync: %d chunks, %d vectors",
			domain.ErrIndexNotFound, len(chunks), idx.Size())
	}
	if len(chunks) == 0 {
		return domain.QueryResponse{}, fmt.Errorf("%w: chunk corpus is empty", domain.ErrEmptyIndex)
	}

	selected, err := s.retrieve(ctx, question, idx, chunks)
	if err != nil {
		return domain.QueryResponse{}, err
	}
	if req.MaxReviews > 0 && len(selected) > req.MaxReviews {
		selected = selected[:req.MaxReviews]
	}

	prompt := s.builder.Build(question, selected, s.loadStats(ctx))

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return domain.QueryResponse{}, fmt.Errorf("generate answer: %w", err)
	}
	// The Generator contract allows an empty answer through; it must never
	// reach the client dressed up as a success.
	if strings.TrimSpace(answer) == "" {
		return domain.QueryResponse{}, fmt.Errorf("%w: empty answer", domain.ErrGenerationProvider)
	}

	answer += fmt.Sprintf("\n\n---\nThis answer was generated from %d of %d review chunks.",
		len(selected), len(chunks))

	return domain.QueryResponse{
		Answer:       answer,
		TotalReviews: len(chunks),
		UsedReviews:  len(selected),
	}, nil
}

// retrieve selects the chunks to ground the answer on. In full-corpus mode
// every chunk is used in index order and no embedding call is made.
func (s *Service) retrieve(ctx context.Context, question string, idx *index.Flat, chunks []string) ([]string, error) {
	if s.mode == ModeFullCorpus {
		return chunks, nil
	}

	res, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := idx.Search(res.Embedding, s.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	selected := make([]string, len(hits))
	for i, h := range hits {
		selected[i] = chunks[h.ID]
	}
	return selected, nil
}

// loadStats computes product statistics, degrading to nil when the review
// corpus cannot be read. A missing reviews file must not fail the query.
func (s *Service) loadStats(ctx context.Context) *domain.ProductStats {
	reviews, err := s.artifacts.LoadReviews(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn("Review statistics unavailable", zap.Error(err))
		return nil
	}
	stats := s.extractor.Extract(reviews)
	return &stats
}

package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kovanlabs/reviewrag/internal/domain"
	"github.com/kovanlabs/reviewrag/internal/index"
)

type stubArtifacts struct {
	idx        *index.Flat
	chunks     []string
	reviews    []domain.Review
	indexErr   error
	chunksErr  error
	reviewsErr error

	indexCalls int
}

func (s *stubArtifacts) LoadIndex(_ context.Context) (*index.Flat, error) {
	s.indexCalls++
	if s.indexErr != nil {
		return nil, s.indexErr
	}
	return s.idx, nil
}

func (s *stubArtifacts) LoadChunks(_ context.Context) ([]string, error) {
	if s.chunksErr != nil {
		return nil, s.chunksErr
	}
	return s.chunks, nil
}

func (s *stubArtifacts) LoadReviews(_ context.Context) ([]domain.Review, error) {
	if s.reviewsErr != nil {
		return nil, s.reviewsErr
	}
	return s.reviews, nil
}

type stubEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (e *stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	e.calls++
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{Embedding: e.vec}, nil
}

type stubGenerator struct {
	answer string
	err    error
	prompt string
	calls  int
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	g.prompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

type stubExtractor struct {
	stats domain.ProductStats
}

func (e *stubExtractor) Extract(_ []domain.Review) domain.ProductStats { return e.stats }

type stubBuilder struct {
	question string
	chunks   []string
	stats    *domain.ProductStats
}

func (b *stubBuilder) Build(question string, chunks []string, stats *domain.ProductStats) string {
	b.question = question
	b.chunks = append([]string(nil), chunks...)
	b.stats = stats
	return "PROMPT"
}

func buildIndex(t *testing.T, vectors [][]float32) *index.Flat {
	t.Helper()
	idx, err := index.Build(vectors)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return idx
}

func fixture(t *testing.T) (*stubArtifacts, *stubEmbedder, *stubGenerator, *stubExtractor, *stubBuilder) {
	t.Helper()
	arts := &stubArtifacts{
		idx:    buildIndex(t, [][]float32{{0}, {1}, {2}, {3}}),
		chunks: []string{"chunk a", "chunk b", "chunk c", "chunk d"},
		reviews: []domain.Review{
			{Comment: "Çok güzel ürün", Rating: 5},
			{Comment: "Kötü kalite", Rating: 2},
		},
	}
	emb := &stubEmbedder{vec: []float32{0.9}}
	gen := &stubGenerator{answer: "Overall the product is solid."}
	ext := &stubExtractor{stats: domain.ProductStats{AverageRating: 3.5, TotalReviews: 2, Positive: 1, Negative: 1}}
	bld := &stubBuilder{}
	return arts, emb, gen, ext, bld
}

func TestAnswer_FullCorpus(t *testing.T) {
	arts, emb, gen, ext, bld := fixture(t)
	svc := New(arts, emb, gen, ext, bld)

	resp, err := svc.Answer(context.Background(), domain.QueryRequest{Question: "Ürün kaliteli mi?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if emb.calls != 0 {
		t.Errorf("full corpus mode must not embed the question, got %d calls", emb.calls)
	}
	if len(bld.chunks) != 4 {
		t.Fatalf("expected all 4 chunks in the prompt, got %d", len(bld.chunks))
	}
	for i, want := range arts.chunks {
		if bld.chunks[i] != want {
			t.Errorf("chunk %d: got %q, want %q (index order must be preserved)", i, bld.chunks[i], want)
		}
	}
	if resp.TotalReviews != 4 || resp.UsedReviews != 4 {
		t.Errorf("counts: got total=%d used=%d, want 4/4", resp.TotalReviews, resp.UsedReviews)
	}
	if !strings.HasPrefix(resp.Answer, gen.answer) {
		t.Errorf("answer must start with the generated text, got %q", resp.Answer)
	}
	if !strings.HasSuffix(resp.Answer, "This answer was generated from 4 of 4 review chunks.") {
		t.Errorf("missing footer in %q", resp.Answer)
	}
}

func TestAnswer_TopK(t *testing.T) {
	arts, emb, gen, ext, bld := fixture(t)
	svc := New(arts, emb, gen, ext, bld).WithRetrieval(ModeTopK, 2)

	resp, err := svc.Answer(context.Background(), domain.QueryRequest{Question: "Kargo hızlı mı?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if emb.calls != 1 {
		t.Errorf("expected one embedding call, got %d", emb.calls)
	}
	// query 0.9 over {0,1,2,3}: nearest are 1 then 0
	want := []string{"chunk b", "chunk a"}
	if len(bld.chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(bld.chunks))
	}
	for i := range want {
		if bld.chunks[i] != want[i] {
			t.Errorf("chunk %d: got %q, want %q (rank order must be preserved)", i, bld.chunks[i], want[i])
		}
	}
	if resp.TotalReviews != 4 || resp.UsedReviews != 2 {
		t.Errorf("counts: got total=%d used=%d, want 4/2", resp.TotalReviews, resp.UsedReviews)
	}
	if !strings.HasSuffix(resp.Answer, "This answer was generated from 2 of 4 review chunks.") {
		t.Errorf("missing footer in %q", resp.Answer)
	}
}

func TestAnswer_MaxReviewsCap(t *testing.T) {
	arts, emb, gen, ext, bld := fixture(t)
	svc := New(arts, emb, gen, ext, bld)

	resp, err := svc.Answer(context.Background(), domain.QueryRequest{Question: "Ürün kaliteli mi?", MaxReviews: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bld.chunks) != 3 {
		t.Errorf("expected cap to 3 chunks, got %d", len(bld.chunks))
	}
	if resp.UsedReviews != 3 || resp.TotalReviews != 4 {
		t.Errorf("counts: got total=%d used=%d, want 4/3", resp.TotalReviews, resp.UsedReviews)
	}
}

func TestAnswer_ValidationBeforeIO(t *testing.T) {
	arts, emb, gen, ext, bld := fixture(t)
	svc := New(arts, emb, gen, ext, bld)

	_, err := svc.Answer(context.Background(), domain.QueryRequest{Question: "  "})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if arts.indexCalls != 0 {
		t.Errorf("validation failure must not touch artifacts, got %d loads", arts.indexCalls)
	}
	if gen.calls != 0 {
		t.Errorf("validation failure must not generate, got %d calls", gen.calls)
	}
}

func TestAnswer_IndexMissing(t *testing.T) {
	arts, emb, gen, ext, bld := fixture(t)
	arts.indexErr = domain.ErrIndexNotFound
	svc := New(arts, emb, gen, ext, bld)

	_, err := svc.Answer(context.Background(), domain.QueryRequest{Question: "Ürün kaliteli mi?"})
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
	if gen.calls != 0 {
		t.Errorf("missing index must fail before generation, got %d calls", gen.calls)
	}
}

func TestAnswer_ArtifactPairOutOfSync(t *testing.T) {
	arts, emb, gen, ext, bld := fixture(t)
	arts.chunks = arts.chunks[:2]
	svc := New(arts, emb, gen, ext, bld)

	_, err := svc.Answer(context.Background(), domain.QueryRequest{Question: "Ürün kaliteli mi?"})
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound for mismatched artifacts, got %v", err)
	}
}

func TestAnswer_StatsDegradeOnReviewsFailure(t *testing.T) {
	arts, emb, gen, ext, bld := fixture(t)
	arts.reviewsErr = errors.New("reviews.json gone")
	svc := New(arts, emb, gen, ext, bld)

	resp, err := svc.Answer(context.Background(), domain.QueryRequest{Question: "Ürün kaliteli mi?"})
	if err != nil {
		t.Fatalf("reviews failure must not fail the query: %v", err)
	}
	if bld.stats != nil {
		t.Errorf("expected nil stats on reviews failure, got %+v", bld.stats)
	}
	if resp.Answer == "" {
		t.Error("expected an answer despite degraded stats")
	}
}

func TestAnswer_StatsPassedToBuilder(t *testing.T) {
	arts, emb, gen, ext, bld := fixture(t)
	svc := New(arts, emb, gen, ext, bld)

	if _, err := svc.Answer(context.Background(), domain.QueryRequest{Question: "Ürün kaliteli mi?"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bld.stats == nil {
		t.Fatal("expected stats in the prompt")
	}
	if *bld.stats != ext.stats {
		t.Errorf("stats: got %+v, want %+v", *bld.stats, ext.stats)
	}
	if bld.question != "Ürün kaliteli mi?" {
		t.Errorf("question: got %q", bld.question)
	}
}

func TestAnswer_EmbeddingFailure(t *testing.T) {
	arts, emb, gen, ext, bld := fixture(t)
	emb.err = domain.ErrEmbeddingProvider
	svc := New(arts, emb, gen, ext, bld).WithRetrieval(ModeTopK, 2)

	_, err := svc.Answer(context.Background(), domain.QueryRequest{Question: "Ürün kaliteli mi?"})
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
	if gen.calls != 0 {
		t.Errorf("embedding failure must not generate, got %d calls", gen.calls)
	}
}

func TestAnswer_GenerationFailure(t *testing.T) {
	arts, emb, gen, ext, bld := fixture(t)
	gen.err = domain.ErrGenerationProvider
	svc := New(arts, emb, gen, ext, bld)

	_, err := svc.Answer(context.Background(), domain.QueryRequest{Question: "Ürün kaliteli mi?"})
	if !errors.Is(err, domain.ErrGenerationProvider) {
		t.Fatalf("expected ErrGenerationProvider, got %v", err)
	}
}

func TestAnswer_EmptyGeneratedAnswer(t *testing.T) {
	for _, answer := range []string{"", "   \n\t"} {
		arts, emb, gen, ext, bld := fixture(t)
		gen.answer = answer
		svc := New(arts, emb, gen, ext, bld)

		resp, err := svc.Answer(context.Background(), domain.QueryRequest{Question: "Ürün kaliteli mi?"})
		if !errors.Is(err, domain.ErrGenerationProvider) {
			t.Fatalf("answer %q: expected ErrGenerationProvider, got %v", answer, err)
		}
		if resp.Answer != "" {
			t.Errorf("answer %q: no response must be returned, got %q", answer, resp.Answer)
		}
	}
}

func TestAnswer_EmptyCorpus(t *testing.T) {
	arts, emb, gen, ext, bld := fixture(t)
	empty, err := index.Build(nil)
	if err != nil {
		t.Fatalf("build empty index: %v", err)
	}
	arts.idx = empty
	arts.chunks = nil
	svc := New(arts, emb, gen, ext, bld)

	_, err = svc.Answer(context.Background(), domain.QueryRequest{Question: "Ürün kaliteli mi?"})
	if !errors.Is(err, domain.ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
}

func TestAnswer_Idempotent(t *testing.T) {
	arts, emb, gen, ext, bld := fixture(t)
	svc := New(arts, emb, gen, ext, bld)
	req := domain.QueryRequest{Question: "Ürün kaliteli mi?"}

	first, err := svc.Answer(context.Background(), req)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.Answer(context.Background(), req)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first != second {
		t.Errorf("responses differ:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if gen.prompt != "PROMPT" {
		t.Errorf("unexpected prompt: %q", gen.prompt)
	}
}

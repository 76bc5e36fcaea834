package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kovanlabs/reviewrag/internal/db"
	"github.com/kovanlabs/reviewrag/internal/domain"
)

type mockStore struct {
	data   map[string][]byte
	getErr error
	setErr error
}

func newMockStore() *mockStore {
	return &mockStore{data: map[string][]byte{}}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 7}, nil
}

func TestEmbed_MissThenHit(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{0.25, -1.5, 3}}
	c := New(inner, newMockStore(), time.Hour, nil, zap.NewNop())

	first, err := c.Embed(context.Background(), "soru")
	if err != nil {
		t.Fatalf("first Embed: %v", err)
	}
	if first.TotalTokens != 7 {
		t.Errorf("miss must report inner token usage, got %d", first.TotalTokens)
	}

	second, err := c.Embed(context.Background(), "soru")
	if err != nil {
		t.Fatalf("second Embed: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
	if second.TotalTokens != 0 {
		t.Errorf("hit must report zero tokens, got %d", second.TotalTokens)
	}
	for i := range first.Embedding {
		if first.Embedding[i] != second.Embedding[i] {
			t.Fatalf("cached vector differs at %d", i)
		}
	}
}

func TestEmbed_StoreErrorFailsOpen(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1}}
	s := newMockStore()
	s.getErr = errors.New("connection refused")
	s.setErr = errors.New("connection refused")
	c := New(inner, s, time.Hour, nil, zap.NewNop())

	res, err := c.Embed(context.Background(), "soru")
	if err != nil {
		t.Fatalf("cache failure must not fail the embed: %v", err)
	}
	if len(res.Embedding) != 1 {
		t.Errorf("expected inner embedding, got %v", res.Embedding)
	}
}

func TestEmbed_InnerErrorPropagates(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProvider}
	c := New(inner, newMockStore(), time.Hour, nil, zap.NewNop())

	_, err := c.Embed(context.Background(), "soru")
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

type mockBatchEmbedder struct {
	mockEmbedder
	batches [][]string
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batches = append(m.batches, append([]string(nil), texts...))
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	embeddings := make([][]float32, len(texts))
	for i := range embeddings {
		embeddings[i] = m.vec
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings, TotalTokens: 7 * len(texts)}, nil
}

func TestBatchEmbed_FallbackDeduplicates(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{2}}
	c := New(inner, newMockStore(), time.Hour, nil, zap.NewNop())

	res, err := c.BatchEmbed(context.Background(), []string{"a", "a", "b"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(res.Embeddings))
	}
	// "a" is embedded once despite appearing twice; "b" is a second call.
	if inner.calls != 2 {
		t.Errorf("expected 2 inner calls, got %d", inner.calls)
	}
	for i, vec := range res.Embeddings {
		if len(vec) != 1 || vec[0] != 2 {
			t.Errorf("embedding %d: got %v", i, vec)
		}
	}
}

func TestBatchEmbed_ServesHitsFromCache(t *testing.T) {
	inner := &mockBatchEmbedder{mockEmbedder: mockEmbedder{vec: []float32{4}}}
	c := New(inner, newMockStore(), time.Hour, nil, zap.NewNop())

	if _, err := c.Embed(context.Background(), "cached"); err != nil {
		t.Fatalf("warm-up Embed: %v", err)
	}
	inner.calls = 0

	res, err := c.BatchEmbed(context.Background(), []string{"cached", "fresh"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(res.Embeddings))
	}
	if len(inner.batches) != 1 {
		t.Fatalf("expected 1 inner batch, got %d", len(inner.batches))
	}
	// Only the miss goes to the provider.
	if len(inner.batches[0]) != 1 || inner.batches[0][0] != "fresh" {
		t.Errorf("inner batch: got %v, want [fresh]", inner.batches[0])
	}
	if res.TotalTokens != 7 {
		t.Errorf("tokens must cover misses only, got %d", res.TotalTokens)
	}
}

func TestBatchEmbed_AllHitsSkipProvider(t *testing.T) {
	inner := &mockBatchEmbedder{mockEmbedder: mockEmbedder{vec: []float32{4}}}
	c := New(inner, newMockStore(), time.Hour, nil, zap.NewNop())

	if _, err := c.BatchEmbed(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("first BatchEmbed: %v", err)
	}
	inner.batches = nil

	res, err := c.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("second BatchEmbed: %v", err)
	}
	if len(inner.batches) != 0 {
		t.Errorf("fully cached batch must not reach the provider, got %d batches", len(inner.batches))
	}
	if res.TotalTokens != 0 {
		t.Errorf("fully cached batch must report zero tokens, got %d", res.TotalTokens)
	}
	for i, vec := range res.Embeddings {
		if len(vec) != 1 || vec[0] != 4 {
			t.Errorf("embedding %d: got %v", i, vec)
		}
	}
}

func TestVectorCodec_RoundTrip(t *testing.T) {
	in := []float32{0, -0.5, 1.25, 3e7}
	out, err := bytesToVector(vectorToCacheBytes(in))
	if err != nil {
		t.Fatalf("bytesToVector: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("value %d changed: %v -> %v", i, in[i], out[i])
		}
	}
}

func TestBytesToVector_RejectsBadLength(t *testing.T) {
	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated data")
	}
}

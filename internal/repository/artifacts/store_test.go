package artifacts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kovanlabs/reviewrag/internal/domain"
	"github.com/kovanlabs/reviewrag/internal/index"
)

func TestIndexRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	ctx := context.Background()

	idx, err := index.Build([][]float32{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := s.SaveIndex(ctx, idx); err != nil {
		t.Fatalf("SaveIndex: %v", err)
	}

	loaded, err := s.LoadIndex(ctx)
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	if loaded.Size() != 2 || loaded.Dim() != 2 {
		t.Errorf("unexpected shape after reload: size=%d dim=%d", loaded.Size(), loaded.Dim())
	}
}

func TestLoadIndex_MissingFile(t *testing.T) {
	s := NewStore(t.TempDir())

	_, err := s.LoadIndex(context.Background())
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestLoadIndex_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	if err := os.WriteFile(s.IndexPath(), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := s.LoadIndex(context.Background())
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound for corrupt file, got %v", err)
	}
}

func TestChunksRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	ctx := context.Background()

	chunks := []string{"ilk parça", "ikinci parça"}
	if err := s.SaveChunks(ctx, chunks); err != nil {
		t.Fatalf("SaveChunks: %v", err)
	}

	loaded, err := s.LoadChunks(ctx)
	if err != nil {
		t.Fatalf("LoadChunks: %v", err)
	}
	if len(loaded) != 2 || loaded[0] != chunks[0] || loaded[1] != chunks[1] {
		t.Errorf("chunks changed on reload: %#v", loaded)
	}
}

func TestLoadChunks_MissingFile(t *testing.T) {
	s := NewStore(t.TempDir())

	_, err := s.LoadChunks(context.Background())
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestLoadReviews(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	payload := `[{"comment":"Çok güzel ürün","rating":5},{"comment":"Kötü kalite","rating":2}]`
	if err := os.WriteFile(s.ReviewsPath(), []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	reviews, err := s.LoadReviews(context.Background())
	if err != nil {
		t.Fatalf("LoadReviews: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(reviews))
	}
	if reviews[0].Comment != "Çok güzel ürün" || reviews[0].Rating != 5 {
		t.Errorf("unexpected first review: %+v", reviews[0])
	}
}

func TestLoadReviews_MissingIsPlainError(t *testing.T) {
	s := NewStore(t.TempDir())

	_, err := s.LoadReviews(context.Background())
	if err == nil {
		t.Fatal("expected error for missing reviews file")
	}
	// Reviews absence degrades stats; it must not masquerade as index absence.
	if errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatal("reviews load failure must not map to ErrIndexNotFound")
	}
}

func TestSaveChunks_NoPartialWrites(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	ctx := context.Background()

	if err := s.SaveChunks(ctx, []string{"a"}); err != nil {
		t.Fatalf("SaveChunks: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != ChunksFile {
			t.Errorf("unexpected leftover file %q", e.Name())
		}
	}
	if _, err := os.Stat(filepath.Join(dir, ChunksFile)); err != nil {
		t.Errorf("chunks file missing after save: %v", err)
	}
}

func TestExistenceChecks(t *testing.T) {
	s := NewStore(t.TempDir())
	ctx := context.Background()

	if s.IndexExists() || s.ReviewsExist() {
		t.Fatal("nothing should exist in a fresh dir")
	}

	idx, _ := index.Build([][]float32{{1}})
	if err := s.SaveIndex(ctx, idx); err != nil {
		t.Fatal(err)
	}
	if s.IndexExists() {
		t.Error("IndexExists must require both index and chunks files")
	}
	if err := s.SaveChunks(ctx, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	if !s.IndexExists() {
		t.Error("IndexExists must be true once both files are written")
	}
}

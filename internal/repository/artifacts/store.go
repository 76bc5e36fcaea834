// Package artifacts persists and loads the index/chunks/reviews files, the
// boundary with the offline ingestion job. The chunks file is index-aligned
// with the vector index: position i in one corresponds to position i in the
// other, and both are always written together.
package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kovanlabs/reviewrag/internal/domain"
	"github.com/kovanlabs/reviewrag/internal/index"
)

// Default artifact file names inside the artifacts directory.
const (
	IndexFile   = "index.bin"
	ChunksFile  = "chunks.json"
	ReviewsFile = "reviews.json"
)

// Store reads and writes pipeline artifacts under a single directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// IndexPath returns the vector index file path.
func (s *Store) IndexPath() string { return filepath.Join(s.dir, IndexFile) }

// ChunksPath returns the chunk list file path.
func (s *Store) ChunksPath() string { return filepath.Join(s.dir, ChunksFile) }

// ReviewsPath returns the raw reviews file path.
func (s *Store) ReviewsPath() string { return filepath.Join(s.dir, ReviewsFile) }

// LoadIndex loads the persisted vector index wholesale. A missing or
// unreadable file wraps domain.ErrIndexNotFound: index absence is a
// deployment problem, not a transient fault.
func (s *Store) LoadIndex(_ context.Context) (*index.Flat, error) {
	f, err := os.Open(s.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrIndexNotFound, s.IndexPath(), err)
	}
	defer f.Close()

	idx, err := index.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrIndexNotFound, s.IndexPath(), err)
	}
	return idx, nil
}

// LoadChunks loads the persisted chunk list. The chunks file is half of the
// index artifact pair, so a missing file also wraps domain.ErrIndexNotFound.
func (s *Store) LoadChunks(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(s.ChunksPath())
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrIndexNotFound, s.ChunksPath(), err)
	}

	var chunks []string
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrIndexNotFound, s.ChunksPath(), err)
	}
	return chunks, nil
}

// LoadReviews loads the raw review corpus. Unlike the index pair, callers may
// recover from a failure here (statistics degrade instead of aborting).
func (s *Store) LoadReviews(_ context.Context) ([]domain.Review, error) {
	data, err := os.ReadFile(s.ReviewsPath())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.ReviewsPath(), err)
	}

	var reviews []domain.Review
	if err := json.Unmarshal(data, &reviews); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.ReviewsPath(), err)
	}
	return reviews, nil
}

// ReviewsExist reports whether the reviews file is present.
func (s *Store) ReviewsExist() bool {
	_, err := os.Stat(s.ReviewsPath())
	return err == nil
}

// IndexExists reports whether both halves of the index artifact pair are present.
func (s *Store) IndexExists() bool {
	for _, p := range []string{s.IndexPath(), s.ChunksPath()} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// SaveIndex atomically replaces the persisted vector index.
func (s *Store) SaveIndex(_ context.Context, idx *index.Flat) error {
	return s.writeAtomic(s.IndexPath(), func(f *os.File) error {
		return idx.WriteTo(f)
	})
}

// SaveChunks atomically replaces the persisted chunk list.
func (s *Store) SaveChunks(_ context.Context, chunks []string) error {
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}
	return s.writeAtomic(s.ChunksPath(), func(f *os.File) error {
		_, werr := f.Write(data)
		return werr
	})
}

// writeAtomic writes to a temp file in the same directory and renames it over
// the target, so readers never observe a partially written artifact.
func (s *Store) writeAtomic(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

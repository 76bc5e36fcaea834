package domain

import "errors"

var (
	// ErrValidation signals bad caller input (empty/oversized question, empty corpus).
	ErrValidation = errors.New("validation failed")
	// ErrIndexNotFound signals missing or unreadable persisted index artifacts.
	ErrIndexNotFound = errors.New("index not found")
	// ErrEmptyIndex signals a search against an index with zero entries.
	ErrEmptyIndex = errors.New("index is empty")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProvider signals an embedding backend failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrGenerationProvider signals a generative model transport failure or empty response.
	ErrGenerationProvider = errors.New("generation provider error")
)

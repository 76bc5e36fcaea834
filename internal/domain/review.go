// Package domain holds the core types and contracts of the review RAG pipeline.
package domain

// Review is one customer review as produced by the offline ingestion job.
// Immutable once persisted; one corpus snapshot per product.
type Review struct {
	Comment string `json:"comment"`
	Rating  int    `json:"rating,omitempty"` // 1..5, 0 = not provided
	User    string `json:"user,omitempty"`
	Date    string `json:"date,omitempty"`
	Source  string `json:"source,omitempty"`
}

// ProductStats aggregates numeric ratings and lexical sentiment over the full
// review corpus. Computed fresh per query, never persisted.
type ProductStats struct {
	AverageRating float64 // 0 when no review carries a rating
	TotalReviews  int
	Positive      int
	Negative      int
	Neutral       int
}

package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Question length bounds in runes.
const (
	MinQuestionLen = 3
	MaxQuestionLen = 500
)

// MaxReviewCap is the upper bound for the optional review-count cap.
const MaxReviewCap = 1000

// QueryRequest is one question about a product. MaxReviews, when positive,
// caps how many review chunks are fed to the generator.
type QueryRequest struct {
	Question   string
	MaxReviews int // 0 = no cap
}

// Validate checks the request invariants. Violations wrap ErrValidation.
func (r QueryRequest) Validate() error {
	q := strings.TrimSpace(r.Question)
	if q == "" {
		return fmt.Errorf("%w: question must not be empty", ErrValidation)
	}
	if n := utf8.RuneCountInString(q); n < MinQuestionLen || n > MaxQuestionLen {
		return fmt.Errorf("%w: question length must be between %d and %d characters, got %d",
			ErrValidation, MinQuestionLen, MaxQuestionLen, n)
	}
	if r.MaxReviews != 0 && (r.MaxReviews < 1 || r.MaxReviews > MaxReviewCap) {
		return fmt.Errorf("%w: max_reviews must be between 1 and %d, got %d",
			ErrValidation, MaxReviewCap, r.MaxReviews)
	}
	return nil
}

// QueryResponse is the answer to one QueryRequest.
type QueryResponse struct {
	Answer       string
	TotalReviews int // size of the chunk corpus the index was built from
	UsedReviews  int // chunks actually fed to the generator
}

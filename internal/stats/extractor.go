// Package stats derives aggregate product statistics from the full review
// corpus: mean rating plus lexicon-based sentiment counts.
package stats

import (
	"math"
	"strings"

	"github.com/kovanlabs/reviewrag/internal/domain"
)

// Extractor aggregates ratings and sentiment over a review corpus.
// Stateless and order-independent: shuffling the input produces identical
// counts.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Extract computes ProductStats over the entire corpus, not just retrieved
// chunks: statistics must reflect the whole population. Empty input yields
// the zero value.
//
// AverageRating is the mean of ratings > 0, rounded to one decimal; 0 is the
// explicit "no data" sentinel when no review carries a rating.
func (e *Extractor) Extract(reviews []domain.Review) domain.ProductStats {
	s := domain.ProductStats{TotalReviews: len(reviews)}

	var ratingSum, ratingCount int
	for _, r := range reviews {
		if r.Rating > 0 {
			ratingSum += r.Rating
			ratingCount++
		}

		switch classify(r.Comment) {
		case sentimentPositive:
			s.Positive++
		case sentimentNegative:
			s.Negative++
		default:
			s.Neutral++
		}
	}

	if ratingCount > 0 {
		s.AverageRating = math.Round(float64(ratingSum)/float64(ratingCount)*10) / 10
	}

	return s
}

type sentiment int

const (
	sentimentNeutral sentiment = iota
	sentimentPositive
	sentimentNegative
)

// classify counts case-insensitive lexicon occurrences in the comment and
// compares. Equal counts (including 0/0) are neutral.
func classify(comment string) sentiment {
	text := strings.ToLower(comment)

	var pos, neg int
	for _, w := range positiveWords {
		pos += strings.Count(text, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(text, w)
	}

	switch {
	case pos > neg:
		return sentimentPositive
	case neg > pos:
		return sentimentNegative
	default:
		return sentimentNeutral
	}
}

// Package prompt renders retrieved chunks, product statistics, and the user
// question into a single deterministic instruction prompt.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kovanlabs/reviewrag/internal/domain"
)

// notAvailable is rendered in place of statistics that could not be computed.
// Missing stats must never fail the whole request.
const notAvailable = "not available"

// Builder assembles the generator prompt. Stateless; identical inputs produce
// identical output.
type Builder struct{}

// NewBuilder creates a Builder.
func NewBuilder() *Builder { return &Builder{} }

// Build renders the prompt. Chunks are numbered 1..n in the exact order
// received from the retriever: ranking order carries salience framing and is
// never re-sorted here. stats may be nil, in which case every statistics
// field renders as a placeholder.
func (b *Builder) Build(question string, chunks []string, stats *domain.ProductStats) string {
	var sb strings.Builder

	sb.WriteString("You are an expert assistant that analyzes customer reviews of e-commerce products. ")
	sb.WriteString("Your task is to give a short, grounded overall assessment based on the reviews.\n\n")

	sb.WriteString("**PRODUCT RATING SUMMARY:**\n")
	fmt.Fprintf(&sb, "- Average rating: %s / 5\n", statField(stats, func(s *domain.ProductStats) string {
		return strconv.FormatFloat(s.AverageRating, 'f', -1, 64)
	}))
	fmt.Fprintf(&sb, "- Total reviews: %s\n", statField(stats, func(s *domain.ProductStats) string {
		return strconv.Itoa(s.TotalReviews)
	}))
	fmt.Fprintf(&sb, "- Positive reviews: %s\n", statField(stats, func(s *domain.ProductStats) string {
		return strconv.Itoa(s.Positive)
	}))
	fmt.Fprintf(&sb, "- Negative reviews: %s\n", statField(stats, func(s *domain.ProductStats) string {
		return strconv.Itoa(s.Negative)
	}))
	fmt.Fprintf(&sb, "- Neutral reviews: %s\n\n", statField(stats, func(s *domain.ProductStats) string {
		return strconv.Itoa(s.Neutral)
	}))

	sb.WriteString("**CUSTOMER REVIEWS:**\n")
	for i, c := range chunks {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, c)
	}
	fmt.Fprintf(&sb, "\n**REVIEW COUNT:** %d review fragments are listed above.\n\n", len(chunks))

	sb.WriteString("--- TASK AND RULES ---\n")
	sb.WriteString("1. Use ONLY the information provided above; do not invent details.\n")
	sb.WriteString("2. Be concise: at most 3-4 paragraphs.\n")
	sb.WriteString("3. Present both the positive and the negative angles.\n")
	sb.WriteString("4. Format: a short overall assessment paragraph, then a one-line verdict.\n")
	sb.WriteString("5. Avoid long lists and verbose quoting of individual reviews.\n")
	sb.WriteString("6. Answer in the language the reviews are written in.\n")
	sb.WriteString("-----------------------\n\n")

	fmt.Fprintf(&sb, "**USER QUESTION:** %s\n\n", question)
	sb.WriteString("**OVERALL ASSESSMENT (short and to the point):**")

	return sb.String()
}

func statField(stats *domain.ProductStats, render func(*domain.ProductStats) string) string {
	if stats == nil {
		return notAvailable
	}
	return render(stats)
}

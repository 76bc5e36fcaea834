package domain

import "context"

// Generator is the generative-model contract: one prompt in, one answer out.
// An empty answer is a valid transport outcome that callers must reject
// explicitly.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

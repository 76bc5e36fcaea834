package health

import "context"

// ArtifactChecker reports whether the retrieval artifacts are on disk.
type ArtifactChecker interface {
	IndexExists() bool
	ReviewsExist() bool
}

// ProviderChecker checks an external provider's availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

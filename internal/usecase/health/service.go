// Package health aggregates component health checks for the health endpoint.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	artifacts ArtifactChecker
	embedding ProviderChecker
}

// New creates a Service. embedding can be nil.
func New(artifacts ArtifactChecker, embedding ProviderChecker) *Service {
	return &Service{artifacts: artifacts, embedding: embedding}
}

// Check runs health checks against all components. A missing reviews file only
// degrades statistics, but it is still surfaced here so operators notice.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.artifacts.IndexExists() {
		checks["index"] = CheckOK
	} else {
		checks["index"] = CheckError
	}
	if s.artifacts.ReviewsExist() {
		checks["reviews"] = CheckOK
	} else {
		checks["reviews"] = CheckError
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

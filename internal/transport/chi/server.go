// Package chi exposes the RAG pipeline over a small REST surface.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kovanlabs/reviewrag/internal/domain"
	healthuc "github.com/kovanlabs/reviewrag/internal/usecase/health"
	queryuc "github.com/kovanlabs/reviewrag/internal/usecase/query"
)

// Error codes returned in the error response body.
const (
	codeBadRequest         = "bad_request"
	codeValidationFailed   = "validation_failed"
	codeIndexNotFound      = "index_not_found"
	codeIndexEmpty         = "index_empty"
	codeEmbeddingProvider  = "embedding_provider_error"
	codeGenerationProvider = "generation_provider_error"
	codeDimensionMismatch  = "dimension_mismatch"
	codeUnauthorized       = "unauthorized"
	codeInternalError      = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the use cases to HTTP handlers.
type Server struct {
	query         *queryuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(query *queryuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		query:  query,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrIndexNotFound, http.StatusServiceUnavailable, codeIndexNotFound),
		sentinelHandler(domain.ErrEmptyIndex, http.StatusServiceUnavailable, codeIndexEmpty),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrGenerationProvider, http.StatusBadGateway, codeGenerationProvider),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusInternalServerError, codeDimensionMismatch),
	}
	return s
}

// Routes registers the API routes on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/query", s.Query)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type queryRequest struct {
	Question   string `json:"question"`
	MaxReviews int    `json:"max_reviews,omitempty"`
}

type queryResponse struct {
	Answer           string `json:"answer"`
	Question         string `json:"question"`
	TotalReviews     int    `json:"total_reviews"`
	UsedReviews      int    `json:"used_reviews"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Query handles POST /query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	start := time.Now()
	resp, err := s.query.Answer(r.Context(), domain.QueryRequest{
		Question:   req.Question,
		MaxReviews: req.MaxReviews,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:           resp.Answer,
		Question:         req.Question,
		TotalReviews:     resp.TotalReviews,
		UsedReviews:      resp.UsedReviews,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals. Validation failures keep their detail: the message is
// crafted in the domain layer for the client.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrValidation) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrIndexNotFound,
		domain.ErrEmptyIndex,
		domain.ErrEmbeddingProvider,
		domain.ErrGenerationProvider,
		domain.ErrVectorDimMismatch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

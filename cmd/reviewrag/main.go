package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kovanlabs/reviewrag/internal/config"
	"github.com/kovanlabs/reviewrag/internal/db"
	dbRedis "github.com/kovanlabs/reviewrag/internal/db/redis"
	"github.com/kovanlabs/reviewrag/internal/domain"
	logpkg "github.com/kovanlabs/reviewrag/internal/logger"
	"github.com/kovanlabs/reviewrag/internal/metrics"
	"github.com/kovanlabs/reviewrag/internal/prompt"
	"github.com/kovanlabs/reviewrag/internal/repository/artifacts"
	"github.com/kovanlabs/reviewrag/internal/repository/embcache"
	"github.com/kovanlabs/reviewrag/internal/stats"
	anthropicGen "github.com/kovanlabs/reviewrag/internal/transport/anthropic"
	chiTransport "github.com/kovanlabs/reviewrag/internal/transport/chi"
	openaiTransport "github.com/kovanlabs/reviewrag/internal/transport/openai"
	healthuc "github.com/kovanlabs/reviewrag/internal/usecase/health"
	queryuc "github.com/kovanlabs/reviewrag/internal/usecase/query"
	"github.com/kovanlabs/reviewrag/internal/version"
)

func main() {
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting reviewrag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("artifacts_dir", cfg.Artifacts.Dir),
		zap.String("retrieval_mode", cfg.Retrieval.Mode),
	)

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Optional embedding cache store. The cache is an optimization: a broken
	// cache must never keep the server from starting.
	var cacheStore db.Store
	if len(cfg.Cache.Addrs) > 0 {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Warn("Embedding cache disabled", zap.Error(err))
		} else {
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := store.Ping(pingCtx); err != nil {
				logger.Warn("Embedding cache unreachable, continuing without it", zap.Error(err))
				store.Close()
			} else {
				cacheStore = store
				defer store.Close()
				logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
			}
			cancel()
		}
	}

	queryEmbedder := buildEmbedder(cfg, cfg.Embedding.QueryInstruction, cacheStore, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	generator := buildGenerator(cfg, logger)
	logger.Info("Generator created",
		zap.String("provider", cfg.Generation.Provider),
		zap.String("model", cfg.Generation.Model),
	)

	artifactStore := artifacts.NewStore(cfg.Artifacts.Dir)

	querySvc := queryuc.New(
		artifactStore,
		queryEmbedder,
		generator,
		stats.NewExtractor(),
		prompt.NewBuilder(),
	).WithRetrieval(cfg.Retrieval.Mode, cfg.Retrieval.TopK)

	healthSvc := healthuc.New(artifactStore, newEmbeddingHealthChecker(queryEmbedder))

	server := chiTransport.NewServer(querySvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction.
func buildEmbedder(cfg config.Config, instruction string, store db.Store, logger *zap.Logger) domain.Embedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
		embedder = embcache.New(base, store, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	// Instruction prefix goes outermost so the cache key includes it.
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

func buildGenerator(cfg config.Config, logger *zap.Logger) domain.Generator {
	switch cfg.Generation.Provider {
	case "anthropic":
		return anthropicGen.NewGenerator(&anthropicGen.Config{
			APIKey:    cfg.Generation.APIKey,
			Model:     cfg.Generation.Model,
			MaxTokens: cfg.Generation.MaxTokens,
			Logger:    logger,
		})
	default:
		return openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
			APIKey:    cfg.Generation.APIKey,
			BaseURL:   cfg.Generation.BaseURL,
			Model:     cfg.Generation.Model,
			MaxTokens: cfg.Generation.MaxTokens,
			Logger:    logger,
		})
	}
}

// embeddingHealthChecker unwraps the decorator chain for the health endpoint.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

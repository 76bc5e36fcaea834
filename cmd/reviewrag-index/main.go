// Command reviewrag-index builds the retrieval artifacts offline: it reads the
// reviews file, segments and embeds the text, and writes the index/chunks pair
// the API server serves from. With --watch it rebuilds whenever the reviews
// file changes. Run a single instance: the artifact pair has one writer.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kovanlabs/reviewrag/internal/config"
	"github.com/kovanlabs/reviewrag/internal/db"
	dbRedis "github.com/kovanlabs/reviewrag/internal/db/redis"
	"github.com/kovanlabs/reviewrag/internal/domain"
	logpkg "github.com/kovanlabs/reviewrag/internal/logger"
	"github.com/kovanlabs/reviewrag/internal/metrics"
	"github.com/kovanlabs/reviewrag/internal/repository/artifacts"
	"github.com/kovanlabs/reviewrag/internal/repository/embcache"
	"github.com/kovanlabs/reviewrag/internal/segment"
	openaiTransport "github.com/kovanlabs/reviewrag/internal/transport/openai"
	"github.com/kovanlabs/reviewrag/internal/usecase/ingest"
	"github.com/kovanlabs/reviewrag/internal/version"
)

// buildTimeout bounds one full rebuild, embedding calls included.
const buildTimeout = 10 * time.Minute

// debounceDelay coalesces bursts of file events into one rebuild.
const debounceDelay = 500 * time.Millisecond

func main() {
	watch := flag.Bool("watch", false, "rebuild when the reviews file changes")
	flag.Parse()

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

	logger.Info("Starting reviewrag index builder",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.String("artifacts_dir", cfg.Artifacts.Dir),
		zap.Bool("watch", *watch),
	)

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
			cacheStore = store
			defer store.Close()
		}
	}

	store := artifacts.NewStore(cfg.Artifacts.Dir)
	embedder := buildBatchEmbedder(cfg, cacheStore, logger)
	svc := ingest.New(
		store,
		segment.New(cfg.Segmenter.MaxChunkLength),
		embedder,
		store,
		logger,
	)

	build := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
		defer cancel()

		report, err := svc.Build(ctx)
		if err != nil {
			return err
		}
		logger.Info("Build complete",
			zap.Int("reviews", report.Reviews),
			zap.Int("chunks", report.Chunks),
			zap.Int("dim", report.Dim),
			zap.Int("total_tokens", report.Tokens),
		)
		return nil
	}

	if !*watch {
		if err := build(); err != nil {
			logger.Fatal("Build failed", zap.Error(err))
		}
		return
	}

	if err := build(); err != nil {
		// In watch mode a failed first build is not fatal: the next change
		// to the reviews file retries.
		logger.Error("Initial build failed", zap.Error(err))
	}

	if err := watchAndRebuild(store, build, logger); err != nil {
		logger.Fatal("Watcher failed", zap.Error(err))
	}
}

// watchAndRebuild rebuilds the artifacts whenever the reviews file changes.
// Events are debounced: editors and copy tools fire several per save.
func watchAndRebuild(store *artifacts.Store, build func() error, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := os.MkdirAll(filepath.Dir(store.ReviewsPath()), 0o755); err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(store.ReviewsPath())); err != nil {
		return err
	}
	logger.Info("Watching for changes", zap.String("path", store.ReviewsPath()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(store.ReviewsPath()) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(debounceDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Watch error", zap.Error(err))

		case <-debounce.C:
			logger.Info("Reviews file changed, rebuilding")
			if err := build(); err != nil {
				logger.Error("Rebuild failed", zap.Error(err))
			}

		case <-quit:
			logger.Info("Received shutdown signal")
			return nil
		}
	}
}

// buildBatchEmbedder assembles the document embedding chain:
// OpenAI -> Cached -> Instruction, exposed through the batch contract.
func buildBatchEmbedder(cfg config.Config, store db.Store, logger *zap.Logger) domain.BatchEmbedder {
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
	if cfg.Embedding.DocumentInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.Embedding.DocumentInstruction)
	}
	return batchAdapter{inner: embedder}
}

// batchAdapter exposes an Embedder through the BatchEmbedder contract.
type batchAdapter struct {
	inner domain.Embedder
}

func (b batchAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := b.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, b.inner, texts)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/campusmind-ai/campusmind/internal/chunking"
	"github.com/campusmind-ai/campusmind/internal/config"
	"github.com/campusmind-ai/campusmind/internal/db"
	dbRedis "github.com/campusmind-ai/campusmind/internal/db/redis"
	"github.com/campusmind-ai/campusmind/internal/domain"
	"github.com/campusmind-ai/campusmind/internal/index/dense"
	"github.com/campusmind-ai/campusmind/internal/index/sparse"
	logpkg "github.com/campusmind-ai/campusmind/internal/logger"
	"github.com/campusmind-ai/campusmind/internal/metrics"
	"github.com/campusmind-ai/campusmind/internal/repository/chunkstore"
	"github.com/campusmind-ai/campusmind/internal/repository/embcache"
	"github.com/campusmind-ai/campusmind/internal/repository/indexstore"
	chiTransport "github.com/campusmind-ai/campusmind/internal/transport/chi"
	openaiTransport "github.com/campusmind-ai/campusmind/internal/transport/openai"
	answeruc "github.com/campusmind-ai/campusmind/internal/usecase/answer"
	healthuc "github.com/campusmind-ai/campusmind/internal/usecase/health"
	ingestuc "github.com/campusmind-ai/campusmind/internal/usecase/ingest"
	retrievaluc "github.com/campusmind-ai/campusmind/internal/usecase/retrieval"
	"github.com/campusmind-ai/campusmind/internal/version"
)

func main() {
	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting campusmind API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register service metrics explicitly (no init())
	metrics.Register()

	// Build embedder chains — composition root
	docEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.DocumentInstruction, store, logger)
	queryEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.QueryInstruction, store, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	llm := openaiTransport.NewChatClient(&openaiTransport.ChatConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Logger:      logger,
	})

	// Indexes: dense persists to disk, sparse rebuilds from storage
	denseIdx := loadDenseIndex(cfg.Index.Path, cfg.Embedding.Dimensions, logger)
	sparseIdx := sparse.NewWithParams(cfg.Retrieval.BM25K1, cfg.Retrieval.BM25B)
	indexes := indexstore.New(denseIdx, sparseIdx, cfg.Index.Path)

	chunkRepo := chunkstore.New(store)

	chunker := chunking.New(chunking.Options{
		MaxChunkSize:    cfg.Chunking.MaxChunkSize,
		TargetChunkSize: cfg.Chunking.TargetChunkSize,
		MinChunkSize:    cfg.Chunking.MinChunkSize,
	}, logger)

	// Use case services
	ingestSvc := ingestuc.New(chunker, docEmbedder, chunkRepo, indexes, ingestuc.Config{
		BM25K1: cfg.Retrieval.BM25K1,
		BM25B:  cfg.Retrieval.BM25B,
	}, logger)

	retrievalSvc := retrievaluc.New(queryEmbedder, indexes, indexes, chunkRepo, retrievaluc.Config{
		TopK:            cfg.Retrieval.TopK,
		DenseWeight:     cfg.Retrieval.DenseWeight,
		DenseThreshold:  cfg.Retrieval.DenseThreshold,
		SparseThreshold: cfg.Retrieval.SparseThreshold,
	}, logger)

	answerSvc := answeruc.New(retrievalSvc, llm, logger)
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(docEmbedder), indexes, chunkRepo)

	// The sparse index lives only in memory; derive it from storage on boot.
	if err := ingestSvc.RebuildSparse(ctx); err != nil {
		logger.Fatal("Failed to build sparse index from storage", zap.Error(err))
	}
	logger.Info("Indexes ready",
		zap.Int("dense_vectors", indexes.DenseLen()),
		zap.Int("sparse_docs", indexes.SparseLen()),
	)

	server := chiTransport.NewServer(ingestSvc, retrievalSvc, answerSvc, healthSvc, logger)

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

// loadDenseIndex restores the persisted dense index or starts empty. A
// corrupted or wrong-dimension artifact is discarded rather than served:
// queries against it would be silently wrong.
func loadDenseIndex(path string, dimensions int, logger *zap.Logger) *dense.Index {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Fatal("Failed to create index directory", zap.Error(err))
	}

	idx, err := dense.Load(path)
	switch {
	case err == nil && idx.Dim() == dimensions:
		logger.Info("Dense index loaded", zap.String("path", path), zap.Int("vectors", idx.Len()))
		return idx
	case err == nil:
		logger.Warn("Dense index dimensionality differs from configuration, starting empty",
			zap.Int("index_dim", idx.Dim()), zap.Int("config_dim", dimensions))
	case errors.Is(err, os.ErrNotExist):
		logger.Info("No dense index artifact found, starting empty", zap.String("path", path))
	case errors.Is(err, domain.ErrIndexCorrupted):
		logger.Warn("Dense index artifact corrupted, starting empty",
			zap.String("path", path), zap.Error(err))
	default:
		logger.Warn("Failed to load dense index, starting empty",
			zap.String("path", path), zap.Error(err))
	}

	return dense.New(dimensions)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
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

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction
func buildEmbedder(
	cfg config.EmbeddingConfig,
	instruction string,
	store db.Store,
	logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Instruction prefix (outermost — cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}

	return embedder
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

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
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

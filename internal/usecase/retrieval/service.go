// Package retrieval implements hybrid search: dense cosine similarity and
// sparse BM25 candidates are fetched independently, fused with a weighted
// blend, and hydrated from chunk storage.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusmind-ai/campusmind/internal/domain"
	"github.com/campusmind-ai/campusmind/internal/domain/chunk"
	"github.com/campusmind-ai/campusmind/internal/index/dense"
	"github.com/campusmind-ai/campusmind/internal/metrics"
)

// Config holds the hybrid search parameters.
type Config struct {
	TopK            int
	DenseWeight     float64
	DenseThreshold  float64
	SparseThreshold float64
}

// Result is one retrieved chunk with its fused and per-signal scores.
type Result struct {
	ID          string
	Chunk       chunk.Chunk
	Score       float64
	DenseScore  float64
	SparseScore float64
}

// Service runs hybrid retrieval.
type Service struct {
	embed  Embedder
	dense  DenseSearcher
	sparse SparseSearcher
	chunks ChunkReader
	cfg    Config
	logger *zap.Logger
}

// New creates a retrieval service.
func New(
	embed Embedder,
	d DenseSearcher,
	s SparseSearcher,
	chunks ChunkReader,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embed: embed, dense: d, sparse: s, chunks: chunks, cfg: cfg, logger: logger}
}

// Retrieve runs the hybrid search for a query. topK <= 0 falls back to the
// configured default. When one signal fails the other still serves results
// (degraded); only an empty query is an error.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	start := time.Now()

	// Each signal fetches extra candidates so fusion has material to rerank.
	candidateK := 2 * topK
	degraded := false

	denseHits, err := s.searchDense(ctx, query, candidateK)
	if err != nil {
		s.logger.Warn("Dense search unavailable, serving sparse only", zap.Error(err))
		degraded = true
	}

	sparseHits := s.sparse.SearchSparse(query, candidateK, s.cfg.SparseThreshold)

	ranked := blend(denseHits, sparseHits, s.cfg.DenseWeight, topK)

	results := make([]Result, 0, len(ranked))
	for _, b := range ranked {
		c, err := s.chunks.Get(ctx, b.id)
		if err != nil {
			if errors.Is(err, domain.ErrChunkNotFound) {
				s.logger.Warn("Indexed chunk missing from storage, skipping",
					zap.String("chunk_id", b.id))
				continue
			}
			s.logger.Warn("Failed to hydrate chunk, skipping",
				zap.String("chunk_id", b.id), zap.Error(err))
			degraded = true
			continue
		}
		results = append(results, Result{
			ID:          b.id,
			Chunk:       c,
			Score:       b.combined,
			DenseScore:  b.denseScore,
			SparseScore: b.sparseScore,
		})
	}

	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	switch {
	case len(results) == 0:
		metrics.RetrievalRequestsTotal.WithLabelValues("empty").Inc()
	case degraded:
		metrics.RetrievalRequestsTotal.WithLabelValues("degraded").Inc()
	default:
		metrics.RetrievalRequestsTotal.WithLabelValues("ok").Inc()
	}

	return results, nil
}

// searchDense embeds the query and runs the cosine scan.
func (s *Service) searchDense(ctx context.Context, query string, topK int) ([]dense.Hit, error) {
	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	hits, err := s.dense.SearchDense(embResult.Embedding, topK, s.cfg.DenseThreshold)
	if err != nil {
		return nil, fmt.Errorf("search dense: %w", err)
	}
	return hits, nil
}

package retrieval

import (
	"context"

	"github.com/campusmind-ai/campusmind/internal/domain"
	"github.com/campusmind-ai/campusmind/internal/domain/chunk"
	"github.com/campusmind-ai/campusmind/internal/index/dense"
	"github.com/campusmind-ai/campusmind/internal/index/sparse"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// DenseSearcher runs cosine search over chunk embeddings.
type DenseSearcher interface {
	SearchDense(query []float32, topK int, minScore float64) ([]dense.Hit, error)
}

// SparseSearcher runs BM25 search over chunk texts.
type SparseSearcher interface {
	SearchSparse(query string, topK int, minScore float64) []sparse.Hit
}

// ChunkReader hydrates chunks by id after ranking.
type ChunkReader interface {
	Get(ctx context.Context, id string) (chunk.Chunk, error)
}

package ingest

import (
	"context"

	"github.com/campusmind-ai/campusmind/internal/domain"
	"github.com/campusmind-ai/campusmind/internal/domain/chunk"
	"github.com/campusmind-ai/campusmind/internal/index/dense"
	"github.com/campusmind-ai/campusmind/internal/index/sparse"
	"github.com/campusmind-ai/campusmind/internal/repository/chunkstore"
)

// Chunker splits document text into retrievable chunks.
type Chunker interface {
	ChunkDocument(text, sourceDocument string, pageNumber *int) []chunk.Chunk
}

// Embedder vectorizes chunk text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// ChunkRepository persists chunks and answers corpus listings.
type ChunkRepository interface {
	Put(ctx context.Context, id string, c chunk.Chunk) error
	ListAll(ctx context.Context) ([]chunkstore.Stored, error)
	DeleteDocument(ctx context.Context, sourceDocument string) ([]string, error)
}

// Indexes is the write side of the live search indexes.
type Indexes interface {
	AddDense(entries []dense.Entry) error
	SwapDense(d *dense.Index) error
	SwapSparse(x *sparse.Index)
	Dim() int
}

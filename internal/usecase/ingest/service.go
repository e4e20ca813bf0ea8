// Package ingest turns document text into stored, indexed chunks. Ingestion
// is write-through: chunks land in storage first, then the dense index grows
// incrementally and the sparse index is rebuilt wholesale from storage.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusmind-ai/campusmind/internal/domain"
	"github.com/campusmind-ai/campusmind/internal/index/dense"
	"github.com/campusmind-ai/campusmind/internal/index/sparse"
	"github.com/campusmind-ai/campusmind/internal/metrics"
)

// Config holds index-building parameters.
type Config struct {
	BM25K1 float64
	BM25B  float64
}

// Report summarizes one ingestion run.
type Report struct {
	SourceDocument string
	ChunkIDs       []string
	ChunksCreated  int
	TotalTokens    int
}

// Service ingests documents.
type Service struct {
	chunker Chunker
	embed   Embedder
	chunks  ChunkRepository
	indexes Indexes
	cfg     Config
	logger  *zap.Logger
}

// New creates an ingest service.
func New(
	chunker Chunker,
	embed Embedder,
	chunks ChunkRepository,
	indexes Indexes,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		chunker: chunker,
		embed:   embed,
		chunks:  chunks,
		indexes: indexes,
		cfg:     cfg,
		logger:  logger,
	}
}

// IngestDocument chunks, stores, and indexes one document. Re-ingesting the
// same source document replaces its previous chunks.
func (s *Service) IngestDocument(
	ctx context.Context, text, sourceDocument string, pageNumber *int,
) (Report, error) {
	if strings.TrimSpace(text) == "" {
		return Report{}, domain.ErrEmptyDocument
	}

	// Replace semantics: drop the previous version of this document, if any.
	if _, err := s.chunks.DeleteDocument(ctx, sourceDocument); err != nil {
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			return Report{}, fmt.Errorf("replace document %s: %w", sourceDocument, err)
		}
	}

	chunks := s.chunker.ChunkDocument(text, sourceDocument, pageNumber)
	if len(chunks) == 0 {
		return Report{}, domain.ErrEmptyDocument
	}

	report := Report{SourceDocument: sourceDocument, ChunksCreated: len(chunks)}
	entries := make([]dense.Entry, 0, len(chunks))

	for _, c := range chunks {
		id := uuid.NewString()

		if err := s.chunks.Put(ctx, id, c); err != nil {
			return Report{}, fmt.Errorf("store chunk: %w", err)
		}
		metrics.ChunksProducedTotal.WithLabelValues(string(c.ChunkType())).Inc()

		embResult, err := s.embed.Embed(ctx, c.Content())
		if err != nil {
			return Report{}, fmt.Errorf("embed chunk %s: %w", id, err)
		}
		report.TotalTokens += embResult.TotalTokens
		entries = append(entries, dense.Entry{ID: id, Vector: embResult.Embedding})
		report.ChunkIDs = append(report.ChunkIDs, id)
	}

	if err := s.indexes.AddDense(entries); err != nil {
		return Report{}, fmt.Errorf("index document %s: %w", sourceDocument, err)
	}

	if err := s.RebuildSparse(ctx); err != nil {
		return Report{}, err
	}

	s.logger.Info("Document ingested",
		zap.String("source_document", sourceDocument),
		zap.Int("chunks", report.ChunksCreated),
		zap.Int("tokens", report.TotalTokens))

	return report, nil
}

// DeleteDocument removes a document's chunks and rebuilds both indexes from
// the remaining corpus. Returns the number of chunks removed.
func (s *Service) DeleteDocument(ctx context.Context, sourceDocument string) (int, error) {
	removed, err := s.chunks.DeleteDocument(ctx, sourceDocument)
	if err != nil {
		return 0, fmt.Errorf("delete document %s: %w", sourceDocument, err)
	}

	if err := s.RebuildIndexes(ctx); err != nil {
		return 0, err
	}

	s.logger.Info("Document deleted",
		zap.String("source_document", sourceDocument),
		zap.Int("chunks_removed", len(removed)))

	return len(removed), nil
}

// RebuildIndexes reconstructs both indexes from storage. Embeddings come back
// from the cache for unchanged chunks, so a rebuild rarely re-bills the
// provider.
func (s *Service) RebuildIndexes(ctx context.Context) error {
	stored, err := s.chunks.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list corpus: %w", err)
	}

	denseIdx := dense.New(s.indexes.Dim())
	entries := make([]dense.Entry, 0, len(stored))
	for _, st := range stored {
		embResult, err := s.embed.Embed(ctx, st.Chunk.Content())
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", st.ID, err)
		}
		entries = append(entries, dense.Entry{ID: st.ID, Vector: embResult.Embedding})
	}
	if err := denseIdx.Build(entries); err != nil {
		return fmt.Errorf("rebuild dense index: %w", err)
	}
	if err := s.indexes.SwapDense(denseIdx); err != nil {
		return fmt.Errorf("swap dense index: %w", err)
	}

	return s.RebuildSparse(ctx)
}

// RebuildSparse derives a fresh BM25 index from storage and swaps it in.
// Called after every corpus change and once at startup, since the sparse
// index lives only in memory.
func (s *Service) RebuildSparse(ctx context.Context) error {
	stored, err := s.chunks.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list corpus for sparse rebuild: %w", err)
	}

	entries := make([]sparse.Entry, 0, len(stored))
	for _, st := range stored {
		entries = append(entries, sparse.Entry{ID: st.ID, Text: st.Chunk.Content()})
	}

	idx := sparse.NewWithParams(s.cfg.BM25K1, s.cfg.BM25B)
	idx.Build(entries)
	s.indexes.SwapSparse(idx)
	return nil
}

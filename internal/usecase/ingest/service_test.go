package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/campusmind-ai/campusmind/internal/domain"
	"github.com/campusmind-ai/campusmind/internal/domain/chunk"
	"github.com/campusmind-ai/campusmind/internal/index/dense"
	"github.com/campusmind-ai/campusmind/internal/index/sparse"
	"github.com/campusmind-ai/campusmind/internal/repository/chunkstore"
)

// --- Mocks ---

type mockChunker struct {
	chunks []chunk.Chunk
}

func (m *mockChunker) ChunkDocument(_, _ string, _ *int) []chunk.Chunk {
	return m.chunks
}

type mockEmbedder struct {
	calls int
	err   error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 5}, nil
}

type mockRepo struct {
	stored  map[string]chunk.Chunk
	putErr  error
	deleted []string
}

func newMockRepo() *mockRepo {
	return &mockRepo{stored: make(map[string]chunk.Chunk)}
}

func (m *mockRepo) Put(_ context.Context, id string, c chunk.Chunk) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.stored[id] = c
	return nil
}

func (m *mockRepo) ListAll(_ context.Context) ([]chunkstore.Stored, error) {
	out := make([]chunkstore.Stored, 0, len(m.stored))
	for id, c := range m.stored {
		out = append(out, chunkstore.Stored{ID: id, Chunk: c})
	}
	return out, nil
}

func (m *mockRepo) DeleteDocument(_ context.Context, source string) ([]string, error) {
	var removed []string
	for id, c := range m.stored {
		if c.SourceDocument() == source {
			removed = append(removed, id)
			delete(m.stored, id)
		}
	}
	if len(removed) == 0 {
		return nil, domain.ErrDocumentNotFound
	}
	m.deleted = append(m.deleted, source)
	return removed, nil
}

type mockIndexes struct {
	denseAdded   int
	denseSwapped bool
	sparseSwaps  int
	lastSparse   *sparse.Index
	addErr       error
}

func (m *mockIndexes) AddDense(entries []dense.Entry) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.denseAdded += len(entries)
	return nil
}

func (m *mockIndexes) SwapDense(_ *dense.Index) error {
	m.denseSwapped = true
	return nil
}

func (m *mockIndexes) SwapSparse(x *sparse.Index) {
	m.sparseSwaps++
	m.lastSparse = x
}

func (m *mockIndexes) Dim() int { return 2 }

func docChunks(source string, n int) []chunk.Chunk {
	chunks := make([]chunk.Chunk, 0, n)
	for i := 0; i < n; i++ {
		chunks = append(chunks, chunk.New(
			fmt.Sprintf("nội dung đoạn %d", i), source, nil, chunk.TypeContent, nil))
	}
	return chunks
}

func testService(chunker Chunker, embed Embedder, repo ChunkRepository, idx Indexes) *Service {
	return New(chunker, embed, repo, idx,
		Config{BM25K1: sparse.DefaultK1, BM25B: sparse.DefaultB}, zap.NewNop())
}

// --- Tests ---

func TestIngestDocument(t *testing.T) {
	repo := newMockRepo()
	idx := &mockIndexes{}
	embed := &mockEmbedder{}
	svc := testService(&mockChunker{chunks: docChunks("doc.pdf", 3)}, embed, repo, idx)

	report, err := svc.IngestDocument(context.Background(), "some document text", "doc.pdf", nil)
	if err != nil {
		t.Fatalf("IngestDocument failed: %v", err)
	}

	if report.ChunksCreated != 3 || len(report.ChunkIDs) != 3 {
		t.Errorf("report = %+v, want 3 chunks", report)
	}
	if report.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", report.TotalTokens)
	}
	if len(repo.stored) != 3 {
		t.Errorf("stored chunks = %d, want 3", len(repo.stored))
	}
	if idx.denseAdded != 3 {
		t.Errorf("dense entries = %d, want 3", idx.denseAdded)
	}
	if idx.sparseSwaps != 1 {
		t.Errorf("sparse swaps = %d, want 1", idx.sparseSwaps)
	}
	if idx.lastSparse.Len() != 3 {
		t.Errorf("sparse index covers %d docs, want 3", idx.lastSparse.Len())
	}

	// Each chunk got a distinct id.
	seen := make(map[string]struct{})
	for _, id := range report.ChunkIDs {
		if _, dup := seen[id]; dup {
			t.Errorf("duplicate chunk id %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestIngestDocument_Empty(t *testing.T) {
	svc := testService(&mockChunker{}, &mockEmbedder{}, newMockRepo(), &mockIndexes{})

	for _, text := range []string{"", "   \n\t"} {
		if _, err := svc.IngestDocument(context.Background(), text, "doc.pdf", nil); !errors.Is(err, domain.ErrEmptyDocument) {
			t.Errorf("text %q: expected ErrEmptyDocument, got %v", text, err)
		}
	}
}

func TestIngestDocument_ReplacesPreviousVersion(t *testing.T) {
	repo := newMockRepo()
	repo.stored["old"] = chunk.New("stale content", "doc.pdf", nil, chunk.TypeContent, nil)
	idx := &mockIndexes{}
	svc := testService(&mockChunker{chunks: docChunks("doc.pdf", 2)}, &mockEmbedder{}, repo, idx)

	_, err := svc.IngestDocument(context.Background(), "fresh text", "doc.pdf", nil)
	if err != nil {
		t.Fatalf("IngestDocument failed: %v", err)
	}

	if _, ok := repo.stored["old"]; ok {
		t.Error("previous version's chunk survived re-ingestion")
	}
	if len(repo.stored) != 2 {
		t.Errorf("stored chunks = %d, want 2", len(repo.stored))
	}
}

func TestIngestDocument_EmbedFailure(t *testing.T) {
	svc := testService(
		&mockChunker{chunks: docChunks("doc.pdf", 1)},
		&mockEmbedder{err: domain.ErrEmbeddingProviderError},
		newMockRepo(), &mockIndexes{},
	)

	_, err := svc.IngestDocument(context.Background(), "text", "doc.pdf", nil)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestDeleteDocument(t *testing.T) {
	repo := newMockRepo()
	repo.stored["a"] = chunk.New("one", "gone.pdf", nil, chunk.TypeContent, nil)
	repo.stored["b"] = chunk.New("two", "gone.pdf", nil, chunk.TypeContent, nil)
	repo.stored["c"] = chunk.New("keep", "stays.pdf", nil, chunk.TypeContent, nil)
	idx := &mockIndexes{}
	svc := testService(&mockChunker{}, &mockEmbedder{}, repo, idx)

	removed, err := svc.DeleteDocument(context.Background(), "gone.pdf")
	if err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}

	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	// Both indexes rebuild from the remaining corpus.
	if !idx.denseSwapped {
		t.Error("dense index not rebuilt after delete")
	}
	if idx.sparseSwaps != 1 {
		t.Errorf("sparse swaps = %d, want 1", idx.sparseSwaps)
	}
	if idx.lastSparse.Len() != 1 {
		t.Errorf("rebuilt sparse covers %d docs, want 1", idx.lastSparse.Len())
	}
}

func TestDeleteDocument_Unknown(t *testing.T) {
	svc := testService(&mockChunker{}, &mockEmbedder{}, newMockRepo(), &mockIndexes{})

	_, err := svc.DeleteDocument(context.Background(), "ghost.pdf")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestRebuildSparse_EmptyCorpus(t *testing.T) {
	idx := &mockIndexes{}
	svc := testService(&mockChunker{}, &mockEmbedder{}, newMockRepo(), idx)

	if err := svc.RebuildSparse(context.Background()); err != nil {
		t.Fatalf("RebuildSparse failed: %v", err)
	}
	if idx.lastSparse == nil || idx.lastSparse.Len() != 0 {
		t.Error("expected an empty sparse index to be swapped in")
	}
}

package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/campusmind-ai/campusmind/internal/domain"
	"github.com/campusmind-ai/campusmind/internal/domain/chunk"
	"github.com/campusmind-ai/campusmind/internal/index/dense"
	"github.com/campusmind-ai/campusmind/internal/index/sparse"
	"github.com/campusmind-ai/campusmind/internal/repository/chunkstore"
	answeruc "github.com/campusmind-ai/campusmind/internal/usecase/answer"
	healthuc "github.com/campusmind-ai/campusmind/internal/usecase/health"
	ingestuc "github.com/campusmind-ai/campusmind/internal/usecase/ingest"
	retrievaluc "github.com/campusmind-ai/campusmind/internal/usecase/retrieval"
)

// --- Mocks backing the real usecase services ---

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 3}, nil
}

type stubDense struct{ hits []dense.Hit }

func (s stubDense) SearchDense(_ []float32, _ int, _ float64) ([]dense.Hit, error) {
	return s.hits, nil
}

type stubSparse struct{ hits []sparse.Hit }

func (s stubSparse) SearchSparse(_ string, _ int, _ float64) []sparse.Hit { return s.hits }

type stubChunks struct{ chunks map[string]chunk.Chunk }

func (s stubChunks) Get(_ context.Context, id string) (chunk.Chunk, error) {
	c, ok := s.chunks[id]
	if !ok {
		return chunk.Chunk{}, domain.ErrChunkNotFound
	}
	return c, nil
}

type stubChunker struct{ chunks []chunk.Chunk }

func (s stubChunker) ChunkDocument(_, _ string, _ *int) []chunk.Chunk { return s.chunks }

type stubRepo struct{ byDoc map[string][]string }

func (s stubRepo) Put(_ context.Context, _ string, _ chunk.Chunk) error { return nil }

func (s stubRepo) ListAll(_ context.Context) ([]chunkstore.Stored, error) { return nil, nil }

func (s stubRepo) DeleteDocument(_ context.Context, source string) ([]string, error) {
	ids, ok := s.byDoc[source]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return ids, nil
}

type stubIndexes struct{}

func (stubIndexes) AddDense(_ []dense.Entry) error { return nil }
func (stubIndexes) SwapDense(_ *dense.Index) error { return nil }
func (stubIndexes) SwapSparse(_ *sparse.Index)     {}
func (stubIndexes) Dim() int                       { return 2 }

type stubLLM struct{ reply string }

func (s stubLLM) Complete(_ context.Context, _, _ string) (string, error) { return s.reply, nil }

type stubPinger struct{ err error }

func (s stubPinger) Ping(_ context.Context) error { return s.err }

type stubStats struct{}

func (stubStats) DenseLen() int  { return 2 }
func (stubStats) SparseLen() int { return 2 }

type stubCounter struct{}

func (stubCounter) Count(_ context.Context) (int, error) { return 2, nil }

type serverFixture struct {
	dbErr error
}

func newTestRouter(t *testing.T, fx serverFixture) http.Handler {
	t.Helper()

	corpus := map[string]chunk.Chunk{
		"c1": chunk.New("Tuition is 25 million VND.", "fees.pdf", nil, chunk.TypeHeading,
			&chunk.HeadingMeta{Text: "TUITION", Level: 1, Number: "7"}),
		"c2": chunk.New("Scholarships are available.", "fees.pdf", nil, chunk.TypeContent, nil),
	}

	retrievalSvc := retrievaluc.New(
		stubEmbedder{},
		stubDense{hits: []dense.Hit{{ID: "c1", Score: 0.9}}},
		stubSparse{hits: []sparse.Hit{{ID: "c2", Score: 1.5}}},
		stubChunks{chunks: corpus},
		retrievaluc.Config{TopK: 5, DenseWeight: 0.7},
		zap.NewNop(),
	)

	ingestSvc := ingestuc.New(
		stubChunker{chunks: []chunk.Chunk{
			chunk.New("some content", "new.pdf", nil, chunk.TypeContent, nil),
		}},
		stubEmbedder{},
		stubRepo{byDoc: map[string][]string{"fees.pdf": {"c1", "c2"}}},
		stubIndexes{},
		ingestuc.Config{BM25K1: sparse.DefaultK1, BM25B: sparse.DefaultB},
		zap.NewNop(),
	)

	answerSvc := answeruc.New(retrievalSvc, stubLLM{reply: "Tuition is 25 million VND [1]."}, zap.NewNop())
	healthSvc := healthuc.New(stubPinger{err: fx.dbErr}, nil, stubStats{}, stubCounter{})

	srv := NewServer(ingestSvc, retrievalSvc, answerSvc, healthSvc, zap.NewNop())
	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return e
}

// --- Tests ---

func TestSearchEndpoint(t *testing.T) {
	h := newTestRouter(t, serverFixture{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/search", searchRequest{Query: "học phí"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp searchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Fatalf("expected 2 results, got total=%d items=%d", resp.Total, len(resp.Items))
	}
	// c1: 0.7*0.9 = 0.63 beats c2: 0.3*1.5 = 0.45
	if resp.Items[0].ID != "c1" {
		t.Errorf("top result = %s, want c1", resp.Items[0].ID)
	}
	if resp.Items[0].HeadingText != "TUITION" || resp.Items[0].HeadingNumber != "7" {
		t.Errorf("heading fields = (%q, %q)", resp.Items[0].HeadingText, resp.Items[0].HeadingNumber)
	}
	if resp.Items[0].DenseScore != 0.9 || resp.Items[1].SparseScore != 1.5 {
		t.Errorf("per-signal scores not surfaced: %+v", resp.Items)
	}
}

func TestSearchEndpoint_EmptyQuery(t *testing.T) {
	h := newTestRouter(t, serverFixture{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/search", searchRequest{Query: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != codeEmptyQuery {
		t.Errorf("code = %s, want %s", e.Code, codeEmptyQuery)
	}
}

func TestSearchEndpoint_MalformedBody(t *testing.T) {
	h := newTestRouter(t, serverFixture{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != codeBadRequest {
		t.Errorf("code = %s, want %s", e.Code, codeBadRequest)
	}
}

func TestIngestEndpoint(t *testing.T) {
	h := newTestRouter(t, serverFixture{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/documents", ingestRequest{
		Text:           "document body",
		SourceDocument: "new.pdf",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp ingestResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SourceDocument != "new.pdf" || resp.ChunksCreated != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestIngestEndpoint_MissingSource(t *testing.T) {
	h := newTestRouter(t, serverFixture{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/documents", ingestRequest{Text: "body"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIngestEndpoint_EmptyText(t *testing.T) {
	h := newTestRouter(t, serverFixture{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/documents", ingestRequest{
		Text:           "   ",
		SourceDocument: "new.pdf",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != codeEmptyDocument {
		t.Errorf("code = %s, want %s", e.Code, codeEmptyDocument)
	}
}

func TestDeleteEndpoint(t *testing.T) {
	h := newTestRouter(t, serverFixture{})

	rec := doJSON(t, h, http.MethodDelete, "/api/v1/documents/fees.pdf", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp deleteResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SourceDocument != "fees.pdf" || resp.ChunksRemoved != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestDeleteEndpoint_Unknown(t *testing.T) {
	h := newTestRouter(t, serverFixture{})

	rec := doJSON(t, h, http.MethodDelete, "/api/v1/documents/ghost.pdf", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != codeDocumentNotFound {
		t.Errorf("code = %s, want %s", e.Code, codeDocumentNotFound)
	}
}

func TestAskEndpoint(t *testing.T) {
	h := newTestRouter(t, serverFixture{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/ask", askRequest{Question: "How much is tuition?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp askResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer == "" {
		t.Error("empty answer")
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(resp.Sources))
	}
	if resp.Sources[0].Excerpt == "" {
		t.Error("source excerpt missing")
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestRouter(t, serverFixture{})

	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Checks["database"] != "ok" {
		t.Errorf("response = %+v", resp)
	}
	if resp.ChunkCount != 2 || resp.DenseVectors != 2 || resp.SparseDocs != 2 {
		t.Errorf("stats = %+v", resp)
	}
}

func TestHealthEndpoint_Degraded(t *testing.T) {
	h := newTestRouter(t, serverFixture{dbErr: context.DeadlineExceeded})

	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

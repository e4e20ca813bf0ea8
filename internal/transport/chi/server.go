// Package chi provides the HTTP API: document ingestion, hybrid search,
// grounded question answering, and the health and metrics endpoints.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/campusmind-ai/campusmind/internal/domain"
	answeruc "github.com/campusmind-ai/campusmind/internal/usecase/answer"
	healthuc "github.com/campusmind-ai/campusmind/internal/usecase/health"
	ingestuc "github.com/campusmind-ai/campusmind/internal/usecase/ingest"
	retrievaluc "github.com/campusmind-ai/campusmind/internal/usecase/retrieval"
)

// Error codes returned in JSON error responses.
const (
	codeBadRequest       = "bad_request"
	codeDocumentNotFound = "document_not_found"
	codeEmptyQuery       = "empty_query"
	codeEmptyDocument    = "empty_document"
	codeProviderError    = "provider_error"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the usecases over HTTP.
type Server struct {
	ingest        *ingestuc.Service
	retrieval     *retrievaluc.Service
	answer        *answeruc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	retrieval *retrievaluc.Service,
	answer *answeruc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:    ingest,
		retrieval: retrieval,
		answer:    answer,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, codeEmptyQuery),
		sentinelHandler(domain.ErrEmptyDocument, http.StatusBadRequest, codeEmptyDocument),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// Routes registers all endpoints on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.IngestDocument)
		r.Delete("/documents/{source}", s.DeleteDocument)
		r.Post("/search", s.Search)
		r.Post("/ask", s.Ask)
	})
}

type ingestRequest struct {
	Text           string `json:"text"`
	SourceDocument string `json:"source_document"`
	PageNumber     *int   `json:"page_number,omitempty"`
}

type ingestResponse struct {
	SourceDocument string `json:"source_document"`
	ChunksCreated  int    `json:"chunks_created"`
	TotalTokens    int    `json:"total_tokens"`
}

// IngestDocument handles POST /api/v1/documents.
func (s *Server) IngestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.SourceDocument == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "source_document is required")
		return
	}

	report, err := s.ingest.IngestDocument(r.Context(), req.Text, req.SourceDocument, req.PageNumber)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ingestResponse{
		SourceDocument: report.SourceDocument,
		ChunksCreated:  report.ChunksCreated,
		TotalTokens:    report.TotalTokens,
	})
}

type deleteResponse struct {
	SourceDocument string `json:"source_document"`
	ChunksRemoved  int    `json:"chunks_removed"`
}

// DeleteDocument handles DELETE /api/v1/documents/{source}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")

	removed, err := s.ingest.DeleteDocument(r.Context(), source)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{SourceDocument: source, ChunksRemoved: removed})
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type searchResultItem struct {
	ID             string  `json:"id"`
	Content        string  `json:"content"`
	SourceDocument string  `json:"source_document"`
	HeadingText    string  `json:"heading_text,omitempty"`
	HeadingNumber  string  `json:"heading_number,omitempty"`
	PageNumber     *int    `json:"page_number,omitempty"`
	Score          float64 `json:"score"`
	DenseScore     float64 `json:"dense_score"`
	SparseScore    float64 `json:"sparse_score"`
}

type searchResponse struct {
	Items []searchResultItem `json:"items"`
	Total int                `json:"total"`
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	results, err := s.retrieval.Retrieve(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(results))
	for i, res := range results {
		items[i] = searchResultItem{
			ID:             res.ID,
			Content:        res.Chunk.Content(),
			SourceDocument: res.Chunk.SourceDocument(),
			HeadingText:    res.Chunk.HeadingText(),
			HeadingNumber:  res.Chunk.HeadingNumber(),
			PageNumber:     res.Chunk.PageNumber(),
			Score:          res.Score,
			DenseScore:     res.DenseScore,
			SparseScore:    res.SparseScore,
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{Items: items, Total: len(items)})
}

type askRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

type askSource struct {
	ID             string  `json:"id"`
	SourceDocument string  `json:"source_document"`
	HeadingText    string  `json:"heading_text,omitempty"`
	PageNumber     *int    `json:"page_number,omitempty"`
	Score          float64 `json:"score"`
	Excerpt        string  `json:"excerpt"`
}

type askResponse struct {
	Answer  string      `json:"answer"`
	Sources []askSource `json:"sources"`
}

// Ask handles POST /api/v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ans, err := s.answer.Ask(r.Context(), req.Question, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	sources := make([]askSource, len(ans.Sources))
	for i, src := range ans.Sources {
		sources[i] = askSource{
			ID:             src.ID,
			SourceDocument: src.SourceDocument,
			HeadingText:    src.HeadingText,
			PageNumber:     src.PageNumber,
			Score:          src.Score,
			Excerpt:        src.Excerpt,
		}
	}

	writeJSON(w, http.StatusOK, askResponse{Answer: ans.Text, Sources: sources})
}

type healthResponse struct {
	Status       string            `json:"status"`
	Checks       map[string]string `json:"checks"`
	ChunkCount   int               `json:"chunk_count"`
	DenseVectors int               `json:"dense_vectors"`
	SparseDocs   int               `json:"sparse_docs"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:       string(report.Status),
		Checks:       checks,
		ChunkCount:   report.ChunkCount,
		DenseVectors: report.DenseVectors,
		SparseDocs:   report.SparseDocs,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrChunkNotFound,
		domain.ErrEmptyQuery,
		domain.ErrEmptyDocument,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProviderError,
		domain.ErrLLMProviderError,
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

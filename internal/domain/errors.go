package domain

import "errors"

var (
	// ErrChunkNotFound signals a chunk id referenced by an index that is missing from storage.
	ErrChunkNotFound = errors.New("chunk not found")
	// ErrDocumentNotFound signals a source document with no stored chunks.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrVectorDimMismatch signals a vector whose dimensionality differs from the index.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrIndexCorrupted signals a persisted index artifact that cannot be restored consistently.
	ErrIndexCorrupted = errors.New("index artifact corrupted")
	// ErrEmptyQuery signals a search request without query text.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrEmptyDocument signals an ingest request without document text.
	ErrEmptyDocument = errors.New("document text is empty")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrLLMProviderError signals a chat completion provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
)

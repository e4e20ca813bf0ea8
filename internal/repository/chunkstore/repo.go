// Package chunkstore persists chunks in the key-value store: one JSON value
// per chunk plus id-set memberships per source document and for the whole
// corpus, so the sparse index can be rebuilt from storage at any time.
package chunkstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/campusmind-ai/campusmind/internal/db"
	"github.com/campusmind-ai/campusmind/internal/domain"
	"github.com/campusmind-ai/campusmind/internal/domain/chunk"
)

const (
	chunkKeyPrefix = "campusmind:chunk:"
	docKeyPrefix   = "campusmind:doc:"
	allChunksKey   = "campusmind:chunks"
)

// store is the consumer interface for chunk persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
}

// Stored pairs a chunk with its storage id.
type Stored struct {
	ID    string
	Chunk chunk.Chunk
}

// Repository persists chunks.
type Repository struct {
	store store
}

// New creates a chunk repository over the given store.
func New(s store) *Repository {
	return &Repository{store: s}
}

// Put stores a chunk under the given id and records its memberships.
func (r *Repository) Put(ctx context.Context, id string, c chunk.Chunk) error {
	data, err := json.Marshal(toDTO(c))
	if err != nil {
		return fmt.Errorf("marshal chunk %s: %w", id, err)
	}
	if err := r.store.Set(ctx, chunkKeyPrefix+id, data); err != nil {
		return fmt.Errorf("store chunk %s: %w", id, err)
	}
	if err := r.store.SAdd(ctx, docKeyPrefix+c.SourceDocument(), id); err != nil {
		return fmt.Errorf("register chunk %s for document: %w", id, err)
	}
	if err := r.store.SAdd(ctx, allChunksKey, id); err != nil {
		return fmt.Errorf("register chunk %s in corpus: %w", id, err)
	}
	return nil
}

// Get loads one chunk by id.
func (r *Repository) Get(ctx context.Context, id string) (chunk.Chunk, error) {
	data, err := r.store.Get(ctx, chunkKeyPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return chunk.Chunk{}, fmt.Errorf("chunk %s: %w", id, domain.ErrChunkNotFound)
		}
		return chunk.Chunk{}, fmt.Errorf("load chunk %s: %w", id, err)
	}

	var dto chunkDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return chunk.Chunk{}, fmt.Errorf("unmarshal chunk %s: %w", id, err)
	}
	return fromDTO(dto), nil
}

// ListAll returns every stored chunk in deterministic (id-sorted) order.
func (r *Repository) ListAll(ctx context.Context) ([]Stored, error) {
	return r.listSet(ctx, allChunksKey)
}

// ListByDocument returns the chunks of one source document in id-sorted order.
func (r *Repository) ListByDocument(ctx context.Context, sourceDocument string) ([]Stored, error) {
	stored, err := r.listSet(ctx, docKeyPrefix+sourceDocument)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("document %s: %w", sourceDocument, domain.ErrDocumentNotFound)
	}
	return stored, nil
}

// DeleteDocument removes a document's chunks and memberships, returning the
// removed chunk ids so the caller can update its indexes.
func (r *Repository) DeleteDocument(ctx context.Context, sourceDocument string) ([]string, error) {
	docKey := docKeyPrefix + sourceDocument
	ids, err := r.store.SMembers(ctx, docKey)
	if err != nil {
		return nil, fmt.Errorf("list document %s chunks: %w", sourceDocument, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("document %s: %w", sourceDocument, domain.ErrDocumentNotFound)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = chunkKeyPrefix + id
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return nil, fmt.Errorf("delete document %s chunks: %w", sourceDocument, err)
	}
	if err := r.store.SRem(ctx, allChunksKey, ids...); err != nil {
		return nil, fmt.Errorf("deregister document %s chunks: %w", sourceDocument, err)
	}
	if err := r.store.Del(ctx, docKey); err != nil {
		return nil, fmt.Errorf("delete document %s id set: %w", sourceDocument, err)
	}

	sort.Strings(ids)
	return ids, nil
}

// Count returns the number of stored chunks.
func (r *Repository) Count(ctx context.Context) (int, error) {
	n, err := r.store.SCard(ctx, allChunksKey)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return int(n), nil
}

func (r *Repository) listSet(ctx context.Context, setKey string) ([]Stored, error) {
	ids, err := r.store.SMembers(ctx, setKey)
	if err != nil {
		return nil, fmt.Errorf("list chunk ids: %w", err)
	}
	sort.Strings(ids)

	stored := make([]Stored, 0, len(ids))
	for _, id := range ids {
		c, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		stored = append(stored, Stored{ID: id, Chunk: c})
	}
	return stored, nil
}

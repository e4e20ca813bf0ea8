// Package indexstore guards the in-process dense and sparse indexes for
// concurrent use: searches take a read lock, rebuilds swap whole index
// instances under a write lock. Dense index changes are persisted to disk.
package indexstore

import (
	"fmt"
	"sync"

	"github.com/campusmind-ai/campusmind/internal/index/dense"
	"github.com/campusmind-ai/campusmind/internal/index/sparse"
)

// Store owns the live index instances and their persistence path.
type Store struct {
	mu     sync.RWMutex
	dense  *dense.Index
	sparse *sparse.Index
	path   string
}

// New creates a store over the given index instances.
// path is where the dense index artifact is persisted.
func New(d *dense.Index, s *sparse.Index, path string) *Store {
	return &Store{dense: d, sparse: s, path: path}
}

// SearchDense runs a cosine search on the current dense index.
func (s *Store) SearchDense(query []float32, topK int, minScore float64) ([]dense.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dense.Search(query, topK, minScore)
}

// SearchSparse runs a BM25 search on the current sparse index.
func (s *Store) SearchSparse(query string, topK int, minScore float64) []sparse.Hit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sparse.Search(query, topK, minScore)
}

// AddDense adds vectors to the dense index and persists the artifact.
func (s *Store) AddDense(entries []dense.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.dense.Add(entries); err != nil {
		return fmt.Errorf("add dense entries: %w", err)
	}
	if err := s.dense.Save(s.path); err != nil {
		return fmt.Errorf("save dense index: %w", err)
	}
	return nil
}

// SwapDense replaces the dense index wholesale and persists the new artifact.
func (s *Store) SwapDense(d *dense.Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := d.Save(s.path); err != nil {
		return fmt.Errorf("save dense index: %w", err)
	}
	s.dense = d
	return nil
}

// SwapSparse replaces the sparse index wholesale. The new index is built
// outside the lock, so searches keep serving the old one until the swap.
func (s *Store) SwapSparse(x *sparse.Index) {
	s.mu.Lock()
	s.sparse = x
	s.mu.Unlock()
}

// Dim returns the dense index dimensionality.
func (s *Store) Dim() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dense.Dim()
}

// DenseLen returns the number of indexed dense vectors.
func (s *Store) DenseLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dense.Len()
}

// SparseLen returns the number of indexed sparse documents.
func (s *Store) SparseLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sparse.Len()
}

// Package dense provides an in-process exact nearest-neighbor index over
// chunk embeddings. Vectors are L2-normalized on insert, making inner-product
// search equivalent to cosine similarity. The index and its chunk-id mapping
// persist as a single artifact; loading one without the other is impossible
// by construction.
package dense

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/campusmind-ai/campusmind/internal/domain"
)

// Entry is one (chunk id, embedding) pair.
type Entry struct {
	ID     string
	Vector []float32
}

// Hit is one scored search result.
type Hit struct {
	ID    string
	Score float64
}

// Index stores normalized embeddings for exact cosine search.
type Index struct {
	dim     int
	ids     []string
	vectors [][]float32
	byID    map[string]int
}

// New creates an empty index of fixed dimensionality.
func New(dim int) *Index {
	return &Index{dim: dim, byID: make(map[string]int)}
}

// Dim returns the index dimensionality.
func (x *Index) Dim() int { return x.dim }

// Len returns the number of indexed vectors.
func (x *Index) Len() int { return len(x.ids) }

// Build replaces the index contents with the given vectors.
func (x *Index) Build(entries []Entry) error {
	x.ids = nil
	x.vectors = nil
	x.byID = make(map[string]int, len(entries))
	return x.Add(entries)
}

// Add appends vectors without a full rebuild. A vector whose id is already
// indexed replaces the stored one. Dimension mismatches are fatal for the
// whole batch: embeddings from a different model invalidate the index.
func (x *Index) Add(entries []Entry) error {
	for _, e := range entries {
		if len(e.Vector) != x.dim {
			return fmt.Errorf("add %q: got %d dimensions, index has %d: %w",
				e.ID, len(e.Vector), x.dim, domain.ErrVectorDimMismatch)
		}
	}
	for _, e := range entries {
		v := normalize(e.Vector)
		if pos, ok := x.byID[e.ID]; ok {
			x.vectors[pos] = v
			continue
		}
		x.byID[e.ID] = len(x.ids)
		x.ids = append(x.ids, e.ID)
		x.vectors = append(x.vectors, v)
	}
	return nil
}

// Search returns up to topK vectors with cosine similarity above minScore,
// ordered by descending score with ascending id as the deterministic
// tie-break. The query is normalized before scoring; a dimension mismatch is
// surfaced as an error, never silently truncated or padded.
func (x *Index) Search(query []float32, topK int, minScore float64) ([]Hit, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w",
			len(query), x.dim, domain.ErrVectorDimMismatch)
	}

	q := normalize(query)
	hits := make([]Hit, 0, len(x.ids))
	for i, id := range x.ids {
		score := dot(q, x.vectors[i])
		if score >= minScore {
			hits = append(hits, Hit{ID: id, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// snapshot is the persisted artifact: vectors and their id mapping together.
type snapshot struct {
	Dim     int
	IDs     []string
	Vectors [][]float32
}

// Save writes the index to path atomically (temp file + rename), so a crash
// mid-write never leaves a torn artifact behind.
func (x *Index) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dense-*")
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	snap := snapshot{Dim: x.dim, IDs: x.ids, Vectors: x.vectors}
	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp index file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

// Load restores an index saved by Save. An artifact whose vectors and id
// mapping disagree is a data-integrity failure and is rejected.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", path, domain.ErrIndexCorrupted)
	}
	if len(snap.IDs) != len(snap.Vectors) {
		return nil, fmt.Errorf("index %s: %d ids vs %d vectors: %w",
			path, len(snap.IDs), len(snap.Vectors), domain.ErrIndexCorrupted)
	}

	x := New(snap.Dim)
	for i, v := range snap.Vectors {
		if len(v) != snap.Dim {
			return nil, fmt.Errorf("index %s: vector %d has %d dimensions, want %d: %w",
				path, i, len(v), snap.Dim, domain.ErrIndexCorrupted)
		}
		x.byID[snap.IDs[i]] = i
	}
	x.ids = snap.IDs
	x.vectors = snap.Vectors
	return x, nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

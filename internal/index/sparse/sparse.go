// Package sparse provides an in-process BM25 lexical index over chunk texts.
// The index is derived state: it is rebuilt wholesale from the stored corpus
// whenever the corpus changes, and never updated incrementally.
package sparse

import (
	"math"
	"sort"
	"strings"
)

// Standard BM25 parameters (Robertson et al.); k1 saturates term frequency,
// b controls document-length normalization.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Entry is one (chunk id, chunk text) pair of the corpus.
type Entry struct {
	ID   string
	Text string
}

// Hit is one scored search result.
type Hit struct {
	ID    string
	Score float64
}

type document struct {
	id     string
	freq   map[string]int
	length int
}

// Index is a BM25 term-frequency index. Build replaces all state; queries
// are read-only and safe once building has finished.
type Index struct {
	k1, b  float64
	docs   []document
	df     map[string]int
	avgLen float64
}

// New creates an empty index with the default BM25 parameters.
func New() *Index {
	return NewWithParams(DefaultK1, DefaultB)
}

// NewWithParams creates an empty index with explicit BM25 parameters.
func NewWithParams(k1, b float64) *Index {
	return &Index{k1: k1, b: b, df: make(map[string]int)}
}

// Build replaces the index contents with statistics over the given corpus.
// Calling Build again with the same corpus yields an identical index.
func (x *Index) Build(entries []Entry) {
	x.docs = make([]document, 0, len(entries))
	x.df = make(map[string]int)

	totalLen := 0
	for _, e := range entries {
		tokens := tokenize(e.Text)
		freq := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freq[t]++
		}
		for t := range freq {
			x.df[t]++
		}
		x.docs = append(x.docs, document{id: e.ID, freq: freq, length: len(tokens)})
		totalLen += len(tokens)
	}

	x.avgLen = 0
	if len(x.docs) > 0 {
		x.avgLen = float64(totalLen) / float64(len(x.docs))
	}
}

// Len returns the number of indexed documents.
func (x *Index) Len() int { return len(x.docs) }

// Score computes the BM25 relevance of every indexed document for the query.
// Documents with no term overlap are omitted from the result map.
func (x *Index) Score(query string) map[string]float64 {
	scores := make(map[string]float64)
	if len(x.docs) == 0 {
		return scores
	}

	terms := uniqueTokens(query)
	n := float64(len(x.docs))

	for _, term := range terms {
		df, ok := x.df[term]
		if !ok {
			continue
		}
		idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
		for i := range x.docs {
			tf := float64(x.docs[i].freq[term])
			if tf == 0 {
				continue
			}
			norm := x.k1 * (1 - x.b + x.b*float64(x.docs[i].length)/x.avgLen)
			scores[x.docs[i].id] += idf * tf * (x.k1 + 1) / (tf + norm)
		}
	}

	return scores
}

// Search returns up to topK documents scoring above minScore, ordered by
// descending score with ascending id as the deterministic tie-break.
func (x *Index) Search(query string, topK int, minScore float64) []Hit {
	scores := x.Score(query)

	hits := make([]Hit, 0, len(scores))
	for id, score := range scores {
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
	return hits
}

// tokenize lowercases and whitespace-splits text. No stemming, no stopword
// removal: exact lexical overlap is the point of the sparse signal.
func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func uniqueTokens(text string) []string {
	tokens := tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

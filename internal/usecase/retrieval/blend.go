package retrieval

import (
	"sort"

	"github.com/campusmind-ai/campusmind/internal/index/dense"
	"github.com/campusmind-ai/campusmind/internal/index/sparse"
)

// blended is one candidate after score fusion.
type blended struct {
	id          string
	combined    float64
	denseScore  float64
	sparseScore float64
}

// blend unions the dense and sparse candidate lists and fuses their scores:
// combined = denseWeight*dense + (1-denseWeight)*sparse, with a missing side
// contributing zero. Ordering is combined descending, then dense descending,
// then id ascending, so equal inputs always produce the same ranking.
func blend(denseHits []dense.Hit, sparseHits []sparse.Hit, denseWeight float64, topK int) []blended {
	merged := make(map[string]*blended, len(denseHits)+len(sparseHits))

	for _, h := range denseHits {
		merged[h.ID] = &blended{id: h.ID, denseScore: h.Score}
	}
	for _, h := range sparseHits {
		if existing, ok := merged[h.ID]; ok {
			existing.sparseScore = h.Score
		} else {
			merged[h.ID] = &blended{id: h.ID, sparseScore: h.Score}
		}
	}

	out := make([]blended, 0, len(merged))
	for _, b := range merged {
		b.combined = denseWeight*b.denseScore + (1-denseWeight)*b.sparseScore
		out = append(out, *b)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].combined != out[j].combined {
			return out[i].combined > out[j].combined
		}
		if out[i].denseScore != out[j].denseScore {
			return out[i].denseScore > out[j].denseScore
		}
		return out[i].id < out[j].id
	})

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

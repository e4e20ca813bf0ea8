package chunking

import (
	"github.com/campusmind-ai/campusmind/internal/domain/chunk"
)

// Merger fuses undersized adjacent chunks that belong to the same structural
// lineage, so retrieval never surfaces fragments with no surrounding context.
type Merger struct {
	minChunkSize int
	maxChunkSize int
}

// NewMerger creates a chunk merger. Chunks below minChunkSize are merge
// candidates; merged chunks never exceed maxChunkSize.
func NewMerger(minChunkSize, maxChunkSize int) *Merger {
	return &Merger{minChunkSize: minChunkSize, maxChunkSize: maxChunkSize}
}

// Merge walks the list once, left to right. A chunk smaller than minChunkSize
// is fused with its right neighbor when the combined size stays within
// maxChunkSize and the two chunks are structurally compatible; otherwise it
// is kept as is. The pass is not iterated to a fixpoint: a chunk that stays
// small after one failed attempt stays small. Chunk indexes are renumbered
// over the final list.
func (m *Merger) Merge(chunks []chunk.Chunk) []chunk.Chunk {
	if len(chunks) < 2 {
		return renumber(chunks)
	}

	merged := make([]chunk.Chunk, 0, len(chunks))
	i := 0
	for i < len(chunks) {
		current := chunks[i]
		if current.CharCount() < m.minChunkSize && i+1 < len(chunks) {
			next := chunks[i+1]
			if current.CharCount()+next.CharCount() <= m.maxChunkSize && compatible(current, next) {
				merged = append(merged, chunk.Merge(current, next))
				i += 2
				continue
			}
		}
		merged = append(merged, current)
		i++
	}

	return renumber(merged)
}

// compatible reports whether two adjacent chunks may be fused: same source
// document, same page (or either unknown), and a heading relationship —
// shared parent, direct parent/child link, or at most one side carrying
// heading metadata. Headed chunks from unrelated lineages stay separate.
func compatible(a, b chunk.Chunk) bool {
	if a.SourceDocument() != b.SourceDocument() {
		return false
	}
	if !samePage(a.PageNumber(), b.PageNumber()) {
		return false
	}

	switch {
	case !a.HasHeading() && !b.HasHeading():
		return true
	case a.HasHeading() != b.HasHeading():
		return true
	default:
		return a.ParentHeading() == b.ParentHeading() ||
			a.ParentHeading() == b.HeadingNumber() ||
			b.ParentHeading() == a.HeadingNumber()
	}
}

func samePage(a, b *int) bool {
	if a == nil || b == nil {
		return true
	}
	return *a == *b
}

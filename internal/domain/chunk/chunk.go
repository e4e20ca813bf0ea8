package chunk

import (
	"strings"
	"unicode/utf8"
)

// Separator joins chunk contents when two chunks are merged.
const Separator = "\n\n"

// Type classifies where a chunk's content came from.
type Type string

const (
	// TypeIntro marks text appearing before the first detected heading.
	TypeIntro Type = "intro"
	// TypeHeading marks content belonging to a detected heading.
	TypeHeading Type = "heading"
	// TypeContent marks paragraph-fallback chunks from heading-free documents.
	TypeContent Type = "content"
)

// HeadingMeta carries the structural metadata copied from a chunk's owning heading.
type HeadingMeta struct {
	Text   string
	Level  int
	Number string
	Parent string
}

// Chunk is a retrievable unit of document text (immutable value object).
// Word and char counts are computed once at creation from the trimmed content.
type Chunk struct {
	content        string
	sourceDocument string
	pageNumber     *int
	chunkIndex     int
	headingText    string
	headingLevel   int // 0 when the chunk has no owning heading
	headingNumber  string
	parentHeading  string
	isSubChunk     bool
	subChunkIndex  int
	totalSubChunks int
	chunkType      Type
	wordCount      int
	charCount      int
}

// New creates a chunk from a text span. Content is trimmed; meta may be nil
// for intro and paragraph-fallback chunks.
func New(content, sourceDocument string, pageNumber *int, t Type, meta *HeadingMeta) Chunk {
	c := Chunk{
		content:        strings.TrimSpace(content),
		sourceDocument: sourceDocument,
		pageNumber:     pageNumber,
		chunkType:      t,
	}
	if meta != nil {
		c.headingText = meta.Text
		c.headingLevel = meta.Level
		c.headingNumber = meta.Number
		c.parentHeading = meta.Parent
	}
	c.wordCount = len(strings.Fields(c.content))
	c.charCount = utf8.RuneCountInString(c.content)
	return c
}

// Reconstruct creates a chunk without recomputing counts (storage hydration).
func Reconstruct(
	content, sourceDocument string, pageNumber *int, chunkIndex int,
	meta HeadingMeta, isSubChunk bool, subChunkIndex, totalSubChunks int,
	t Type, wordCount, charCount int,
) Chunk {
	return Chunk{
		content:        content,
		sourceDocument: sourceDocument,
		pageNumber:     pageNumber,
		chunkIndex:     chunkIndex,
		headingText:    meta.Text,
		headingLevel:   meta.Level,
		headingNumber:  meta.Number,
		parentHeading:  meta.Parent,
		isSubChunk:     isSubChunk,
		subChunkIndex:  subChunkIndex,
		totalSubChunks: totalSubChunks,
		chunkType:      t,
		wordCount:      wordCount,
		charCount:      charCount,
	}
}

// Content returns the chunk text.
func (c Chunk) Content() string { return c.content }

// SourceDocument returns the originating file identifier.
func (c Chunk) SourceDocument() string { return c.sourceDocument }

// PageNumber returns the optional page number, nil when unknown.
func (c Chunk) PageNumber() *int { return c.pageNumber }

// ChunkIndex returns the zero-based position among chunks from the same run.
func (c Chunk) ChunkIndex() int { return c.chunkIndex }

// HeadingText returns the owning heading's title, "" for heading-free chunks.
func (c Chunk) HeadingText() string { return c.headingText }

// HeadingLevel returns the owning heading's level, 0 for heading-free chunks.
func (c Chunk) HeadingLevel() int { return c.headingLevel }

// HeadingNumber returns the owning heading's dotted label, "" when absent.
func (c Chunk) HeadingNumber() string { return c.headingNumber }

// ParentHeading returns the dotted label of the owning heading's parent, "" when absent.
func (c Chunk) ParentHeading() string { return c.parentHeading }

// HasHeading reports whether the chunk carries any heading metadata.
func (c Chunk) HasHeading() bool { return c.headingLevel != 0 }

// IsSubChunk reports whether the chunk is one piece of a split oversized section.
func (c Chunk) IsSubChunk() bool { return c.isSubChunk }

// SubChunkIndex returns the position among sibling sub-chunks (meaningful only
// when IsSubChunk is true).
func (c Chunk) SubChunkIndex() int { return c.subChunkIndex }

// TotalSubChunks returns the sibling group size (meaningful only when
// IsSubChunk is true).
func (c Chunk) TotalSubChunks() int { return c.totalSubChunks }

// ChunkType returns the chunk classification.
func (c Chunk) ChunkType() Type { return c.chunkType }

// WordCount returns the whitespace-delimited token count of the content.
func (c Chunk) WordCount() int { return c.wordCount }

// CharCount returns the rune count of the trimmed content.
func (c Chunk) CharCount() int { return c.charCount }

// IsEmpty reports whether the trimmed content is empty.
func (c Chunk) IsEmpty() bool { return c.content == "" }

// WithIndex returns a copy with the chunk index set (renumbering after merge).
func (c Chunk) WithIndex(i int) Chunk {
	c.chunkIndex = i
	return c
}

// AsSubChunk returns a copy marked as one piece of a split section.
// TotalSubChunks is assigned later, once the whole sibling group is known.
func (c Chunk) AsSubChunk(index int) Chunk {
	c.isSubChunk = true
	c.subChunkIndex = index
	return c
}

// WithTotalSubChunks returns a copy with the sibling group size set.
func (c Chunk) WithTotalSubChunks(n int) Chunk {
	c.totalSubChunks = n
	return c
}

// Merge fuses two adjacent chunks into one. Content is joined with the
// two-newline separator; all structural metadata is copied from whichever
// side has the larger char count, ties favoring next. Counts are recomputed
// from the merged content.
func Merge(current, next Chunk) Chunk {
	donor := next
	if current.charCount > next.charCount {
		donor = current
	}

	merged := donor
	merged.content = current.content + Separator + next.content
	merged.wordCount = len(strings.Fields(merged.content))
	merged.charCount = utf8.RuneCountInString(merged.content)
	return merged
}

// Package chunking turns raw extracted document text into retrievable chunks.
// The pipeline is heading-aware: numbered section structure is preserved,
// oversized sections are split along sub-heading and paragraph boundaries,
// and undersized fragments are merged back into their structural neighbors.
package chunking

import (
	"go.uber.org/zap"

	"github.com/campusmind-ai/campusmind/internal/domain/chunk"
)

// Defaults for chunk sizing, in characters of trimmed content.
const (
	DefaultMaxChunkSize    = 2500
	DefaultTargetChunkSize = 1000
	DefaultMinChunkSize    = 100
)

// Options carries chunk sizing bounds.
type Options struct {
	MaxChunkSize    int // upper bound for a single section chunk
	TargetChunkSize int // greedy paragraph accumulation bound, < MaxChunkSize
	MinChunkSize    int // chunks below this are merge candidates
}

// DefaultOptions returns the standard sizing bounds.
func DefaultOptions() Options {
	return Options{
		MaxChunkSize:    DefaultMaxChunkSize,
		TargetChunkSize: DefaultTargetChunkSize,
		MinChunkSize:    DefaultMinChunkSize,
	}
}

// Chunker orchestrates heading extraction, section splitting and merging.
type Chunker struct {
	extractor *Extractor
	splitter  *Splitter
	merger    *Merger
	logger    *zap.Logger
}

// New creates a chunker. Zero or negative option fields fall back to defaults.
func New(opts Options, logger *zap.Logger) *Chunker {
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = DefaultMaxChunkSize
	}
	if opts.TargetChunkSize <= 0 {
		opts.TargetChunkSize = DefaultTargetChunkSize
	}
	if opts.MinChunkSize <= 0 {
		opts.MinChunkSize = DefaultMinChunkSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	extractor := NewExtractor()
	return &Chunker{
		extractor: extractor,
		splitter:  NewSplitter(extractor, opts.MaxChunkSize, opts.TargetChunkSize),
		merger:    NewMerger(opts.MinChunkSize, opts.MaxChunkSize),
		logger:    logger,
	}
}

// ChunkDocument transforms one document's text into an ordered chunk list.
// Documents with no recognizable headings fall back to paragraph chunking;
// empty text yields an empty list. The result is merged and renumbered and
// is immutable thereafter.
func (c *Chunker) ChunkDocument(text, sourceDocument string, pageNumber *int) []chunk.Chunk {
	if text == "" {
		return nil
	}

	headings := c.extractor.Extract(text)
	if len(headings) == 0 {
		chunks := c.splitter.chunkWithoutHeadings(text, sourceDocument, pageNumber)
		c.logger.Debug("chunked document without headings",
			zap.String("source", sourceDocument),
			zap.Int("chunks", len(chunks)),
		)
		return chunks
	}

	chunks := c.splitter.Split(text, sourceDocument, pageNumber, headings)
	chunks = c.merger.Merge(chunks)

	c.logger.Debug("chunked document",
		zap.String("source", sourceDocument),
		zap.Int("headings", len(headings)),
		zap.Int("chunks", len(chunks)),
	)
	return chunks
}

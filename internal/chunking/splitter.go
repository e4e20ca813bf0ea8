package chunking

import (
	"strings"
	"unicode/utf8"

	"github.com/campusmind-ai/campusmind/internal/domain/chunk"
	"github.com/campusmind-ai/campusmind/internal/domain/heading"
)

// Splitter slices a document into chunks along heading boundaries, splitting
// oversized sections recursively one level by sub-heading, then by paragraph.
type Splitter struct {
	extractor       *Extractor
	maxChunkSize    int
	targetChunkSize int
}

// NewSplitter creates a section splitter. maxChunkSize bounds single-chunk
// sections; targetChunkSize bounds greedy paragraph accumulation and must be
// strictly smaller.
func NewSplitter(extractor *Extractor, maxChunkSize, targetChunkSize int) *Splitter {
	return &Splitter{
		extractor:       extractor,
		maxChunkSize:    maxChunkSize,
		targetChunkSize: targetChunkSize,
	}
}

// Split turns a document with known headings into an ordered chunk list:
// an intro chunk for any text before the first heading (always preserved,
// regardless of size), then one chunk group per section. A section span runs
// from its heading to the start of the next heading, so every heading —
// nested or not — opens its own section.
func (s *Splitter) Split(
	text, sourceDocument string, pageNumber *int, headings []heading.Heading,
) []chunk.Chunk {
	heading.SortByOffset(headings)

	var chunks []chunk.Chunk

	if first := headings[0].StartOffset(); first > 0 {
		intro := chunk.New(text[:first], sourceDocument, pageNumber, chunk.TypeIntro, nil)
		if !intro.IsEmpty() {
			chunks = append(chunks, intro)
		}
	}

	for i, h := range headings {
		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1].StartOffset()
		}
		span := text[h.StartOffset():end]

		if strings.TrimSpace(span) == "" {
			continue
		}
		chunks = append(chunks, s.splitSection(span, sourceDocument, pageNumber, h)...)
	}

	return renumber(chunks)
}

// splitSection emits one chunk for a section that fits maxChunkSize, otherwise
// splits it by sub-heading boundaries and falls back to paragraph splitting.
func (s *Splitter) splitSection(
	span, sourceDocument string, pageNumber *int, h heading.Heading,
) []chunk.Chunk {
	meta := &chunk.HeadingMeta{
		Text:   h.Text(),
		Level:  h.Level(),
		Number: h.Number(),
		Parent: h.ParentNumber(),
	}

	if utf8.RuneCountInString(strings.TrimSpace(span)) <= s.maxChunkSize {
		return []chunk.Chunk{chunk.New(span, sourceDocument, pageNumber, chunk.TypeHeading, meta)}
	}

	if subs := s.subHeadings(span, h); len(subs) > 0 {
		return s.splitBySubHeadings(span, sourceDocument, pageNumber, h, subs)
	}

	group := s.splitByParagraphs(span, sourceDocument, pageNumber, meta, 0)
	return finishGroup(group)
}

// subHeadings re-runs extraction on the section span and keeps only headings
// whose dotted number nests under the section's own number. Offsets are
// relative to the span.
func (s *Splitter) subHeadings(span string, h heading.Heading) []heading.Heading {
	if !h.IsNumbered() {
		return nil
	}
	var subs []heading.Heading
	for _, cand := range s.extractor.Extract(span) {
		if cand.IsChildOf(h.Number()) {
			subs = append(subs, cand)
		}
	}
	return subs
}

// splitBySubHeadings slices the span at each sub-heading boundary. Content
// before the first sub-heading (the section heading line plus any lead-in
// text) becomes the group's first sub-chunk. Every sub-chunk records the
// section's number as its parent heading. A sub-heading piece that still
// exceeds maxChunkSize is paragraph-split in place so the pre-merge size
// bound holds.
func (s *Splitter) splitBySubHeadings(
	span, sourceDocument string, pageNumber *int,
	h heading.Heading, subs []heading.Heading,
) []chunk.Chunk {
	heading.SortByOffset(subs)

	var group []chunk.Chunk

	if lead := span[:subs[0].StartOffset()]; strings.TrimSpace(lead) != "" {
		leadMeta := &chunk.HeadingMeta{
			Text:   h.Text(),
			Level:  h.Level(),
			Number: h.Number(),
			Parent: h.Number(),
		}
		group = s.appendPiece(group, lead, sourceDocument, pageNumber, leadMeta)
	}

	for i, sub := range subs {
		end := len(span)
		if i+1 < len(subs) {
			end = subs[i+1].StartOffset()
		}
		piece := span[sub.StartOffset():end]
		if strings.TrimSpace(piece) == "" {
			continue
		}
		subMeta := &chunk.HeadingMeta{
			Text:   sub.Text(),
			Level:  sub.Level(),
			Number: sub.Number(),
			Parent: h.Number(),
		}
		group = s.appendPiece(group, piece, sourceDocument, pageNumber, subMeta)
	}

	return finishGroup(group)
}

// appendPiece adds one sub-heading piece to the group, paragraph-splitting it
// when it is itself oversized. Sub-chunk indexes continue across the group.
func (s *Splitter) appendPiece(
	group []chunk.Chunk, piece, sourceDocument string, pageNumber *int,
	meta *chunk.HeadingMeta,
) []chunk.Chunk {
	if utf8.RuneCountInString(strings.TrimSpace(piece)) <= s.maxChunkSize {
		c := chunk.New(piece, sourceDocument, pageNumber, chunk.TypeHeading, meta).
			AsSubChunk(len(group))
		return append(group, c)
	}
	return append(group, s.splitByParagraphs(piece, sourceDocument, pageNumber, meta, len(group))...)
}

// splitByParagraphs splits a span on blank-line separators and greedily packs
// paragraphs into buffers bounded by targetChunkSize. A paragraph is atomic:
// one that alone exceeds the target is emitted as its own chunk rather than
// split mid-paragraph. The final non-empty buffer is always flushed.
func (s *Splitter) splitByParagraphs(
	span, sourceDocument string, pageNumber *int,
	meta *chunk.HeadingMeta, startIndex int,
) []chunk.Chunk {
	var group []chunk.Chunk
	var buf strings.Builder

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		c := chunk.New(buf.String(), sourceDocument, pageNumber, chunk.TypeHeading, meta).
			AsSubChunk(startIndex + len(group))
		if !c.IsEmpty() {
			group = append(group, c)
		}
		buf.Reset()
	}

	for _, para := range splitParagraphs(span) {
		if buf.Len() > 0 {
			joined := utf8.RuneCountInString(buf.String()) + len(chunk.Separator) + utf8.RuneCountInString(para)
			if joined > s.targetChunkSize {
				flush()
			}
		}
		if buf.Len() > 0 {
			buf.WriteString(chunk.Separator)
		}
		buf.WriteString(para)
	}
	flush()

	return group
}

// chunkWithoutHeadings is the paragraph fallback for documents with no
// recognizable headings: same greedy accumulation, but plain content chunks
// without heading metadata.
func (s *Splitter) chunkWithoutHeadings(
	text, sourceDocument string, pageNumber *int,
) []chunk.Chunk {
	var chunks []chunk.Chunk
	var buf strings.Builder

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		c := chunk.New(buf.String(), sourceDocument, pageNumber, chunk.TypeContent, nil)
		if !c.IsEmpty() {
			chunks = append(chunks, c)
		}
		buf.Reset()
	}

	for _, para := range splitParagraphs(text) {
		if buf.Len() > 0 {
			joined := utf8.RuneCountInString(buf.String()) + len(chunk.Separator) + utf8.RuneCountInString(para)
			if joined > s.targetChunkSize {
				flush()
			}
		}
		if buf.Len() > 0 {
			buf.WriteString(chunk.Separator)
		}
		buf.WriteString(para)
	}
	flush()

	return renumber(chunks)
}

// splitParagraphs returns the trimmed non-empty paragraphs of a span.
func splitParagraphs(span string) []string {
	var paras []string
	for _, p := range strings.Split(span, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// finishGroup stamps the final sibling count on every sub-chunk of a group.
func finishGroup(group []chunk.Chunk) []chunk.Chunk {
	for i := range group {
		group[i] = group[i].WithTotalSubChunks(len(group))
	}
	return group
}

// renumber assigns sequential chunk indexes over the full list.
func renumber(chunks []chunk.Chunk) []chunk.Chunk {
	for i := range chunks {
		chunks[i] = chunks[i].WithIndex(i)
	}
	return chunks
}

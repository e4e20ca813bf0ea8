package heading

import (
	"sort"
	"strings"
)

// LevelUnnumbered is the sentinel level for stylistic headings without a dotted
// number (roman numerals, lettered markers, uppercase lines). It always ranks
// below any numbered heading level.
const LevelUnnumbered = 99

// Heading is a detected structural marker in document text (immutable value object).
type Heading struct {
	level       int
	number      string
	text        string
	startOffset int
}

// New creates a numbered heading. Level is the dotted-label depth (1-4),
// number the dotted label ("7.3.1"), startOffset the byte offset of the
// heading line in the source text.
func New(level int, number, text string, startOffset int) Heading {
	return Heading{level: level, number: number, text: text, startOffset: startOffset}
}

// NewUnnumbered creates a stylistic heading at the sentinel level.
func NewUnnumbered(text string, startOffset int) Heading {
	return Heading{level: LevelUnnumbered, text: text, startOffset: startOffset}
}

// Level returns the hierarchical rank (1 = top numbered level).
func (h Heading) Level() int { return h.level }

// Number returns the dotted numeric label, or "" for unnumbered headings.
func (h Heading) Number() string { return h.number }

// Text returns the heading title text.
func (h Heading) Text() string { return h.text }

// StartOffset returns the byte offset of the heading line in the source text.
func (h Heading) StartOffset() int { return h.startOffset }

// IsNumbered reports whether the heading carries a dotted numeric label.
func (h Heading) IsNumbered() bool { return h.number != "" }

// ParentNumber returns the dotted label with its last segment removed
// ("7.3.1" -> "7.3"), or "" when the label has no dot or the heading is
// unnumbered.
func (h Heading) ParentNumber() string {
	idx := strings.LastIndex(h.number, ".")
	if idx < 0 {
		return ""
	}
	return h.number[:idx]
}

// IsChildOf reports whether the heading's number nests directly or
// transitively under the given parent number ("7.3.1" is a child of "7").
func (h Heading) IsChildOf(parentNumber string) bool {
	if parentNumber == "" || h.number == "" {
		return false
	}
	return strings.HasPrefix(h.number, parentNumber+".")
}

// SortByOffset orders headings by ascending start offset in place.
// Callers re-sort before slicing sections; the sort is stable so headings
// sharing an offset keep their extraction order.
func SortByOffset(hs []Heading) {
	sort.SliceStable(hs, func(i, j int) bool {
		return hs[i].startOffset < hs[j].startOffset
	})
}

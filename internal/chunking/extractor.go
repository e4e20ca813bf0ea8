package chunking

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/campusmind-ai/campusmind/internal/domain/heading"
)

// Numbered section patterns in increasing depth: "1.", "1.2.", "1.2.3.", "1.2.3.4.".
// Depth maps directly to heading level. The mandatory whitespace after the
// trailing dot keeps "1. Intro" from swallowing "1.1. Details".
var numberedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\d+)\.\s+(.+)$`),
	regexp.MustCompile(`^(\d+\.\d+)\.\s+(.+)$`),
	regexp.MustCompile(`^(\d+\.\d+\.\d+)\.\s+(.+)$`),
	regexp.MustCompile(`^(\d+\.\d+\.\d+\.\d+)\.\s+(.+)$`),
}

// Secondary stylistic patterns, tried only when no numbered pattern matches.
var (
	romanPattern   = regexp.MustCompile(`^([IVXLCDM]+)\.\s+(.+)$`)
	letterPattern  = regexp.MustCompile(`^([A-Z])\.\s+(.+)$`)
	bulletColonPat = regexp.MustCompile(`^[-•*+]\s*(.+):$`)
)

// Extractor locates structural headings in raw document text.
type Extractor struct{}

// NewExtractor creates a heading extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract scans the text line by line and returns detected headings in line
// order, which is already ascending by start offset. Blank lines are skipped
// and each line matches at most one pattern (numbered patterns win over
// stylistic ones). An empty result means the caller should fall back to
// paragraph chunking.
func (e *Extractor) Extract(text string) []heading.Heading {
	var headings []heading.Heading

	offset := 0
	for _, line := range strings.Split(text, "\n") {
		lineStart := offset
		offset += len(line) + 1 // account for the newline separator

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if h, ok := matchLine(trimmed, lineStart); ok {
			headings = append(headings, h)
		}
	}

	return headings
}

func matchLine(line string, startOffset int) (heading.Heading, bool) {
	for depth, pat := range numberedPatterns {
		if m := pat.FindStringSubmatch(line); m != nil {
			return heading.New(depth+1, m[1], strings.TrimSpace(m[2]), startOffset), true
		}
	}

	if m := romanPattern.FindStringSubmatch(line); m != nil {
		return heading.NewUnnumbered(strings.TrimSpace(m[2]), startOffset), true
	}
	if m := letterPattern.FindStringSubmatch(line); m != nil {
		return heading.NewUnnumbered(strings.TrimSpace(m[2]), startOffset), true
	}
	if m := bulletColonPat.FindStringSubmatch(line); m != nil {
		return heading.NewUnnumbered(strings.TrimSpace(m[1]), startOffset), true
	}
	if isUppercaseLine(line) {
		return heading.NewUnnumbered(line, startOffset), true
	}

	return heading.Heading{}, false
}

// isUppercaseLine reports whether the line is an all-uppercase title.
// Works for Vietnamese letters (Đ, Ư, Ế, ...) via the unicode tables;
// digits and punctuation are allowed, lowercase letters are not.
// At least two letters are required so bare numbers and initials don't match.
func isUppercaseLine(line string) bool {
	letters := 0
	for _, r := range line {
		if !unicode.IsLetter(r) {
			continue
		}
		if !unicode.IsUpper(r) {
			return false
		}
		letters++
	}
	return letters >= 2
}

// Package answer generates grounded responses: retrieved chunks become the
// only context the model may answer from, with numbered source citations.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/campusmind-ai/campusmind/internal/usecase/retrieval"
)

const systemPrompt = `You are an admissions assistant. Answer the question using ONLY the numbered context passages below. Cite passages by their number, e.g. [1]. If the context does not contain the answer, say you do not have that information. Answer in the language of the question.`

// noInformationAnswer is returned without calling the model when retrieval
// finds nothing: an ungrounded generation would be a hallucination by
// construction.
const noInformationAnswer = "I could not find any information relevant to your question in the indexed documents."

// Source is one citation backing an answer.
type Source struct {
	ID             string
	SourceDocument string
	HeadingText    string
	PageNumber     *int
	Score          float64
	Excerpt        string
}

// Answer is a generated response with its supporting sources.
type Answer struct {
	Text    string
	Sources []Source
}

// Service generates grounded answers.
type Service struct {
	retriever Retriever
	llm       LLM
	logger    *zap.Logger
}

// New creates an answer service.
func New(retriever Retriever, llm LLM, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{retriever: retriever, llm: llm, logger: logger}
}

// Ask retrieves context for the question and generates a cited answer.
// topK <= 0 uses the retriever's configured default.
func (s *Service) Ask(ctx context.Context, question string, topK int) (Answer, error) {
	results, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve context: %w", err)
	}

	if len(results) == 0 {
		s.logger.Info("No context retrieved, returning canned answer")
		return Answer{Text: noInformationAnswer}, nil
	}

	text, err := s.llm.Complete(ctx, systemPrompt, buildUserPrompt(question, results))
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	return Answer{Text: text, Sources: toSources(results)}, nil
}

// buildUserPrompt renders numbered context passages followed by the question.
func buildUserPrompt(question string, results []retrieval.Result) string {
	var b strings.Builder
	b.WriteString("Context:\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] (%s", i+1, r.Chunk.SourceDocument())
		if heading := r.Chunk.HeadingText(); heading != "" {
			fmt.Fprintf(&b, ", %s", heading)
		}
		b.WriteString(")\n")
		b.WriteString(r.Chunk.Content())
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

func toSources(results []retrieval.Result) []Source {
	sources := make([]Source, 0, len(results))
	for _, r := range results {
		sources = append(sources, Source{
			ID:             r.ID,
			SourceDocument: r.Chunk.SourceDocument(),
			HeadingText:    r.Chunk.HeadingText(),
			PageNumber:     r.Chunk.PageNumber(),
			Score:          r.Score,
			Excerpt:        excerpt(r.Chunk.Content(), 200),
		})
	}
	return sources
}

// excerpt truncates content to at most n runes for display.
func excerpt(content string, n int) string {
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n]) + "…"
}

package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/campusmind-ai/campusmind/internal/domain"
	"github.com/campusmind-ai/campusmind/internal/domain/chunk"
	"github.com/campusmind-ai/campusmind/internal/usecase/retrieval"
)

// --- Mocks ---

type mockRetriever struct {
	results []retrieval.Result
	err     error
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, _ int) ([]retrieval.Result, error) {
	return m.results, m.err
}

type mockLLM struct {
	calls      int
	lastSystem string
	lastUser   string
	reply      string
	err        error
}

func (m *mockLLM) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	m.calls++
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func result(id, content, source, heading string, score float64) retrieval.Result {
	var meta *chunk.HeadingMeta
	chunkType := chunk.TypeContent
	if heading != "" {
		meta = &chunk.HeadingMeta{Text: heading, Level: 1, Number: "1"}
		chunkType = chunk.TypeHeading
	}
	return retrieval.Result{
		ID:    id,
		Chunk: chunk.New(content, source, nil, chunkType, meta),
		Score: score,
	}
}

// --- Tests ---

func TestAsk(t *testing.T) {
	retriever := &mockRetriever{results: []retrieval.Result{
		result("c1", "Tuition is 25 million VND per year.", "tuyen-sinh-2026.pdf", "TUITION AND FEES", 1.2),
		result("c2", "Scholarships cover up to 100% of tuition.", "tuyen-sinh-2026.pdf", "", 0.8),
	}}
	llm := &mockLLM{reply: "Tuition is 25 million VND per year [1]."}
	svc := New(retriever, llm, zap.NewNop())

	answer, err := svc.Ask(context.Background(), "How much is tuition?", 0)
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if answer.Text != llm.reply {
		t.Errorf("Text = %q, want model reply", answer.Text)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(answer.Sources))
	}
	if answer.Sources[0].ID != "c1" || answer.Sources[0].HeadingText != "TUITION AND FEES" {
		t.Errorf("source[0] = %+v", answer.Sources[0])
	}
	if answer.Sources[1].Score != 0.8 {
		t.Errorf("source[1].Score = %f, want 0.8", answer.Sources[1].Score)
	}
}

func TestAsk_PromptContainsNumberedContext(t *testing.T) {
	retriever := &mockRetriever{results: []retrieval.Result{
		result("c1", "First passage.", "a.pdf", "ADMISSIONS", 1.0),
		result("c2", "Second passage.", "b.pdf", "", 0.5),
	}}
	llm := &mockLLM{reply: "ok"}
	svc := New(retriever, llm, zap.NewNop())

	question := "Học phí bao nhiêu?"
	if _, err := svc.Ask(context.Background(), question, 0); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	for _, want := range []string{
		"[1] (a.pdf, ADMISSIONS)",
		"First passage.",
		"[2] (b.pdf)",
		"Second passage.",
		"Question: " + question,
	} {
		if !strings.Contains(llm.lastUser, want) {
			t.Errorf("user prompt missing %q:\n%s", want, llm.lastUser)
		}
	}
	if !strings.Contains(llm.lastSystem, "ONLY") {
		t.Errorf("system prompt does not pin the model to the context:\n%s", llm.lastSystem)
	}
}

func TestAsk_NoContextSkipsModel(t *testing.T) {
	llm := &mockLLM{reply: "should never be used"}
	svc := New(&mockRetriever{}, llm, zap.NewNop())

	answer, err := svc.Ask(context.Background(), "unanswerable", 0)
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if llm.calls != 0 {
		t.Errorf("model called %d times with no context, want 0", llm.calls)
	}
	if answer.Text != noInformationAnswer {
		t.Errorf("Text = %q, want canned no-information answer", answer.Text)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(answer.Sources))
	}
}

func TestAsk_RetrieverErrorPropagates(t *testing.T) {
	svc := New(&mockRetriever{err: domain.ErrEmptyQuery}, &mockLLM{}, zap.NewNop())

	_, err := svc.Ask(context.Background(), "", 0)
	if !errors.Is(err, domain.ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestAsk_LLMErrorPropagates(t *testing.T) {
	retriever := &mockRetriever{results: []retrieval.Result{
		result("c1", "content", "a.pdf", "", 1.0),
	}}
	svc := New(retriever, &mockLLM{err: domain.ErrLLMProviderError}, zap.NewNop())

	_, err := svc.Ask(context.Background(), "question", 0)
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestExcerpt(t *testing.T) {
	if got := excerpt("short", 200); got != "short" {
		t.Errorf("excerpt(short) = %q", got)
	}

	long := strings.Repeat("ố", 250)
	got := excerpt(long, 200)
	if runes := []rune(got); len(runes) != 201 || runes[200] != '…' {
		t.Errorf("long excerpt = %d runes ending %q", len([]rune(got)), got[len(got)-3:])
	}
}

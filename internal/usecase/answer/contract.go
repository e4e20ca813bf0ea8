package answer

import (
	"context"

	"github.com/campusmind-ai/campusmind/internal/usecase/retrieval"
)

// Retriever fetches the chunks relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]retrieval.Result, error)
}

// LLM generates a completion from a system and user prompt.
type LLM interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

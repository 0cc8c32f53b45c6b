package domain

import "context"

// Prompt is one chat completion input.
type Prompt struct {
	System string
	User   string
}

// Completion is the generated answer and its token usage.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Generator produces grounded answers from a prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (Completion, error)
}

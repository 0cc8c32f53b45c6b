// Package answer generates cited answers from retrieved manual excerpts.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/usecase/retrieve"
)

// Question is one chat turn.
type Question struct {
	Tenant   string
	Text     string
	ManualID string
	TopK     int
}

// Result is the generated answer and the candidates it was built from.
type Result struct {
	Answer  string
	Sources []domain.Candidate
}

// Service builds prompts from retrieved excerpts and calls the generator.
type Service struct {
	retriever Retriever
	generator Generator
	fallback  string
	language  string
	logger    *zap.Logger
}

// New creates an answer service.
func New(retriever Retriever, generator Generator, logger *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		generator: generator,
		fallback:  DefaultFallback,
		language:  DefaultLanguage,
		logger:    logger,
	}
}

// WithLanguage sets the answer language and the fallback sentence. Empty values are ignored.
func (s *Service) WithLanguage(language, fallback string) *Service {
	if language != "" {
		s.language = language
	}
	if fallback != "" {
		s.fallback = fallback
	}
	return s
}

// Answer retrieves excerpts for the question and asks the generator for a cited answer.
// Without any excerpt the generator is skipped and the fallback sentence returned.
func (s *Service) Answer(ctx context.Context, q Question) (Result, error) {
	if strings.TrimSpace(q.Text) == "" {
		return Result{}, fmt.Errorf("%w: question is required", domain.ErrInvalidRequest)
	}

	candidates, err := s.retriever.Retrieve(ctx, retrieve.Query{
		Tenant:   q.Tenant,
		Question: q.Text,
		TopK:     q.TopK,
		ManualID: q.ManualID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}

	if len(candidates) == 0 {
		s.logger.Debug("No excerpts found, returning fallback",
			zap.String("tenant", q.Tenant),
			zap.String("manual_id", q.ManualID),
		)
		return Result{Answer: s.fallback, Sources: []domain.Candidate{}}, nil
	}

	completion, err := s.generator.Generate(ctx, domain.Prompt{
		System: systemPrompt(s.fallback, s.language),
		User:   userPrompt(q.Text, candidates),
	})
	if err != nil {
		return Result{}, fmt.Errorf("generate: %w", err)
	}

	text := strings.TrimSpace(completion.Text)
	if text == "" {
		text = s.fallback
	}

	s.logger.Debug("Generated answer",
		zap.String("tenant", q.Tenant),
		zap.Int("sources", len(candidates)),
		zap.Int("prompt_tokens", completion.PromptTokens),
		zap.Int("completion_tokens", completion.CompletionTokens),
	)

	return Result{Answer: text, Sources: candidates}, nil
}

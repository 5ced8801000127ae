package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cloo-solutions/resumeqa/internal/domain"
	"github.com/cloo-solutions/resumeqa/internal/telemetry"
)

// PromptTemplate restricts the generator to the retrieved resumes.
const PromptTemplate = "You are an expert Technical Recruiter. Answer the question based ONLY on the following resumes.\n\n" +
	"RESUMES:\n{context}\n\n" +
	"QUESTION: {question}\n\n" +
	"ANSWER:"

// ContextSeparator joins retrieved fragments into the context block.
const ContextSeparator = "\n\n"

// AnswerGenerator produces text from a prompt
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

// FragmentRetriever returns the top k fragment texts for a query
type FragmentRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

type AnswerConfig struct {
	TopK                 int
	Temperature          float32
	MaxRetries           int
	RetryInitialInterval time.Duration
}

func DefaultAnswerConfig() AnswerConfig {
	return AnswerConfig{
		TopK:                 5,
		Temperature:          0.2,
		MaxRetries:           2,
		RetryInitialInterval: 500 * time.Millisecond,
	}
}

// AnswerService answers a question from retrieved resume fragments. It holds
// no per-question state.
type AnswerService struct {
	cfg       AnswerConfig
	retriever FragmentRetriever
	generator AnswerGenerator
	logger    *slog.Logger
}

func NewAnswerService(cfg AnswerConfig, retriever FragmentRetriever, generator AnswerGenerator, logger *slog.Logger) *AnswerService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultAnswerConfig().TopK
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = DefaultAnswerConfig().RetryInitialInterval
	}
	return &AnswerService{
		cfg:       cfg,
		retriever: retriever,
		generator: generator,
		logger:    logger,
	}
}

// BuildPrompt binds context and question into PromptTemplate. Placeholders
// inside the substituted values are left untouched.
func BuildPrompt(contextBlock, question string) string {
	return strings.NewReplacer("{context}", contextBlock, "{question}", question).Replace(PromptTemplate)
}

// Answer returns the generator's raw text for question. An empty or blank
// question fails with domain.ErrEmptyQuestion before any provider call.
func (s *AnswerService) Answer(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", domain.ErrEmptyQuestion
	}

	ctx, span := telemetry.StartSpan(ctx, "AnswerService.Answer", telemetry.SpanAttributes{
		Operation: "answer",
	})
	defer span.End()

	texts, err := s.retriever.Retrieve(ctx, question, s.cfg.TopK)
	if err != nil {
		span.SetError(err)
		return "", err
	}

	prompt := BuildPrompt(strings.Join(texts, ContextSeparator), question)

	answer, err := s.generate(ctx, prompt)
	if err != nil {
		span.SetError(err)
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	s.logger.Debug("answered question",
		slog.Int("fragments", len(texts)),
		slog.Int("prompt_length", len(prompt)),
		slog.Int("answer_length", len(answer)))

	return answer, nil
}

// generate retries transient failures with exponential backoff. Rate limits
// and other errors are returned on first occurrence.
func (s *AnswerService) generate(ctx context.Context, prompt string) (string, error) {
	attempt := 0
	op := func() (string, error) {
		attempt++
		out, err := s.generator.Generate(ctx, prompt, s.cfg.Temperature)
		if err == nil {
			return out, nil
		}
		if !domain.IsTransient(err) {
			return "", backoff.Permanent(err)
		}
		s.logger.Warn("transient generation failure",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		return "", err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryInitialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.MaxRetries)), ctx)

	return backoff.RetryWithData(op, policy)
}

package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/resumeqa/internal/domain"
)

// ChatAPI defines the interface for chat completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Generator produces answers from an assembled prompt.
type Generator struct {
	api   ChatAPI
	model string
}

// NewGenerator creates a Generator backed by the chat completions endpoint.
func NewGenerator(cfg Config) *Generator {
	return NewGeneratorWithAPI(NewSDKClient(cfg), cfg.ChatModel)
}

// NewGeneratorWithAPI creates a Generator over an explicit ChatAPI.
func NewGeneratorWithAPI(api ChatAPI, model string) *Generator {
	if model == "" {
		model = DefaultChatModel
	}
	return &Generator{api: api, model: model}
}

// Generate sends prompt as a single user message and returns the first
// choice's content unmodified.
func (g *Generator) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	if prompt == "" {
		return "", ErrEmptyText
	}

	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", classifyError("generate", fmt.Errorf("failed to create completion: %w", err))
	}

	if len(resp.Choices) == 0 {
		return "", domain.NewProviderError("generate", errors.New(domain.ErrNoCompletion.Message))
	}

	return resp.Choices[0].Message.Content, nil
}

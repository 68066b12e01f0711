package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const systemInstruction = "You are a medical triage assistant. Provide accurate, safety-focused responses."

// OpenAIConfig describes one OpenAI-compatible chat-completion endpoint.
// Groq and several other hosts expose the same wire protocol, so primary and
// fallback providers are both built from this.
type OpenAIConfig struct {
	Name           string
	APIKey         string
	BaseURL        string
	Model          string
	RequestTimeout time.Duration
}

// OpenAIProvider generates analyses through an OpenAI-compatible API.
type OpenAIProvider struct {
	name    string
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("reasoning provider API key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("reasoning provider model is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &OpenAIProvider{
		name:    name,
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: timeout,
	}, nil
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts GenerationOptions) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.name)
	}
	return resp.Choices[0].Message.Content, nil
}

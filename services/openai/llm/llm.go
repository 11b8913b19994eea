// Package llm implements the generation adapter on the OpenAI chat API.
// The model is chosen per call so one service instance can serve the whole
// fallback chain.
package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/Srahin000/bumblebee-smart-speaker/core"
)

// Config holds the configuration for the chat generation service.
type Config struct {
	APIKey      string  `json:"-"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   256,
		Temperature: 0.7,
	}
}

// ChatService implements core.Generator using OpenAI chat completions.
type ChatService struct {
	client *openai.Client
	config Config

	mu            sync.RWMutex
	isInitialized bool
}

// NewChatService creates a new instance of ChatService.
func NewChatService(config Config) *ChatService {
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultConfig().MaxTokens
	}
	return &ChatService{config: config}
}

// Init validates the configuration and creates the API client.
func (s *ChatService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.APIKey == "" {
		return fmt.Errorf("llm: OpenAI API key is required")
	}
	s.client = openai.NewClient(s.config.APIKey)
	s.isInitialized = true
	return nil
}

// Generate runs one non-streaming completion for prompt against model.
// An empty completion is returned as-is; the fallback loop treats it as a
// failed candidate.
func (s *ChatService) Generate(ctx context.Context, model core.ModelID, prompt string) (string, error) {
	s.mu.RLock()
	initialized := s.isInitialized
	s.mu.RUnlock()
	if !initialized {
		return "", fmt.Errorf("llm: service not initialized")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: string(model),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm: completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Cleanup releases the API client.
func (s *ChatService) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
	s.isInitialized = false
	return nil
}

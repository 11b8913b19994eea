// Package tts implements the synthesis adapter on the OpenAI speech API.
package tts

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/Srahin000/bumblebee-smart-speaker/speech"
)

// Config holds the configuration for the speech synthesis service.
type Config struct {
	APIKey string `json:"-"`
	Model  string `json:"model"`
	Voice  string `json:"voice"`
	// PaceMarkup, when true, sends sentence/pause markup instead of plain
	// text. Leave off for engines that read markup tags aloud.
	PaceMarkup bool `json:"pace_markup,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model: string(openai.TTSModel1),
		Voice: string(openai.VoiceNova),
	}
}

// SpeechService implements core.Synthesizer using OpenAI text-to-speech.
type SpeechService struct {
	client *openai.Client
	config Config

	mu            sync.RWMutex
	isInitialized bool
}

// NewSpeechService creates a new instance of SpeechService.
func NewSpeechService(config Config) *SpeechService {
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}
	if config.Voice == "" {
		config.Voice = DefaultConfig().Voice
	}
	return &SpeechService{config: config}
}

// Init validates the configuration and creates the API client.
func (s *SpeechService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.APIKey == "" {
		return fmt.Errorf("tts: OpenAI API key is required")
	}
	s.client = openai.NewClient(s.config.APIKey)
	s.isInitialized = true
	return nil
}

// Synthesize converts response text into WAV audio bytes. Text is
// normalized first so markdown leftovers are never read aloud.
func (s *SpeechService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	s.mu.RLock()
	initialized := s.isInitialized
	s.mu.RUnlock()
	if !initialized {
		return nil, fmt.Errorf("tts: service not initialized")
	}

	input := speech.Normalize(text)
	if s.config.PaceMarkup {
		input = speech.Markup(text, speech.DefaultPause)
	}
	if input == "" {
		return nil, fmt.Errorf("tts: nothing to synthesize")
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.config.Model),
		Input:          input,
		Voice:          openai.SpeechVoice(s.config.Voice),
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		return nil, fmt.Errorf("tts: speech request: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("tts: read speech response: %w", err)
	}
	return data, nil
}

// Cleanup releases the API client.
func (s *SpeechService) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
	s.isInitialized = false
	return nil
}

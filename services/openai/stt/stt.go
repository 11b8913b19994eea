// Package stt implements the transcription adapter on the OpenAI Whisper API.
package stt

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/Srahin000/bumblebee-smart-speaker/utils/audio"
)

// Config holds the configuration for the Whisper transcription service.
type Config struct {
	APIKey string `json:"-"`
	// Model is the transcription model name.
	Model string `json:"model"`
	// Language hints the spoken language (ISO-639-1). Empty lets the model decide.
	Language string `json:"language,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model: openai.Whisper1,
	}
}

// WhisperService implements core.Transcriber using OpenAI Whisper.
type WhisperService struct {
	client *openai.Client
	config Config

	mu            sync.RWMutex
	isInitialized bool
}

// NewWhisperService creates a new instance of WhisperService.
func NewWhisperService(config Config) *WhisperService {
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}
	return &WhisperService{config: config}
}

// Init validates the configuration and creates the API client.
func (s *WhisperService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.APIKey == "" {
		return fmt.Errorf("stt: OpenAI API key is required")
	}
	s.client = openai.NewClient(s.config.APIKey)
	s.isInitialized = true
	return nil
}

// Transcribe converts one utterance of audio to text. Raw PCM input is
// wrapped in a WAV container before upload; input that already carries a
// RIFF header is sent as-is. An empty transcription is a normal "no speech"
// result, not an error.
func (s *WhisperService) Transcribe(ctx context.Context, audioBytes []byte, sampleRate int) (string, error) {
	s.mu.RLock()
	initialized := s.isInitialized
	s.mu.RUnlock()
	if !initialized {
		return "", fmt.Errorf("stt: service not initialized")
	}

	wav := audioBytes
	if !bytes.HasPrefix(audioBytes, []byte("RIFF")) {
		var err error
		wav, err = audio.PCMToWAV(audioBytes, 1, sampleRate)
		if err != nil {
			return "", fmt.Errorf("stt: wrap pcm: %w", err)
		}
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.config.Model,
		Reader:   bytes.NewReader(wav),
		FilePath: "utterance.wav",
		Language: s.config.Language,
	})
	if err != nil {
		return "", fmt.Errorf("stt: transcription request: %w", err)
	}
	return resp.Text, nil
}

// Cleanup releases the API client.
func (s *WhisperService) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
	s.isInitialized = false
	return nil
}

// Package factories loads settings and assembles the application from its
// parts: speech services, session store, pipeline, persistence, analysis,
// and the HTTP server.
package factories

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Srahin000/bumblebee-smart-speaker/analysis"
	"github.com/Srahin000/bumblebee-smart-speaker/pipeline"
	"github.com/Srahin000/bumblebee-smart-speaker/server"
	"github.com/Srahin000/bumblebee-smart-speaker/services/openai/llm"
	"github.com/Srahin000/bumblebee-smart-speaker/services/openai/stt"
	"github.com/Srahin000/bumblebee-smart-speaker/services/openai/tts"
	"github.com/Srahin000/bumblebee-smart-speaker/session"
	"github.com/Srahin000/bumblebee-smart-speaker/storage/local"
)

// SessionSettings is the JSON form of the session store configuration.
type SessionSettings struct {
	// MaxHistory is the maximum number of exchanges kept per session.
	MaxHistory int `json:"max_history"`
	// TTLSeconds is how long a session may stay idle before eviction.
	TTLSeconds int `json:"ttl_seconds"`
	// SweepSchedule is a cron expression for the eviction sweep.
	SweepSchedule string `json:"sweep_schedule"`
}

// StoreConfig converts the JSON form into a session.Config.
func (s SessionSettings) StoreConfig() session.Config {
	return session.Config{
		MaxHistory: s.MaxHistory,
		TTL:        time.Duration(s.TTLSeconds) * time.Second,
	}
}

// SettingsConfig is the top-level config loaded from settings.json.
type SettingsConfig struct {
	STT      stt.Config      `json:"stt"`
	LLM      llm.Config      `json:"llm"`
	TTS      tts.Config      `json:"tts"`
	Pipeline pipeline.Config `json:"pipeline"`
	Session  SessionSettings `json:"session"`
	Storage  local.Config    `json:"storage"`
	Analysis analysis.Config `json:"analysis"`
	Server   server.Config   `json:"server"`
	// RecordsPath is the sqlite database file for structured records. Empty
	// disables structured persistence and the analysis routes.
	RecordsPath string `json:"records_path"`
}

// DefaultSettingsConfig returns a SettingsConfig pre-filled with component
// defaults.
func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		STT:      stt.DefaultConfig(),
		LLM:      llm.DefaultConfig(),
		TTS:      tts.DefaultConfig(),
		Pipeline: pipeline.DefaultConfig(),
		Session: SessionSettings{
			MaxHistory:    20,
			TTLSeconds:    1800,
			SweepSchedule: "@every 5m",
		},
		Storage:     local.DefaultConfig(),
		Analysis:    analysis.DefaultConfig(),
		Server:      server.DefaultConfig(),
		RecordsPath: "./records.db",
	}
}

// SettingsConfigFromJSON parses a JSON blob into a SettingsConfig. Fields
// absent from the JSON keep their defaults.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	cfg := DefaultSettingsConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return SettingsConfig{}, fmt.Errorf("settings: %w", err)
	}
	return cfg, nil
}

// SettingsConfigFromFile loads and parses settings from a JSON file.
func SettingsConfigFromFile(path string) (SettingsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SettingsConfig{}, fmt.Errorf("settings: read %s: %w", path, err)
	}
	return SettingsConfigFromJSON(data)
}

// APIKeys holds service credentials injected from the environment, never
// from settings files.
type APIKeys struct {
	OpenAI string
}

// InjectAPIKeys copies credentials into the service configs after loading.
func (c *SettingsConfig) InjectAPIKeys(keys APIKeys) {
	c.STT.APIKey = keys.OpenAI
	c.LLM.APIKey = keys.OpenAI
	c.TTS.APIKey = keys.OpenAI
}

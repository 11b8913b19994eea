// Package local is a filesystem ArtifactStore. Each kind gets its own
// subdirectory; audio artifacts can optionally be archived as µ-law to
// halve their footprint.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Srahin000/bumblebee-smart-speaker/core"
	"github.com/Srahin000/bumblebee-smart-speaker/utils/audio"
)

// Config controls where and how artifacts are written.
type Config struct {
	// Dir is the root artifact directory.
	Dir string `json:"dir"`
	// CompressAudio archives audio artifacts as µ-law instead of PCM/WAV.
	CompressAudio bool `json:"compress_audio"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Dir: "./artifacts",
	}
}

// Store writes artifacts beneath a root directory.
type Store struct {
	config Config
	logger *core.Logger
}

// NewStore creates the root directory and returns the store.
func NewStore(config Config, logger *core.Logger) (*Store, error) {
	if config.Dir == "" {
		config.Dir = DefaultConfig().Dir
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("local store: mkdir %q: %w", config.Dir, err)
	}
	return &Store{
		config: config,
		logger: logger.With(map[string]any{"component": "local-store"}),
	}, nil
}

// Store writes one artifact and returns its path as the locator.
func (s *Store) Store(_ context.Context, kind core.StoreKind, id string, data []byte) (string, error) {
	dir := filepath.Join(s.config.Dir, string(kind))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", core.NewStorageError(fmt.Errorf("local store: mkdir %q: %w", dir, err))
	}

	ext := ".json"
	if kind == core.StoreKindInputAudio || kind == core.StoreKindOutputAudio {
		ext = ".wav"
		if s.config.CompressAudio {
			pcm, err := audio.StripWAVHeader(data)
			if err == nil {
				if ulaw, uerr := audio.PCMToULaw(pcm); uerr == nil {
					data = ulaw
					ext = ".ulaw"
				}
			}
		}
	}

	path := filepath.Join(dir, id+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", core.NewStorageError(fmt.Errorf("local store: write %q: %w", path, err))
	}

	s.logger.With(map[string]any{"kind": string(kind), "path": path, "bytes": len(data)}).Debug("artifact written")
	return path, nil
}

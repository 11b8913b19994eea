package core

import "context"

// ModelID identifies a single generation backend variant. The fallback chain
// is an ordered list of these; ordering is a priority list, not a
// load-balancing policy.
type ModelID string

// Transcriber converts one utterance of audio into text. An empty string with
// a nil error means "no speech detected" and is a normal result, not a
// failure.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, sampleRate int) (string, error)
}

// Generator produces a text completion for a prompt using the given model.
type Generator interface {
	Generate(ctx context.Context, model ModelID, prompt string) (string, error)
}

// Synthesizer converts response text into spoken audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// StoreKind selects the bucket an artifact store write lands in.
type StoreKind string

const (
	StoreKindInputAudio  StoreKind = "input_audio"
	StoreKindOutputAudio StoreKind = "output_audio"
	StoreKindRecord      StoreKind = "record"
)

// ArtifactStore persists one blob or record and returns an opaque locator for
// it. Failures are always treated as non-fatal by callers.
type ArtifactStore interface {
	Store(ctx context.Context, kind StoreKind, id string, data []byte) (string, error)
}

// PhonemeExtractor produces a phonetic (IPA) transcription of an utterance.
// Used only by the pronunciation analysis path.
type PhonemeExtractor interface {
	ExtractPhonemes(ctx context.Context, audio []byte, sampleRate int) (string, error)
}

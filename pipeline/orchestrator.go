// Package pipeline sequences one utterance of audio through transcription,
// context-aware generation with a model fallback chain, speech synthesis,
// and best-effort artifact recording.
package pipeline

import (
	"context"
	"strings"

	"github.com/Srahin000/bumblebee-smart-speaker/artifact"
	"github.com/Srahin000/bumblebee-smart-speaker/core"
	"github.com/Srahin000/bumblebee-smart-speaker/prompt"
	"github.com/Srahin000/bumblebee-smart-speaker/session"
)

// NoSpeechApology is spoken when transcription finds no speech in the audio.
const NoSpeechApology = "Sorry, I didn't catch that. Could you say it again?"

// Config controls one orchestrator instance.
type Config struct {
	// Persona is the instruction text prefixed to every prompt. Empty uses
	// prompt.DefaultPersona.
	Persona string `json:"persona"`
	// ContextWindow is the number of recent exchanges included in a prompt.
	ContextWindow int `json:"context_window"`
	// Candidates is the ordered generation fallback chain.
	Candidates []core.ModelID `json:"candidates"`
	// SampleRate is the sample rate of incoming utterance audio.
	SampleRate int `json:"sample_rate"`
}

// DefaultConfig returns a Config with sensible defaults. Candidates must be
// populated before the orchestrator is built.
func DefaultConfig() Config {
	return Config{
		ContextWindow: 10,
		SampleRate:    16000,
	}
}

// Result is the terminal payload of one completed pipeline run.
type Result struct {
	Transcription      string `json:"transcription"`
	Response           string `json:"response"`
	Audio              []byte `json:"-"`
	SessionID          string `json:"session_id"`
	InputAudioLocator  string `json:"input_audio_locator,omitempty"`
	OutputAudioLocator string `json:"output_audio_locator,omitempty"`
}

// PersonaProvider supplies remembered facts about the speaker for prompt
// personalization.
type PersonaProvider interface {
	PersonaInfo(ctx context.Context) (string, error)
}

// Orchestrator drives the stage sequence for each request. It is safe for
// concurrent use; the session store serializes same-session mutations.
type Orchestrator struct {
	transcriber core.Transcriber
	generator   core.Generator
	synthesizer core.Synthesizer
	recorder    *artifact.Recorder
	sessions    *session.Store
	personas    PersonaProvider
	config      Config
	logger      *core.Logger
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(
	transcriber core.Transcriber,
	generator core.Generator,
	synthesizer core.Synthesizer,
	recorder *artifact.Recorder,
	sessions *session.Store,
	config Config,
	logger *core.Logger,
) *Orchestrator {
	if logger == nil {
		logger = core.GetLogger()
	}
	if config.ContextWindow <= 0 {
		config.ContextWindow = DefaultConfig().ContextWindow
	}
	if config.SampleRate <= 0 {
		config.SampleRate = DefaultConfig().SampleRate
	}
	return &Orchestrator{
		transcriber: transcriber,
		generator:   generator,
		synthesizer: synthesizer,
		recorder:    recorder,
		sessions:    sessions,
		config:      config,
		logger:      logger.With(map[string]any{"component": "pipeline"}),
	}
}

// SetPersonaProvider installs an optional source of speaker facts appended to
// the persona on every prompt. Provider failures fall back to the bare
// persona.
func (o *Orchestrator) SetPersonaProvider(p PersonaProvider) {
	o.personas = p
}

func (o *Orchestrator) persona(ctx context.Context) string {
	if o.personas == nil {
		return o.config.Persona
	}
	info, err := o.personas.PersonaInfo(ctx)
	if err != nil {
		o.logger.With(map[string]any{"error": err}).Warn("persona info unavailable")
		return o.config.Persona
	}
	return prompt.WithProfile(o.config.Persona, info)
}

// Process runs one utterance through the full stage sequence. The only two
// failure modes that reach the caller are transcription and synthesis
// adapter errors; generation and storage failures are absorbed internally.
func (o *Orchestrator) Process(ctx context.Context, audio []byte, sessionID string) (*Result, error) {
	logger := o.logger.With(map[string]any{"session": sessionID})

	// Transcribing
	transcription, err := o.transcriber.Transcribe(ctx, audio, o.config.SampleRate)
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("transcription failed")
		return nil, core.NewTranscriptionError(err)
	}
	transcription = strings.TrimSpace(transcription)

	var response string
	if transcription == "" {
		// NoSpeech: speak a fixed apology, never touch generation or the
		// session history.
		logger.Info("no speech detected, skipping generation")
		response = NoSpeechApology
	} else {
		// Generating
		sess := o.sessions.GetOrCreate(sessionID)
		sessionID = sess.ID

		unlock := o.sessions.Lock(sess.ID)
		history := o.sessions.HistoryOf(sess.ID)
		p := prompt.Build(o.persona(ctx), history, transcription, o.config.ContextWindow)

		response = InvokeFallback(ctx, o.config.Candidates, p, transcription, o.generator.Generate, logger)

		// User first, then assistant; both under the same session lock so a
		// concurrent run on this session cannot interleave its entries.
		if err := o.sessions.Append(sess.ID, session.RoleUser, transcription); err != nil {
			unlock()
			logger.With(map[string]any{"error": err}).Error("session append failed")
			return nil, err
		}
		if err := o.sessions.Append(sess.ID, session.RoleAssistant, response); err != nil {
			unlock()
			logger.With(map[string]any{"error": err}).Error("session append failed")
			return nil, err
		}
		unlock()
	}

	// Synthesizing: a failure here is fatal, there is no audio to return.
	speechAudio, err := o.synthesizer.Synthesize(ctx, response)
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("synthesis failed")
		return nil, core.NewSynthesisError(err)
	}

	// Recording: best-effort, always completes.
	art := o.recorder.Record(ctx, artifact.RecordInput{
		SessionID:     sessionID,
		Transcription: transcription,
		Response:      response,
		InputAudio:    audio,
		OutputAudio:   speechAudio,
	})

	return &Result{
		Transcription:      transcription,
		Response:           response,
		Audio:              speechAudio,
		SessionID:          sessionID,
		InputAudioLocator:  art.InputAudioLocator,
		OutputAudioLocator: art.OutputAudioLocator,
	}, nil
}

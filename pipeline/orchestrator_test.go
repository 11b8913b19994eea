package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srahin000/bumblebee-smart-speaker/artifact"
	"github.com/Srahin000/bumblebee-smart-speaker/core"
	"github.com/Srahin000/bumblebee-smart-speaker/session"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte, int) (string, error) {
	return f.text, f.err
}

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, _ core.ModelID, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeSynthesizer struct {
	audio []byte
	err   error
	texts []string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.texts = append(f.texts, text)
	return f.audio, f.err
}

type memStore struct {
	mu     sync.Mutex
	writes map[core.StoreKind][]byte
	err    error
}

func (m *memStore) Store(_ context.Context, kind core.StoreKind, id string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if m.writes == nil {
		m.writes = make(map[core.StoreKind][]byte)
	}
	m.writes[kind] = data
	return "mem://" + string(kind) + "/" + id, nil
}

type fixture struct {
	transcriber *fakeTranscriber
	generator   *fakeGenerator
	synthesizer *fakeSynthesizer
	store       *memStore
	sessions    *session.Store
	orch        *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		transcriber: &fakeTranscriber{text: "I want to run"},
		generator:   &fakeGenerator{reply: "That's great! Can you say 'run' with me? Run, run, run!"},
		synthesizer: &fakeSynthesizer{audio: []byte("wav-bytes")},
		store:       &memStore{},
		sessions:    session.NewStore(session.Config{MaxHistory: 20, TTL: time.Hour}),
	}
	f.orch = NewOrchestrator(
		f.transcriber, f.generator, f.synthesizer,
		artifact.NewRecorder(f.store, nil),
		f.sessions,
		Config{Candidates: []core.ModelID{"primary", "backup"}, ContextWindow: 5},
		nil,
	)
	return f
}

func TestOrchestrator_HappyPath(t *testing.T) {
	f := newFixture(t)

	result, err := f.orch.Process(context.Background(), []byte("audio"), "")
	require.NoError(t, err)

	assert.Equal(t, "I want to run", result.Transcription)
	assert.Equal(t, "That's great! Can you say 'run' with me? Run, run, run!", result.Response)
	assert.Equal(t, []byte("wav-bytes"), result.Audio)
	assert.NotEmpty(t, result.SessionID)
	assert.NotEmpty(t, result.InputAudioLocator)
	assert.NotEmpty(t, result.OutputAudioLocator)

	history := f.sessions.HistoryOf(result.SessionID)
	require.Len(t, history, 2)
	assert.Equal(t, session.RoleUser, history[0].Role)
	assert.Equal(t, "I want to run", history[0].Content)
	assert.Equal(t, session.RoleAssistant, history[1].Role)
}

func TestOrchestrator_NoSpeechSkipsGeneration(t *testing.T) {
	f := newFixture(t)
	f.transcriber.text = "   "

	result, err := f.orch.Process(context.Background(), []byte("noise"), "existing")
	require.NoError(t, err)

	assert.Equal(t, NoSpeechApology, result.Response)
	assert.Empty(t, result.Transcription)
	// The generator receives zero calls and existing history is untouched.
	assert.Zero(t, f.generator.calls)
	assert.Empty(t, f.sessions.HistoryOf("existing"))
	// The apology is still spoken.
	require.Len(t, f.synthesizer.texts, 1)
	assert.Equal(t, NoSpeechApology, f.synthesizer.texts[0])
}

func TestOrchestrator_TranscriptionFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.transcriber.err = errors.New("auth rejected")

	result, err := f.orch.Process(context.Background(), []byte("audio"), "")
	assert.Nil(t, result)
	assert.True(t, core.IsStage(err, core.StageTranscription))
	assert.Zero(t, f.generator.calls)
}

func TestOrchestrator_SynthesisFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.synthesizer.err = errors.New("tts offline")

	result, err := f.orch.Process(context.Background(), []byte("audio"), "")
	assert.Nil(t, result)
	assert.True(t, core.IsStage(err, core.StageSynthesis))
}

func TestOrchestrator_GenerationFailureIsInvisible(t *testing.T) {
	f := newFixture(t)
	f.generator.err = errors.New("all models down")

	result, err := f.orch.Process(context.Background(), []byte("audio"), "")
	require.NoError(t, err)

	// The caller sees a warm degraded reply embedding the utterance, not an error.
	assert.Contains(t, result.Response, "I want to run")
	assert.Equal(t, DegradedResponse("I want to run"), result.Response)
	// Both candidates were tried.
	assert.Equal(t, 2, f.generator.calls)
}

func TestOrchestrator_StorageOutageDoesNotAlterResult(t *testing.T) {
	f := newFixture(t)
	f.store.err = errors.New("disk full")

	result, err := f.orch.Process(context.Background(), []byte("audio"), "")
	require.NoError(t, err)

	assert.Equal(t, "I want to run", result.Transcription)
	assert.Equal(t, f.generator.reply, result.Response)
	assert.Empty(t, result.InputAudioLocator)
	assert.Empty(t, result.OutputAudioLocator)
}

func TestOrchestrator_SequentialCallsShareHistory(t *testing.T) {
	f := newFixture(t)

	first, err := f.orch.Process(context.Background(), []byte("audio"), "")
	require.NoError(t, err)

	f.transcriber.text = "can we run again?"
	second, err := f.orch.Process(context.Background(), []byte("audio"), first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	history := f.sessions.HistoryOf(first.SessionID)
	require.Len(t, history, 4)
	assert.Equal(t, "I want to run", history[0].Content)
	assert.Equal(t, "can we run again?", history[2].Content)

	// The second prompt carries the first exchange as context.
	require.Len(t, f.generator.prompts, 2)
	assert.Contains(t, f.generator.prompts[1], "User: I want to run")
}

func TestOrchestrator_ConcurrentSameSessionAppendsDoNotInterleave(t *testing.T) {
	f := newFixture(t)
	seed, err := f.orch.Process(context.Background(), []byte("audio"), "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orch.Process(context.Background(), []byte("audio"), seed.SessionID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Every user exchange is immediately followed by its assistant reply.
	history := f.sessions.HistoryOf(seed.SessionID)
	require.True(t, len(history)%2 == 0)
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, session.RoleUser, history[i].Role)
		assert.Equal(t, session.RoleAssistant, history[i+1].Role)
	}
}

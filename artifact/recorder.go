// Package artifact persists the record of one completed pipeline run: the
// input audio, the synthesized reply audio, and a structured transcript
// record. Every write is best-effort; a storage outage never fails a request.
package artifact

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/Srahin000/bumblebee-smart-speaker/core"
)

// ConversationArtifact is the immutable record of one completed pipeline
// run. Locator fields are empty when the corresponding write failed.
type ConversationArtifact struct {
	ID                 string    `json:"id"`
	SessionID          string    `json:"session_id"`
	Timestamp          time.Time `json:"timestamp"`
	Transcription      string    `json:"transcription"`
	Response           string    `json:"response"`
	InputAudioLocator  string    `json:"input_audio_locator,omitempty"`
	OutputAudioLocator string    `json:"output_audio_locator,omitempty"`
}

// RecordInput bundles everything the recorder persists for one run.
type RecordInput struct {
	SessionID     string
	Transcription string
	Response      string
	InputAudio    []byte
	OutputAudio   []byte
}

// Indexer receives each completed artifact for structured storage, alongside
// the raw ArtifactStore writes.
type Indexer interface {
	SaveArtifact(ctx context.Context, art ConversationArtifact) error
}

// Recorder writes artifacts through an ArtifactStore.
type Recorder struct {
	store   core.ArtifactStore
	indexer Indexer
	logger  *core.Logger
	now     func() time.Time
}

// NewRecorder creates a Recorder backed by store.
func NewRecorder(store core.ArtifactStore, logger *core.Logger) *Recorder {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Recorder{
		store:  store,
		logger: logger.With(map[string]any{"component": "artifact"}),
		now:    time.Now,
	}
}

// SetIndexer installs an optional structured index for completed artifacts.
// Index writes are best-effort like every other recorder write.
func (r *Recorder) SetIndexer(indexer Indexer) {
	r.indexer = indexer
}

// Record persists the input audio, output audio, and structured record as
// three independent best-effort writes. A failed write is logged and its
// locator omitted from the returned artifact; Record itself never fails.
func (r *Recorder) Record(ctx context.Context, in RecordInput) ConversationArtifact {
	art := ConversationArtifact{
		ID:            uuid.New().String(),
		SessionID:     in.SessionID,
		Timestamp:     r.now().UTC(),
		Transcription: in.Transcription,
		Response:      in.Response,
	}

	if len(in.InputAudio) > 0 {
		locator, err := r.store.Store(ctx, core.StoreKindInputAudio, art.ID, in.InputAudio)
		if err != nil {
			r.logger.With(map[string]any{"artifact": art.ID, "error": err}).Warn("input audio write failed")
		} else {
			art.InputAudioLocator = locator
		}
	}

	if len(in.OutputAudio) > 0 {
		locator, err := r.store.Store(ctx, core.StoreKindOutputAudio, art.ID, in.OutputAudio)
		if err != nil {
			r.logger.With(map[string]any{"artifact": art.ID, "error": err}).Warn("output audio write failed")
		} else {
			art.OutputAudioLocator = locator
		}
	}

	data, err := sonic.Marshal(art)
	if err == nil {
		_, err = r.store.Store(ctx, core.StoreKindRecord, art.ID, data)
	}
	if err != nil {
		r.logger.With(map[string]any{"artifact": art.ID, "error": err}).Warn("record write failed")
	}

	if r.indexer != nil {
		if err := r.indexer.SaveArtifact(ctx, art); err != nil {
			r.logger.With(map[string]any{"artifact": art.ID, "error": err}).Warn("artifact index write failed")
		}
	}

	return art
}

package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srahin000/bumblebee-smart-speaker/analysis"
	"github.com/Srahin000/bumblebee-smart-speaker/artifact"
	"github.com/Srahin000/bumblebee-smart-speaker/core"
	"github.com/Srahin000/bumblebee-smart-speaker/pipeline"
	"github.com/Srahin000/bumblebee-smart-speaker/protocol"
	"github.com/Srahin000/bumblebee-smart-speaker/session"
	"github.com/Srahin000/bumblebee-smart-speaker/storage/record"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte, int) (string, error) {
	return f.text, f.err
}

type fakeGenerator struct {
	responses map[core.ModelID]string
}

func (f *fakeGenerator) Generate(_ context.Context, model core.ModelID, _ string) (string, error) {
	resp, ok := f.responses[model]
	if !ok {
		return "", fmt.Errorf("unknown model %s", model)
	}
	return resp, nil
}

type fakeSynthesizer struct{}

func (fakeSynthesizer) Synthesize(_ context.Context, _ string) ([]byte, error) {
	return []byte("RIFFwav-bytes"), nil
}

type memArtifactStore struct{}

func (memArtifactStore) Store(_ context.Context, kind core.StoreKind, id string, _ []byte) (string, error) {
	return fmt.Sprintf("mem://%s/%s", kind, id), nil
}

type testEnv struct {
	server   *Server
	sessions *session.Store
}

func newTestEnv(t *testing.T, transcriber core.Transcriber) *testEnv {
	t.Helper()

	sessions := session.NewStore(session.Config{})
	gen := &fakeGenerator{responses: map[core.ModelID]string{
		"chat-model": "Running is great exercise!",
		"scorer":     `{"incorrect": 1, "total": 4}`,
		"profiler":   `{"new_info": ""}`,
	}}
	recorder := artifact.NewRecorder(memArtifactStore{}, nil)
	orchestrator := pipeline.NewOrchestrator(
		transcriber, gen, fakeSynthesizer{}, recorder, sessions,
		pipeline.Config{Candidates: []core.ModelID{"chat-model"}}, nil,
	)

	records, err := record.NewStore(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	analyzer := analysis.NewAnalyzer(nil, gen, records, analysis.Config{
		ScoringModel: "scorer",
		ProfileModel: "profiler",
	}, nil)

	srv := NewServer(orchestrator, sessions, transcriber, analyzer, Config{}, nil)
	return &testEnv{server: srv, sessions: sessions}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := sonic.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, &fakeTranscriber{text: "hi"})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	decodeBody(t, w, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestSpeechRoundTrip(t *testing.T) {
	env := newTestEnv(t, &fakeTranscriber{text: "I want to run"})

	audio := base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4})
	w := postJSON(t, env.server.Handler(), "/api/speech", map[string]string{"audio": audio})

	require.Equal(t, http.StatusOK, w.Code)
	var resp speechResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "I want to run", resp.Transcription)
	assert.Equal(t, "Running is great exercise!", resp.Response)
	assert.NotEmpty(t, resp.SessionID)

	wav, err := base64.StdEncoding.DecodeString(resp.Audio)
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFFwav-bytes"), wav)

	// A second request on the same session lands in its history.
	w = postJSON(t, env.server.Handler(), "/api/speech", map[string]string{
		"audio":      audio,
		"session_id": resp.SessionID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	hw := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(hw, httptest.NewRequest(http.MethodGet, "/api/sessions/"+resp.SessionID+"/history", nil))
	require.Equal(t, http.StatusOK, hw.Code)
	var history struct {
		History []session.Exchange `json:"history"`
	}
	decodeBody(t, hw, &history)
	assert.Len(t, history.History, 4)
}

func TestSpeechRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, &fakeTranscriber{text: "hi"})
	handler := env.server.Handler()

	w := postJSON(t, handler, "/api/speech", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, handler, "/api/speech", map[string]string{"audio": "not base64!!!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSpeechTranscriberOutage(t *testing.T) {
	env := newTestEnv(t, &fakeTranscriber{err: errors.New("engine offline")})

	audio := base64.StdEncoding.EncodeToString([]byte{1, 2})
	w := postJSON(t, env.server.Handler(), "/api/speech", map[string]string{"audio": audio})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, &fakeTranscriber{text: "hi"})
	handler := env.server.Handler()

	w := postJSON(t, handler, "/api/sessions", map[string]string{})
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]string
	decodeBody(t, w, &created)
	require.NotEmpty(t, created["session_id"])

	// Unknown session history is empty, not an error.
	hw := httptest.NewRecorder()
	handler.ServeHTTP(hw, httptest.NewRequest(http.MethodGet, "/api/sessions/unknown/history", nil))
	require.Equal(t, http.StatusOK, hw.Code)
	var history struct {
		History []session.Exchange `json:"history"`
	}
	decodeBody(t, hw, &history)
	assert.Empty(t, history.History)

	// Delete is idempotent.
	for i := 0; i < 2; i++ {
		dw := httptest.NewRecorder()
		handler.ServeHTTP(dw, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+created["session_id"], nil))
		assert.Equal(t, http.StatusNoContent, dw.Code)
	}
}

func TestAnalyzeAndScores(t *testing.T) {
	env := newTestEnv(t, &fakeTranscriber{text: "red rover"})
	handler := env.server.Handler()

	w := postJSON(t, handler, "/api/analyze", map[string]string{"transcript": "red rover"})
	require.Equal(t, http.StatusOK, w.Code)
	var result analysis.Result
	decodeBody(t, w, &result)
	assert.Equal(t, 1, result.Incorrect)
	assert.Equal(t, 4, result.Total)

	sw := httptest.NewRecorder()
	handler.ServeHTTP(sw, httptest.NewRequest(http.MethodGet, "/api/scores", nil))
	require.Equal(t, http.StatusOK, sw.Code)
	var scores struct {
		Scores []record.DailyScore `json:"scores"`
	}
	decodeBody(t, sw, &scores)
	require.Len(t, scores.Scores, 1)
	assert.Equal(t, 4, scores.Scores[0].Total)

	pw := httptest.NewRecorder()
	handler.ServeHTTP(pw, httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	assert.Equal(t, http.StatusOK, pw.Code)
}

func TestAnalyzeTranscribesAudio(t *testing.T) {
	env := newTestEnv(t, &fakeTranscriber{text: "roaring river"})
	audio := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})

	w := postJSON(t, env.server.Handler(), "/api/analyze", map[string]string{"audio": audio})
	require.Equal(t, http.StatusOK, w.Code)
	var result analysis.Result
	decodeBody(t, w, &result)
	assert.Equal(t, "roaring river", result.Transcript)
}

func TestAnalyzeRequiresInput(t *testing.T) {
	env := newTestEnv(t, &fakeTranscriber{text: "hi"})
	w := postJSON(t, env.server.Handler(), "/api/analyze", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSpeechSocket(t *testing.T) {
	env := newTestEnv(t, &fakeTranscriber{text: "I want to run"})
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/speech"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	msg, err := protocol.Marshal(protocol.MsgSpeech, protocol.SpeechPayload{
		Audio: base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4}),
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msgType, _, err := protocol.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgProcessing, msgType)

	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	msgType, raw, err := protocol.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, protocol.MsgSpeechResult, msgType)

	payload, err := protocol.UnmarshalPayload[protocol.SpeechResultPayload](raw)
	require.NoError(t, err)
	assert.Equal(t, "I want to run", payload.Transcription)
	assert.Equal(t, "Running is great exercise!", payload.Response)
	assert.NotEmpty(t, payload.SessionID)
}

func TestSpeechSocketRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t, &fakeTranscriber{text: "hi"})
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/speech"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	msg, err := protocol.Marshal(protocol.MessageType("ping"), nil)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msgType, _, err := protocol.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgError, msgType)
}

package protocol

import (
	"encoding/json"
	"time"
)

// MessageType enumerates all speech-socket message types.
type MessageType string

const (
	// Client -> server
	MsgSpeech MessageType = "speech"

	// Server -> client
	MsgProcessing   MessageType = "processing"
	MsgSpeechResult MessageType = "speech-result"
	MsgError        MessageType = "error"
)

// Envelope is the outer JSON wrapper for all WebSocket messages.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Client -> server payloads ---

// SpeechPayload carries one utterance for processing. Audio is base64-encoded
// 16-bit PCM. SessionID may be empty to start a fresh conversation.
type SpeechPayload struct {
	SessionID string `json:"session_id,omitempty"`
	Audio     string `json:"audio"`
}

// --- Server -> client payloads ---

// ProcessingPayload acknowledges that an utterance entered the pipeline.
type ProcessingPayload struct {
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SpeechResultPayload is the terminal payload of one successful run. Audio is
// base64-encoded WAV.
type SpeechResultPayload struct {
	Transcription      string `json:"transcription"`
	Response           string `json:"response"`
	Audio              string `json:"audio"`
	SessionID          string `json:"session_id"`
	InputAudioLocator  string `json:"input_audio_locator,omitempty"`
	OutputAudioLocator string `json:"output_audio_locator,omitempty"`
}

// ErrorPayload reports a failed run. Stage names the pipeline stage that
// failed when known.
type ErrorPayload struct {
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}

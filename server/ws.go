package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Srahin000/bumblebee-smart-speaker/core"
	"github.com/Srahin000/bumblebee-smart-speaker/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// CORS policy is enforced by the HTTP middleware; the socket accepts
	// whatever origin reached it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// socketWriter serializes writes to one connection.
type socketWriter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *socketWriter) send(msgType protocol.MessageType, payload interface{}) error {
	data, err := protocol.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// handleSpeechSocket serves the streaming variant of the speech endpoint.
// Each speech message is acknowledged with a processing message, then
// answered with exactly one speech-result or error message.
func (s *Server) handleSpeechSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.With(map[string]any{"error": err}).Error("websocket upgrade failed")
		return
	}
	defer conn.Close()

	writer := &socketWriter{conn: conn}
	logger := s.logger.With(map[string]any{"transport": "websocket"})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.With(map[string]any{"error": err}).Debug("websocket closed")
			}
			return
		}

		msgType, raw, err := protocol.Unmarshal(data)
		if err != nil {
			writer.send(protocol.MsgError, protocol.ErrorPayload{Message: "malformed envelope"})
			continue
		}
		if msgType != protocol.MsgSpeech {
			writer.send(protocol.MsgError, protocol.ErrorPayload{Message: "unsupported message type"})
			continue
		}

		payload, err := protocol.UnmarshalPayload[protocol.SpeechPayload](raw)
		if err != nil {
			writer.send(protocol.MsgError, protocol.ErrorPayload{Message: "malformed speech payload"})
			continue
		}
		audio, msg := s.decodeAudio(payload.Audio)
		if msg != "" {
			writer.send(protocol.MsgError, protocol.ErrorPayload{Message: msg})
			continue
		}

		writer.send(protocol.MsgProcessing, protocol.ProcessingPayload{
			SessionID: payload.SessionID,
			Timestamp: time.Now().UTC(),
		})

		result, err := s.orchestrator.Process(c.Request.Context(), audio, payload.SessionID)
		if err != nil {
			logger.With(map[string]any{"error": err}).Error("speech run failed")
			writer.send(protocol.MsgError, protocol.ErrorPayload{
				Stage:   stageName(err),
				Message: err.Error(),
			})
			continue
		}

		writer.send(protocol.MsgSpeechResult, protocol.SpeechResultPayload{
			Transcription:      result.Transcription,
			Response:           result.Response,
			Audio:              base64.StdEncoding.EncodeToString(result.Audio),
			SessionID:          result.SessionID,
			InputAudioLocator:  result.InputAudioLocator,
			OutputAudioLocator: result.OutputAudioLocator,
		})
	}
}

func stageName(err error) string {
	var stage *core.StageError
	if errors.As(err, &stage) {
		return string(stage.Kind)
	}
	return ""
}

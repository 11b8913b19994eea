package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Srahin000/bumblebee-smart-speaker/core"
	"github.com/Srahin000/bumblebee-smart-speaker/session"
)

type speechRequest struct {
	SessionID string `json:"session_id"`
	Audio     string `json:"audio" binding:"required"`
}

type speechResponse struct {
	Transcription      string `json:"transcription"`
	Response           string `json:"response"`
	Audio              string `json:"audio"`
	SessionID          string `json:"session_id"`
	InputAudioLocator  string `json:"input_audio_locator,omitempty"`
	OutputAudioLocator string `json:"output_audio_locator,omitempty"`
}

type analyzeRequest struct {
	Transcript string `json:"transcript"`
	Audio      string `json:"audio"`
}

func errorBody(msg string) gin.H {
	return gin.H{"error": msg}
}

// decodeAudio validates and decodes a base64 audio field.
func (s *Server) decodeAudio(encoded string) ([]byte, string) {
	if strings.TrimSpace(encoded) == "" {
		return nil, "audio is required"
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "audio must be base64"
	}
	if len(audio) > s.config.MaxAudioBytes {
		return nil, "audio exceeds size limit"
	}
	return audio, ""
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"active_sessions": s.sessions.Len(),
	})
}

func (s *Server) handleSpeech(c *gin.Context) {
	var req speechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("audio is required"))
		return
	}
	audio, msg := s.decodeAudio(req.Audio)
	if msg != "" {
		c.JSON(http.StatusBadRequest, errorBody(msg))
		return
	}

	result, err := s.orchestrator.Process(c.Request.Context(), audio, req.SessionID)
	if err != nil {
		s.logger.With(map[string]any{"error": err}).Error("speech request failed")
		c.JSON(statusFor(err), errorBody(err.Error()))
		return
	}

	c.JSON(http.StatusOK, speechResponse{
		Transcription:      result.Transcription,
		Response:           result.Response,
		Audio:              base64.StdEncoding.EncodeToString(result.Audio),
		SessionID:          result.SessionID,
		InputAudioLocator:  result.InputAudioLocator,
		OutputAudioLocator: result.OutputAudioLocator,
	})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess := s.sessions.GetOrCreate("")
	c.JSON(http.StatusCreated, gin.H{"session_id": sess.ID})
}

func (s *Server) handleHistory(c *gin.Context) {
	id := c.Param("id")
	history := s.sessions.HistoryOf(id)
	if history == nil {
		history = []session.Exchange{}
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": id,
		"history":    history,
	})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	s.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAnalyze(c *gin.Context) {
	if s.analyzer == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody("analysis is not configured"))
		return
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("transcript or audio is required"))
		return
	}

	var audio []byte
	if req.Audio != "" {
		var msg string
		audio, msg = s.decodeAudio(req.Audio)
		if msg != "" {
			c.JSON(http.StatusBadRequest, errorBody(msg))
			return
		}
	}

	transcript := strings.TrimSpace(req.Transcript)
	if transcript == "" {
		if len(audio) == 0 || s.transcriber == nil {
			c.JSON(http.StatusBadRequest, errorBody("transcript or audio is required"))
			return
		}
		var err error
		transcript, err = s.transcriber.Transcribe(c.Request.Context(), audio, s.config.SampleRate)
		if err != nil {
			s.logger.With(map[string]any{"error": err}).Error("analyze transcription failed")
			c.JSON(http.StatusBadGateway, errorBody("transcription failed"))
			return
		}
		if strings.TrimSpace(transcript) == "" {
			c.JSON(http.StatusUnprocessableEntity, errorBody("no speech detected"))
			return
		}
	}

	result, err := s.analyzer.Analyze(c.Request.Context(), transcript, audio)
	if err != nil {
		s.logger.With(map[string]any{"error": err}).Error("analysis failed")
		c.JSON(http.StatusBadGateway, errorBody("analysis failed"))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleScores(c *gin.Context) {
	if s.analyzer == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody("analysis is not configured"))
		return
	}
	scores, err := s.analyzer.Scores(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("scores unavailable"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"scores": scores})
}

func (s *Server) handleProfile(c *gin.Context) {
	if s.analyzer == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody("analysis is not configured"))
		return
	}
	profile, err := s.analyzer.Profile(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("profile unavailable"))
		return
	}
	c.JSON(http.StatusOK, profile)
}

// statusFor maps pipeline failures to HTTP statuses. Engine failures are
// upstream problems, everything else is internal.
func statusFor(err error) int {
	var stage *core.StageError
	if errors.As(err, &stage) {
		switch stage.Kind {
		case core.StageTranscription, core.StageSynthesis:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}

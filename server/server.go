// Package server exposes the speech pipeline over HTTP and WebSocket.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Srahin000/bumblebee-smart-speaker/analysis"
	"github.com/Srahin000/bumblebee-smart-speaker/core"
	"github.com/Srahin000/bumblebee-smart-speaker/pipeline"
	"github.com/Srahin000/bumblebee-smart-speaker/session"
)

// Config controls the HTTP server.
type Config struct {
	// Port the server listens on.
	Port string `json:"port"`
	// AllowedOrigins is a comma separated CORS origin list. "*" allows all.
	AllowedOrigins string `json:"allowed_origins"`
	// MaxAudioBytes caps decoded utterance audio per request.
	MaxAudioBytes int `json:"max_audio_bytes"`
	// SampleRate of incoming utterance audio.
	SampleRate int `json:"sample_rate"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:           "8080",
		AllowedOrigins: "*",
		MaxAudioBytes:  10 << 20,
		SampleRate:     16000,
	}
}

// Server routes speech requests to the pipeline and serves session,
// analysis, and health endpoints.
type Server struct {
	engine       *gin.Engine
	orchestrator *pipeline.Orchestrator
	sessions     *session.Store
	transcriber  core.Transcriber
	analyzer     *analysis.Analyzer
	config       Config
	logger       *core.Logger
}

// NewServer builds the gin engine with all routes registered. The analyzer
// may be nil; analysis routes then report unavailable. The transcriber is
// used by the analyze route when the caller sends raw audio.
func NewServer(orchestrator *pipeline.Orchestrator, sessions *session.Store, transcriber core.Transcriber, analyzer *analysis.Analyzer, config Config, logger *core.Logger) *Server {
	if logger == nil {
		logger = core.GetLogger()
	}
	defaults := DefaultConfig()
	if config.Port == "" {
		config.Port = defaults.Port
	}
	if config.AllowedOrigins == "" {
		config.AllowedOrigins = defaults.AllowedOrigins
	}
	if config.MaxAudioBytes <= 0 {
		config.MaxAudioBytes = defaults.MaxAudioBytes
	}
	if config.SampleRate <= 0 {
		config.SampleRate = defaults.SampleRate
	}

	s := &Server{
		orchestrator: orchestrator,
		sessions:     sessions,
		transcriber:  transcriber,
		analyzer:     analyzer,
		config:       config,
		logger:       logger.With(map[string]any{"component": "server"}),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.SetTrustedProxies(nil)

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(config.AllowedOrigins, ","),
		AllowMethods:     []string{"OPTIONS", "GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	api := engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/speech", s.handleSpeech)
	api.POST("/sessions", s.handleCreateSession)
	api.GET("/sessions/:id/history", s.handleHistory)
	api.DELETE("/sessions/:id", s.handleDeleteSession)
	api.POST("/analyze", s.handleAnalyze)
	api.GET("/scores", s.handleScores)
	api.GET("/profile", s.handleProfile)

	engine.GET("/ws/speech", s.handleSpeechSocket)

	s.engine = engine
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run blocks serving HTTP on the configured port.
func (s *Server) Run() error {
	s.logger.With(map[string]any{"port": s.config.Port}).Info("server listening")
	if err := s.engine.Run(":" + s.config.Port); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

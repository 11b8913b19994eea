package factories

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/Srahin000/bumblebee-smart-speaker/analysis"
	"github.com/Srahin000/bumblebee-smart-speaker/artifact"
	"github.com/Srahin000/bumblebee-smart-speaker/core"
	"github.com/Srahin000/bumblebee-smart-speaker/pipeline"
	"github.com/Srahin000/bumblebee-smart-speaker/server"
	"github.com/Srahin000/bumblebee-smart-speaker/services/openai/llm"
	"github.com/Srahin000/bumblebee-smart-speaker/services/openai/stt"
	"github.com/Srahin000/bumblebee-smart-speaker/services/openai/tts"
	"github.com/Srahin000/bumblebee-smart-speaker/session"
	"github.com/Srahin000/bumblebee-smart-speaker/storage/local"
	"github.com/Srahin000/bumblebee-smart-speaker/storage/record"
)

// App bundles the assembled application.
type App struct {
	Server   *server.Server
	Sessions *session.Store

	cron     *cron.Cron
	cleanups []func() error
	logger   *core.Logger
}

// BuildApp assembles every component from settings. Credentials must already
// be injected.
func BuildApp(ctx context.Context, settings SettingsConfig, logger *core.Logger) (*App, error) {
	if logger == nil {
		logger = core.GetLogger()
	}

	// Speech services
	whisper := stt.NewWhisperService(settings.STT)
	if err := whisper.Init(ctx); err != nil {
		return nil, fmt.Errorf("factories: stt: %w", err)
	}
	chat := llm.NewChatService(settings.LLM)
	if err := chat.Init(ctx); err != nil {
		return nil, fmt.Errorf("factories: llm: %w", err)
	}
	speechSvc := tts.NewSpeechService(settings.TTS)
	if err := speechSvc.Init(ctx); err != nil {
		return nil, fmt.Errorf("factories: tts: %w", err)
	}

	// Stores
	sessions := session.NewStore(settings.Session.StoreConfig())
	artifacts, err := local.NewStore(settings.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("factories: artifact store: %w", err)
	}
	recorder := artifact.NewRecorder(artifacts, logger)

	var records *record.Store
	if settings.RecordsPath != "" {
		records, err = record.NewStore(settings.RecordsPath)
		if err != nil {
			return nil, fmt.Errorf("factories: record store: %w", err)
		}
		recorder.SetIndexer(records)
	}

	// Pipeline
	orchestrator := pipeline.NewOrchestrator(
		whisper, chat, speechSvc, recorder, sessions, settings.Pipeline, logger,
	)

	// Analysis rides on the chat service and the record store.
	var analyzer *analysis.Analyzer
	if records != nil {
		analysisCfg := settings.Analysis
		if analysisCfg.ScoringModel == "" && len(settings.Pipeline.Candidates) > 0 {
			analysisCfg.ScoringModel = settings.Pipeline.Candidates[0]
		}
		if analysisCfg.ProfileModel == "" {
			analysisCfg.ProfileModel = analysisCfg.ScoringModel
		}
		analyzer = analysis.NewAnalyzer(nil, chat, records, analysisCfg, logger)
		orchestrator.SetPersonaProvider(analyzer)
	}

	app := &App{
		Server:   server.NewServer(orchestrator, sessions, whisper, analyzer, settings.Server, logger),
		Sessions: sessions,
		cron:     cron.New(),
		logger:   logger.With(map[string]any{"component": "app"}),
		cleanups: []func() error{whisper.Cleanup, chat.Cleanup, speechSvc.Cleanup},
	}

	schedule := settings.Session.SweepSchedule
	if schedule == "" {
		schedule = DefaultSettingsConfig().Session.SweepSchedule
	}
	if _, err := app.cron.AddFunc(schedule, sessions.Sweep); err != nil {
		return nil, fmt.Errorf("factories: sweep schedule %q: %w", schedule, err)
	}

	return app, nil
}

// Run starts the eviction sweep and serves HTTP until the server stops.
func (a *App) Run() error {
	a.cron.Start()
	defer a.cron.Stop()
	defer a.cleanup()
	return a.Server.Run()
}

func (a *App) cleanup() {
	for _, fn := range a.cleanups {
		if err := fn(); err != nil {
			a.logger.With(map[string]any{"error": err}).Warn("cleanup failed")
		}
	}
}

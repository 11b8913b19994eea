// Package analysis implements pronunciation analysis for the speech-therapy
// features: phonetic transcription of an utterance, rhotic-sound scoring via
// a structured generation call, daily score aggregation, and the child
// profile used to personalize conversation.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/Srahin000/bumblebee-smart-speaker/core"
	"github.com/Srahin000/bumblebee-smart-speaker/storage/record"
)

// RhoticCount is the structured scoring result the model is asked for.
type RhoticCount struct {
	Incorrect int `json:"incorrect"`
	Total     int `json:"total"`
}

// profileUpdate is the structured personalization result.
type profileUpdate struct {
	NewInfo string `json:"new_info"`
}

// Result is the outcome of analyzing one utterance.
type Result struct {
	Transcript string `json:"transcript"`
	Phonemes   string `json:"phonemes"`
	Incorrect  int    `json:"incorrect"`
	Total      int    `json:"total"`
}

// Config controls the analyzer.
type Config struct {
	// ScoringModel runs the rhotic scoring call.
	ScoringModel core.ModelID `json:"scoring_model"`
	// ProfileModel runs the personalization extraction call.
	ProfileModel core.ModelID `json:"profile_model"`
	// SampleRate of incoming utterance audio.
	SampleRate int `json:"sample_rate"`
}

// DefaultConfig returns a Config with sensible defaults. Model ids must be
// populated before the analyzer is built.
func DefaultConfig() Config {
	return Config{SampleRate: 16000}
}

// Analyzer scores pronunciation and maintains the child profile.
type Analyzer struct {
	phonemes  core.PhonemeExtractor
	generator core.Generator
	records   *record.Store
	config    Config
	logger    *core.Logger
	now       func() time.Time
}

// NewAnalyzer wires the analyzer. The phoneme extractor may be nil; scoring
// then falls back to the plain transcript.
func NewAnalyzer(phonemes core.PhonemeExtractor, generator core.Generator, records *record.Store, config Config, logger *core.Logger) *Analyzer {
	if logger == nil {
		logger = core.GetLogger()
	}
	if config.SampleRate <= 0 {
		config.SampleRate = DefaultConfig().SampleRate
	}
	return &Analyzer{
		phonemes:  phonemes,
		generator: generator,
		records:   records,
		config:    config,
		logger:    logger.With(map[string]any{"component": "analysis"}),
		now:       time.Now,
	}
}

// Analyze scores one utterance, folds the result into the day's totals, and
// updates the child profile with any new personal facts. Profile and score
// persistence are best-effort; only transcription-less scoring failures are
// fatal.
func (a *Analyzer) Analyze(ctx context.Context, transcript string, audio []byte) (Result, error) {
	if strings.TrimSpace(transcript) == "" {
		return Result{}, fmt.Errorf("analysis: empty transcript")
	}

	var phonemes string
	if a.phonemes != nil && len(audio) > 0 {
		var err error
		phonemes, err = a.phonemes.ExtractPhonemes(ctx, audio, a.config.SampleRate)
		if err != nil {
			a.logger.With(map[string]any{"error": err}).Warn("phoneme extraction failed, scoring transcript only")
			phonemes = ""
		}
	}

	counts, err := a.scoreRhotics(ctx, transcript, phonemes)
	if err != nil {
		return Result{}, err
	}

	today := a.now().UTC().Format("2006-01-02")
	if _, err := a.records.AddDailyScore(ctx, today, counts.Incorrect, counts.Total); err != nil {
		a.logger.With(map[string]any{"error": err}).Warn("daily score update failed")
	}

	a.updateProfile(ctx, transcript)

	return Result{
		Transcript: transcript,
		Phonemes:   phonemes,
		Incorrect:  counts.Incorrect,
		Total:      counts.Total,
	}, nil
}

// scoreRhotics asks the generator for a structured rhotic count.
func (a *Analyzer) scoreRhotics(ctx context.Context, transcript, phonemes string) (RhoticCount, error) {
	prompt := fmt.Sprintf(`Count rhotic sounds in this child's speech:

English transcript: %s
IPA phonemes transcript: %s

Return JSON {"incorrect": <count of incorrect rhotic pronunciations>, "total": <total rhotic sounds attempted>} and nothing else.`,
		transcript, phonemes)

	raw, err := a.generator.Generate(ctx, a.config.ScoringModel, prompt)
	if err != nil {
		return RhoticCount{}, fmt.Errorf("analysis: scoring call: %w", err)
	}

	var counts RhoticCount
	if err := unmarshalLoose(raw, &counts); err != nil {
		return RhoticCount{}, fmt.Errorf("analysis: parse scoring result: %w", err)
	}
	return counts, nil
}

// updateProfile extracts new personal facts from the transcript and appends
// them to the stored profile. Best-effort throughout.
func (a *Analyzer) updateProfile(ctx context.Context, transcript string) {
	existing, err := a.records.Profile(ctx)
	if err != nil {
		a.logger.With(map[string]any{"error": err}).Warn("profile load failed")
		return
	}

	prompt := fmt.Sprintf(`Extract any personal information about the child from this transcript.

Current profile: %s
New transcript: %s

Look for information like: name, age, favorite color, favorite toy, pet names, siblings, hobbies.
Only return NEW information that isn't already in the profile. Keep it simple and conversational.
Return JSON {"new_info": "<new information or empty string>"} and nothing else.`,
		existing.Info, transcript)

	raw, err := a.generator.Generate(ctx, a.config.ProfileModel, prompt)
	if err != nil {
		a.logger.With(map[string]any{"error": err}).Warn("profile extraction failed")
		return
	}

	var update profileUpdate
	if err := unmarshalLoose(raw, &update); err != nil {
		a.logger.With(map[string]any{"error": err}).Warn("profile extraction unparsable")
		return
	}
	if strings.TrimSpace(update.NewInfo) == "" {
		return
	}

	merged := strings.TrimSpace(existing.Info + " " + update.NewInfo)
	if err := a.records.SaveProfile(ctx, merged); err != nil {
		a.logger.With(map[string]any{"error": err}).Warn("profile save failed")
	}
}

// PersonaInfo exposes the stored profile for prompt personalization.
func (a *Analyzer) PersonaInfo(ctx context.Context) (string, error) {
	p, err := a.records.Profile(ctx)
	if err != nil {
		return "", err
	}
	return p.Info, nil
}

// Scores returns all daily scores ordered by date.
func (a *Analyzer) Scores(ctx context.Context) ([]record.DailyScore, error) {
	return a.records.Scores(ctx)
}

// Profile returns the stored child profile.
func (a *Analyzer) Profile(ctx context.Context) (record.Profile, error) {
	return a.records.Profile(ctx)
}

// unmarshalLoose parses a JSON object out of model output that may carry
// prose or fencing around it.
func unmarshalLoose(raw string, v any) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in %q", raw)
	}
	return sonic.UnmarshalString(raw[start:end+1], v)
}

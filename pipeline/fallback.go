package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/Srahin000/bumblebee-smart-speaker/core"
)

// GenerateFunc runs one generation attempt against a single model.
type GenerateFunc func(ctx context.Context, model core.ModelID, prompt string) (string, error)

// DegradedResponse is the deterministic reply returned when every
// generation candidate fails. It embeds the user's utterance verbatim so
// the speaker still acknowledges what was heard.
func DegradedResponse(utterance string) string {
	return fmt.Sprintf("I heard you say: %q. I'm having trouble thinking right now, but I'm still here.", utterance)
}

// InvokeFallback tries each candidate model in order and returns the first
// non-empty result. An error or an empty result counts as failure and moves
// on to the next candidate; no retries happen within one candidate. When
// every candidate fails the degraded template is returned instead. This
// function never reports an error, so the generation stage cannot abort the
// pipeline.
func InvokeFallback(ctx context.Context, candidates []core.ModelID, prompt, utterance string, generate GenerateFunc, logger *core.Logger) string {
	if logger == nil {
		logger = core.GetLogger()
	}

	for _, model := range candidates {
		result, err := generate(ctx, model, prompt)
		if err != nil {
			logger.With(map[string]any{"model": string(model), "error": err}).Warn("generation candidate failed")
			continue
		}
		if strings.TrimSpace(result) == "" {
			logger.With(map[string]any{"model": string(model)}).Warn("generation candidate returned empty result")
			continue
		}
		return result
	}

	logger.With(map[string]any{"candidates": len(candidates)}).Error("all generation candidates failed, degrading")
	return DegradedResponse(utterance)
}

// Package speech turns response text into paced speech markup. Splitting and
// markup are pure functions with a fixed grammar so pacing is testable
// without a synthesis engine.
package speech

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultPause is the pause inserted between sentences when none is given.
const DefaultPause = 300 * time.Millisecond

var (
	// sentenceEndRegex matches a sentence terminator followed by whitespace.
	sentenceEndRegex    = regexp.MustCompile(`([.!?]+)\s+`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
)

// Normalize cleans response text for synthesis: markdown markers and
// emoji-class runes are stripped and whitespace is collapsed.
func Normalize(text string) string {
	for _, marker := range []string{"**", "__", "~~", "*", "`"} {
		text = strings.ReplaceAll(text, marker, "")
	}
	text = nonSpeechRegex.ReplaceAllString(text, "")
	text = multipleSpacesRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

var nonSpeechRegex = regexp.MustCompile(`[^\p{L}\p{N}\p{P}\p{Z}]`)

// Segment splits text into sentences at terminator boundaries. Terminator
// runs ("!!", "?!") stay attached to their sentence. Text without a
// terminator is returned as a single segment; empty input yields none.
func Segment(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	marked := sentenceEndRegex.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")

	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// Markup renders text as speech markup: each sentence wrapped in <s> tags
// with a fixed <break> between sentences. A single sentence gets no break.
func Markup(text string, pause time.Duration) string {
	if pause <= 0 {
		pause = DefaultPause
	}
	segments := Segment(Normalize(text))
	if len(segments) == 0 {
		return ""
	}

	breakTag := fmt.Sprintf(`<break time="%dms"/>`, pause.Milliseconds())
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString(breakTag)
		}
		b.WriteString("<s>")
		b.WriteString(seg)
		b.WriteString("</s>")
	}
	return b.String()
}

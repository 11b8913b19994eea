package speech

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty input",
			text: "   ",
			want: nil,
		},
		{
			name: "single sentence without terminator",
			text: "hello there",
			want: []string{"hello there"},
		},
		{
			name: "multiple sentences",
			text: "That's great! Can you say 'run' with me? Run, run, run!",
			want: []string{"That's great!", "Can you say 'run' with me?", "Run, run, run!"},
		},
		{
			name: "terminator runs stay attached",
			text: "Wow!! Really?! Yes.",
			want: []string{"Wow!!", "Really?!", "Yes."},
		},
		{
			name: "trailing terminator",
			text: "One. Two.",
			want: []string{"One.", "Two."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Segment(tt.text))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "strips markdown markers",
			text: "**Great** job, *run* with `me`",
			want: "Great job, run with me",
		},
		{
			name: "collapses whitespace",
			text: "hello    there\n\nfriend",
			want: "hello there friend",
		},
		{
			name: "drops emoji",
			text: "Run with me \U0001F3C3 now",
			want: "Run with me now",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.text))
		})
	}
}

func TestMarkup(t *testing.T) {
	got := Markup("That's great! Run, run, run!", 300*time.Millisecond)
	assert.Equal(t, `<s>That's great!</s><break time="300ms"/><s>Run, run, run!</s>`, got)

	// A single sentence carries no break tag.
	assert.Equal(t, "<s>Hello there.</s>", Markup("Hello there.", 0))

	// Deterministic: same input, same markup.
	assert.Equal(t,
		Markup("One. Two.", 250*time.Millisecond),
		Markup("One. Two.", 250*time.Millisecond))

	assert.Empty(t, Markup("", 0))
}

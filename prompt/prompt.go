// Package prompt renders conversation history into a single model prompt.
// Build is deterministic and side-effect free so it can be tested on its own.
package prompt

import (
	"fmt"
	"strings"

	"github.com/Srahin000/bumblebee-smart-speaker/session"
)

// DefaultPersona is the fixed instruction block used when no persona is
// configured. Written for the speaker's young audience: short, warm replies
// that are easy to say out loud.
const DefaultPersona = "You are Bumblebee, a friendly smart speaker talking with a child. " +
	"Keep replies short, warm, and encouraging. Use simple words that are easy " +
	"to say out loud, and never mention that you are an AI model."

// roleLabels maps exchange roles to their rendered labels.
var roleLabels = map[session.Role]string{
	session.RoleUser:      "User",
	session.RoleAssistant: "Assistant",
}

// Build renders persona, recent history, and the new utterance into one
// prompt. At most contextWindow exchanges are included, newest kept. When
// history is empty the context block is omitted entirely.
func Build(persona string, history []session.Exchange, newUtterance string, contextWindow int) string {
	if persona == "" {
		persona = DefaultPersona
	}

	var b strings.Builder
	b.WriteString(persona)

	if contextWindow > 0 && len(history) > contextWindow {
		history = history[len(history)-contextWindow:]
	}
	if contextWindow <= 0 {
		history = nil
	}

	if len(history) > 0 {
		b.WriteString("\n\nConversation so far:\n")
		lines := make([]string, 0, len(history))
		for _, ex := range history {
			lines = append(lines, fmt.Sprintf("%s: %s", labelFor(ex.Role), ex.Content))
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	b.WriteString("\n\nUser: ")
	b.WriteString(newUtterance)
	b.WriteString("\nAssistant:")
	return b.String()
}

// WithProfile appends remembered facts about the speaker to a persona. Empty
// info returns the persona unchanged.
func WithProfile(persona, info string) string {
	if persona == "" {
		persona = DefaultPersona
	}
	info = strings.TrimSpace(info)
	if info == "" {
		return persona
	}
	return persona + "\n\nWhat you know about this child: " + info
}

func labelFor(role session.Role) string {
	if label, ok := roleLabels[role]; ok {
		return label
	}
	return string(role)
}

package ai

import "strings"

// Speaker attributes a transcript turn.
type Speaker string

const (
	SpeakerCandidate   Speaker = "candidate"
	SpeakerInterviewer Speaker = "interviewer"
)

// Turn is one transcript entry.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// FormatTranscript renders turns one per line as "speaker: text", preserving order.
func FormatTranscript(turns []Turn) string {
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(string(turn.Speaker))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(turn.Text))
	}
	return b.String()
}

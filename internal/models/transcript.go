package models

import (
	"fmt"
	"strings"
)

// Speaker identifies which persona produced a transcript message.
type Speaker string

const (
	SpeakerAgent  Speaker = "agent"
	SpeakerDebtor Speaker = "debtor"
)

// Label returns the canonical upper-case speaker label used in the
// text rendering of a transcript.
func (s Speaker) Label() string {
	return strings.ToUpper(string(s))
}

// TranscriptMessage is a single utterance in a simulated conversation.
type TranscriptMessage struct {
	Speaker Speaker `json:"speaker" validate:"required,oneof=agent debtor"`
	Message string  `json:"message" validate:"required"`
}

// Transcript is the ordered record of a simulated conversation. Order is
// the conversation; a transcript is never reordered after the simulator
// returns it.
type Transcript []TranscriptMessage

// Format renders the transcript as alternating "SPEAKER: message" lines,
// the form consumed by the evaluator and stored in context packages.
func (t Transcript) Format() string {
	lines := make([]string, 0, len(t))
	for _, msg := range t {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Speaker.Label(), msg.Message))
	}
	return strings.Join(lines, "\n")
}

// ParseTranscript is the inverse of Format for the canonical
// AGENT:/DEBTOR: prefix scheme.
func ParseTranscript(text string) (Transcript, error) {
	if strings.TrimSpace(text) == "" {
		return Transcript{}, nil
	}

	var transcript Transcript
	for i, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "AGENT: "):
			transcript = append(transcript, TranscriptMessage{
				Speaker: SpeakerAgent,
				Message: strings.TrimPrefix(line, "AGENT: "),
			})
		case strings.HasPrefix(line, "DEBTOR: "):
			transcript = append(transcript, TranscriptMessage{
				Speaker: SpeakerDebtor,
				Message: strings.TrimPrefix(line, "DEBTOR: "),
			})
		default:
			return nil, fmt.Errorf("line %d: no speaker label: %q", i+1, line)
		}
	}
	return transcript, nil
}

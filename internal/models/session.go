package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// sessionItem is one entry in the JSON a telephony session writes to
// disk. Content is either a list of text fragments or a plain string,
// depending on the session runtime version.
type sessionItem struct {
	Type    string          `json:"type"`
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type sessionFile struct {
	Items []sessionItem `json:"items"`
}

// ParseSessionTranscript decodes a telephony session transcript file
// into the canonical Transcript form. Only "message" items are kept;
// the assistant role maps to the agent speaker, every other role is the
// debtor.
func ParseSessionTranscript(raw []byte) (Transcript, error) {
	var file sessionFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse session transcript: %w", err)
	}

	transcript := Transcript{}
	for _, item := range file.Items {
		if item.Type != "message" {
			continue
		}
		speaker := SpeakerDebtor
		if item.Role == "assistant" {
			speaker = SpeakerAgent
		}
		transcript = append(transcript, TranscriptMessage{
			Speaker: speaker,
			Message: itemText(item.Content),
		})
	}
	return transcript, nil
}

func itemText(content json.RawMessage) string {
	var fragments []string
	if err := json.Unmarshal(content, &fragments); err == nil {
		return strings.Join(fragments, " ")
	}
	var text string
	if err := json.Unmarshal(content, &text); err == nil {
		return text
	}
	return ""
}

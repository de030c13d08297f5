package domain

import (
	"encoding/json"
	"fmt"
)

// Speaker identifies who produced a chat turn.
type Speaker int

const (
	// SpeakerUser is the learner asking questions.
	SpeakerUser Speaker = iota
	// SpeakerAssistant is the tutor answering them.
	SpeakerAssistant
)

// Label returns the name shown in the page and in exports.
func (s Speaker) Label() string {
	switch s {
	case SpeakerUser:
		return "You"
	case SpeakerAssistant:
		return "StudyMate"
	default:
		return "Unknown"
	}
}

// String returns the stable identifier used in storage and JSON.
func (s Speaker) String() string {
	switch s {
	case SpeakerUser:
		return "user"
	case SpeakerAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// ParseSpeaker is the inverse of String.
func ParseSpeaker(v string) (Speaker, bool) {
	switch v {
	case "user":
		return SpeakerUser, true
	case "assistant":
		return SpeakerAssistant, true
	default:
		return 0, false
	}
}

// ChatTurn is one message of the tutor conversation. It is never mutated
// after it has been appended to a session.
type ChatTurn struct {
	Speaker Speaker
	Message string
}

// MarshalJSON renders the turn with both the speaker id and its label.
func (t ChatTurn) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Speaker string `json:"speaker"`
		Label   string `json:"label"`
		Message string `json:"message"`
	}{
		Speaker: t.Speaker.String(),
		Label:   t.Speaker.Label(),
		Message: t.Message,
	})
}

// UnmarshalJSON accepts the form written by MarshalJSON. The label is ignored.
func (t *ChatTurn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Speaker string `json:"speaker"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	speaker, ok := ParseSpeaker(raw.Speaker)
	if !ok {
		return fmt.Errorf("unknown speaker %q", raw.Speaker)
	}
	t.Speaker = speaker
	t.Message = raw.Message
	return nil
}

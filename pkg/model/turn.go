// Package model defines the conversation types shared by the relay, the
// interview session and the HTTP API.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerModel Speaker = "model"
)

// Blob is an inline binary payload. Data is base64 on the wire.
type Blob struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Part is one piece of turn content: text or inline audio, never both.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inline_data,omitempty"`
}

// TextPart returns a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// AudioPart returns an inline audio part.
func AudioPart(mimeType string, data []byte) Part {
	return Part{InlineData: &Blob{MIMEType: mimeType, Data: data}}
}

// IsEmpty reports whether the part carries no usable content.
func (p Part) IsEmpty() bool {
	if p.InlineData != nil {
		return len(p.InlineData.Data) == 0
	}
	return strings.TrimSpace(p.Text) == ""
}

// Turn is one message of the conversation.
type Turn struct {
	Role  Speaker `json:"role"`
	Parts []Part  `json:"parts"`
}

// UserText builds a user turn holding text.
func UserText(text string) Turn {
	return Turn{Role: SpeakerUser, Parts: []Part{TextPart(text)}}
}

// ModelText builds a model turn holding text.
func ModelText(text string) Turn {
	return Turn{Role: SpeakerModel, Parts: []Part{TextPart(text)}}
}

// Text returns the text of the first part, or "" for audio turns.
func (t Turn) Text() string {
	if len(t.Parts) == 0 {
		return ""
	}
	return t.Parts[0].Text
}

var (
	ErrUnknownSpeaker = errors.New("unknown speaker")
	ErrPartCount      = errors.New("turn must have exactly one part")
	ErrPartVariant    = errors.New("part must hold exactly one of text or inline_data")
)

// Validate checks that a conversation turn has a known speaker and exactly one
// populated part.
func (t Turn) Validate() error {
	switch t.Role {
	case SpeakerUser, SpeakerModel:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSpeaker, t.Role)
	}
	if len(t.Parts) != 1 {
		return ErrPartCount
	}
	p := t.Parts[0]
	hasText := p.Text != ""
	hasData := p.InlineData != nil
	if hasText == hasData {
		return ErrPartVariant
	}
	return nil
}

// CloneTurns returns a copy of turns that shares no slices with the input.
func CloneTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		parts := make([]Part, len(t.Parts))
		copy(parts, t.Parts)
		out[i] = Turn{Role: t.Role, Parts: parts}
	}
	return out
}

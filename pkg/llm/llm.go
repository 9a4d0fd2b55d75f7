// Package llm defines the provider interface the relay forwards to.
package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jxucoder/mockmate/pkg/model"
)

// Provider issues a single generate-content call to a hosted model.
// Implementations must not retry on their own.
type Provider interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// GenerationConfig holds sampling parameters. Nil pointers are omitted.
type GenerationConfig struct {
	Temperature     *float32
	TopK            *float32
	TopP            *float32
	MaxOutputTokens int32
}

// SafetySetting is a harm category and its block threshold, using the
// provider's enum names (e.g. "HARM_CATEGORY_HARASSMENT", "BLOCK_MEDIUM_AND_ABOVE").
type SafetySetting struct {
	Category  string
	Threshold string
}

// Request is a provider-neutral generate-content request.
type Request struct {
	Model             string
	Contents          []model.Turn
	SystemInstruction string
	Generation        GenerationConfig
	SafetySettings    []SafetySetting
}

// Response carries the text of the first part of the first candidate.
// Text is empty when the provider returned no candidates or no parts.
type Response struct {
	Text         string
	FinishReason string
}

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string // provider-supplied message, may be empty
	Status  string // provider status string, e.g. "INVALID_ARGUMENT"
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider error (%d): %s", e.Code, e.Text())
}

// Text returns the provider's message, falling back to the HTTP status text.
func (e *StatusError) Text() string {
	if e.Message != "" {
		return e.Message
	}
	if t := http.StatusText(e.Code); t != "" {
		return t
	}
	return e.Status
}

// Float32 returns a pointer to v.
func Float32(v float32) *float32 { return &v }

package relay

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies relay failures. Kinds are logged and counted separately even
// where the client-visible shape is identical.
type Kind string

const (
	KindConfiguration     Kind = "configuration"
	KindValidation        Kind = "validation"
	KindProviderTransport Kind = "provider_transport"
	KindProviderContent   Kind = "provider_content"
	KindUnexpected        Kind = "unexpected"
)

// Client-visible messages.
const (
	MsgNotConfigured        = "API Key not configured on the server."
	MsgNoValidResponse      = "AI did not generate a valid response."
	MsgInterviewUnexpected  = "Internal Server Error during AI processing."
	MsgNoTranscription      = "Failed to transcribe audio. Please try again."
	MsgTranscribeUnexpected = "Internal Server Error during transcription."
	MsgNoAudio              = "No audio data provided"
)

// Error is a terminal relay failure carrying the status and message to show
// the caller.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrNotConfigured is the cause attached to configuration errors.
var ErrNotConfigured = errors.New("provider credential is not configured")

func configurationError() *Error {
	return &Error{Kind: KindConfiguration, Status: http.StatusInternalServerError, Message: MsgNotConfigured, Err: ErrNotConfigured}
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: msg}
}

// KindOf returns the kind of a relay error, or KindUnexpected for other errors.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnexpected
}

// StatusCode returns the HTTP status to answer with for err.
func StatusCode(err error) int {
	var re *Error
	if errors.As(err, &re) && re.Status != 0 {
		return re.Status
	}
	return http.StatusInternalServerError
}

// Message returns the client-visible message for err.
func Message(err error) string {
	var re *Error
	if errors.As(err, &re) {
		return re.Message
	}
	return MsgInterviewUnexpected
}

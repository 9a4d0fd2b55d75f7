// Package relay forwards interview turns and audio to the model provider and
// normalises the reply into a text or a classified error.
//
// Every call is independent: the relay holds only read-only configuration
// and is safe for concurrent use.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/jxucoder/mockmate/pkg/llm"
	"github.com/jxucoder/mockmate/pkg/model"
)

const (
	EndpointInterview  = "interview"
	EndpointTranscribe = "transcribe"

	// OutcomeOK is reported for successful calls; failures report their Kind.
	OutcomeOK = "ok"
)

// Observer receives per-call measurements. internal/metrics implements it.
type Observer interface {
	RelayFinished(endpoint, outcome string)
	ProviderCall(endpoint string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) RelayFinished(string, string)       {}
func (nopObserver) ProviderCall(string, time.Duration) {}

// Config holds relay settings.
type Config struct {
	// APIKey is the server-held provider credential. Empty means unconfigured.
	APIKey          string
	InterviewModel  string
	TranscribeModel string

	// Timeout bounds a single provider call, retries included. 0 disables it.
	Timeout time.Duration

	// MaxRetries is the number of extra attempts for retryable transport
	// errors (429 and 5xx). 0 means a single attempt.
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// Relay is the stateless conversation-turn relay.
type Relay struct {
	cfg      Config
	provider llm.Provider
	log      zerolog.Logger
	obs      Observer
}

// New creates a Relay. provider may be nil when no credential is configured.
func New(cfg Config, provider llm.Provider, logger zerolog.Logger) *Relay {
	if cfg.InterviewModel == "" {
		cfg.InterviewModel = "gemini-2.5-flash"
	}
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = "gemini-2.0-flash"
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}
	return &Relay{
		cfg:      cfg,
		provider: provider,
		log:      logger.With().Str("component", "relay").Logger(),
		obs:      nopObserver{},
	}
}

// WithObserver sets the observer notified of call outcomes and provider
// latency.
func (r *Relay) WithObserver(o Observer) *Relay {
	if o != nil {
		r.obs = o
	}
	return r
}

// Configured reports whether the provider credential is present.
func (r *Relay) Configured() bool {
	return r.cfg.APIKey != "" && r.provider != nil
}

type messages struct {
	transportPrefix string
	noContent       string
	unexpected      string
}

var (
	interviewMessages  = messages{noContent: MsgNoValidResponse, unexpected: MsgInterviewUnexpected}
	transcribeMessages = messages{transportPrefix: "Transcription failed: ", noContent: MsgNoTranscription, unexpected: MsgTranscribeUnexpected}
)

// Interview relays one interview turn. history is forwarded verbatim; an
// empty history starts the interview with the seed turn.
func (r *Relay) Interview(ctx context.Context, history []model.Turn, role string) (string, error) {
	if !r.Configured() {
		return "", r.logFailure(EndpointInterview, configurationError())
	}
	role = strings.TrimSpace(role)
	if role == "" {
		return "", r.logFailure(EndpointInterview, validationError("role is required"))
	}
	for i, t := range history {
		if err := t.Validate(); err != nil {
			return "", r.logFailure(EndpointInterview, validationError(fmt.Sprintf("history[%d]: %v", i, err)))
		}
	}

	req := BuildInterviewRequest(r.cfg.InterviewModel, history, role)
	resp, err := r.call(ctx, EndpointInterview, req)
	if err != nil {
		return "", r.logFailure(EndpointInterview, classify(err, interviewMessages))
	}
	if resp.Text == "" {
		return "", r.logFailure(EndpointInterview, contentError(resp, interviewMessages))
	}

	r.log.Debug().
		Str("endpoint", EndpointInterview).
		Int("history_len", len(history)).
		Int("reply_len", len(resp.Text)).
		Msg("relay call succeeded")
	r.obs.RelayFinished(EndpointInterview, OutcomeOK)
	return resp.Text, nil
}

// Transcribe converts recorded audio to text.
func (r *Relay) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if !r.Configured() {
		return "", r.logFailure(EndpointTranscribe, configurationError())
	}
	if len(audio) == 0 {
		return "", r.logFailure(EndpointTranscribe, validationError(MsgNoAudio))
	}
	if mimeType == "" {
		mimeType = DefaultAudioMIMEType
	}

	req := BuildTranscribeRequest(r.cfg.TranscribeModel, audio, mimeType)
	resp, err := r.call(ctx, EndpointTranscribe, req)
	if err != nil {
		return "", r.logFailure(EndpointTranscribe, classify(err, transcribeMessages))
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", r.logFailure(EndpointTranscribe, contentError(resp, transcribeMessages))
	}
	r.obs.RelayFinished(EndpointTranscribe, OutcomeOK)
	return text, nil
}

// call issues the provider request, retrying only when MaxRetries > 0.
func (r *Relay) call(ctx context.Context, endpoint string, req *llm.Request) (*llm.Response, error) {
	start := time.Now()
	defer func() { r.obs.ProviderCall(endpoint, time.Since(start)) }()

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	if r.cfg.MaxRetries <= 0 {
		return r.provider.Generate(ctx, req)
	}

	backoff := retry.WithMaxRetries(uint64(r.cfg.MaxRetries), retry.NewExponential(r.cfg.RetryBaseDelay))
	var resp *llm.Response
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		var err error
		resp, err = r.provider.Generate(ctx, req)
		if err != nil && retryable(err) {
			r.log.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Err(err).
				Msg("retrying provider call")
			return retry.RetryableError(err)
		}
		return err
	})
	return resp, err
}

// retryable reports whether err is a transport error worth another attempt.
// Content errors never reach here: they are successful responses.
func retryable(err error) bool {
	var se *llm.StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == http.StatusTooManyRequests || se.Code >= 500
}

func classify(err error, msgs messages) *Error {
	var se *llm.StatusError
	if errors.As(err, &se) {
		status := se.Code
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return &Error{
			Kind:    KindProviderTransport,
			Status:  status,
			Message: msgs.transportPrefix + se.Text(),
			Err:     err,
		}
	}
	return &Error{Kind: KindUnexpected, Status: http.StatusInternalServerError, Message: msgs.unexpected, Err: err}
}

func contentError(resp *llm.Response, msgs messages) *Error {
	cause := errors.New("provider returned no text")
	if resp.FinishReason != "" {
		cause = fmt.Errorf("provider returned no text (finish reason %s)", resp.FinishReason)
	}
	return &Error{Kind: KindProviderContent, Status: http.StatusInternalServerError, Message: msgs.noContent, Err: cause}
}

func (r *Relay) logFailure(endpoint string, e *Error) *Error {
	r.obs.RelayFinished(endpoint, string(e.Kind))
	ev := r.log.Error()
	if e.Kind == KindValidation {
		ev = r.log.Info()
	}
	ev.Str("endpoint", endpoint).
		Str("error_kind", string(e.Kind)).
		Int("status", e.Status).
		Err(e.Err).
		Msg(e.Message)
	return e
}

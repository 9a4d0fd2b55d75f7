package relay_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jxucoder/mockmate/pkg/llm"
	"github.com/jxucoder/mockmate/pkg/model"
	"github.com/jxucoder/mockmate/pkg/relay"
)

// ---------------------------------------------------------------------------
// Fake provider
// ---------------------------------------------------------------------------

// fakeProvider records every request and replays canned results in order.
// When the script runs out the last entry repeats.
type fakeProvider struct {
	mu       sync.Mutex
	requests []*llm.Request
	script   []fakeResult
}

type fakeResult struct {
	resp *llm.Response
	err  error
}

func (f *fakeProvider) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.script) == 0 {
		return &llm.Response{}, nil
	}
	i := len(f.requests) - 1
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	return f.script[i].resp, f.script[i].err
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func replying(text string) *fakeProvider {
	return &fakeProvider{script: []fakeResult{{resp: &llm.Response{Text: text}}}}
}

func newRelay(p llm.Provider, mutate ...func(*relay.Config)) *relay.Relay {
	cfg := relay.Config{APIKey: "test-key", RetryBaseDelay: time.Millisecond}
	for _, m := range mutate {
		m(&cfg)
	}
	return relay.New(cfg, p, zerolog.Nop())
}

func requireRelayError(t *testing.T, err error, kind relay.Kind, status int) *relay.Error {
	t.Helper()
	require.Error(t, err)
	var re *relay.Error
	require.True(t, errors.As(err, &re), "want *relay.Error, got %T", err)
	assert.Equal(t, kind, re.Kind)
	assert.Equal(t, status, re.Status)
	return re
}

// ---------------------------------------------------------------------------
// Interview: request shaping
// ---------------------------------------------------------------------------

func TestInterview_EmptyHistoryInjectsSeedTurn(t *testing.T) {
	p := replying("Feedback: none yet\n\nNext Question: Tell me about yourself.")
	r := newRelay(p)

	_, err := r.Interview(context.Background(), nil, "Backend Engineer")
	require.NoError(t, err)

	require.Equal(t, 1, p.calls())
	contents := p.requests[0].Contents
	require.Len(t, contents, 1)
	assert.Equal(t, model.SpeakerUser, contents[0].Role)
	assert.Equal(t, relay.SeedText, contents[0].Text())
}

func TestInterview_HistoryForwardedVerbatim(t *testing.T) {
	history := []model.Turn{
		model.ModelText("Feedback: -\n\nNext Question: What is a goroutine?"),
		model.UserText("A lightweight thread."),
		model.ModelText("Feedback: good\n\nNext Question: And a channel?"),
		{Role: model.SpeakerUser, Parts: []model.Part{model.AudioPart("audio/webm", []byte{1, 2, 3})}},
	}
	p := replying("Feedback: fine\n\nNext Question: next")
	r := newRelay(p)

	_, err := r.Interview(context.Background(), history, "Go Developer")
	require.NoError(t, err)

	require.Equal(t, 1, p.calls())
	assert.Equal(t, history, p.requests[0].Contents)
}

func TestInterview_SystemInstructionAndGeneration(t *testing.T) {
	p := replying("ok")
	r := newRelay(p, func(c *relay.Config) { c.InterviewModel = "gemini-test" })

	_, err := r.Interview(context.Background(), nil, "  Data Scientist ")
	require.NoError(t, err)

	req := p.requests[0]
	assert.Equal(t, "gemini-test", req.Model)
	assert.Contains(t, req.SystemInstruction, "for the role of a Data Scientist.")
	assert.Contains(t, req.SystemInstruction, `"Feedback:"`)
	assert.Contains(t, req.SystemInstruction, `"Next Question:"`)

	gen := req.Generation
	require.NotNil(t, gen.Temperature)
	require.NotNil(t, gen.TopK)
	require.NotNil(t, gen.TopP)
	assert.InDelta(t, 0.7, *gen.Temperature, 1e-6)
	assert.InDelta(t, 40, *gen.TopK, 1e-6)
	assert.InDelta(t, 0.95, *gen.TopP, 1e-6)
	assert.Equal(t, int32(1024), gen.MaxOutputTokens)
	assert.NotEmpty(t, req.SafetySettings)
}

func TestInterview_ReturnsTextUnmodified(t *testing.T) {
	const reply = "Feedback: X\n\nNext Question: Y"
	r := newRelay(replying(reply))

	got, err := r.Interview(context.Background(), nil, "Backend Engineer")
	require.NoError(t, err)
	assert.Equal(t, reply, got)
}

// ---------------------------------------------------------------------------
// Interview: error mapping
// ---------------------------------------------------------------------------

func TestInterview_NotConfiguredMakesNoCalls(t *testing.T) {
	p := replying("unused")
	r := relay.New(relay.Config{}, p, zerolog.Nop())

	assert.False(t, r.Configured())

	_, err := r.Interview(context.Background(), nil, "Backend Engineer")
	re := requireRelayError(t, err, relay.KindConfiguration, http.StatusInternalServerError)
	assert.Equal(t, relay.MsgNotConfigured, re.Message)

	_, err = r.Transcribe(context.Background(), []byte("audio"), "audio/webm")
	requireRelayError(t, err, relay.KindConfiguration, http.StatusInternalServerError)

	assert.Equal(t, 0, p.calls())
}

func TestInterview_NilProviderIsNotConfigured(t *testing.T) {
	r := relay.New(relay.Config{APIKey: "key"}, nil, zerolog.Nop())
	_, err := r.Interview(context.Background(), nil, "Backend Engineer")
	requireRelayError(t, err, relay.KindConfiguration, http.StatusInternalServerError)
}

func TestInterview_Validation(t *testing.T) {
	tests := []struct {
		name    string
		history []model.Turn
		role    string
	}{
		{name: "empty role", role: ""},
		{name: "blank role", role: "   "},
		{name: "unknown speaker", role: "SRE", history: []model.Turn{{Role: "system", Parts: []model.Part{model.TextPart("x")}}}},
		{name: "no parts", role: "SRE", history: []model.Turn{{Role: model.SpeakerUser}}},
		{name: "two parts", role: "SRE", history: []model.Turn{{Role: model.SpeakerUser, Parts: []model.Part{model.TextPart("a"), model.TextPart("b")}}}},
		{name: "empty part", role: "SRE", history: []model.Turn{{Role: model.SpeakerUser, Parts: []model.Part{{}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := replying("unused")
			r := newRelay(p)
			_, err := r.Interview(context.Background(), tt.history, tt.role)
			requireRelayError(t, err, relay.KindValidation, http.StatusBadRequest)
			assert.Equal(t, 0, p.calls())
		})
	}
}

func TestInterview_ProviderStatusPassthrough(t *testing.T) {
	p := &fakeProvider{script: []fakeResult{{err: &llm.StatusError{Code: http.StatusForbidden, Message: "API key not valid"}}}}
	r := newRelay(p)

	_, err := r.Interview(context.Background(), nil, "Backend Engineer")
	re := requireRelayError(t, err, relay.KindProviderTransport, http.StatusForbidden)
	assert.Equal(t, "API key not valid", re.Message)
	assert.Equal(t, 1, p.calls())
}

func TestInterview_ProviderStatusTextFallback(t *testing.T) {
	p := &fakeProvider{script: []fakeResult{{err: &llm.StatusError{Code: http.StatusServiceUnavailable}}}}
	r := newRelay(p)

	_, err := r.Interview(context.Background(), nil, "Backend Engineer")
	re := requireRelayError(t, err, relay.KindProviderTransport, http.StatusServiceUnavailable)
	assert.Equal(t, "Service Unavailable", re.Message)
	assert.Equal(t, 1, p.calls(), "no retry by default")
}

func TestInterview_NoTextIsContentError(t *testing.T) {
	for _, resp := range []*llm.Response{{}, {FinishReason: "SAFETY"}} {
		p := &fakeProvider{script: []fakeResult{{resp: resp}}}
		r := newRelay(p)

		_, err := r.Interview(context.Background(), nil, "Backend Engineer")
		re := requireRelayError(t, err, relay.KindProviderContent, http.StatusInternalServerError)
		assert.Equal(t, relay.MsgNoValidResponse, re.Message)
	}
}

func TestInterview_NetworkFailureIsUnexpected(t *testing.T) {
	p := &fakeProvider{script: []fakeResult{{err: errors.New("dial tcp: connection refused")}}}
	r := newRelay(p)

	_, err := r.Interview(context.Background(), nil, "Backend Engineer")
	re := requireRelayError(t, err, relay.KindUnexpected, http.StatusInternalServerError)
	assert.Equal(t, relay.MsgInterviewUnexpected, re.Message)
	assert.NotContains(t, re.Message, "dial tcp")
}

// ---------------------------------------------------------------------------
// Retry policy
// ---------------------------------------------------------------------------

func TestInterview_RetriesRetryableTransportErrors(t *testing.T) {
	p := &fakeProvider{script: []fakeResult{
		{err: &llm.StatusError{Code: http.StatusServiceUnavailable}},
		{err: &llm.StatusError{Code: http.StatusTooManyRequests}},
		{resp: &llm.Response{Text: "Feedback: ok"}},
	}}
	r := newRelay(p, func(c *relay.Config) { c.MaxRetries = 3 })

	got, err := r.Interview(context.Background(), nil, "Backend Engineer")
	require.NoError(t, err)
	assert.Equal(t, "Feedback: ok", got)
	assert.Equal(t, 3, p.calls())
}

func TestInterview_RetryGivesUpAfterMaxRetries(t *testing.T) {
	p := &fakeProvider{script: []fakeResult{{err: &llm.StatusError{Code: http.StatusBadGateway, Message: "upstream"}}}}
	r := newRelay(p, func(c *relay.Config) { c.MaxRetries = 2 })

	_, err := r.Interview(context.Background(), nil, "Backend Engineer")
	requireRelayError(t, err, relay.KindProviderTransport, http.StatusBadGateway)
	assert.Equal(t, 3, p.calls())
}

func TestInterview_NeverRetriesClientErrorsOrContentErrors(t *testing.T) {
	p := &fakeProvider{script: []fakeResult{{err: &llm.StatusError{Code: http.StatusBadRequest}}}}
	r := newRelay(p, func(c *relay.Config) { c.MaxRetries = 3 })
	_, err := r.Interview(context.Background(), nil, "Backend Engineer")
	requireRelayError(t, err, relay.KindProviderTransport, http.StatusBadRequest)
	assert.Equal(t, 1, p.calls())

	p = &fakeProvider{script: []fakeResult{{resp: &llm.Response{}}}}
	r = newRelay(p, func(c *relay.Config) { c.MaxRetries = 3 })
	_, err = r.Interview(context.Background(), nil, "Backend Engineer")
	requireRelayError(t, err, relay.KindProviderContent, http.StatusInternalServerError)
	assert.Equal(t, 1, p.calls())
}

// ---------------------------------------------------------------------------
// Transcribe
// ---------------------------------------------------------------------------

func TestTranscribe_BuildsAudioRequestAndTrims(t *testing.T) {
	p := replying("  I used Go for the service.\n")
	r := newRelay(p, func(c *relay.Config) { c.TranscribeModel = "gemini-transcribe" })

	got, err := r.Transcribe(context.Background(), []byte("RIFF...."), "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, "I used Go for the service.", got)

	req := p.requests[0]
	assert.Equal(t, "gemini-transcribe", req.Model)
	require.Len(t, req.Contents, 1)
	parts := req.Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "audio/wav", parts[0].InlineData.MIMEType)
	assert.Equal(t, []byte("RIFF...."), parts[0].InlineData.Data)
	assert.Equal(t, relay.TranscribeInstruction, parts[1].Text)
	require.NotNil(t, req.Generation.Temperature)
	assert.InDelta(t, 0.1, *req.Generation.Temperature, 1e-6)
	assert.Empty(t, req.SystemInstruction)
}

func TestTranscribe_DefaultsMIMEType(t *testing.T) {
	p := replying("hello")
	r := newRelay(p)

	_, err := r.Transcribe(context.Background(), []byte("data"), "")
	require.NoError(t, err)
	assert.Equal(t, relay.DefaultAudioMIMEType, p.requests[0].Contents[0].Parts[0].InlineData.MIMEType)
}

func TestTranscribe_Errors(t *testing.T) {
	r := newRelay(replying("unused"))
	_, err := r.Transcribe(context.Background(), nil, "audio/webm")
	re := requireRelayError(t, err, relay.KindValidation, http.StatusBadRequest)
	assert.Equal(t, relay.MsgNoAudio, re.Message)

	r = newRelay(&fakeProvider{script: []fakeResult{{resp: &llm.Response{Text: "   "}}}})
	_, err = r.Transcribe(context.Background(), []byte("data"), "audio/webm")
	re = requireRelayError(t, err, relay.KindProviderContent, http.StatusInternalServerError)
	assert.Equal(t, relay.MsgNoTranscription, re.Message)

	r = newRelay(&fakeProvider{script: []fakeResult{{err: &llm.StatusError{Code: http.StatusBadRequest, Message: "Unsupported MIME type"}}}})
	_, err = r.Transcribe(context.Background(), []byte("data"), "audio/x-unknown")
	re = requireRelayError(t, err, relay.KindProviderTransport, http.StatusBadRequest)
	assert.True(t, strings.HasPrefix(re.Message, "Transcription failed: "), re.Message)
	assert.Contains(t, re.Message, "Unsupported MIME type")
}

// ---------------------------------------------------------------------------
// Error helpers
// ---------------------------------------------------------------------------

func TestErrorHelpers(t *testing.T) {
	plain := errors.New("boom")
	assert.Equal(t, relay.KindUnexpected, relay.KindOf(plain))
	assert.Equal(t, http.StatusInternalServerError, relay.StatusCode(plain))
	assert.Equal(t, relay.MsgInterviewUnexpected, relay.Message(plain))

	r := newRelay(replying("unused"))
	_, err := r.Interview(context.Background(), nil, "")
	assert.Equal(t, relay.KindValidation, relay.KindOf(err))
	assert.Equal(t, http.StatusBadRequest, relay.StatusCode(err))
	assert.Equal(t, "role is required", relay.Message(err))
}

// ---------------------------------------------------------------------------
// Observer
// ---------------------------------------------------------------------------

type recordingObserver struct {
	mu        sync.Mutex
	outcomes  []string
	providers int
}

func (o *recordingObserver) RelayFinished(endpoint, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, endpoint+":"+outcome)
}

func (o *recordingObserver) ProviderCall(string, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.providers++
}

func TestObserver_SeparatesContentFromTransport(t *testing.T) {
	obs := &recordingObserver{}
	p := &fakeProvider{script: []fakeResult{
		{resp: &llm.Response{Text: "ok"}},
		{resp: &llm.Response{FinishReason: "SAFETY"}},
		{err: &llm.StatusError{Code: http.StatusServiceUnavailable, Message: "overloaded"}},
	}}
	r := newRelay(p).WithObserver(obs)
	ctx := context.Background()

	_, _ = r.Interview(ctx, nil, "SRE")
	_, _ = r.Interview(ctx, nil, "SRE")
	_, _ = r.Interview(ctx, nil, "SRE")
	_, _ = r.Interview(ctx, nil, " ")

	assert.Equal(t, []string{
		"interview:ok",
		"interview:provider_content",
		"interview:provider_transport",
		"interview:validation",
	}, obs.outcomes)
	assert.Equal(t, 3, obs.providers, "validation failures never reach the provider")
}

func TestObserver_NotConfigured(t *testing.T) {
	obs := &recordingObserver{}
	r := relay.New(relay.Config{}, nil, zerolog.Nop()).WithObserver(obs)

	_, _ = r.Transcribe(context.Background(), []byte("abc"), "")
	assert.Equal(t, []string{"transcribe:configuration"}, obs.outcomes)
	assert.Zero(t, obs.providers)
}

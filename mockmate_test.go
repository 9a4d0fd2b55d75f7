package mockmate_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jxucoder/mockmate"
	"github.com/jxucoder/mockmate/internal/config"
	"github.com/jxucoder/mockmate/internal/metrics"
	"github.com/jxucoder/mockmate/pkg/client"
	"github.com/jxucoder/mockmate/pkg/interview"
	"github.com/jxucoder/mockmate/pkg/llm"
	"github.com/jxucoder/mockmate/pkg/model"
	"github.com/jxucoder/mockmate/pkg/relay"
	"github.com/jxucoder/mockmate/pkg/store/memory"
)

type echoProvider struct{ text string }

func (p echoProvider) Generate(context.Context, *llm.Request) (*llm.Response, error) {
	return &llm.Response{Text: p.text}, nil
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		ServerAddr:      "127.0.0.1:0",
		DataDir:         dir,
		DatabasePath:    filepath.Join(dir, "mockmate.db"),
		GeminiAPIKey:    "test-key",
		InterviewModel:  "gemini-2.5-flash",
		TranscribeModel: "gemini-2.0-flash",
		ProviderTimeout: 5 * time.Second,
		LogLevel:        "info",
		LogFormat:       "json",
		Store:           "memory",
	}
}

func TestBuild_EndToEndThroughClient(t *testing.T) {
	m := metrics.New()
	app, err := mockmate.NewBuilder().
		WithConfig(testConfig(t)).
		WithProvider(echoProvider{text: "Question: Tell me about yourself."}).
		WithLogger(zerolog.Nop()).
		WithMetrics(m).
		Build(context.Background())
	require.NoError(t, err)
	require.True(t, app.Relay().Configured())

	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	c := client.New(srv.URL, "alice")
	sess := interview.NewSession(c)
	turn, err := sess.Start(context.Background(), "Backend Engineer")
	require.NoError(t, err)
	assert.Equal(t, model.SpeakerModel, turn.Role)

	_, err = sess.SendText(context.Background(), "I build services in Go.")
	require.NoError(t, err)
	assert.Len(t, sess.Conversation(), 3)

	saved, err := sess.Save(context.Background(), c, "alice")
	require.NoError(t, err)

	got, err := app.Store().GetInterview(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)
	assert.Len(t, got.History, 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RelayRequests.WithLabelValues("interview", "ok")))
}

func TestBuild_NoKeyLeavesRelayUnconfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.GeminiAPIKey = ""

	app, err := mockmate.NewBuilder().
		WithConfig(cfg).
		WithProvider(echoProvider{text: "never"}).
		WithLogger(zerolog.Nop()).
		Build(context.Background())
	require.NoError(t, err)
	assert.False(t, app.Relay().Configured())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/interview", strings.NewReader(`{"history":[],"role":"x"}`))
	app.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), relay.MsgNotConfigured)
}

func TestBuild_SQLiteStoreByDefault(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = "sqlite"

	app, err := mockmate.NewBuilder().
		WithConfig(cfg).
		WithProvider(echoProvider{text: "hi"}).
		WithLogger(zerolog.Nop()).
		Build(context.Background())
	require.NoError(t, err)
	defer app.Store().Close()

	assert.FileExists(t, cfg.DatabasePath)
}

func TestBuild_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = "postgres"

	_, err := mockmate.NewBuilder().
		WithConfig(cfg).
		WithLogger(zerolog.Nop()).
		Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	cfg := testConfig(t)

	// Reserve a free port, then hand it to the server.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg.ServerAddr = ln.Addr().String()
	require.NoError(t, ln.Close())

	app, err := mockmate.NewBuilder().
		WithConfig(cfg).
		WithStore(memory.New()).
		WithProvider(echoProvider{text: "hi"}).
		WithLogger(zerolog.Nop()).
		Build(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + cfg.ServerAddr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

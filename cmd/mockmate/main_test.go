package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jxucoder/mockmate/pkg/interview"
	"github.com/jxucoder/mockmate/pkg/model"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", maskSecret("abcd"))
	assert.Equal(t, "AIza*******wxyz", maskSecret("AIza1234567wxyz"))
}

func TestSetConfigValue_WritesFileAndMasksSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.env")
	var out bytes.Buffer

	require.NoError(t, setConfigValue(&out, path, "GEMINI_API_KEY", "AIzaSyExampleKey1234"))
	require.NoError(t, setConfigValue(&out, path, "mockmate_store", "memory"))

	assert.NotContains(t, out.String(), "AIzaSyExampleKey1234")
	assert.Contains(t, out.String(), "Set MOCKMATE_STORE = memory")

	values, err := loadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "AIzaSyExampleKey1234", values["GEMINI_API_KEY"])
	assert.Equal(t, "memory", values["MOCKMATE_STORE"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSetConfigValue_EmptyValueRemovesKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.env")
	var out bytes.Buffer
	require.NoError(t, setConfigValue(&out, path, "MOCKMATE_STORE", "memory"))
	require.NoError(t, setConfigValue(&out, path, "MOCKMATE_STORE", ""))

	values, err := loadConfigFile(path)
	require.NoError(t, err)
	_, ok := values["MOCKMATE_STORE"]
	assert.False(t, ok)
}

func TestShowConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.env")
	var out bytes.Buffer
	require.NoError(t, setConfigValue(&out, path, "MOCKMATE_LOG_LEVEL", "debug"))
	t.Setenv("MOCKMATE_LOG_LEVEL", "warn")
	t.Setenv("GEMINI_API_KEY", "")

	out.Reset()
	require.NoError(t, showConfig(&out, path))
	assert.Regexp(t, `MOCKMATE_LOG_LEVEL\s+warn \(from env\)`, out.String())
	assert.Regexp(t, `GEMINI_API_KEY\s+\(not set\)`, out.String())
}

func TestLoadConfigFile_Missing(t *testing.T) {
	values, err := loadConfigFile(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
	assert.Empty(t, values)
}

// ---------------------------------------------------------------------------
// Interview loop
// ---------------------------------------------------------------------------

type scriptedRelay struct {
	replies []string
	err     error
}

func (r *scriptedRelay) Interview(_ context.Context, _ []model.Turn, _ string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	reply := r.replies[0]
	if len(r.replies) > 1 {
		r.replies = r.replies[1:]
	}
	return reply, nil
}

type recordingSaver struct {
	saved []*model.Interview
}

func (s *recordingSaver) SaveInterview(_ context.Context, iv *model.Interview) (*model.Interview, error) {
	s.saved = append(s.saved, iv)
	return iv, nil
}

func TestInterviewLoop(t *testing.T) {
	relay := &scriptedRelay{replies: []string{
		"Tell me about a recent project.",
		"Feedback: Clear and concise. Next Question: How did you test it?",
	}}
	sess := interview.NewSession(relay)
	_, err := sess.Start(context.Background(), "Backend Engineer")
	require.NoError(t, err)

	saver := &recordingSaver{}
	in := strings.NewReader("I built a relay in Go.\n\n/save\n/quit\nignored\n")
	var out bytes.Buffer

	require.NoError(t, interviewLoop(context.Background(), sess, saver, in, &out))

	assert.Contains(t, out.String(), "Feedback: Clear and concise.")
	assert.Contains(t, out.String(), "Interviewer: How did you test it?")
	require.Len(t, saver.saved, 1)
	assert.Len(t, saver.saved[0].History, 3)
	assert.Equal(t, "Backend Engineer", saver.saved[0].Role)
}

func TestInterviewLoop_ErrorKeepsGoing(t *testing.T) {
	relay := &scriptedRelay{replies: []string{"First question?"}}
	sess := interview.NewSession(relay)
	_, err := sess.Start(context.Background(), "SRE")
	require.NoError(t, err)

	relay.err = errors.New("AI did not generate a valid response.")
	var out bytes.Buffer
	require.NoError(t, interviewLoop(context.Background(), sess, &recordingSaver{}, strings.NewReader("answer\n"), &out))
	assert.Contains(t, out.String(), "Error: ")
}

func TestPrintTranscript(t *testing.T) {
	iv := &model.Interview{
		ID:   "iv-1",
		Role: "SRE",
		History: []model.Turn{
			model.ModelText("Why SRE?"),
			{Role: model.SpeakerUser, Parts: []model.Part{model.AudioPart("audio/webm", []byte("x"))}},
			model.ModelText("Feedback: Good. Next Question: What is an SLO?"),
		},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
	}
	var out bytes.Buffer
	printTranscript(&out, iv)

	assert.Contains(t, out.String(), "Interviewer: Why SRE?")
	assert.Contains(t, out.String(), "You: (audio answer)")
	assert.Contains(t, out.String(), "Interviewer: What is an SLO?")
}

func TestCallExitError(t *testing.T) {
	assert.NoError(t, callExitError(nil))
	assert.NoError(t, callExitError(context.Canceled))
	assert.NoError(t, callExitError(fmt.Errorf("voice call: %w", context.Canceled)))

	boom := errors.New("recorder failed")
	assert.ErrorIs(t, callExitError(boom), boom)
	assert.ErrorIs(t, callExitError(context.DeadlineExceeded), context.DeadlineExceeded)
}

func TestInterviewLoop_SaveBeforeStartReportsFailure(t *testing.T) {
	sess := interview.NewSession(&scriptedRelay{replies: []string{"unused"}})
	saver := &recordingSaver{}
	var out bytes.Buffer

	require.NoError(t, interviewLoop(context.Background(), sess, saver, strings.NewReader("/save\n"), &out))
	assert.Contains(t, out.String(), "Save failed: ")
	assert.Empty(t, saver.saved)
}

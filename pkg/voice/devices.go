package voice

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jxucoder/mockmate/pkg/audio"
)

// FileRecorder plays back pre-recorded answers, one file per turn. It returns
// io.EOF once every file has been used.
type FileRecorder struct {
	mu    sync.Mutex
	paths []string
	next  int
}

// NewFileRecorder returns a recorder over the given audio files.
func NewFileRecorder(paths ...string) *FileRecorder {
	return &FileRecorder{paths: paths}
}

// Record reads the next file. max is ignored: files are taken whole.
func (r *FileRecorder) Record(ctx context.Context, _ time.Duration) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	r.mu.Lock()
	if r.next >= len(r.paths) {
		r.mu.Unlock()
		return nil, "", io.EOF
	}
	path := r.paths[r.next]
	r.next++
	r.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	return data, audio.MIMEType(data, ""), nil
}

// WriterSpeaker "speaks" by printing replies to w.
type WriterSpeaker struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSpeaker returns a speaker writing to w.
func NewWriterSpeaker(w io.Writer) *WriterSpeaker {
	return &WriterSpeaker{w: w}
}

func (s *WriterSpeaker) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "\n%s\n", text)
	return err
}

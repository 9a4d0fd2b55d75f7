package httpapi

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/jxucoder/mockmate/pkg/audio"
	"github.com/jxucoder/mockmate/pkg/model"
	"github.com/jxucoder/mockmate/pkg/relay"
)

const msgInvalidContentType = "Invalid content type. Use multipart/form-data or application/json"

func (h *Handler) handleInterview(w http.ResponseWriter, r *http.Request) {
	// The credential check comes before the body is read. Routing it through
	// the relay keeps the failure logged and counted like any other.
	if !h.relay.Configured() {
		_, err := h.relay.Interview(r.Context(), nil, "")
		writeRelayError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxInterviewBody)
	var req interviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, bodyErrorStatus(err), "invalid JSON body")
		return
	}

	raw := bytes.TrimSpace(req.History)
	if len(raw) == 0 || raw[0] != '[' {
		writeError(w, http.StatusBadRequest, "history must be an array")
		return
	}
	var history []model.Turn
	if err := json.Unmarshal(raw, &history); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid history: %v", err))
		return
	}
	if strings.TrimSpace(req.Role) == "" {
		writeError(w, http.StatusBadRequest, "role is required")
		return
	}

	text, err := h.relay.Interview(r.Context(), history, req.Role)
	if err != nil {
		writeRelayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if !h.relay.Configured() {
		_, err := h.relay.Transcribe(r.Context(), nil, "")
		writeRelayError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxTranscribeBody)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		data     []byte
		mimeType string
		status   int
		msg      string
	)
	switch mediaType {
	case "multipart/form-data":
		data, mimeType, status, msg = readMultipartAudio(r)
	case "application/json":
		data, mimeType, status, msg = readJSONAudio(r)
	default:
		status, msg = http.StatusBadRequest, msgInvalidContentType
	}
	if msg != "" {
		writeError(w, status, msg)
		return
	}

	text, err := h.relay.Transcribe(r.Context(), data, mimeType)
	if err != nil {
		writeRelayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transcribeResponse{Text: text, Success: true})
}

// readMultipartAudio reads the "audio" form file. The part's declared type is
// used unless it is missing or generic, in which case the content is sniffed.
func readMultipartAudio(r *http.Request) ([]byte, string, int, string) {
	if err := r.ParseMultipartForm(maxTranscribeBody); err != nil {
		return nil, "", bodyErrorStatus(err), "invalid multipart body"
	}
	f, hdr, err := r.FormFile("audio")
	if err != nil {
		return nil, "", http.StatusBadRequest, "No audio file provided"
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", http.StatusBadRequest, "reading audio file failed"
	}
	if len(data) == 0 {
		return nil, "", http.StatusBadRequest, "No audio file provided"
	}
	return data, audio.MIMEType(data, hdr.Header.Get("Content-Type")), 0, ""
}

func readJSONAudio(r *http.Request) ([]byte, string, int, string) {
	var req transcribeJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, "", bodyErrorStatus(err), "invalid JSON body"
	}
	if req.Audio == "" {
		return nil, "", http.StatusBadRequest, relay.MsgNoAudio
	}
	data, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		return nil, "", http.StatusBadRequest, "audio must be base64 encoded"
	}
	return data, audio.MIMEType(data, req.MIMEType), 0, ""
}

func bodyErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// Package httpapi provides the MockMate HTTP API: the stateless relay
// endpoints plus saved interview history.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/jxucoder/mockmate/internal/metrics"
	"github.com/jxucoder/mockmate/pkg/model"
	"github.com/jxucoder/mockmate/pkg/relay"
	"github.com/jxucoder/mockmate/pkg/store"
)

const (
	// HeaderUserID names the caller for saved interviews. There is no
	// authentication; a missing header means AnonymousUser.
	HeaderUserID  = "X-User-ID"
	AnonymousUser = "anonymous"

	maxInterviewBody  = 1 << 20
	maxTranscribeBody = 25 << 20
)

// Relay is the conversation-turn relay behind the API. *relay.Relay
// satisfies it.
type Relay interface {
	Configured() bool
	Interview(ctx context.Context, history []model.Turn, role string) (string, error)
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

var _ Relay = (*relay.Relay)(nil)

// Handler is the HTTP API.
type Handler struct {
	relay   Relay
	store   store.InterviewStore
	metrics *metrics.Metrics
	log     zerolog.Logger
	router  chi.Router
}

// New builds the router. m may be nil, in which case /metrics is not served.
func New(r Relay, st store.InterviewStore, m *metrics.Metrics, logger zerolog.Logger) *Handler {
	h := &Handler{
		relay:   r,
		store:   st,
		metrics: m,
		log:     logger.With().Str("component", "httpapi").Logger(),
	}
	h.router = h.buildRouter()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Route("/api", func(r chi.Router) {
		r.Post("/interview", h.handleInterview)
		r.Post("/transcribe", h.handleTranscribe)

		r.Post("/interviews", h.handleSaveInterview)
		r.Get("/interviews", h.handleListInterviews)
		r.Get("/interviews/{id}", h.handleGetInterview)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	return r
}

// requestLogger logs each request once it completes and counts it by route
// pattern.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		if h.metrics != nil && route != "/metrics" && route != "/health" {
			h.metrics.RecordHTTP(r.Method, route, status)
		}

		ev := h.log.Info()
		if status >= 500 {
			ev = h.log.Error()
		} else if status >= 400 {
			ev = h.log.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request completed")
	})
}

// cors allows the browser front end to call the API from another origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+HeaderUserID)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Request/Response types ---

type interviewRequest struct {
	History json.RawMessage `json:"history"`
	Role    string          `json:"role"`
}

type textResponse struct {
	Text string `json:"text"`
}

type transcribeJSONRequest struct {
	Audio    string `json:"audio"`
	MIMEType string `json:"mimeType"`
}

type transcribeResponse struct {
	Text    string `json:"text"`
	Success bool   `json:"success"`
}

type saveInterviewRequest struct {
	ID      string       `json:"id,omitempty"`
	Role    string       `json:"role"`
	History []model.Turn `json:"history"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Helpers ---

func userID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(HeaderUserID)); id != "" {
		return id
	}
	return AnonymousUser
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeRelayError answers with the status and message carried by a relay
// error. The relay has already logged and counted it.
func writeRelayError(w http.ResponseWriter, err error) {
	writeError(w, relay.StatusCode(err), relay.Message(err))
}

package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jxucoder/mockmate/pkg/model"
	"github.com/jxucoder/mockmate/pkg/store"
)

func (h *Handler) handleSaveInterview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTranscribeBody)
	var req saveInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, bodyErrorStatus(err), "invalid JSON body")
		return
	}
	req.Role = strings.TrimSpace(req.Role)
	if req.Role == "" {
		writeError(w, http.StatusBadRequest, "role is required")
		return
	}
	if len(req.History) == 0 {
		writeError(w, http.StatusBadRequest, "history is required")
		return
	}
	for i, t := range req.History {
		if err := t.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("history[%d]: %v", i, err))
			return
		}
	}

	user := userID(r)
	iv := &model.Interview{
		ID:        req.ID,
		UserID:    user,
		Role:      req.Role,
		History:   req.History,
		CreatedAt: time.Now().UTC(),
	}
	if iv.ID == "" {
		iv.ID = uuid.New().String()
	} else {
		// Re-saving keeps the original creation time; another user's ID is
		// never overwritten.
		existing, err := h.store.GetInterview(iv.ID)
		switch {
		case err == nil && existing.UserID != user:
			writeError(w, http.StatusConflict, "interview id already in use")
			return
		case err == nil:
			iv.CreatedAt = existing.CreatedAt
		case !errors.Is(err, store.ErrNotFound):
			h.log.Error().Err(err).Str("interview_id", iv.ID).Msg("loading interview")
			writeError(w, http.StatusInternalServerError, "failed to save interview")
			return
		}
	}

	if err := h.store.SaveInterview(iv); err != nil {
		h.log.Error().Err(err).Str("interview_id", iv.ID).Msg("saving interview")
		writeError(w, http.StatusInternalServerError, "failed to save interview")
		return
	}
	writeJSON(w, http.StatusCreated, iv)
}

func (h *Handler) handleListInterviews(w http.ResponseWriter, r *http.Request) {
	ivs, err := h.store.ListInterviews(userID(r))
	if err != nil {
		h.log.Error().Err(err).Msg("listing interviews")
		writeError(w, http.StatusInternalServerError, "failed to list interviews")
		return
	}
	if ivs == nil {
		ivs = []*model.Interview{}
	}
	writeJSON(w, http.StatusOK, ivs)
}

func (h *Handler) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	iv, err := h.store.GetInterview(id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && iv.UserID != userID(r)) {
		writeError(w, http.StatusNotFound, store.ErrNotFound.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("interview_id", id).Msg("loading interview")
		writeError(w, http.StatusInternalServerError, "failed to load interview")
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

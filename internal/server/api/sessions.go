package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/fingercount/internal/store"
)

// SessionHandler handles HTTP requests for recorded sessions.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP routes /api/sessions, /api/sessions/{id} and
// /api/sessions/{id}/counts.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "counts":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.counts(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Response types

type sessionResponse struct {
	ID                string  `json:"id"`
	StartedAt         string  `json:"started_at"`
	EndedAt           string  `json:"ended_at,omitempty"`
	Active            bool    `json:"active"`
	CalibrationFrames int     `json:"calibration_frames"`
	Threshold         float64 `json:"threshold"`
	Weight            float64 `json:"weight"`
	Frames            int     `json:"frames"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type sessionDetailResponse struct {
	sessionResponse
	Histogram *store.Histogram `json:"histogram"`
}

type countResponse struct {
	Frame      int    `json:"frame"`
	Hand       bool   `json:"hand"`
	Fingers    int    `json:"fingers"`
	RecordedAt string `json:"recorded_at"`
}

type listCountsResponse struct {
	SessionID string          `json:"session_id"`
	Counts    []countResponse `json:"counts"`
}

func toResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:                s.ID,
		StartedAt:         s.StartedAt.Format(timeFormat),
		Active:            s.Active(),
		CalibrationFrames: s.CalibrationFrames,
		Threshold:         s.Threshold,
		Weight:            s.Weight,
		Frames:            s.Frames,
	}
	if s.EndedAt != nil {
		resp.EndedAt = s.EndedAt.Format(timeFormat)
	}
	return resp
}

// list handles GET /api/sessions.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id} and includes the count histogram.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	hist, err := h.store.Counts().Histogram(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build histogram")
		return
	}

	writeJSON(w, http.StatusOK, sessionDetailResponse{
		sessionResponse: toResponse(sess),
		Histogram:       hist,
	})
}

// counts handles GET /api/sessions/{id}/counts.
func (h *SessionHandler) counts(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	counts, err := h.store.Counts().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list counts")
		return
	}

	response := listCountsResponse{
		SessionID: id,
		Counts:    make([]countResponse, 0, len(counts)),
	}
	for _, c := range counts {
		response.Counts = append(response.Counts, countResponse{
			Frame:      c.Frame,
			Hand:       c.Hand,
			Fingers:    c.Fingers,
			RecordedAt: c.RecordedAt.Format(timeFormat),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ponyo877/callwatch/server/domain"
	"github.com/ponyo877/callwatch/server/usecase"
)

type saveEventRequest struct {
	CallID    string    `json:"callId"`
	EventType string    `json:"eventType"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

type saveNoteRequest struct {
	StudentID string `json:"studentId"`
	CallID    string `json:"callId"`
	Note      string `json:"note"`
}

type putUserRequest struct {
	UserName  string `json:"userName"`
	UserImage string `json:"userImage"`
	Role      string `json:"role"`
}

type HTTPHandler struct {
	uc       Usecase
	sessions Sessions
}

// NewHTTPHandler routes the monitoring API, the presence snapshot and, when ws
// is not nil, the WebSocket endpoint.
func NewHTTPHandler(uc Usecase, sessions Sessions, ws http.Handler) http.Handler {
	h := &HTTPHandler{uc: uc, sessions: sessions}

	api := http.NewServeMux()
	api.HandleFunc("POST /api/monitoring/event", h.saveEvent)
	api.HandleFunc("GET /api/monitoring/call/{callId}", h.callEvents)
	api.HandleFunc("POST /api/monitoring/notes", h.saveNote)
	api.HandleFunc("GET /api/monitoring/report/{studentId}/{callId}", h.report)
	api.HandleFunc("GET /api/users/{userId}", h.getUser)
	api.HandleFunc("PUT /api/users/{userId}", h.putUser)
	api.HandleFunc("GET /api/presence/{callId}", h.presence)

	mux := http.NewServeMux()
	mux.Handle("/api/", accessLog(api))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if ws != nil {
		mux.Handle("GET /ws", ws)
	}
	return mux
}

func (h *HTTPHandler) saveEvent(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, HeaderUserID+" header is required")
		return
	}
	var req saveEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	event, err := h.uc.SaveEvent(r.Context(), userID, domain.MonitoringEvent{
		RoomID:    req.CallID,
		Kind:      domain.EventKind(req.EventType),
		Detail:    req.Details,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		writeUsecaseError(w, "Error saving monitoring event", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventView(event))
}

// callEvents lists a call's events; ?q= narrows them by a regular expression on details.
func (h *HTTPHandler) callEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.uc.SearchCallEvents(r.Context(), r.PathValue("callId"), r.URL.Query().Get("q"))
	if err != nil {
		writeUsecaseError(w, "Error fetching events", err)
		return
	}
	writeJSON(w, http.StatusOK, toEventViews(events))
}

func (h *HTTPHandler) saveNote(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, HeaderUserID+" header is required")
		return
	}
	var req saveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	note, err := h.uc.SaveNote(r.Context(), userID, domain.Note{
		StudentID: req.StudentID,
		RoomID:    req.CallID,
		Text:      req.Note,
	})
	if err != nil {
		writeUsecaseError(w, "Error saving note", err)
		return
	}
	writeJSON(w, http.StatusCreated, toNoteView(note))
}

func (h *HTTPHandler) report(w http.ResponseWriter, r *http.Request) {
	report, err := h.uc.Report(r.Context(), r.PathValue("studentId"), r.PathValue("callId"))
	if err != nil {
		writeUsecaseError(w, "Error generating report data", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportView(report))
}

func (h *HTTPHandler) getUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.uc.Profile(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeUsecaseError(w, "Error getting profile", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileView(profile))
}

func (h *HTTPHandler) putUser(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, HeaderUserID+" header is required")
		return
	}
	if userID != r.PathValue("userId") {
		writeError(w, http.StatusForbidden, "cannot change another user's profile")
		return
	}
	var req putUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.uc.SaveProfile(r.Context(), newProfile(userID, req.UserName, req.UserImage, req.Role)); err != nil {
		writeUsecaseError(w, "Error saving profile", err)
		return
	}
	stored, err := h.uc.Profile(r.Context(), userID)
	if err != nil {
		writeUsecaseError(w, "Error getting profile", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileView(stored))
}

func (h *HTTPHandler) presence(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toPresenceView(h.sessions.Snapshot(r.PathValue("callId"))))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Str("module", "adaptor.http").Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"message": message})
}

func writeUsecaseError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, usecase.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		log.Error().Str("module", "adaptor.http").Err(err).Msg(msg)
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("module", "adaptor.http").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

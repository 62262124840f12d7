package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
	"github.com/imedaveo16/imed-dz/internal/core/services/session"
)

// SessionHandler exposes the form-session lifecycle over HTTP. The
// WebSocket channel carries the same commands; these endpoints are the
// fallback for clients without one.
type SessionHandler struct {
	Sessions *session.Manager
	Bridge   ports.ClientBridge
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions *session.Manager, bridge ports.ClientBridge) *SessionHandler {
	return &SessionHandler{
		Sessions: sessions,
		Bridge:   bridge,
	}
}

type createSessionRequest struct {
	Capabilities domain.Capabilities `json:"capabilities"`
	Initial      *domain.Coordinate  `json:"initial,omitempty"`
}

type positionReply struct {
	AttemptID string  `json:"attempt_id"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy"`
	Code      int     `json:"code"`
	Message   string  `json:"message"`
}

// HandleCreate opens a session and starts acquisition.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	// An empty body means a fully capable client
	req := createSessionRequest{
		Capabilities: domain.Capabilities{Geolocation: true, MapRendering: true},
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Initial != nil {
		if err := req.Initial.Validate(); err != nil {
			http.Error(w, "Invalid initial coordinate: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	info, err := h.Sessions.Open(r.Context(), req.Capabilities, req.Initial)
	if err != nil {
		http.Error(w, "Failed to open session: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(info)
}

// HandleGet returns the session snapshot.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	info, err := h.Sessions.Info(vars["id"])
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// HandleLocate retriggers automatic acquisition.
func (h *SessionHandler) HandleLocate(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.Sessions.Locate)
}

// HandleManual arms manual map selection.
func (h *SessionHandler) HandleManual(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.Sessions.RequestManual)
}

// HandleDefault selects the configured default coordinate.
func (h *SessionHandler) HandleDefault(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.Sessions.UseDefault)
}

func (h *SessionHandler) command(w http.ResponseWriter, r *http.Request, run func(string) error) {
	vars := mux.Vars(r)

	if err := run(vars["id"]); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

// HandleTap forwards a manual map tap.
func (h *SessionHandler) HandleTap(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	var coord domain.Coordinate
	if err := json.NewDecoder(r.Body).Decode(&coord); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Sessions.Tap(vars["id"], coord); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Invalid coordinate: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

// HandlePosition accepts a positioning reply over HTTP for clients whose
// WebSocket dropped mid-attempt. Replies for attempts the bridge no longer
// tracks are reported as stale.
func (h *SessionHandler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	var reply positionReply
	if err := json.NewDecoder(r.Body).Decode(&reply); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if reply.AttemptID == "" {
		http.Error(w, "Missing attempt_id", http.StatusBadRequest)
		return
	}

	res := domain.PositionResult{AttemptID: reply.AttemptID, Accuracy: reply.Accuracy}
	if reply.Code != 0 {
		res.Err = &domain.PositionError{
			Code:    domain.PositionErrorCode(reply.Code),
			Message: reply.Message,
		}
	} else {
		coord := domain.Coordinate{Lat: reply.Lat, Lng: reply.Lng}
		if err := coord.Validate(); err != nil {
			http.Error(w, "Invalid coordinate: "+err.Error(), http.StatusBadRequest)
			return
		}
		res.Coordinate = &coord
	}

	w.Header().Set("Content-Type", "application/json")
	if !h.Bridge.Deliver(vars["id"], res) {
		w.WriteHeader(http.StatusGone)
		json.NewEncoder(w).Encode(map[string]string{"status": "stale"})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

package domain

import "time"

// Capabilities describes what a connected client can do, declared once at
// session creation. A missing geolocation capability makes the session
// fail silently instead of issuing positioning calls; a missing map
// rendering capability puts the session in degraded mode.
type Capabilities struct {
	Geolocation  bool `json:"geolocation"`
	MapRendering bool `json:"map_rendering"`
}

// SessionInfo is the transport snapshot of a form session.
type SessionInfo struct {
	ID        string           `json:"id"`
	State     AcquisitionState `json:"state"`
	Address   string           `json:"address,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NoticeLevel separates blocking alerts from advisory warnings.
type NoticeLevel string

const (
	NoticeAlert   NoticeLevel = "alert"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is a user-visible message produced during acquisition. Notices
// are buffered per session until a client is connected to show them.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

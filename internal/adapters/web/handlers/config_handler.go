package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

// PublicConfig is the subset of server configuration the citizen
// form needs before it can render.
type PublicConfig struct {
	DefaultCoordinate domain.Coordinate `json:"default_coordinate"`
	MapZoom           int               `json:"map_zoom"`
	Categories        []domain.Category `json:"categories"`
	MaxPhotoBytes     int64             `json:"max_photo_bytes"`
	MaxVoiceBytes     int64             `json:"max_voice_bytes"`
	MaxVoiceSeconds   int               `json:"max_voice_seconds"`
	MaxDescriptionLen int               `json:"max_description_len"`
}

// ConfigHandler serves the public client configuration.
type ConfigHandler struct {
	Config PublicConfig
}

// NewConfigHandler creates a new ConfigHandler
func NewConfigHandler(defaultCoord domain.Coordinate, mapZoom int) *ConfigHandler {
	return &ConfigHandler{
		Config: PublicConfig{
			DefaultCoordinate: defaultCoord,
			MapZoom:           mapZoom,
			Categories:        domain.Categories(),
			MaxPhotoBytes:     domain.MaxAttachmentBytes(domain.AttachmentPhoto),
			MaxVoiceBytes:     domain.MaxAttachmentBytes(domain.AttachmentVoice),
			MaxVoiceSeconds:   domain.MaxVoiceSeconds,
			MaxDescriptionLen: domain.MaxDescriptionLen,
		},
	}
}

// HandleGetConfig returns the client configuration.
func (h *ConfigHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Config)
}

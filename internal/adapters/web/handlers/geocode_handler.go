package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
)

// GeocodeHandler answers reverse geocoding lookups for the admin map.
type GeocodeHandler struct {
	Resolver ports.ReverseGeocoder
}

// NewGeocodeHandler creates a new GeocodeHandler
func NewGeocodeHandler(resolver ports.ReverseGeocoder) *GeocodeHandler {
	return &GeocodeHandler{Resolver: resolver}
}

// HandleReverse resolves ?lat=&lng= into a display address.
func (h *GeocodeHandler) HandleReverse(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		http.Error(w, "Invalid lat", http.StatusBadRequest)
		return
	}
	lng, err := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err != nil {
		http.Error(w, "Invalid lng", http.StatusBadRequest)
		return
	}

	coord := domain.Coordinate{Lat: lat, Lng: lng}
	if err := coord.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	address, err := h.Resolver.Reverse(r.Context(), coord)
	if err != nil {
		http.Error(w, "Lookup failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"address": address,
	})
}

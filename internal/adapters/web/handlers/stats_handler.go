package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/imedaveo16/imed-dz/internal/adapters/web/middleware"
	"github.com/imedaveo16/imed-dz/internal/core/services/reporting"
)

// StatsHandler exposes the aggregate report summary.
type StatsHandler struct {
	Generator *reporting.SummaryGenerator
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(generator *reporting.SummaryGenerator) *StatsHandler {
	return &StatsHandler{Generator: generator}
}

// HandleGetStats returns the current report summary.
func (h *StatsHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	generatedBy := "Unknown"
	if user := middleware.UserFrom(r.Context()); user != nil {
		generatedBy = user.Username
	}

	summary, err := h.Generator.Generate(r.Context(), generatedBy)
	if err != nil {
		log.Printf("Failed to generate stats: %v", err)
		http.Error(w, "Failed to generate stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

package handlers

import (
	"log"
	"net/http"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
	"github.com/imedaveo16/imed-dz/internal/core/services/export"
	"github.com/imedaveo16/imed-dz/internal/core/services/report"
)

// ExportHandler streams report exports
type ExportHandler struct {
	Reports *report.Service
	Audit   ports.AuditService
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(reports *report.Service, audit ports.AuditService) *ExportHandler {
	return &ExportHandler{
		Reports: reports,
		Audit:   audit,
	}
}

// HandleExport exports reports in the requested format. The list filters
// of GET /api/reports apply here too.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" && format != "geojson" {
		http.Error(w, "Unknown export format", http.StatusBadRequest)
		return
	}

	filter, err := parseReportFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Exports default to everything
	if r.URL.Query().Get("limit") == "" {
		filter.Limit = 0
	}

	reports, err := h.Reports.List(r.Context(), filter)
	if err != nil {
		log.Printf("[Web] Failed to fetch reports for export: %v", err)
		http.Error(w, "Failed to fetch reports", http.StatusInternalServerError)
		return
	}

	if h.Audit != nil {
		if err := h.Audit.Log(r.Context(), domain.ActionExport, format, "reports export"); err != nil {
			log.Printf("[Web] Failed to audit export: %v", err)
		}
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=imed_reports.csv")
		if err := export.ExportCSV(w, reports); err != nil {
			log.Printf("CSV export error: %v", err)
		}
	case "geojson":
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Content-Disposition", "attachment; filename=imed_reports.geojson")
		if err := export.ExportGeoJSON(w, reports); err != nil {
			log.Printf("GeoJSON export error: %v", err)
		}
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", "attachment; filename=imed_reports.json")
		if err := export.ExportJSON(w, reports); err != nil {
			log.Printf("JSON export error: %v", err)
		}
	}
}

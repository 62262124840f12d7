package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/imedaveo16/imed-dz/internal/adapters/blob"
	"github.com/imedaveo16/imed-dz/internal/adapters/reporting"
	"github.com/imedaveo16/imed-dz/internal/adapters/web/middleware"
	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
	"github.com/imedaveo16/imed-dz/internal/core/services/report"
	reportingService "github.com/imedaveo16/imed-dz/internal/core/services/reporting"
)

// maxUploadBytes caps one attachment request body: the largest allowed
// payload plus multipart overhead.
const maxUploadBytes = 12 << 20

// ReportHandler handles report intake and the operator review endpoints.
type ReportHandler struct {
	Reports *report.Service
	Audit   ports.AuditService

	// Set by the server when the PDF summary download is enabled
	SummaryGenerator *reportingService.SummaryGenerator
	PDFExporter      *reporting.PDFExporter
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports *report.Service, audit ports.AuditService) *ReportHandler {
	return &ReportHandler{
		Reports: reports,
		Audit:   audit,
	}
}

// HandleSubmit accepts a citizen report.
func (h *ReportHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	var draft domain.ReportDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.Reports.Submit(r.Context(), draft)
	if err != nil {
		http.Error(w, err.Error(), submitStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrDescriptionLength),
		errors.Is(err, domain.ErrMissingCoordinate),
		errors.Is(err, domain.ErrLatitudeRange),
		errors.Is(err, domain.ErrLongitudeRange),
		errors.Is(err, report.ErrNoCoordinate):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HandleList returns reports matching the query filters.
func (h *ReportHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReportFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reports, err := h.Reports.List(r.Context(), filter)
	if err != nil {
		log.Printf("[Web] Failed to list reports: %v", err)
		http.Error(w, "Failed to fetch reports", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// parseReportFilter builds a ReportFilter from query parameters. The
// export endpoint shares it.
func parseReportFilter(r *http.Request) (domain.ReportFilter, error) {
	filter := domain.ReportFilter{Limit: 100}

	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.ReportStatus(s)
		if !status.IsValid() {
			return filter, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if c := r.URL.Query().Get("category"); c != "" {
		category := domain.Category(c)
		if !category.IsValid() {
			return filter, domain.ErrInvalidCategory
		}
		filter.Category = category
	}
	if s := r.URL.Query().Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return filter, fmt.Errorf("invalid since timestamp: %w", err)
		}
		filter.Since = since
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 1 {
			return filter, fmt.Errorf("invalid limit")
		}
		if limit > 500 {
			limit = 500
		}
		filter.Limit = limit
	}

	return filter, nil
}

// HandleGet returns one report with its attachments.
func (h *ReportHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	rep, err := h.Reports.Get(r.Context(), vars["id"])
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			http.Error(w, "Report not found", http.StatusNotFound)
			return
		}
		log.Printf("[Web] Failed to fetch report %s: %v", vars["id"], err)
		http.Error(w, "Failed to fetch report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rep)
}

// HandleUpdateStatus moves a report through the review workflow.
func (h *ReportHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	var body struct {
		Status domain.ReportStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.Reports.UpdateStatus(r.Context(), vars["id"], body.Status)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidStatus):
			http.Error(w, "Invalid status", http.StatusBadRequest)
		case errors.Is(err, domain.ErrReportNotFound):
			http.Error(w, "Report not found", http.StatusNotFound)
		default:
			log.Printf("[Web] Failed to update report %s: %v", vars["id"], err)
			http.Error(w, "Failed to update report", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// HandleAddAttachment stores a photo or voice note for a report.
// Multipart fields: file, kind, duration_seconds (voice).
func (h *ReportHandler) HandleAddAttachment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	duration := 0
	if d := r.FormValue("duration_seconds"); d != "" {
		duration, err = strconv.Atoi(d)
		if err != nil || duration < 0 {
			http.Error(w, "Invalid duration_seconds", http.StatusBadRequest)
			return
		}
	}

	upload := report.AttachmentUpload{
		Kind:            domain.AttachmentKind(r.FormValue("kind")),
		Filename:        header.Filename,
		MIME:            header.Header.Get("Content-Type"),
		DurationSeconds: duration,
		Body:            file,
	}

	att, err := h.Reports.AddAttachment(r.Context(), vars["id"], upload)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrReportNotFound):
			http.Error(w, "Report not found", http.StatusNotFound)
		case errors.Is(err, report.ErrUnsupportedMIME):
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		case errors.Is(err, blob.ErrPayloadTooLarge):
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		case errors.Is(err, report.ErrUnsupportedKind),
			errors.Is(err, report.ErrVoiceTooLong),
			errors.Is(err, report.ErrAttachmentMissing):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("[Web] Failed to store attachment for %s: %v", vars["id"], err)
			http.Error(w, "Failed to store attachment", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(att)
}

// HandleGetAttachment streams a stored attachment to the dashboard.
func (h *ReportHandler) HandleGetAttachment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	att, rc, err := h.Reports.OpenAttachment(r.Context(), vars["id"], vars["attachmentID"])
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			http.Error(w, "Attachment not found", http.StatusNotFound)
			return
		}
		log.Printf("[Web] Failed to open attachment %s: %v", vars["attachmentID"], err)
		http.Error(w, "Failed to open attachment", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", att.MIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", att.Filename))
	if att.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(att.SizeBytes, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("[Web] Attachment stream interrupted: %v", err)
	}
}

// HandleDownloadSummary renders the operator summary as a PDF.
func (h *ReportHandler) HandleDownloadSummary(w http.ResponseWriter, r *http.Request) {
	if h.SummaryGenerator == nil || h.PDFExporter == nil {
		http.Error(w, "PDF summary not configured", http.StatusServiceUnavailable)
		return
	}

	username := "Unknown"
	if user := middleware.UserFrom(r.Context()); user != nil {
		username = user.Username
	}

	summary, err := h.SummaryGenerator.Generate(r.Context(), username)
	if err != nil {
		log.Printf("[Web] Failed to build summary: %v", err)
		http.Error(w, "Failed to build summary", http.StatusInternalServerError)
		return
	}

	recent, err := h.Reports.List(r.Context(), domain.ReportFilter{Limit: 10})
	if err != nil {
		recent = nil // The tables still render without the recent section
	}

	data, err := h.PDFExporter.ExportSummary(summary, recent)
	if err != nil {
		log.Printf("[Web] Failed to render PDF: %v", err)
		http.Error(w, "Failed to render PDF", http.StatusInternalServerError)
		return
	}

	if h.Audit != nil {
		if err := h.Audit.Log(r.Context(), domain.ActionExport, "summary_pdf", fmt.Sprintf("total=%d", summary.Total)); err != nil {
			log.Printf("[Web] Failed to audit PDF export: %v", err)
		}
	}

	filename := fmt.Sprintf("imed_summary_%s.pdf", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(data)
}

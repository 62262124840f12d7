package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
	"github.com/imedaveo16/imed-dz/internal/core/services/triage"
)

var (
	reportsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imed",
		Subsystem: "reports",
		Name:      "submitted_total",
		Help:      "Reports accepted by category.",
	}, []string{"category"})

	statusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imed",
		Subsystem: "reports",
		Name:      "status_changes_total",
		Help:      "Operator status transitions by target status.",
	}, []string{"status"})

	attachmentsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imed",
		Subsystem: "reports",
		Name:      "attachments_total",
		Help:      "Stored attachments by kind.",
	}, []string{"kind"})
)

var (
	ErrNoCoordinate      = errors.New("report requires a coordinate or a located session")
	ErrUnsupportedKind   = errors.New("unsupported attachment kind")
	ErrUnsupportedMIME   = errors.New("attachment MIME type not allowed")
	ErrVoiceTooLong      = errors.New("voice note exceeds the duration limit")
	ErrAttachmentMissing = errors.New("attachment has no content")
)

// addressTimeout bounds the inline geocode lookup during submission.
// Sessions usually carry a pre-resolved address, so this path is rare.
const addressTimeout = 3 * time.Second

// SessionSource is the slice of the session manager the intake flow
// needs: the finalized coordinate selection and the resolved address.
type SessionSource interface {
	Selection(id string) (*domain.Selection, error)
	Info(id string) (domain.SessionInfo, error)
}

// AttachmentUpload carries one media artifact into AddAttachment. Body is
// consumed; the caller keeps ownership of closing it.
type AttachmentUpload struct {
	Kind            domain.AttachmentKind
	Filename        string
	MIME            string
	DurationSeconds int
	Body            io.Reader
}

// Config wires the intake service's dependencies. Geocoder and Audit may
// be nil; the service degrades to coordinate-string addresses and skips
// audit entries.
type Config struct {
	Store    ports.ReportStore
	Blobs    ports.BlobStore
	Geocoder ports.ReverseGeocoder
	Triage   *triage.Engine
	Audit    ports.AuditService
	Sessions SessionSource
}

// Service handles citizen report intake and the operator review workflow.
type Service struct {
	store    ports.ReportStore
	blobs    ports.BlobStore
	geocoder ports.ReverseGeocoder
	triage   *triage.Engine
	audit    ports.AuditService
	sessions SessionSource

	mu        sync.RWMutex
	observers []ports.ReportObserver
}

// New creates the report intake service.
func New(cfg Config) *Service {
	return &Service{
		store:    cfg.Store,
		blobs:    cfg.Blobs,
		geocoder: cfg.Geocoder,
		triage:   cfg.Triage,
		audit:    cfg.Audit,
		sessions: cfg.Sessions,
	}
}

// AddObserver registers for report lifecycle notifications.
func (s *Service) AddObserver(obs ports.ReportObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// Submit validates a draft, fills in the coordinate and address, runs
// triage and persists the report. The coordinate comes from the session's
// selection unless the draft supplies one explicitly.
func (s *Service) Submit(ctx context.Context, draft domain.ReportDraft) (*domain.Report, error) {
	if err := domain.ValidateDraft(draft); err != nil {
		return nil, err
	}

	coord, source, address, err := s.resolveLocation(ctx, draft)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rep := domain.Report{
		ID:          uuid.New().String(),
		SessionID:   draft.SessionID,
		Coordinate:  coord,
		Source:      source,
		Address:     address,
		Category:    draft.Category,
		Description: draft.Description,
		Status:      domain.StatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if s.triage != nil {
		rep.Flags = s.triage.Evaluate(ctx, rep)
	}

	if err := s.store.SaveReport(ctx, rep); err != nil {
		return nil, fmt.Errorf("failed to persist report: %w", err)
	}

	reportsSubmitted.WithLabelValues(string(rep.Category)).Inc()
	log.Printf("[Report] Submitted %s category=%s source=%s flags=%d", rep.ID, rep.Category, rep.Source, len(rep.Flags))

	s.auditLog(ctx, domain.ActionReportSubmit, rep.ID,
		fmt.Sprintf("category=%s source=%s flags=%v", rep.Category, rep.Source, rep.Flags))
	s.notifyCreated(rep)

	return &rep, nil
}

// Get retrieves a report with its attachments.
func (s *Service) Get(ctx context.Context, id string) (*domain.Report, error) {
	return s.store.GetReport(ctx, id)
}

// List returns reports matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter domain.ReportFilter) ([]domain.Report, error) {
	return s.store.ListReports(ctx, filter)
}

// UpdateStatus moves a report through the operator workflow and returns
// the updated report.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.ReportStatus) (*domain.Report, error) {
	if !status.IsValid() {
		return nil, domain.ErrInvalidStatus
	}

	if err := s.store.UpdateReportStatus(ctx, id, status); err != nil {
		return nil, err
	}

	rep, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	statusChanges.WithLabelValues(string(status)).Inc()
	s.auditLog(ctx, domain.ActionReportStatus, id, fmt.Sprintf("status=%s", status))
	s.notifyUpdated(*rep)

	return rep, nil
}

// AddAttachment validates and stores one media artifact for a report.
func (s *Service) AddAttachment(ctx context.Context, reportID string, upload AttachmentUpload) (*domain.Attachment, error) {
	if !upload.Kind.IsValid() {
		return nil, ErrUnsupportedKind
	}
	if !domain.IsAllowedAttachmentMIME(upload.Kind, upload.MIME) {
		return nil, ErrUnsupportedMIME
	}
	if upload.Kind == domain.AttachmentVoice && upload.DurationSeconds > domain.MaxVoiceSeconds {
		return nil, ErrVoiceTooLong
	}
	if upload.Body == nil {
		return nil, ErrAttachmentMissing
	}

	// The report must exist before we accept bytes for it.
	if _, err := s.store.GetReport(ctx, reportID); err != nil {
		return nil, err
	}

	limit := domain.MaxAttachmentBytes(upload.Kind)
	storedPath, size, err := s.blobs.Save(ctx, reportID, upload.Filename, upload.Body, limit)
	if err != nil {
		return nil, err
	}

	att := domain.Attachment{
		ID:              uuid.New().String(),
		ReportID:        reportID,
		Kind:            upload.Kind,
		Filename:        upload.Filename,
		StoredPath:      storedPath,
		MIME:            upload.MIME,
		SizeBytes:       size,
		DurationSeconds: upload.DurationSeconds,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.store.SaveAttachment(ctx, att); err != nil {
		// Do not leave orphaned bytes behind.
		if rmErr := s.blobs.Remove(storedPath); rmErr != nil {
			log.Printf("[Report] Failed to clean up blob %s: %v", storedPath, rmErr)
		}
		return nil, fmt.Errorf("failed to persist attachment: %w", err)
	}

	attachmentsStored.WithLabelValues(string(upload.Kind)).Inc()
	log.Printf("[Report] Attachment %s stored for %s (%s, %d bytes)", att.ID, reportID, upload.MIME, size)

	return &att, nil
}

// OpenAttachment returns the stored bytes of an attachment belonging to
// the given report.
func (s *Service) OpenAttachment(ctx context.Context, reportID, attachmentID string) (*domain.Attachment, io.ReadCloser, error) {
	rep, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, nil, err
	}

	for i := range rep.Attachments {
		if rep.Attachments[i].ID == attachmentID {
			rc, err := s.blobs.Open(rep.Attachments[i].StoredPath)
			if err != nil {
				return nil, nil, err
			}
			return &rep.Attachments[i], rc, nil
		}
	}

	return nil, nil, domain.ErrReportNotFound
}

func (s *Service) resolveLocation(ctx context.Context, draft domain.ReportDraft) (domain.Coordinate, domain.Source, string, error) {
	if draft.Coordinate != nil {
		coord := *draft.Coordinate
		return coord, domain.SourceManual, s.resolveAddress(ctx, coord), nil
	}

	if draft.SessionID == "" {
		return domain.Coordinate{}, "", "", ErrNoCoordinate
	}

	sel, err := s.sessionSelection(draft.SessionID)
	if err != nil {
		return domain.Coordinate{}, "", "", err
	}
	if sel == nil {
		return domain.Coordinate{}, "", "", ErrNoCoordinate
	}

	address := ""
	if info, err := s.sessions.Info(draft.SessionID); err == nil {
		address = info.Address
	}
	if address == "" {
		address = s.resolveAddress(ctx, sel.Coordinate)
	}

	return sel.Coordinate, sel.Source, address, nil
}

func (s *Service) sessionSelection(id string) (*domain.Selection, error) {
	if s.sessions == nil {
		return nil, ErrNoCoordinate
	}
	return s.sessions.Selection(id)
}

func (s *Service) resolveAddress(ctx context.Context, coord domain.Coordinate) string {
	if s.geocoder == nil {
		return coord.String()
	}

	rctx, cancel := context.WithTimeout(ctx, addressTimeout)
	defer cancel()

	address, err := s.geocoder.Reverse(rctx, coord)
	if err != nil || address == "" {
		return coord.String()
	}
	return address
}

func (s *Service) auditLog(ctx context.Context, action domain.AuditAction, target, details string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, action, target, details); err != nil {
		log.Printf("[Report] Audit entry failed: %v", err)
	}
}

func (s *Service) notifyCreated(rep domain.Report) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obs := range s.observers {
		go obs.OnReportCreated(context.Background(), rep)
	}
}

func (s *Service) notifyUpdated(rep domain.Report) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obs := range s.observers {
		go obs.OnReportUpdated(context.Background(), rep)
	}
}

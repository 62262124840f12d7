package ports

import (
	"context"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

// ReportStore defines the behavior for report persistence.
type ReportStore interface {
	// SaveReport persists a new report with its triage flags.
	SaveReport(ctx context.Context, report domain.Report) error

	// GetReport retrieves a report with its attachments.
	GetReport(ctx context.Context, id string) (*domain.Report, error)

	// ListReports returns reports matching the filter, newest first.
	ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.Report, error)

	// UpdateReportStatus moves a report through the operator workflow.
	UpdateReportStatus(ctx context.Context, id string, status domain.ReportStatus) error

	// SaveAttachment persists attachment metadata for a report.
	SaveAttachment(ctx context.Context, att domain.Attachment) error

	// Close closes the storage connection.
	Close() error
}

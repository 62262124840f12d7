package ports

import (
	"context"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

// ReportObserver receives report lifecycle notifications. Implementations
// must not block; long work belongs in a goroutine.
type ReportObserver interface {
	// OnReportCreated fires after a report has been persisted.
	OnReportCreated(ctx context.Context, report domain.Report)

	// OnReportUpdated fires after an operator changed a report's status.
	OnReportUpdated(ctx context.Context, report domain.Report)
}

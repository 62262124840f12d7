package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
)

// SQLiteAdapter implements ports.ReportStore using GORM and SQLite.
type SQLiteAdapter struct {
	db *gorm.DB
}

// ReportModel is the GORM model for reports.
type ReportModel struct {
	ID          string `gorm:"primaryKey"`
	SessionID   string `gorm:"index"`
	Latitude    float64
	Longitude   float64
	Source      string
	Address     string
	Category    string
	Description string
	Status      string
	Flags       string // JSON encoded []string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Attachments []AttachmentModel `gorm:"foreignKey:ReportID"`
}

// AttachmentModel stores the metadata of one media artifact.
type AttachmentModel struct {
	ID              string `gorm:"primaryKey"`
	ReportID        string `gorm:"index"`
	Kind            string
	Filename        string
	StoredPath      string
	MIME            string
	SizeBytes       int64
	DurationSeconds int
	CreatedAt       time.Time
}

// NewSQLiteAdapter initializes the database and migrates schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// Report queries show up as tracing spans; metrics come from prometheus.
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	// Auto Migrate
	if err := db.AutoMigrate(&ReportModel{}, &AttachmentModel{}, &domain.User{}, &domain.AuditLog{}); err != nil {
		return nil, err
	}

	// Create Indices for Performance
	db.Exec("CREATE INDEX IF NOT EXISTS idx_reports_status ON report_models(status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_reports_category ON report_models(category)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_reports_created_at ON report_models(created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_reports_source ON report_models(source)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_attachments_kind ON attachment_models(kind)")

	return &SQLiteAdapter{db: db}, nil
}

// SaveReport persists a new report together with its attachments.
func (a *SQLiteAdapter) SaveReport(ctx context.Context, report domain.Report) error {
	model := toModel(report)
	return a.db.WithContext(ctx).Create(&model).Error
}

// GetReport retrieves a report by id with its attachments.
func (a *SQLiteAdapter) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	var model ReportModel
	if err := a.db.WithContext(ctx).Preload("Attachments").First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReportNotFound
		}
		return nil, err
	}
	return toDomain(model), nil
}

// ListReports retrieves reports matching the filter criteria, newest first.
func (a *SQLiteAdapter) ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.Report, error) {
	query := a.db.WithContext(ctx).Preload("Attachments").Order("created_at DESC")

	// Apply filters dynamically
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Category != "" {
		query = query.Where("category = ?", string(filter.Category))
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var models []ReportModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	reports := make([]domain.Report, len(models))
	for i, m := range models {
		reports[i] = *toDomain(m)
	}
	return reports, nil
}

// UpdateReportStatus moves a report through the operator workflow.
func (a *SQLiteAdapter) UpdateReportStatus(ctx context.Context, id string, status domain.ReportStatus) error {
	res := a.db.WithContext(ctx).Model(&ReportModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     string(status),
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

// SaveAttachment persists attachment metadata for an existing report.
func (a *SQLiteAdapter) SaveAttachment(ctx context.Context, att domain.Attachment) error {
	model := attachmentToModel(att)
	return a.db.WithContext(ctx).Create(&model).Error
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure interface compliance
var _ ports.ReportStore = (*SQLiteAdapter)(nil)

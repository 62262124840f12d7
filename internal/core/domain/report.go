package domain

import (
	"errors"
	"time"
)

// ReportStatus tracks a report's position in the operator workflow.
type ReportStatus string

const (
	StatusNew      ReportStatus = "new"
	StatusReviewed ReportStatus = "reviewed"
	StatusResolved ReportStatus = "resolved"
)

// IsValid checks if the status is a recognized workflow state.
func (s ReportStatus) IsValid() bool {
	switch s {
	case StatusNew, StatusReviewed, StatusResolved:
		return true
	}
	return false
}

// Category buckets a report for routing and statistics.
type Category string

const (
	CategoryRoads    Category = "roads"
	CategoryLighting Category = "lighting"
	CategoryWater    Category = "water"
	CategoryWaste    Category = "waste"
	CategorySafety   Category = "safety"
	CategoryOther    Category = "other"
)

// IsValid checks if the category is part of the allowlist.
func (c Category) IsValid() bool {
	switch c {
	case CategoryRoads, CategoryLighting, CategoryWater, CategoryWaste,
		CategorySafety, CategoryOther:
		return true
	}
	return false
}

// Categories lists the accepted categories in display order.
func Categories() []Category {
	return []Category{
		CategoryRoads, CategoryLighting, CategoryWater,
		CategoryWaste, CategorySafety, CategoryOther,
	}
}

// Advisory triage flags attached to a report on submission.
const (
	FlagDuplicate       = "duplicate"
	FlagOutOfArea       = "out_of_area"
	FlagDefaultLocation = "default_location"
)

var (
	ErrInvalidCategory   = errors.New("unknown report category")
	ErrInvalidStatus     = errors.New("unknown report status")
	ErrMissingCoordinate = errors.New("report has no coordinate")
	ErrDescriptionLength = errors.New("description exceeds the maximum length")
	ErrReportNotFound    = errors.New("report not found")
)

// Report is a submitted location report.
type Report struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"session_id,omitempty"`
	Coordinate  Coordinate   `json:"coordinate"`
	Source      Source       `json:"source"`
	Address     string       `json:"address,omitempty"`
	Category    Category     `json:"category"`
	Description string       `json:"description"`
	Status      ReportStatus `json:"status"`
	Flags       []string     `json:"flags,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Flagged reports whether triage attached any advisory flag.
func (r Report) Flagged() bool {
	return len(r.Flags) > 0
}

// AttachmentKind distinguishes the accepted media artifact types.
type AttachmentKind string

const (
	AttachmentPhoto AttachmentKind = "photo"
	AttachmentVoice AttachmentKind = "voice"
)

// IsValid checks if the kind is a recognized attachment type.
func (k AttachmentKind) IsValid() bool {
	return k == AttachmentPhoto || k == AttachmentVoice
}

// Attachment is the stored metadata of one media artifact. The bytes live
// in the blob store under StoredPath; only metadata travels over the API.
type Attachment struct {
	ID              string         `json:"id"`
	ReportID        string         `json:"report_id"`
	Kind            AttachmentKind `json:"kind"`
	Filename        string         `json:"filename"`
	StoredPath      string         `json:"-"`
	MIME            string         `json:"mime"`
	SizeBytes       int64          `json:"size_bytes"`
	DurationSeconds int            `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// ReportDraft is the submission request body. Coordinate may be omitted
// when the session has already selected one.
type ReportDraft struct {
	SessionID   string      `json:"session_id"`
	Category    Category    `json:"category"`
	Description string      `json:"description"`
	Coordinate  *Coordinate `json:"coordinate,omitempty"`
}

// ReportFilter narrows listing queries. Zero values mean "no constraint".
type ReportFilter struct {
	Status   ReportStatus
	Category Category
	Since    time.Time
	Limit    int
}

// ReportSummary aggregates counts for the stats endpoint and the PDF
// export.
type ReportSummary struct {
	GeneratedAt  time.Time            `json:"generated_at"`
	GeneratedBy  string               `json:"generated_by,omitempty"`
	Total        int                  `json:"total"`
	ByCategory   map[Category]int     `json:"by_category"`
	ByStatus     map[ReportStatus]int `json:"by_status"`
	BySource     map[Source]int       `json:"by_source"`
	Flagged      int                  `json:"flagged"`
	Last24h      int                  `json:"last_24h"`
	TopAddresses []AddressStat        `json:"top_addresses,omitempty"`
}

// AddressStat counts reports sharing a resolved address.
type AddressStat struct {
	Address string `json:"address"`
	Count   int    `json:"count"`
}

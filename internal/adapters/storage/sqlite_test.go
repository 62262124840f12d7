package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

// setupInMemoryDB creates a new SQLiteAdapter used for testing
func setupInMemoryDB(t *testing.T) *SQLiteAdapter {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&ReportModel{}, &AttachmentModel{}, &domain.User{}, &domain.AuditLog{})
	require.NoError(t, err)

	return &SQLiteAdapter{db: db}
}

func TestSaveAndGetReport(t *testing.T) {
	adapter := setupInMemoryDB(t)
	ctx := context.Background()

	report := domain.Report{
		ID:          "rep-1",
		SessionID:   "sess-1",
		Coordinate:  domain.Coordinate{Lat: 36.7538, Lng: 3.0588},
		Source:      domain.SourceDevice,
		Address:     "Rue Didouche Mourad, Alger Centre",
		Category:    domain.CategoryRoads,
		Description: "Nid de poule devant le 24",
		Status:      domain.StatusNew,
		Flags:       []string{domain.FlagOutOfArea},
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
		Attachments: []domain.Attachment{
			{
				ID:        "att-1",
				ReportID:  "rep-1",
				Kind:      domain.AttachmentPhoto,
				Filename:  "pothole.jpg",
				MIME:      "image/jpeg",
				SizeBytes: 120000,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	err := adapter.SaveReport(ctx, report)
	assert.NoError(t, err)

	stored, err := adapter.GetReport(ctx, "rep-1")
	assert.NoError(t, err)
	assert.NotNil(t, stored)
	assert.Equal(t, report.Coordinate, stored.Coordinate)
	assert.Equal(t, domain.SourceDevice, stored.Source)
	assert.Equal(t, []string{domain.FlagOutOfArea}, stored.Flags)
	assert.Len(t, stored.Attachments, 1)
	assert.Equal(t, "pothole.jpg", stored.Attachments[0].Filename)
}

func TestGetReport_NotFound(t *testing.T) {
	adapter := setupInMemoryDB(t)

	_, err := adapter.GetReport(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestListReports_Filters(t *testing.T) {
	adapter := setupInMemoryDB(t)
	ctx := context.Background()

	// Seed Data
	now := time.Now().UTC()
	r1 := domain.Report{ID: "r1", Coordinate: domain.Coordinate{Lat: 36.75, Lng: 3.05}, Source: domain.SourceDevice, Category: domain.CategoryRoads, Status: domain.StatusNew, CreatedAt: now.Add(-2 * time.Hour), UpdatedAt: now}
	r2 := domain.Report{ID: "r2", Coordinate: domain.Coordinate{Lat: 36.76, Lng: 3.06}, Source: domain.SourceManual, Category: domain.CategoryWaste, Status: domain.StatusReviewed, CreatedAt: now.Add(-time.Hour), UpdatedAt: now}
	r3 := domain.Report{ID: "r3", Coordinate: domain.Coordinate{Lat: 36.77, Lng: 3.07}, Source: domain.SourceDefault, Category: domain.CategoryRoads, Status: domain.StatusNew, CreatedAt: now, UpdatedAt: now}

	require.NoError(t, adapter.SaveReport(ctx, r1))
	require.NoError(t, adapter.SaveReport(ctx, r2))
	require.NoError(t, adapter.SaveReport(ctx, r3))

	// Test 1: No filter, newest first
	all, err := adapter.ListReports(ctx, domain.ReportFilter{})
	assert.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r3", all[0].ID)
	assert.Equal(t, "r1", all[2].ID)

	// Test 2: Filter by status
	newOnes, err := adapter.ListReports(ctx, domain.ReportFilter{Status: domain.StatusNew})
	assert.NoError(t, err)
	assert.Len(t, newOnes, 2)

	// Test 3: Filter by category
	roads, err := adapter.ListReports(ctx, domain.ReportFilter{Category: domain.CategoryRoads})
	assert.NoError(t, err)
	assert.Len(t, roads, 2)

	// Test 4: Since window
	recent, err := adapter.ListReports(ctx, domain.ReportFilter{Since: now.Add(-90 * time.Minute)})
	assert.NoError(t, err)
	assert.Len(t, recent, 2)

	// Test 5: Limit
	limited, err := adapter.ListReports(ctx, domain.ReportFilter{Limit: 1})
	assert.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "r3", limited[0].ID)
}

func TestUpdateReportStatus(t *testing.T) {
	adapter := setupInMemoryDB(t)
	ctx := context.Background()

	report := domain.Report{ID: "r1", Coordinate: domain.Coordinate{Lat: 36.75, Lng: 3.05}, Source: domain.SourceDevice, Category: domain.CategoryRoads, Status: domain.StatusNew, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, adapter.SaveReport(ctx, report))

	err := adapter.UpdateReportStatus(ctx, "r1", domain.StatusResolved)
	assert.NoError(t, err)

	stored, err := adapter.GetReport(ctx, "r1")
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, stored.Status)

	// Unknown report
	err = adapter.UpdateReportStatus(ctx, "missing", domain.StatusResolved)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestSaveAttachment_AppendsToReport(t *testing.T) {
	adapter := setupInMemoryDB(t)
	ctx := context.Background()

	report := domain.Report{ID: "r1", Coordinate: domain.Coordinate{Lat: 36.75, Lng: 3.05}, Source: domain.SourceManual, Category: domain.CategoryLighting, Status: domain.StatusNew, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, adapter.SaveReport(ctx, report))

	att := domain.Attachment{
		ID:              "att-9",
		ReportID:        "r1",
		Kind:            domain.AttachmentVoice,
		Filename:        "note.webm",
		MIME:            "audio/webm",
		SizeBytes:       48000,
		DurationSeconds: 22,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, adapter.SaveAttachment(ctx, att))

	stored, err := adapter.GetReport(ctx, "r1")
	assert.NoError(t, err)
	require.Len(t, stored.Attachments, 1)
	assert.Equal(t, domain.AttachmentVoice, stored.Attachments[0].Kind)
	assert.Equal(t, 22, stored.Attachments[0].DurationSeconds)
}

func TestUserRepository(t *testing.T) {
	adapter := setupInMemoryDB(t)
	ctx := context.Background()

	user := domain.User{ID: "u1", Username: "fatima", PasswordHash: "x", Role: domain.RoleOperator, CreatedAt: time.Now().UTC()}
	require.NoError(t, adapter.Save(ctx, user))

	byName, err := adapter.GetByUsername(ctx, "fatima")
	assert.NoError(t, err)
	assert.Equal(t, "u1", byName.ID)

	byID, err := adapter.GetByID(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, "fatima", byID.Username)

	_, err = adapter.GetByUsername(ctx, "ghost")
	assert.Error(t, err)

	users, err := adapter.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestAuditRepository(t *testing.T) {
	adapter := setupInMemoryDB(t)
	ctx := context.Background()

	first, err := domain.NewAuditLog("u1", "fatima", domain.ActionLogin, "", "", "127.0.0.1")
	require.NoError(t, err)
	first.Timestamp = time.Now().UTC().Add(-time.Hour)

	second, err := domain.NewAuditLog("u1", "fatima", domain.ActionReportStatus, "r1", "new -> reviewed", "127.0.0.1")
	require.NoError(t, err)

	require.NoError(t, adapter.SaveAuditLog(ctx, *first))
	require.NoError(t, adapter.SaveAuditLog(ctx, *second))

	logs, err := adapter.ListAuditLogs(ctx, 10)
	assert.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.ActionReportStatus, logs[0].Action, "newest entry must come first")

	limited, err := adapter.ListAuditLogs(ctx, 1)
	assert.NoError(t, err)
	assert.Len(t, limited, 1)
}

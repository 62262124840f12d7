package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/services/report"
)

func setupReportHandler(t *testing.T) (*ReportHandler, *MockReportStore, *MockBlobStore, *MockAuditService) {
	store := new(MockReportStore)
	blobs := new(MockBlobStore)
	auditSvc := new(MockAuditService)

	svc := report.New(report.Config{
		Store: store,
		Blobs: blobs,
		Audit: auditSvc,
	})

	return NewReportHandler(svc, auditSvc), store, blobs, auditSvc
}

func TestReportHandler_Submit(t *testing.T) {
	handler, store, _, auditSvc := setupReportHandler(t)

	store.On("SaveReport", mock.Anything, mock.MatchedBy(func(r domain.Report) bool {
		return r.Category == domain.CategoryRoads && r.Coordinate.Lat == 36.7762
	})).Return(nil)
	auditSvc.On("Log", mock.Anything, domain.ActionReportSubmit, mock.Anything, mock.Anything).Return(nil)

	body := `{"category":"roads","description":"Nid de poule devant le 12 rue Larbi Ben M'hidi","coordinate":{"lat":36.7762,"lng":3.0595}}`
	req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	handler.HandleSubmit(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created domain.Report
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.StatusNew, created.Status)

	store.AssertExpectations(t)
}

func TestReportHandler_SubmitValidation(t *testing.T) {
	handler, _, _, _ := setupReportHandler(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"unknown category", `{"category":"ufo","description":"description long enough","coordinate":{"lat":36.7,"lng":3.0}}`, http.StatusBadRequest},
		{"no coordinate and no session", `{"category":"roads","description":"description long enough"}`, http.StatusBadRequest},
		{"latitude out of range", `{"category":"roads","description":"description long enough","coordinate":{"lat":120.0,"lng":3.0}}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewReader([]byte(tt.body)))
			w := httptest.NewRecorder()
			handler.HandleSubmit(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestReportHandler_List(t *testing.T) {
	handler, store, _, _ := setupReportHandler(t)

	reports := []domain.Report{
		{ID: "rep-1", Category: domain.CategoryWater, Status: domain.StatusNew},
		{ID: "rep-2", Category: domain.CategoryWater, Status: domain.StatusNew},
	}
	store.On("ListReports", mock.Anything, mock.MatchedBy(func(f domain.ReportFilter) bool {
		return f.Category == domain.CategoryWater && f.Limit == 100
	})).Return(reports, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reports?category=water", nil)
	w := httptest.NewRecorder()
	handler.HandleList(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
	assert.Contains(t, w.Body.String(), "rep-1")
}

func TestReportHandler_ListRejectsBadFilter(t *testing.T) {
	handler, _, _, _ := setupReportHandler(t)

	for _, target := range []string{
		"/api/reports?status=bogus",
		"/api/reports?category=ufo",
		"/api/reports?since=yesterday",
		"/api/reports?limit=abc",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		handler.HandleList(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestReportHandler_Get(t *testing.T) {
	handler, store, _, _ := setupReportHandler(t)

	stored := &domain.Report{ID: "rep-1", Category: domain.CategoryLighting}
	store.On("GetReport", mock.Anything, "rep-1").Return(stored, nil)
	store.On("GetReport", mock.Anything, "ghost").Return(nil, domain.ErrReportNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/rep-1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "rep-1"})
	w := httptest.NewRecorder()
	handler.HandleGet(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lighting")

	req = httptest.NewRequest(http.MethodGet, "/api/reports/ghost", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "ghost"})
	w = httptest.NewRecorder()
	handler.HandleGet(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportHandler_UpdateStatus(t *testing.T) {
	handler, store, _, auditSvc := setupReportHandler(t)

	store.On("UpdateReportStatus", mock.Anything, "rep-1", domain.StatusReviewed).Return(nil)
	store.On("GetReport", mock.Anything, "rep-1").Return(&domain.Report{ID: "rep-1", Status: domain.StatusReviewed}, nil)
	auditSvc.On("Log", mock.Anything, domain.ActionReportStatus, "rep-1", mock.Anything).Return(nil)

	req := httptest.NewRequest(http.MethodPut, "/api/reports/rep-1/status", bytes.NewReader([]byte(`{"status":"reviewed"}`)))
	req = mux.SetURLVars(req, map[string]string{"id": "rep-1"})
	w := httptest.NewRecorder()
	handler.HandleUpdateStatus(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "reviewed")
	store.AssertExpectations(t)
}

func TestReportHandler_UpdateStatusErrors(t *testing.T) {
	handler, store, _, _ := setupReportHandler(t)

	store.On("UpdateReportStatus", mock.Anything, "ghost", domain.StatusResolved).Return(domain.ErrReportNotFound)

	req := httptest.NewRequest(http.MethodPut, "/api/reports/rep-1/status", bytes.NewReader([]byte(`{"status":"vanished"}`)))
	req = mux.SetURLVars(req, map[string]string{"id": "rep-1"})
	w := httptest.NewRecorder()
	handler.HandleUpdateStatus(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/api/reports/ghost/status", bytes.NewReader([]byte(`{"status":"resolved"}`)))
	req = mux.SetURLVars(req, map[string]string{"id": "ghost"})
	w = httptest.NewRecorder()
	handler.HandleUpdateStatus(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func multipartBody(t *testing.T, kind, filename, mimeType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("kind", kind))

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func TestReportHandler_AddAttachment(t *testing.T) {
	handler, store, blobs, auditSvc := setupReportHandler(t)

	stored := &domain.Report{ID: "rep-1", Category: domain.CategoryRoads, CreatedAt: time.Now()}
	store.On("GetReport", mock.Anything, "rep-1").Return(stored, nil)
	blobs.On("Save", mock.Anything, "rep-1", mock.Anything, mock.Anything, mock.Anything).
		Return("rep-1/photo.jpg", int64(3), nil)
	store.On("SaveAttachment", mock.Anything, mock.MatchedBy(func(a domain.Attachment) bool {
		return a.ReportID == "rep-1" && a.Kind == domain.AttachmentPhoto && a.SizeBytes == 3
	})).Return(nil)
	auditSvc.On("Log", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	body, contentType := multipartBody(t, "photo", "photo.jpg", "image/jpeg", []byte{0xFF, 0xD8, 0xFF})
	req := httptest.NewRequest(http.MethodPost, "/api/reports/rep-1/attachments", body)
	req.Header.Set("Content-Type", contentType)
	req = mux.SetURLVars(req, map[string]string{"id": "rep-1"})
	w := httptest.NewRecorder()
	handler.HandleAddAttachment(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var att domain.Attachment
	require.NoError(t, json.NewDecoder(w.Body).Decode(&att))
	assert.Equal(t, domain.AttachmentPhoto, att.Kind)
	assert.Equal(t, "photo.jpg", att.Filename)

	store.AssertExpectations(t)
	blobs.AssertExpectations(t)
}

func TestReportHandler_AddAttachmentErrors(t *testing.T) {
	handler, store, _, _ := setupReportHandler(t)

	store.On("GetReport", mock.Anything, "rep-1").Return(&domain.Report{ID: "rep-1"}, nil)

	// Wrong MIME for the declared kind
	body, contentType := multipartBody(t, "photo", "notes.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/reports/rep-1/attachments", body)
	req.Header.Set("Content-Type", contentType)
	req = mux.SetURLVars(req, map[string]string{"id": "rep-1"})
	w := httptest.NewRecorder()
	handler.HandleAddAttachment(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	// Unknown kind
	body, contentType = multipartBody(t, "video", "clip.mp4", "video/mp4", []byte("xx"))
	req = httptest.NewRequest(http.MethodPost, "/api/reports/rep-1/attachments", body)
	req.Header.Set("Content-Type", contentType)
	req = mux.SetURLVars(req, map[string]string{"id": "rep-1"})
	w = httptest.NewRecorder()
	handler.HandleAddAttachment(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// No file part at all
	var empty bytes.Buffer
	writer := multipart.NewWriter(&empty)
	require.NoError(t, writer.WriteField("kind", "photo"))
	require.NoError(t, writer.Close())
	req = httptest.NewRequest(http.MethodPost, "/api/reports/rep-1/attachments", &empty)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req = mux.SetURLVars(req, map[string]string{"id": "rep-1"})
	w = httptest.NewRecorder()
	handler.HandleAddAttachment(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandler_GetAttachment(t *testing.T) {
	handler, store, blobs, _ := setupReportHandler(t)

	stored := &domain.Report{
		ID: "rep-1",
		Attachments: []domain.Attachment{{
			ID:         "att-1",
			ReportID:   "rep-1",
			Kind:       domain.AttachmentPhoto,
			Filename:   "photo.jpg",
			StoredPath: "rep-1/photo.jpg",
			MIME:       "image/jpeg",
			SizeBytes:  3,
		}},
	}
	store.On("GetReport", mock.Anything, "rep-1").Return(stored, nil)
	blobs.On("Open", "rep-1/photo.jpg").Return(io.NopCloser(bytes.NewReader([]byte{0xFF, 0xD8, 0xFF})), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/rep-1/attachments/att-1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "rep-1", "attachmentID": "att-1"})
	w := httptest.NewRecorder()
	handler.HandleGetAttachment(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, w.Body.Bytes())

	// Unknown attachment id
	req = httptest.NewRequest(http.MethodGet, "/api/reports/rep-1/attachments/ghost", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "rep-1", "attachmentID": "ghost"})
	w = httptest.NewRecorder()
	handler.HandleGetAttachment(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportHandler_DownloadSummaryUnavailable(t *testing.T) {
	handler, _, _, _ := setupReportHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/download", nil)
	w := httptest.NewRecorder()
	handler.HandleDownloadSummary(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

package handlers

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

// MockReportStore is a mock of ports.ReportStore
type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) SaveReport(ctx context.Context, report domain.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportStore) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Report), args.Error(1)
}

func (m *MockReportStore) ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.Report, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Report), args.Error(1)
}

func (m *MockReportStore) UpdateReportStatus(ctx context.Context, id string, status domain.ReportStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockReportStore) SaveAttachment(ctx context.Context, att domain.Attachment) error {
	args := m.Called(ctx, att)
	return args.Error(0)
}

func (m *MockReportStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockBlobStore is a mock of ports.BlobStore
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Save(ctx context.Context, group, name string, r io.Reader, limit int64) (string, int64, error) {
	args := m.Called(ctx, group, name, r, limit)
	return args.String(0), args.Get(1).(int64), args.Error(2)
}

func (m *MockBlobStore) Open(path string) (io.ReadCloser, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockBlobStore) Remove(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

// MockAuditService is a mock of ports.AuditService
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Log(ctx context.Context, action domain.AuditAction, target, details string) error {
	args := m.Called(ctx, action, target, details)
	return args.Error(0)
}

func (m *MockAuditService) GetLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditLog), args.Error(1)
}

// MockAuthService is a mock of ports.AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	args := m.Called(ctx, creds)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) ValidateToken(ctx context.Context, token string) (*domain.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockAuthService) CreateUser(ctx context.Context, user domain.User, password string) error {
	args := m.Called(ctx, user, password)
	return args.Error(0)
}

// MockReverseGeocoder is a mock of ports.ReverseGeocoder
type MockReverseGeocoder struct {
	mock.Mock
}

func (m *MockReverseGeocoder) Reverse(ctx context.Context, c domain.Coordinate) (string, error) {
	args := m.Called(ctx, c)
	return args.String(0), args.Error(1)
}

func (m *MockReverseGeocoder) Close() error {
	args := m.Called()
	return args.Error(0)
}

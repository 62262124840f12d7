package audit

import (
	"context"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
)

type contextKey string

const (
	userKey contextKey = "audit_user"
	ipKey   contextKey = "audit_ip"
)

// WithUser attaches the acting operator to the context so Log can
// attribute entries. The HTTP middleware calls this after token
// validation; background jobs simply skip it and are recorded as
// "system".
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// WithClientIP attaches the remote address of the request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey, ip)
}

type AuditService struct {
	repo ports.AuditRepository
}

func NewAuditService(repo ports.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) Log(ctx context.Context, action domain.AuditAction, target, details string) error {
	userID := "system"
	username := "system"

	if u, ok := ctx.Value(userKey).(*domain.User); ok && u != nil {
		userID = u.ID
		username = u.Username
	}

	ip := ""
	if addr, ok := ctx.Value(ipKey).(string); ok {
		ip = addr
	}

	// Use Domain Factory to ensure business rules
	entry, err := domain.NewAuditLog(userID, username, action, target, details, ip)
	if err != nil {
		return err
	}

	return s.repo.SaveAuditLog(ctx, *entry)
}

func (s *AuditService) GetLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	return s.repo.ListAuditLogs(ctx, limit)
}

var _ ports.AuditService = (*AuditService)(nil)

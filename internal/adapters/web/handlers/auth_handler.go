package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/imedaveo16/imed-dz/internal/adapters/web/middleware"
	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
	"github.com/imedaveo16/imed-dz/internal/core/services/audit"
	"github.com/imedaveo16/imed-dz/internal/core/services/auth"
)

// AuthHandler handles operator login and session introspection.
type AuthHandler struct {
	Service ports.AuthService
	Audit   ports.AuditService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service ports.AuthService, auditService ports.AuditService) *AuthHandler {
	return &AuthHandler{
		Service: service,
		Audit:   auditService,
	}
}

// HandleLogin authenticates an operator and sets the session cookie.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}

	ctx := audit.WithClientIP(r.Context(), middleware.ClientIP(r))

	token, err := h.Service.Login(ctx, creds)
	if err != nil {
		h.auditLog(ctx, domain.ActionLoginDenied, creds.Username, err.Error())
		if errors.Is(err, auth.ErrRateLimitExceeded) {
			http.Error(w, "Too many attempts. Please try again later.", http.StatusTooManyRequests)
			return
		}
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	// Resolve the user so the audit entry names the actor
	if user, err := h.Service.ValidateToken(ctx, token); err == nil {
		ctx = audit.WithUser(ctx, user)
	}
	h.auditLog(ctx, domain.ActionLogin, creds.Username, "login ok")

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production
		SameSite: http.SameSiteStrictMode,
		MaxAge:   86400, // 24 hours
	})

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"logged_in"}`))
}

// HandleLogout invalidates the session token and clears the cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := audit.WithClientIP(r.Context(), middleware.ClientIP(r))

	if cookie, err := r.Cookie(middleware.AuthCookieName); err == nil && cookie.Value != "" {
		if user, err := h.Service.ValidateToken(ctx, cookie.Value); err == nil {
			ctx = audit.WithUser(ctx, user)
		}
		h.Service.Logout(ctx, cookie.Value)
		h.auditLog(ctx, domain.ActionLogout, "", "")
	}

	http.SetCookie(w, &http.Cookie{
		Name:   middleware.AuthCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"logged_out"}`))
}

// HandleMe returns the authenticated operator.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
}

func (h *AuthHandler) auditLog(ctx context.Context, action domain.AuditAction, target, details string) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Log(ctx, action, target, details); err != nil {
		log.Printf("[Web] Failed to record audit entry: %v", err)
	}
}

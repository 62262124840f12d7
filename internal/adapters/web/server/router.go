package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imedaveo16/imed-dz/internal/adapters/web/middleware"
	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()

	// Rate limiters
	loginLimiter := middleware.NewRateLimiter(5, 1*time.Minute)    // 5 login attempts per minute
	sessionLimiter := middleware.NewRateLimiter(30, 1*time.Minute) // 30 new sessions per minute per IP

	// Operator login
	r.Handle("/api/login", middleware.RateLimitMiddleware(loginLimiter)(http.HandlerFunc(s.AuthHandler.HandleLogin))).Methods(http.MethodPost)
	r.HandleFunc("/api/logout", s.AuthHandler.HandleLogout).Methods(http.MethodPost)

	// Citizen session lifecycle (public, the form has no login)
	r.Handle("/api/sessions", middleware.RateLimitMiddleware(sessionLimiter)(http.HandlerFunc(s.SessionHandler.HandleCreate))).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}", s.SessionHandler.HandleGet).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/locate", s.SessionHandler.HandleLocate).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/manual", s.SessionHandler.HandleManual).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/tap", s.SessionHandler.HandleTap).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/default", s.SessionHandler.HandleDefault).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/position", s.SessionHandler.HandlePosition).Methods(http.MethodPost)

	// Citizen submission (public)
	r.HandleFunc("/api/reports", s.ReportHandler.HandleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/api/reports/{id}/attachments", s.ReportHandler.HandleAddAttachment).Methods(http.MethodPost)
	r.HandleFunc("/api/config", s.ConfigHandler.HandleGetConfig).Methods(http.MethodGet)

	// WebSocket endpoint. Public: citizens drive their session over it.
	// Operators get the live report feed when their auth cookie checks out.
	r.HandleFunc("/ws", s.WSManager.HandleWebSocket)

	// Protected API
	auth := middleware.AuthMiddleware(s.AuthService)
	protect := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}

	// RBAC Middleware Helper (Operator Level)
	requireOperator := middleware.RoleMiddleware(domain.RoleOperator)
	protectOp := func(h http.HandlerFunc) http.Handler {
		return auth(requireOperator(h))
	}

	r.Handle("/api/me", protect(s.AuthHandler.HandleMe)).Methods(http.MethodGet)

	// Reports (operator dashboard). The download route must precede the
	// {id} route or gorilla matches it as a report id.
	r.Handle("/api/reports/download", protectOp(s.ReportHandler.HandleDownloadSummary)).Methods(http.MethodGet)
	r.Handle("/api/reports", protect(s.ReportHandler.HandleList)).Methods(http.MethodGet)
	r.Handle("/api/reports/{id}", protect(s.ReportHandler.HandleGet)).Methods(http.MethodGet)
	r.Handle("/api/reports/{id}/status", protectOp(s.ReportHandler.HandleUpdateStatus)).Methods(http.MethodPut)
	r.Handle("/api/reports/{id}/attachments/{attachmentID}", protect(s.ReportHandler.HandleGetAttachment)).Methods(http.MethodGet)

	r.Handle("/api/stats", protect(s.StatsHandler.HandleGetStats)).Methods(http.MethodGet)
	r.Handle("/api/export", protect(s.ExportHandler.HandleExport)).Methods(http.MethodGet)
	r.Handle("/api/geocode/reverse", protect(s.GeocodeHandler.HandleReverse)).Methods(http.MethodGet)

	// Audit Logs
	r.Handle("/api/audit-logs", protect(s.AuditHandler.HandleGetLogs)).Methods(http.MethodGet)

	// Metrics endpoint (protected - requires authentication)
	r.Handle("/metrics", protect(func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	}))

	// Static files. The citizen form lives at /, the operator dashboard
	// under /admin/ behind the login redirect.
	fileServer := http.FileServer(http.Dir(s.StaticDir))
	r.PathPrefix("/").Handler(middleware.AuthRedirectMiddleware()(fileServer))

	return r
}

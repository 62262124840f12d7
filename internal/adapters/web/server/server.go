package server

import (
	"context"
	"log"
	"net/http"

	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/imedaveo16/imed-dz/internal/adapters/reporting"
	"github.com/imedaveo16/imed-dz/internal/adapters/web/handlers"
	"github.com/imedaveo16/imed-dz/internal/adapters/web/websocket"
	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
	"github.com/imedaveo16/imed-dz/internal/core/services/report"
	reportingService "github.com/imedaveo16/imed-dz/internal/core/services/reporting"
	"github.com/imedaveo16/imed-dz/internal/core/services/session"
)

// Config carries everything the web layer needs from the application.
type Config struct {
	Addr           string
	StaticDir      string
	AllowedOrigins []string

	Sessions     *session.Manager
	Bridge       ports.ClientBridge
	Reports      *report.Service
	AuthService  ports.AuthService
	AuditService ports.AuditService
	Geocoder     ports.ReverseGeocoder

	SummaryGenerator *reportingService.SummaryGenerator
	PDFExporter      *reporting.PDFExporter

	DefaultCoordinate domain.Coordinate
	MapZoom           int
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	Addr      string
	StaticDir string

	AuthService  ports.AuthService
	AuditService ports.AuditService
	WSManager    *websocket.WSManager

	SessionHandler *handlers.SessionHandler
	ReportHandler  *handlers.ReportHandler
	AuthHandler    *handlers.AuthHandler
	AuditHandler   *handlers.AuditHandler
	StatsHandler   *handlers.StatsHandler
	ExportHandler  *handlers.ExportHandler
	GeocodeHandler *handlers.GeocodeHandler
	ConfigHandler  *handlers.ConfigHandler

	srv *http.Server
}

// NewServer creates a new web server.
func NewServer(cfg Config) *Server {
	reportHandler := handlers.NewReportHandler(cfg.Reports, cfg.AuditService)
	reportHandler.SummaryGenerator = cfg.SummaryGenerator
	reportHandler.PDFExporter = cfg.PDFExporter

	return &Server{
		Addr:      cfg.Addr,
		StaticDir: cfg.StaticDir,

		AuthService:  cfg.AuthService,
		AuditService: cfg.AuditService,

		WSManager:      websocket.NewWSManager(cfg.Sessions, cfg.Bridge, cfg.AuthService, cfg.AllowedOrigins),
		SessionHandler: handlers.NewSessionHandler(cfg.Sessions, cfg.Bridge),
		ReportHandler:  reportHandler,
		AuthHandler:    handlers.NewAuthHandler(cfg.AuthService, cfg.AuditService),
		AuditHandler:   handlers.NewAuditHandler(cfg.AuditService),
		StatsHandler:   handlers.NewStatsHandler(cfg.SummaryGenerator),
		ExportHandler:  handlers.NewExportHandler(cfg.Reports, cfg.AuditService),
		GeocodeHandler: handlers.NewGeocodeHandler(cfg.Geocoder),
		ConfigHandler:  handlers.NewConfigHandler(cfg.DefaultCoordinate, cfg.MapZoom),
	}
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	handler := SetupRoutes(s)

	// Instrument with OpenTelemetry
	instrumentedHandler := otelhttp.NewHandler(handler, "imed-server")

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           instrumentedHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful Shutdown implementation
	go func() {
		<-ctx.Done()
		log.Println("Web Server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Web Server shutdown error: %v", err)
		}
	}()

	log.Printf("Web server listening on %s", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

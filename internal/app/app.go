package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/imedaveo16/imed-dz/internal/adapters/blob"
	"github.com/imedaveo16/imed-dz/internal/adapters/geocode"
	"github.com/imedaveo16/imed-dz/internal/adapters/positioning"
	pdfreporting "github.com/imedaveo16/imed-dz/internal/adapters/reporting"
	"github.com/imedaveo16/imed-dz/internal/adapters/storage"
	webserver "github.com/imedaveo16/imed-dz/internal/adapters/web/server"
	"github.com/imedaveo16/imed-dz/internal/config"
	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/services/audit"
	"github.com/imedaveo16/imed-dz/internal/core/services/auth"
	"github.com/imedaveo16/imed-dz/internal/core/services/report"
	"github.com/imedaveo16/imed-dz/internal/core/services/reporting"
	"github.com/imedaveo16/imed-dz/internal/core/services/session"
	"github.com/imedaveo16/imed-dz/internal/core/services/triage"
	"github.com/imedaveo16/imed-dz/internal/mock"
	"github.com/imedaveo16/imed-dz/internal/telemetry"
)

// cleanupInterval is how often idle form sessions are pruned.
const cleanupInterval = 1 * time.Minute

// Application holds the core components of the application.
// It acts as the Facade for the entire system, orchestrating services and infrastructure.
type Application struct {
	Config       *config.Config
	Store        *storage.SQLiteAdapter
	Blobs        *blob.DiskStore
	Resolver     *geocode.Resolver
	Bridge       *positioning.Bridge
	Sessions     *session.Manager
	Reports      *report.Service
	AuthService  *auth.AuthService
	AuditService *audit.AuditService
	WebServer    *webserver.Server
	Demo         *mock.Integration
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{
		Config: cfg,
	}

	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}

	return app, nil
}

// bootstrap orchestrates the initialization sequence.
func (app *Application) bootstrap() error {
	// 1. Foundation & Infrastructure
	telemetry.InitMetrics()

	store, err := app.initStorage()
	if err != nil {
		return err
	}
	app.Store = store

	blobs, err := blob.NewDiskStore(app.Config.DataDir)
	if err != nil {
		return fmt.Errorf("failed to init attachment storage: %w", err)
	}
	app.Blobs = blobs

	resolver, err := geocode.NewResolver(geocode.Options{
		PlacesPath:   app.Config.PlacesDBPath,
		NominatimURL: app.Config.NominatimURL,
	})
	if err != nil {
		return fmt.Errorf("failed to init geocode resolver: %w", err)
	}
	app.Resolver = resolver

	// 2. Session Plumbing
	app.Bridge = positioning.NewBridge()
	app.Sessions = session.NewManager(app.Bridge, app.Resolver, app.defaultCoordinate(), app.Config.MapZoom)

	// 3. Domain Services
	app.AuditService = audit.NewAuditService(app.Store)
	app.AuthService = auth.NewAuthService(app.Store)

	if err := app.ensureDefaultAdmin(); err != nil {
		log.Printf("Warning: could not ensure default admin: %v", err)
	}

	triageEngine := triage.NewEngine(
		triage.DefaultLocationRule{},
		triage.ServiceAreaRule{Area: app.Config.Area},
		triage.NewDuplicateRule(app.Store),
	)

	app.Reports = report.New(report.Config{
		Store:    app.Store,
		Blobs:    app.Blobs,
		Geocoder: app.Resolver,
		Triage:   triageEngine,
		Audit:    app.AuditService,
		Sessions: app.Sessions,
	})

	// 4. Web Server & Observers
	app.WebServer = webserver.NewServer(webserver.Config{
		Addr:           app.Config.Addr,
		StaticDir:      app.Config.StaticDir,
		AllowedOrigins: app.Config.AllowedOrigins,

		Sessions:     app.Sessions,
		Bridge:       app.Bridge,
		Reports:      app.Reports,
		AuthService:  app.AuthService,
		AuditService: app.AuditService,
		Geocoder:     app.Resolver,

		SummaryGenerator: reporting.NewSummaryGenerator(app.Store),
		PDFExporter:      pdfreporting.NewPDFExporter(),

		DefaultCoordinate: app.defaultCoordinate(),
		MapZoom:           app.Config.MapZoom,
	})

	app.Sessions.AddObserver(app.WebServer.WSManager)
	app.Reports.AddObserver(app.WebServer.WSManager)

	// 5. Demo Integration
	if app.Config.DemoMode {
		app.Demo = mock.NewIntegration(app.Sessions, app.Reports, app.Bridge, app.Config.DemoScenario)
		log.Println("Demo Mode Active: simulating citizen traffic")
	}

	return nil
}

func (app *Application) initStorage() (*storage.SQLiteAdapter, error) {
	if err := os.MkdirAll(filepath.Dir(app.Config.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	store, err := storage.NewSQLiteAdapter(app.Config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init system storage: %w", err)
	}
	return store, nil
}

func (app *Application) ensureDefaultAdmin() error {
	if _, err := app.Store.GetByUsername(context.Background(), app.Config.AdminUser); err != nil {
		log.Println("Provisioning default admin user...")
		return app.AuthService.CreateUser(context.Background(), domain.User{
			Username: app.Config.AdminUser,
			Role:     domain.RoleAdmin,
		}, app.Config.AdminPassword)
	}
	return nil
}

func (app *Application) defaultCoordinate() domain.Coordinate {
	return domain.Coordinate{
		Lat: app.Config.Latitude,
		Lng: app.Config.Longitude,
	}
}

// Run starts the application components and manages their execution lifecycle.
func (app *Application) Run(ctx context.Context) error {
	slog.Info("Starting IMED components...")

	// 1. Auxiliary Loops
	app.Sessions.Start(ctx)
	app.Sessions.StartCleanupLoop(ctx, app.Config.SessionTTL, cleanupInterval)

	// 2. Servers & Integration
	errChan := make(chan error, 1)

	go func() {
		log.Printf("Web Server listening on %s", app.Config.Addr)
		if err := app.WebServer.Run(ctx); err != nil {
			errChan <- fmt.Errorf("web server error: %w", err)
		}
	}()

	if app.Demo != nil {
		app.Demo.Start(ctx)
	}

	slog.Info("IMED Ready. Press Ctrl+C to terminate.")

	select {
	case <-ctx.Done():
		slog.Info("Termination signal received")
	case err := <-errChan:
		return err
	}

	return app.cleanup()
}

func (app *Application) cleanup() error {
	slog.Info("Cleaning up resources...")

	if app.Demo != nil {
		app.Demo.Stop()
	}

	if app.Resolver != nil {
		if err := app.Resolver.Close(); err != nil {
			log.Printf("Error closing geocode resolver: %v", err)
		}
	}

	if app.Store != nil {
		return app.Store.Close()
	}
	return nil
}

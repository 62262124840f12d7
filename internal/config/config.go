package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/geo"
)

// defaultAreaRadius sizes the service bounding box around the default
// coordinate when no explicit box is configured.
const defaultAreaRadius = 30000.0 // meters

// Config holds all application configuration.
type Config struct {
	Addr      string
	StaticDir string
	DBPath    string
	DataDir   string

	Latitude  float64
	Longitude float64
	MapZoom   int
	Area      domain.BoundingBox

	SessionTTL     time.Duration
	AllowedOrigins []string

	NominatimURL string
	PlacesDBPath string

	DemoMode     bool
	DemoScenario string

	AdminUser     string
	AdminPassword string

	Debug bool
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	// Defaults and Environment Variables
	cfg.Addr = getEnv("IMED_ADDR", ":8080")
	cfg.StaticDir = getEnv("IMED_STATIC", "./internal/adapters/web/static")
	cfg.DBPath = getEnv("IMED_DB", getDefaultDBPath())
	cfg.DataDir = getEnv("IMED_DATA", getDefaultDataDir())
	cfg.Latitude = getEnvFloat("IMED_LAT", 36.7538)
	cfg.Longitude = getEnvFloat("IMED_LNG", 3.0588)
	cfg.MapZoom = getEnvInt("IMED_ZOOM", 16)
	cfg.SessionTTL = time.Duration(getEnvInt("IMED_SESSION_TTL_MIN", 30)) * time.Minute
	cfg.NominatimURL = getEnv("IMED_NOMINATIM", "")
	cfg.PlacesDBPath = getEnv("IMED_PLACES_DB", "")
	cfg.DemoMode = getEnvBool("IMED_DEMO", false)
	cfg.DemoScenario = getEnv("IMED_DEMO_SCENARIO", "instant_fix")
	cfg.AdminUser = getEnv("IMED_ADMIN_USER", "admin")
	cfg.AdminPassword = getEnv("IMED_ADMIN_PASS", "changeit")

	originsStr := getEnv("IMED_ORIGINS", "")
	areaStr := getEnv("IMED_AREA", "")

	// Command Line Flags (Override Env)
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	flag.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "Path to static web assets")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database")
	flag.StringVar(&cfg.DataDir, "data", cfg.DataDir, "Directory for attachment payloads")
	flag.Float64Var(&cfg.Latitude, "lat", cfg.Latitude, "Default latitude offered to citizens")
	flag.Float64Var(&cfg.Longitude, "lng", cfg.Longitude, "Default longitude offered to citizens")
	flag.IntVar(&cfg.MapZoom, "zoom", cfg.MapZoom, "Map zoom level used when centering")
	flag.StringVar(&areaStr, "area", areaStr, "Service area as minLat,minLng,maxLat,maxLng (empty for a box around the default coordinate)")
	flag.StringVar(&originsStr, "origins", originsStr, "Allowed WebSocket origins (comma separated, empty allows same host)")
	flag.StringVar(&cfg.NominatimURL, "nominatim", cfg.NominatimURL, "Nominatim base URL for reverse geocoding (empty to disable)")
	flag.StringVar(&cfg.PlacesDBPath, "places-db", cfg.PlacesDBPath, "Path to the local places SQLite gazetteer (empty to disable)")
	flag.BoolVar(&cfg.DemoMode, "demo", cfg.DemoMode, "Run with simulated citizen sessions")
	flag.StringVar(&cfg.DemoScenario, "demo-scenario", cfg.DemoScenario, "Simulated client behavior (instant_fix, retry_then_fix, denied, dead_device, no_geolocation, mixed)")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")

	flag.Parse()

	cfg.AllowedOrigins = parseList(originsStr)
	cfg.Area = parseArea(areaStr, domain.Coordinate{Lat: cfg.Latitude, Lng: cfg.Longitude})

	return cfg
}

// Validate checks ranges before the application boots on bad input.
func (c *Config) Validate() error {
	def := domain.Coordinate{Lat: c.Latitude, Lng: c.Longitude}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("default coordinate: %w", err)
	}
	if c.MapZoom < 1 || c.MapZoom > 20 {
		return fmt.Errorf("map zoom %d out of range 1..20", c.MapZoom)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Area.MinLat >= c.Area.MaxLat || c.Area.MinLng >= c.Area.MaxLng {
		return fmt.Errorf("service area box is inverted or empty")
	}
	if c.AdminUser == "" {
		return fmt.Errorf("admin username must not be empty")
	}
	return nil
}

func parseList(s string) []string {
	var items []string
	if s == "" {
		return items
	}
	parts := strings.Split(s, ",")
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// parseArea reads "minLat,minLng,maxLat,maxLng". Anything malformed falls
// back to a box around the default coordinate.
func parseArea(s string, def domain.Coordinate) domain.BoundingBox {
	if s == "" {
		return geo.BoxAround(def, defaultAreaRadius)
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		log.Printf("Warning: ignoring malformed service area %q", s)
		return geo.BoxAround(def, defaultAreaRadius)
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			log.Printf("Warning: ignoring malformed service area %q", s)
			return geo.BoxAround(def, defaultAreaRadius)
		}
		vals[i] = f
	}

	return domain.BoundingBox{MinLat: vals[0], MinLng: vals[1], MaxLat: vals[2], MaxLng: vals[3]}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getDefaultDBPath returns the default database path in user's home directory.
// Creates the directory if it doesn't exist.
func getDefaultDBPath() string {
	return filepath.Join(stateDir(), "imed.db")
}

// getDefaultDataDir returns where attachment payloads are stored.
func getDefaultDataDir() string {
	return filepath.Join(stateDir(), "attachments")
}

func stateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return "."
	}

	// Use ~/.imed directory
	imedDir := filepath.Join(home, ".imed")

	// Create directory if it doesn't exist
	if err := os.MkdirAll(imedDir, 0755); err != nil {
		log.Printf("Warning: Could not create .imed directory, using current dir: %v", err)
		return "."
	}

	return imedDir
}

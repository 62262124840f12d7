package geocode

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/geo"
)

// maxSearchRadiusMeters caps the gazetteer search radius. A wider net
// returns places too far away to name the queried coordinate.
const maxSearchRadiusMeters = 25000

// PlacesDB provides offline address lookup from a local gazetteer of named
// places. Lookups find the nearest place within a search radius, capped at
// maxSearchRadiusMeters.
type PlacesDB struct {
	db     *sql.DB
	dbPath string
	radius float64
	mu     sync.RWMutex
	closed bool

	// Prepared statement for better performance
	lookupStmt *sql.Stmt
}

// PlaceEntry represents a single gazetteer entry
type PlaceEntry struct {
	Name    string
	Commune string
	Wilaya  string
	Lat     float64
	Lng     float64
}

// NewPlacesDB opens (and if necessary initializes) a places database.
func NewPlacesDB(dbPath string, searchRadiusMeters float64) (*PlacesDB, error) {
	if searchRadiusMeters > maxSearchRadiusMeters {
		searchRadiusMeters = maxSearchRadiusMeters
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, &DatabaseError{Op: "open", Err: err}
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &DatabaseError{Op: "ping", Err: err}
	}

	places := &PlacesDB{
		db:     db,
		dbPath: dbPath,
		radius: searchRadiusMeters,
	}

	// Create table if not exists
	if err := places.initializeSchema(); err != nil {
		db.Close()
		return nil, &DatabaseError{Op: "initialize_schema", Err: err}
	}

	// Prepare lookup statement
	stmt, err := db.Prepare(`
		SELECT name, commune, wilaya, lat, lng FROM places
		WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?
	`)
	if err != nil {
		db.Close()
		return nil, &DatabaseError{Op: "prepare_statement", Err: err}
	}
	places.lookupStmt = stmt

	return places, nil
}

// initializeSchema creates the places table if it doesn't exist
func (p *PlacesDB) initializeSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS places (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		commune TEXT,
		wilaya TEXT,
		lat REAL NOT NULL,
		lng REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_places_lat ON places(lat);
	CREATE INDEX IF NOT EXISTS idx_places_lng ON places(lng);
	`

	_, err := p.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Nearest returns a formatted address for the closest place within the search
// radius, or ErrAddressNotFound when nothing is close enough.
func (p *PlacesDB) Nearest(ctx context.Context, coord domain.Coordinate) (string, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return "", ErrGeocoderClosed
	}
	p.mu.RUnlock()

	box := geo.BoxAround(coord, p.radius)
	rows, err := p.lookupStmt.QueryContext(ctx, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		return "", &DatabaseError{Op: "lookup", Err: err}
	}
	defer rows.Close()

	best := PlaceEntry{}
	bestDist := p.radius + 1
	found := false

	for rows.Next() {
		var entry PlaceEntry
		if err := rows.Scan(&entry.Name, &entry.Commune, &entry.Wilaya, &entry.Lat, &entry.Lng); err != nil {
			return "", &DatabaseError{Op: "scan", Err: err}
		}
		dist := geo.Distance(coord, domain.Coordinate{Lat: entry.Lat, Lng: entry.Lng})
		if dist <= p.radius && dist < bestDist {
			best = entry
			bestDist = dist
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return "", &DatabaseError{Op: "iterate", Err: err}
	}

	if !found {
		return "", ErrAddressNotFound
	}
	return formatPlace(best), nil
}

// InsertPlace adds a single entry.
func (p *PlacesDB) InsertPlace(ctx context.Context, entry PlaceEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrGeocoderClosed
	}

	query := `INSERT INTO places (name, commune, wilaya, lat, lng) VALUES (?, ?, ?, ?, ?)`
	_, err := p.db.ExecContext(ctx, query, entry.Name, entry.Commune, entry.Wilaya, entry.Lat, entry.Lng)
	if err != nil {
		return &DatabaseError{Op: "insert", Err: err}
	}
	return nil
}

// BulkInsertPlaces loads entries in one transaction. Used by the loader tool.
func (p *PlacesDB) BulkInsertPlaces(ctx context.Context, entries []PlaceEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrGeocoderClosed
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return &DatabaseError{Op: "begin_transaction", Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO places (name, commune, wilaya, lat, lng) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return &DatabaseError{Op: "prepare_bulk_insert", Err: err}
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.ExecContext(ctx, entry.Name, entry.Commune, entry.Wilaya, entry.Lat, entry.Lng); err != nil {
			return &DatabaseError{Op: "bulk_insert_entry", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &DatabaseError{Op: "commit_transaction", Err: err}
	}
	return nil
}

// Count returns the number of loaded places.
func (p *PlacesDB) Count(ctx context.Context) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrGeocoderClosed
	}

	var count int
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM places").Scan(&count); err != nil {
		return 0, &DatabaseError{Op: "count", Err: err}
	}
	return count, nil
}

// Close releases the database handle.
func (p *PlacesDB) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.lookupStmt != nil {
		p.lookupStmt.Close()
	}
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func formatPlace(entry PlaceEntry) string {
	parts := []string{entry.Name}
	if entry.Commune != "" && entry.Commune != entry.Name {
		parts = append(parts, entry.Commune)
	}
	if entry.Wilaya != "" && entry.Wilaya != entry.Commune {
		parts = append(parts, entry.Wilaya)
	}
	return strings.Join(parts, ", ")
}

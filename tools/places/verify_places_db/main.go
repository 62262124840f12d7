package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/imedaveo16/imed-dz/internal/adapters/geocode"
	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

func main() {
	dbPath := flag.String("db", "./data/places.db", "Path to places database")
	flag.Parse()

	db, err := geocode.NewPlacesDB(*dbPath, 500)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	count, err := db.Count(ctx)
	if err != nil {
		log.Fatalf("Failed to count places: %v", err)
	}

	fmt.Printf("Places Database Statistics:\n")
	fmt.Printf("  Total entries: %d\n", count)
	fmt.Println()

	// Test lookups around known Algiers landmarks
	testCoords := []struct {
		label string
		coord domain.Coordinate
	}{
		{"Grande Poste", domain.Coordinate{Lat: 36.7754, Lng: 3.0588}},
		{"Jardin d'Essai", domain.Coordinate{Lat: 36.7470, Lng: 3.0744}},
		{"Casbah", domain.Coordinate{Lat: 36.7853, Lng: 3.0604}},
		{"Bab El Oued", domain.Coordinate{Lat: 36.7925, Lng: 3.0514}},
		{"Open sea", domain.Coordinate{Lat: 37.5, Lng: 3.0}},
	}

	fmt.Println("Test Lookups:")
	for _, tc := range testCoords {
		address, err := db.Nearest(ctx, tc.coord)
		switch {
		case errors.Is(err, geocode.ErrAddressNotFound):
			fmt.Printf("  %-14s (%.4f, %.4f) -> no place in range\n", tc.label, tc.coord.Lat, tc.coord.Lng)
		case err != nil:
			log.Printf("  %-14s (%.4f, %.4f) -> ERROR: %v", tc.label, tc.coord.Lat, tc.coord.Lng, err)
		default:
			fmt.Printf("  %-14s (%.4f, %.4f) -> %s\n", tc.label, tc.coord.Lat, tc.coord.Lng, address)
		}
	}
}

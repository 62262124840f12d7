package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/imedaveo16/imed-dz/internal/adapters/geocode"
)

func main() {
	csvFile := flag.String("csv", "./data/places.csv", "Path to places CSV file (name,commune,wilaya,lat,lng)")
	dbPath := flag.String("db", "./data/places.db", "Path to places database")
	flag.Parse()

	log.Println("=== Places Loader ===")
	log.Printf("CSV file: %s", *csvFile)
	log.Printf("Database: %s", *dbPath)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	places, err := geocode.NewPlacesDB(*dbPath, 500)
	if err != nil {
		log.Fatalf("Failed to open places database: %v", err)
	}
	defer places.Close()

	f, err := os.Open(*csvFile)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer f.Close()

	ctx := context.Background()

	count, err := places.ImportCSV(ctx, f)
	if err != nil {
		log.Fatalf("Failed to import places: %v", err)
	}

	total, _ := places.Count(ctx)
	log.Printf("✓ Imported %d places (database now contains %d)", count, total)
}

package geocode

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

// importBatchSize bounds how many rows go into one transaction.
const importBatchSize = 500

// ImportCSV loads gazetteer entries from a CSV stream with the header
// name,commune,wilaya,lat,lng. Rows with malformed or out-of-range
// coordinates are skipped with a warning. Returns the number of rows
// inserted.
func (p *PlacesDB) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if err := validateImportHeader(header); err != nil {
		return 0, err
	}

	inserted := 0
	skipped := 0
	batch := make([]PlaceEntry, 0, importBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.BulkInsertPlaces(ctx, batch); err != nil {
			return err
		}
		inserted += len(batch)
		batch = batch[:0]
		return nil
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return inserted, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		entry, err := parsePlaceRecord(record)
		if err != nil {
			log.Printf("[PlacesImport] Skipping line %d: %v", line, err)
			skipped++
			continue
		}

		batch = append(batch, entry)
		if len(batch) >= importBatchSize {
			if err := flush(); err != nil {
				return inserted, err
			}
		}
	}

	if err := flush(); err != nil {
		return inserted, err
	}

	if skipped > 0 {
		log.Printf("[PlacesImport] Skipped %d invalid row(s)", skipped)
	}
	return inserted, nil
}

func validateImportHeader(header []string) error {
	expected := []string{"name", "commune", "wilaya", "lat", "lng"}
	if len(header) != len(expected) {
		return fmt.Errorf("unexpected CSV header %v, want %v", header, expected)
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(col), expected[i]) {
			return fmt.Errorf("unexpected CSV header %v, want %v", header, expected)
		}
	}
	return nil
}

func parsePlaceRecord(record []string) (PlaceEntry, error) {
	if len(record) != 5 {
		return PlaceEntry{}, fmt.Errorf("want 5 fields, got %d", len(record))
	}

	name := strings.TrimSpace(record[0])
	if name == "" {
		return PlaceEntry{}, fmt.Errorf("empty place name")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
	if err != nil {
		return PlaceEntry{}, fmt.Errorf("bad latitude %q", record[3])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
	if err != nil {
		return PlaceEntry{}, fmt.Errorf("bad longitude %q", record[4])
	}
	if err := (domain.Coordinate{Lat: lat, Lng: lng}).Validate(); err != nil {
		return PlaceEntry{}, err
	}

	return PlaceEntry{
		Name:    name,
		Commune: strings.TrimSpace(record[1]),
		Wilaya:  strings.TrimSpace(record[2]),
		Lat:     lat,
		Lng:     lng,
	}, nil
}

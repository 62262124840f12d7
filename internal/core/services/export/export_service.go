package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

// ExportJSON writes reports as an indented JSON array
func ExportJSON(w io.Writer, reports []domain.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(reports)
}

// ExportCSV writes reports as CSV with headers
func ExportCSV(w io.Writer, reports []domain.Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	// Header row
	headers := []string{
		"ID", "SessionID", "Category", "Status", "Description",
		"Address", "Source", "Flags", "Attachments",
		"Latitude", "Longitude",
		"CreatedAt", "UpdatedAt",
	}
	if err := writer.Write(headers); err != nil {
		return err
	}

	// Data rows
	for _, r := range reports {
		row := []string{
			r.ID,
			r.SessionID,
			string(r.Category),
			string(r.Status),
			r.Description,
			r.Address,
			string(r.Source),
			strings.Join(r.Flags, "|"),
			fmt.Sprintf("%d", len(r.Attachments)),
			fmt.Sprintf("%.6f", r.Coordinate.Lat),
			fmt.Sprintf("%.6f", r.Coordinate.Lng),
			r.CreatedAt.Format(time.RFC3339),
			r.UpdatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

// geoJSON wire types. Coordinates follow the GeoJSON axis order,
// longitude first.
type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

type geoJSONFeature struct {
	Type       string                 `json:"type"`
	Geometry   geoJSONGeometry        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geoJSONGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// ExportGeoJSON writes reports as a GeoJSON FeatureCollection of points,
// ready for map overlays.
func ExportGeoJSON(w io.Writer, reports []domain.Report) error {
	collection := geoJSONCollection{
		Type:     "FeatureCollection",
		Features: make([]geoJSONFeature, 0, len(reports)),
	}

	for _, r := range reports {
		collection.Features = append(collection.Features, geoJSONFeature{
			Type: "Feature",
			Geometry: geoJSONGeometry{
				Type:        "Point",
				Coordinates: [2]float64{r.Coordinate.Lng, r.Coordinate.Lat},
			},
			Properties: map[string]interface{}{
				"id":          r.ID,
				"category":    string(r.Category),
				"status":      string(r.Status),
				"description": r.Description,
				"address":     r.Address,
				"source":      string(r.Source),
				"flags":       r.Flags,
				"created_at":  r.CreatedAt.Format(time.RFC3339),
			},
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(collection)
}

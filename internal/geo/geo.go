package geo

import (
	"math"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

const earthRadiusMeters = 6371000

// Provider defines the interface for obtaining an anchor coordinate, such
// as the configured default location a deployment serves.
type Provider interface {
	GetCoordinate() domain.Coordinate
}

// StaticProvider implements Provider with a fixed coordinate.
type StaticProvider struct {
	Lat float64
	Lng float64
}

// NewStaticProvider creates a provider that always returns the same coordinate.
func NewStaticProvider(lat, lng float64) *StaticProvider {
	return &StaticProvider{
		Lat: lat,
		Lng: lng,
	}
}

// GetCoordinate returns the fixed coordinate.
func (s *StaticProvider) GetCoordinate() domain.Coordinate {
	return domain.Coordinate{
		Lat: s.Lat,
		Lng: s.Lng,
	}
}

// Distance returns the haversine great-circle distance between two
// coordinates in meters.
func Distance(a, b domain.Coordinate) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DegreesPerMeterLat is the approximate latitude degree span of one meter,
// used to build bounding boxes for nearest-place queries.
const DegreesPerMeterLat = 1.0 / 111320.0

// BoxAround returns a bounding box extending radiusMeters in every
// direction from the center. Longitude span widens with latitude.
func BoxAround(center domain.Coordinate, radiusMeters float64) domain.BoundingBox {
	dLat := radiusMeters * DegreesPerMeterLat
	cosLat := math.Cos(center.Lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLng := dLat / cosLat

	return domain.BoundingBox{
		MinLat: center.Lat - dLat,
		MaxLat: center.Lat + dLat,
		MinLng: center.Lng - dLng,
		MaxLng: center.Lng + dLng,
	}
}

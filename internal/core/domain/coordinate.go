package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrLatitudeRange  = errors.New("latitude must be between -90 and 90")
	ErrLongitudeRange = errors.New("longitude must be between -180 and 180")
)

// Coordinate is an immutable WGS84 position pair. It is produced by exactly
// one of device positioning, a manual map tap, or the static default.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks the pair against WGS84 bounds.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return ErrLatitudeRange
	}
	if c.Lng < -180 || c.Lng > 180 {
		return ErrLongitudeRange
	}
	return nil
}

// String renders the pair with 5-decimal precision (about one meter),
// used as the last-resort address fallback.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.5f, %.5f", c.Lat, c.Lng)
}

// Source identifies how a coordinate was produced.
type Source string

const (
	SourceDevice  Source = "device"
	SourceManual  Source = "manual"
	SourceDefault Source = "default"
)

// IsValid reports whether the source is a recognized origin.
func (s Source) IsValid() bool {
	switch s {
	case SourceDevice, SourceManual, SourceDefault:
		return true
	}
	return false
}

// Selection is a finalized coordinate choice delivered to consumers,
// tagged with its origin and the time it was made.
type Selection struct {
	Coordinate Coordinate `json:"coordinate"`
	Source     Source     `json:"source"`
	At         time.Time  `json:"at"`
}

// BoundingBox is a lat/lng rectangle, used for the service-area check.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// IsZero reports whether the box is unset.
func (b BoundingBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains reports whether the coordinate falls inside the box.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lng >= b.MinLng && c.Lng <= b.MaxLng
}

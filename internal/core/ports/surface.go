package ports

import "github.com/imedaveo16/imed-dz/internal/core/domain"

// MapSurface is the interactive map a session renders on. The controller
// drives it with observable side effects whenever a coordinate is reached;
// it never reports back. A session without rendering capability runs with
// no surface at all (degraded mode).
type MapSurface interface {
	// CenterOn pans the surface to the coordinate at the given zoom.
	CenterOn(c domain.Coordinate, zoom int)

	// PlaceMarker drops or moves the selection marker.
	PlaceMarker(c domain.Coordinate)
}

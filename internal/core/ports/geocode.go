package ports

import (
	"context"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

// ReverseGeocoder resolves a coordinate to a human-readable address.
// Implementations must degrade rather than fail: when no source can
// resolve the coordinate, a formatted coordinate string is returned.
type ReverseGeocoder interface {
	// Reverse returns the best available address for the coordinate.
	Reverse(ctx context.Context, c domain.Coordinate) (string, error)

	// Close releases database handles and in-flight resources.
	Close() error
}

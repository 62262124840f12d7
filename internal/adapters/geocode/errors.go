package geocode

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure cases
var (
	// ErrAddressNotFound indicates no place was found near the coordinate
	ErrAddressNotFound = errors.New("address not found")

	// ErrGeocoderClosed indicates the resolver has been closed
	ErrGeocoderClosed = errors.New("geocoder is closed")

	// ErrRemoteUnavailable indicates the remote geocoding service failed
	ErrRemoteUnavailable = errors.New("remote geocoder unavailable")
)

// DatabaseError wraps database-specific errors with context
type DatabaseError struct {
	Op  string // Operation that failed (e.g., "lookup", "insert")
	Err error  // Underlying error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("places database %s failed: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

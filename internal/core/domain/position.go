package domain

import (
	"fmt"
	"time"
)

// PositionErrorCode mirrors the W3C Geolocation error numbering so browser
// clients can relay platform errors without translation.
type PositionErrorCode int

const (
	PositionPermissionDenied PositionErrorCode = 1
	PositionUnavailable      PositionErrorCode = 2
	PositionTimeout          PositionErrorCode = 3
)

// PositionError is the failure outcome of one positioning attempt.
type PositionError struct {
	Code    PositionErrorCode `json:"code"`
	Message string            `json:"message,omitempty"`
}

func (e *PositionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("position error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("position error %d", e.Code)
}

// IsTimeout reports whether this is the timeout class the automatic
// retry policy keys on.
func (e *PositionError) IsTimeout() bool {
	return e != nil && e.Code == PositionTimeout
}

// PositionRequest describes one outstanding positioning call. AttemptID
// ties the asynchronous result back to the attempt that issued it; results
// carrying a stale id are discarded by the controller.
type PositionRequest struct {
	AttemptID    string        `json:"attempt_id"`
	HighAccuracy bool          `json:"high_accuracy"`
	Timeout      time.Duration `json:"-"`
	AllowCached  bool          `json:"allow_cached"`
}

// PositionResult carries exactly one of Coordinate or Err.
type PositionResult struct {
	AttemptID  string         `json:"attempt_id"`
	Coordinate *Coordinate    `json:"coordinate,omitempty"`
	Accuracy   float64        `json:"accuracy,omitempty"`
	Err        *PositionError `json:"error,omitempty"`
}

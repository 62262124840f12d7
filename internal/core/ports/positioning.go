package ports

import (
	"context"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

// PositioningProvider issues asynchronous position requests on behalf of
// the acquisition controller.
type PositioningProvider interface {
	// Available reports whether the provider can be called at all. An
	// unavailable provider makes acquisition fail silently without a call.
	Available() bool

	// RequestPosition issues exactly one positioning call. The deliver
	// callback fires at most once with either a coordinate or an error,
	// never both; the request timeout is enforced by the provider itself
	// and surfaces as a timeout-class error.
	RequestPosition(ctx context.Context, req domain.PositionRequest, deliver func(domain.PositionResult))
}

// ClientBridge connects per-session positioning and map-surface traffic to
// a connected client transport. The websocket layer attaches connections
// and relays replies; the session layer hands the per-session views to
// each controller.
type ClientBridge interface {
	// ProviderFor returns the session-scoped positioning provider.
	ProviderFor(sessionID string) PositioningProvider

	// SurfaceFor returns the session-scoped map surface.
	SurfaceFor(sessionID string) MapSurface

	// Attach binds a connected client to the session and replays any
	// outstanding position request to it. send wraps the payload into the
	// transport envelope.
	Attach(sessionID string, send func(msgType string, payload interface{}) error)

	// Detach unbinds the client. A pending request keeps its timer running
	// so an absent client still resolves as a timeout.
	Detach(sessionID string)

	// Deliver completes the outstanding request matching the result's
	// attempt id. Returns false when no such request exists (stale or
	// duplicate reply).
	Deliver(sessionID string, res domain.PositionResult) bool

	// Release drops all per-session state, cancelling any outstanding
	// request without delivering a result. Called when the session ends.
	Release(sessionID string)
}

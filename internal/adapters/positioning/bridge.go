package positioning

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
)

var (
	bridgeRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "imed",
		Subsystem: "bridge",
		Name:      "position_requests_total",
		Help:      "Position requests relayed to clients.",
	})

	bridgeTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "imed",
		Subsystem: "bridge",
		Name:      "position_timeouts_total",
		Help:      "Position requests resolved by the server-side timer.",
	})

	bridgeStaleReplies = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "imed",
		Subsystem: "bridge",
		Name:      "stale_replies_total",
		Help:      "Client replies that matched no outstanding request.",
	})
)

// Outbound message types emitted through the client send function.
const (
	MsgPositionRequest = "position_request"
	MsgMapCenter       = "map_center"
	MsgMapMarker       = "map_marker"
)

// defaultRequestTimeout guards requests that arrive without a deadline.
const defaultRequestTimeout = 10 * time.Second

// RequestPayload is the position_request message body.
type RequestPayload struct {
	AttemptID    string `json:"attempt_id"`
	HighAccuracy bool   `json:"high_accuracy"`
	TimeoutMs    int64  `json:"timeout_ms"`
	AllowCached  bool   `json:"allow_cached"`
}

// CenterPayload is the map_center message body.
type CenterPayload struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom int     `json:"zoom"`
}

// MarkerPayload is the map_marker message body.
type MarkerPayload struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type sendFunc func(msgType string, payload interface{}) error

// pendingRequest is the single outstanding positioning call of a session.
// The timer owns the timeout; a reply or expiry clears the entry, so
// deliver fires exactly once.
type pendingRequest struct {
	req     domain.PositionRequest
	deliver func(domain.PositionResult)
	timer   *time.Timer
}

// Bridge connects per-session positioning providers and map surfaces to
// connected clients. The transport layer attaches a send function per
// session; the bridge relays requests out and routes replies back by
// attempt id.
type Bridge struct {
	mu      sync.RWMutex
	clients map[string]sendFunc
	pending map[string]*pendingRequest
}

// NewBridge creates an empty bridge hub.
func NewBridge() *Bridge {
	return &Bridge{
		clients: make(map[string]sendFunc),
		pending: make(map[string]*pendingRequest),
	}
}

// ProviderFor returns the session-scoped positioning provider.
func (b *Bridge) ProviderFor(sessionID string) ports.PositioningProvider {
	return &sessionProvider{bridge: b, sessionID: sessionID}
}

// SurfaceFor returns the session-scoped map surface.
func (b *Bridge) SurfaceFor(sessionID string) ports.MapSurface {
	return &sessionSurface{bridge: b, sessionID: sessionID}
}

// Attach binds a client transport to the session. An outstanding request
// is replayed so a client that reconnected mid-attempt still answers it.
func (b *Bridge) Attach(sessionID string, send func(msgType string, payload interface{}) error) {
	b.mu.Lock()
	b.clients[sessionID] = send
	outstanding := b.pending[sessionID]
	b.mu.Unlock()

	if outstanding != nil {
		b.push(sessionID, send, outstanding.req)
	}
}

// Detach unbinds the client transport. The pending request survives; its
// timer resolves the attempt as a timeout if no client returns in time.
func (b *Bridge) Detach(sessionID string) {
	b.mu.Lock()
	delete(b.clients, sessionID)
	b.mu.Unlock()
}

// Deliver completes the outstanding request matching the result's attempt
// id. Stale and duplicate replies return false and are dropped.
func (b *Bridge) Deliver(sessionID string, res domain.PositionResult) bool {
	b.mu.Lock()
	outstanding := b.pending[sessionID]
	if outstanding == nil || outstanding.req.AttemptID != res.AttemptID {
		b.mu.Unlock()
		bridgeStaleReplies.Inc()
		return false
	}
	delete(b.pending, sessionID)
	b.mu.Unlock()

	outstanding.timer.Stop()
	outstanding.deliver(res)
	return true
}

// HasPending reports whether the session has an unanswered request.
func (b *Bridge) HasPending(sessionID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pending[sessionID] != nil
}

// Release drops the session's client binding and cancels any outstanding
// request without delivering a result. Used when the session is closed.
func (b *Bridge) Release(sessionID string) {
	b.mu.Lock()
	outstanding := b.pending[sessionID]
	delete(b.pending, sessionID)
	delete(b.clients, sessionID)
	b.mu.Unlock()

	if outstanding != nil {
		outstanding.timer.Stop()
	}
}

func (b *Bridge) begin(sessionID string, req domain.PositionRequest, deliver func(domain.PositionResult)) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	b.mu.Lock()
	// A replaced request is already stale to the controller; cancel its
	// timer and forget it.
	if old := b.pending[sessionID]; old != nil {
		old.timer.Stop()
	}
	timer := time.AfterFunc(timeout, func() {
		b.expire(sessionID, req.AttemptID)
	})
	b.pending[sessionID] = &pendingRequest{req: req, deliver: deliver, timer: timer}
	send := b.clients[sessionID]
	b.mu.Unlock()

	bridgeRequests.Inc()

	if send != nil {
		b.push(sessionID, send, req)
	}
}

func (b *Bridge) expire(sessionID, attemptID string) {
	b.mu.Lock()
	outstanding := b.pending[sessionID]
	if outstanding == nil || outstanding.req.AttemptID != attemptID {
		b.mu.Unlock()
		return
	}
	delete(b.pending, sessionID)
	b.mu.Unlock()

	bridgeTimeouts.Inc()
	outstanding.deliver(domain.PositionResult{
		AttemptID: attemptID,
		Err: &domain.PositionError{
			Code:    domain.PositionTimeout,
			Message: "no position reply before deadline",
		},
	})
}

func (b *Bridge) push(sessionID string, send sendFunc, req domain.PositionRequest) {
	payload := RequestPayload{
		AttemptID:    req.AttemptID,
		HighAccuracy: req.HighAccuracy,
		TimeoutMs:    req.Timeout.Milliseconds(),
		AllowCached:  req.AllowCached,
	}
	if err := send(MsgPositionRequest, payload); err != nil {
		// The timer still resolves the attempt; just note the dead pipe.
		log.Printf("[Bridge] Failed to push position request to %s: %v", sessionID, err)
	}
}

func (b *Bridge) sendTo(sessionID, msgType string, payload interface{}) {
	b.mu.RLock()
	send := b.clients[sessionID]
	b.mu.RUnlock()

	if send == nil {
		return
	}
	if err := send(msgType, payload); err != nil {
		log.Printf("[Bridge] Failed to send %s to %s: %v", msgType, sessionID, err)
	}
}

// sessionProvider is the per-session view handed to a controller.
type sessionProvider struct {
	bridge    *Bridge
	sessionID string
}

func (p *sessionProvider) Available() bool { return true }

func (p *sessionProvider) RequestPosition(ctx context.Context, req domain.PositionRequest, deliver func(domain.PositionResult)) {
	p.bridge.begin(p.sessionID, req, deliver)
}

// sessionSurface relays map effects to the session's client. Effects are
// fire-and-forget; with no client attached they are dropped.
type sessionSurface struct {
	bridge    *Bridge
	sessionID string
}

func (s *sessionSurface) CenterOn(c domain.Coordinate, zoom int) {
	s.bridge.sendTo(s.sessionID, MsgMapCenter, CenterPayload{Lat: c.Lat, Lng: c.Lng, Zoom: zoom})
}

func (s *sessionSurface) PlaceMarker(c domain.Coordinate) {
	s.bridge.sendTo(s.sessionID, MsgMapMarker, MarkerPayload{Lat: c.Lat, Lng: c.Lng})
}

// Ensure interface compliance
var _ ports.ClientBridge = (*Bridge)(nil)

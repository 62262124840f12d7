package acquisition

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
	"github.com/imedaveo16/imed-dz/internal/telemetry"
)

// CoordinateConsumer receives the finally-selected coordinate. It is
// invoked exactly once per transition into the located phase, never with
// a zero selection.
type CoordinateConsumer interface {
	OnLocationSelect(sel domain.Selection)
}

// Config assembles a controller for one form session.
type Config struct {
	// Initial is a caller-supplied coordinate; when set the controller
	// starts idle instead of auto-locating.
	Initial *domain.Coordinate

	// Provider issues positioning calls. Nil means the capability is
	// absent and acquisition fails silently.
	Provider ports.PositioningProvider

	// Surface renders map side effects. Nil in degraded mode.
	Surface ports.MapSurface

	// Degraded disables map-tap selection and triggers the one-time
	// warning on activation.
	Degraded bool

	// Default is the static fallback coordinate.
	Default domain.Coordinate

	// Zoom is passed to the surface when centering on a selection.
	Zoom int
}

// Controller owns the acquisition state of one session. All entry points
// serialize on one mutex; effects are collected under the lock and
// executed after it is released, so collaborators may call back in.
type Controller struct {
	mu        sync.Mutex
	state     domain.AcquisitionState
	attemptID string
	started   bool
	ctx       context.Context

	provider ports.PositioningProvider
	surface  ports.MapSurface
	def      domain.Coordinate
	zoom     int

	consumers []CoordinateConsumer
	noticeCb  func(domain.Notice)
	stateCb   func(domain.AcquisitionState)
}

// New creates a controller in the idle phase. Nothing happens until Start.
func New(cfg Config) *Controller {
	state := domain.AcquisitionState{
		Phase:    domain.PhaseIdle,
		Degraded: cfg.Degraded,
	}
	if cfg.Initial != nil {
		coord := *cfg.Initial
		state.Coordinate = &coord
	}

	zoom := cfg.Zoom
	if zoom <= 0 {
		zoom = 16
	}

	return &Controller{
		state:    state,
		provider: cfg.Provider,
		surface:  cfg.Surface,
		def:      cfg.Default,
		zoom:     zoom,
	}
}

// SetCallbacks configures the event callbacks. Notices are user-visible
// alert/warning messages; the state callback fires after every transition.
func (c *Controller) SetCallbacks(noticeCb func(domain.Notice), stateCb func(domain.AcquisitionState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.noticeCb = noticeCb
	c.stateCb = stateCb
}

// Subscribe registers a coordinate consumer.
func (c *Controller) Subscribe(consumer CoordinateConsumer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers = append(c.consumers, consumer)
}

// Start applies the mount event. A session without a coordinate begins
// locating immediately; with one it stays idle. Start is idempotent.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.ctx = ctx
	c.mu.Unlock()

	c.apply(Event{Kind: EventActivate, ProviderAvailable: c.providerAvailable()})
}

// RequestLocate re-triggers automatic acquisition, allowed from any phase.
func (c *Controller) RequestLocate() {
	c.apply(Event{Kind: EventLocate, ProviderAvailable: c.providerAvailable()})
}

// RequestManual arms manual selection on the map.
func (c *Controller) RequestManual() {
	c.apply(Event{Kind: EventManualRequest})
}

// Tap accepts a map tap unconditionally.
func (c *Controller) Tap(coord domain.Coordinate) {
	c.apply(Event{Kind: EventTap, Coordinate: coord})
}

// UseDefault selects the configured static default coordinate.
func (c *Controller) UseDefault() {
	c.apply(Event{Kind: EventUseDefault, Coordinate: c.def})
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() domain.AcquisitionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.state
	if c.state.Coordinate != nil {
		coord := *c.state.Coordinate
		snap.Coordinate = &coord
	}
	return snap
}

func (c *Controller) providerAvailable() bool {
	return c.provider != nil && c.provider.Available()
}

// deliver is the provider callback path. It maps the raw result onto the
// machine event it stands for; the issued attempt id travels with the
// event so that superseded results are recognized at application time.
func (c *Controller) deliver(attemptID string, res domain.PositionResult) {
	var ev Event
	switch {
	case res.Err != nil:
		ev = Event{Kind: EventPositionError, Err: res.Err}
	case res.Coordinate == nil:
		ev = Event{Kind: EventPositionError, Err: &domain.PositionError{
			Code:    domain.PositionUnavailable,
			Message: "provider returned an empty result",
		}}
	default:
		ev = Event{Kind: EventFix, Coordinate: *res.Coordinate}
	}
	c.applyFor(attemptID, ev)
}

// apply runs one user or lifecycle event through the transition function.
func (c *Controller) apply(ev Event) {
	c.applyFor("", ev)
}

// applyFor runs one event through the transition function and executes the
// demanded effects. A non-empty attemptID marks the event as the outcome of
// a positioning call: it must still match the current attempt under the
// same lock that applies the transition, otherwise the attempt was
// superseded while the result was in flight and it is dropped without
// touching state.
func (c *Controller) applyFor(attemptID string, ev Event) {
	c.mu.Lock()

	if attemptID != "" && attemptID != c.attemptID {
		c.mu.Unlock()
		telemetry.StaleResults.Inc()
		log.Printf("[Acquisition] Discarding stale result for attempt %s", shortID(attemptID))
		return
	}

	prevPhase := c.state.Phase
	prevHigh := c.state.HighAccuracy
	next, effects := Transition(c.state, ev, time.Now().UTC())
	c.state = next

	// Leaving the locating phase invalidates the outstanding attempt.
	if next.Phase != domain.PhaseLocating {
		c.attemptID = ""
	}

	var request *domain.PositionRequest
	var selection *domain.Selection
	var notices []domain.Notice
	var surfaceEffects []Effect

	for _, eff := range effects {
		switch eff.Kind {
		case EffectRequestPosition:
			id := uuid.New().String()
			c.attemptID = id
			request = &domain.PositionRequest{
				AttemptID:    id,
				HighAccuracy: eff.HighAccuracy,
				Timeout:      eff.Timeout,
				AllowCached:  eff.AllowCached,
			}
		case EffectNotifySelect:
			sel := eff.Selection
			selection = &sel
		case EffectCenterMap, EffectPlaceMarker:
			surfaceEffects = append(surfaceEffects, eff)
		case EffectAlert:
			notices = append(notices, domain.Notice{Level: domain.NoticeAlert, Message: eff.Message})
			telemetry.NoticesEmitted.WithLabelValues(string(domain.NoticeAlert)).Inc()
		case EffectWarnDegraded:
			notices = append(notices, domain.Notice{Level: domain.NoticeWarning, Message: eff.Message})
			telemetry.NoticesEmitted.WithLabelValues(string(domain.NoticeWarning)).Inc()
		}
	}

	if prevPhase != domain.PhaseFailed && next.Phase == domain.PhaseFailed {
		if len(notices) == 0 {
			telemetry.AcquisitionOutcomes.WithLabelValues("failed_silent").Inc()
		} else {
			telemetry.AcquisitionOutcomes.WithLabelValues("failed").Inc()
		}
	}
	if selection != nil {
		telemetry.AcquisitionOutcomes.WithLabelValues("located_" + string(selection.Source)).Inc()
	}

	consumers := make([]CoordinateConsumer, len(c.consumers))
	copy(consumers, c.consumers)
	noticeCb := c.noticeCb
	stateCb := c.stateCb
	surface := c.surface
	ctx := c.ctx
	changed := prevPhase != next.Phase || prevHigh != next.HighAccuracy || selection != nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if request != nil {
		c.issueRequest(ctx, *request)
	}
	if selection != nil {
		for _, consumer := range consumers {
			consumer.OnLocationSelect(*selection)
		}
	}
	if surface != nil {
		for _, eff := range surfaceEffects {
			switch eff.Kind {
			case EffectCenterMap:
				surface.CenterOn(eff.Selection.Coordinate, c.zoom)
			case EffectPlaceMarker:
				surface.PlaceMarker(eff.Selection.Coordinate)
			}
		}
	}
	if noticeCb != nil {
		for _, n := range notices {
			noticeCb(n)
		}
	}
	if stateCb != nil && changed {
		stateCb(snap)
	}
}

func (c *Controller) issueRequest(ctx context.Context, req domain.PositionRequest) {
	if ctx == nil {
		ctx = context.Background()
	}
	accuracy := "low"
	if req.HighAccuracy {
		accuracy = "high"
	}
	telemetry.PositionAttempts.WithLabelValues(accuracy).Inc()

	id := req.AttemptID
	go c.provider.RequestPosition(ctx, req, func(res domain.PositionResult) {
		c.deliver(id, res)
	})
}

func (c *Controller) snapshotLocked() domain.AcquisitionState {
	snap := c.state
	if c.state.Coordinate != nil {
		coord := *c.state.Coordinate
		snap.Coordinate = &coord
	}
	return snap
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

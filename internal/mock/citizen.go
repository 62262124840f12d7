package mock

import (
	"context"
	"log"
	"time"

	"github.com/imedaveo16/imed-dz/internal/adapters/positioning"
	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/services/report"
	"github.com/imedaveo16/imed-dz/internal/core/services/session"
	"github.com/imedaveo16/imed-dz/internal/geo"
)

const (
	// settlePoll is how often a citizen checks the session state while
	// acquisition runs.
	settlePoll = 500 * time.Millisecond

	// settleTimeout caps the wait for an acquisition outcome. Long enough
	// for the high-accuracy attempt plus the low-accuracy retry.
	settleTimeout = 45 * time.Second
)

// citizen drives one simulated reporter end to end: open a form session,
// answer its positioning requests through a scripted provider, fall back
// to a manual tap or the city default when acquisition fails, then
// submit a report and close the session.
type citizen struct {
	sessions *session.Manager
	reports  *report.Service
	bridge   *positioning.Bridge
	gen      *DataGenerator
	scenario string
}

func (c *citizen) run(ctx context.Context) {
	spot := c.gen.Spot()

	caps := domain.Capabilities{
		Geolocation:  c.scenario != positioning.ScenarioNoGeolocation,
		MapRendering: !c.gen.Chance(0.1),
	}

	// Some browsers arrive with a cached coordinate from a previous visit.
	var initial *domain.Coordinate
	if c.gen.Chance(0.3) {
		coord := c.gen.Coordinate(spot)
		initial = &coord
	}

	info, err := c.sessions.Open(ctx, caps, initial)
	if err != nil {
		log.Printf("[Demo] Failed to open citizen session: %v", err)
		return
	}
	defer c.sessions.CloseSession(info.ID)

	log.Printf("[Demo] Citizen session %s opened (%s, %s)", info.ID, c.scenario, spot.Name)

	if caps.Geolocation {
		c.attachDevice(ctx, info.ID, spot)
	}

	state, ok := c.waitForOutcome(ctx, info.ID)
	if !ok {
		return
	}

	if notices := c.sessions.DrainNotices(info.ID); len(notices) > 0 {
		log.Printf("[Demo] Citizen session %s saw %d notice(s)", info.ID, len(notices))
	}

	// A human reads the page before doing anything else.
	if !c.pause(ctx, c.gen.Between(2*time.Second, 6*time.Second)) {
		return
	}

	if state.Phase != domain.PhaseLocated {
		if !c.recoverLocation(info.ID, state, spot) {
			return
		}
	}

	// Some visitors locate themselves and leave without filing anything.
	if c.gen.Chance(0.15) {
		return
	}

	rep, err := c.reports.Submit(ctx, c.gen.Draft(info.ID))
	if err != nil {
		log.Printf("[Demo] Citizen session %s failed to submit: %v", info.ID, err)
		return
	}
	log.Printf("[Demo] Citizen session %s filed report %s (%s, %s)", info.ID, rep.ID, rep.Category, spot.Name)

	// Linger so the dashboard shows the session before it goes away.
	c.pause(ctx, c.gen.Between(3*time.Second, 10*time.Second))
}

// attachDevice plays the browser side of the positioning protocol:
// position_request messages pushed through the bridge are answered by a
// scripted provider anchored at the citizen's spot.
func (c *citizen) attachDevice(ctx context.Context, sessionID string, spot demoSpot) {
	provider := positioning.NewSimulatedProvider(
		geo.NewStaticProvider(spot.Lat, spot.Lng), c.scenario, 0, 0)

	c.bridge.Attach(sessionID, func(msgType string, payload interface{}) error {
		if msgType != positioning.MsgPositionRequest {
			return nil
		}
		body, ok := payload.(positioning.RequestPayload)
		if !ok {
			return nil
		}
		req := domain.PositionRequest{
			AttemptID:    body.AttemptID,
			HighAccuracy: body.HighAccuracy,
			Timeout:      time.Duration(body.TimeoutMs) * time.Millisecond,
			AllowCached:  body.AllowCached,
		}
		provider.RequestPosition(ctx, req, func(res domain.PositionResult) {
			c.bridge.Deliver(sessionID, res)
		})
		return nil
	})
}

// waitForOutcome polls the session until acquisition settles.
func (c *citizen) waitForOutcome(ctx context.Context, id string) (domain.AcquisitionState, bool) {
	deadline := time.After(settleTimeout)
	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.AcquisitionState{}, false
		case <-deadline:
			return domain.AcquisitionState{}, false
		case <-ticker.C:
			info, err := c.sessions.Info(id)
			if err != nil {
				return domain.AcquisitionState{}, false
			}
			switch info.State.Phase {
			case domain.PhaseLocated, domain.PhaseFailed, domain.PhaseManualPending:
				return info.State, true
			}
		}
	}
}

// recoverLocation picks a coordinate after automatic acquisition failed.
// Degraded sessions cannot tap the map, so they take the city default;
// everyone else mostly taps where they are.
func (c *citizen) recoverLocation(id string, state domain.AcquisitionState, spot demoSpot) bool {
	if state.Degraded || c.gen.Chance(0.3) {
		if err := c.sessions.UseDefault(id); err != nil {
			log.Printf("[Demo] Citizen session %s failed to use default: %v", id, err)
			return false
		}
		return true
	}

	if err := c.sessions.Tap(id, c.gen.Coordinate(spot)); err != nil {
		log.Printf("[Demo] Citizen session %s failed to tap: %v", id, err)
		return false
	}
	return true
}

// pause sleeps for d unless ctx ends first.
func (c *citizen) pause(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

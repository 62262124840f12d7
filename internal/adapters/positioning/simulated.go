package positioning

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/geo"
)

// Scenario names selectable through configuration.
const (
	// ScenarioInstantFix answers every request with a jittered fix.
	ScenarioInstantFix = "instant_fix"

	// ScenarioRetryThenFix times out high-accuracy attempts and answers
	// the low-accuracy retry, exercising the full retry path.
	ScenarioRetryThenFix = "retry_then_fix"

	// ScenarioDenied rejects every attempt with a permission error.
	ScenarioDenied = "denied"

	// ScenarioDeadDevice never answers; every attempt times out.
	ScenarioDeadDevice = "dead_device"

	// ScenarioNoGeolocation reports the capability as absent.
	ScenarioNoGeolocation = "no_geolocation"
)

const (
	defaultSimJitterMeters = 250.0
	defaultSimLatency      = 300 * time.Millisecond
)

// SimulatedProvider plays back a positioning scenario around a base
// coordinate. Demo mode uses it to spawn believable citizen sessions
// without a device; tests use it for end-to-end flows.
type SimulatedProvider struct {
	base     geo.Provider
	scenario string
	jitterM  float64
	latency  time.Duration

	mu   sync.Mutex
	rand *rand.Rand
}

// NewSimulatedProvider creates a provider for the named scenario. Zero
// jitter or latency selects the defaults.
func NewSimulatedProvider(base geo.Provider, scenario string, jitterMeters float64, latency time.Duration) *SimulatedProvider {
	if jitterMeters <= 0 {
		jitterMeters = defaultSimJitterMeters
	}
	if latency <= 0 {
		latency = defaultSimLatency
	}
	return &SimulatedProvider{
		base:     base,
		scenario: scenario,
		jitterM:  jitterMeters,
		latency:  latency,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Available reports the simulated geolocation capability.
func (p *SimulatedProvider) Available() bool {
	return p.scenario != ScenarioNoGeolocation
}

// RequestPosition resolves the request according to the scenario script.
// Delivery happens at most once and is skipped when ctx ends first.
func (p *SimulatedProvider) RequestPosition(ctx context.Context, req domain.PositionRequest, deliver func(domain.PositionResult)) {
	res, delay := p.outcome(req)

	go func() {
		select {
		case <-time.After(delay):
			deliver(res)
		case <-ctx.Done():
		}
	}()
}

func (p *SimulatedProvider) outcome(req domain.PositionRequest) (domain.PositionResult, time.Duration) {
	switch p.scenario {
	case ScenarioRetryThenFix:
		if req.HighAccuracy {
			return p.timeoutResult(req), p.timeoutAfter(req)
		}
		return p.fixResult(req), p.latency

	case ScenarioDenied:
		return domain.PositionResult{
			AttemptID: req.AttemptID,
			Err: &domain.PositionError{
				Code:    domain.PositionPermissionDenied,
				Message: "geolocation permission denied",
			},
		}, p.latency

	case ScenarioDeadDevice:
		return p.timeoutResult(req), p.timeoutAfter(req)

	default: // ScenarioInstantFix and unknown names
		return p.fixResult(req), p.latency
	}
}

func (p *SimulatedProvider) fixResult(req domain.PositionRequest) domain.PositionResult {
	coord := p.jittered(p.base.GetCoordinate())

	p.mu.Lock()
	accuracy := 25 + p.rand.Float64()*75
	if req.HighAccuracy {
		accuracy = 5 + p.rand.Float64()*20
	}
	p.mu.Unlock()

	return domain.PositionResult{
		AttemptID:  req.AttemptID,
		Coordinate: &coord,
		Accuracy:   accuracy,
	}
}

func (p *SimulatedProvider) timeoutResult(req domain.PositionRequest) domain.PositionResult {
	return domain.PositionResult{
		AttemptID: req.AttemptID,
		Err: &domain.PositionError{
			Code:    domain.PositionTimeout,
			Message: "simulated device did not answer",
		},
	}
}

func (p *SimulatedProvider) timeoutAfter(req domain.PositionRequest) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return defaultRequestTimeout
}

// jittered offsets the base coordinate by a random bearing and distance
// within the jitter radius.
func (p *SimulatedProvider) jittered(base domain.Coordinate) domain.Coordinate {
	p.mu.Lock()
	distance := p.rand.Float64() * p.jitterM
	bearing := p.rand.Float64() * 2 * math.Pi
	p.mu.Unlock()

	dLat := distance * math.Cos(bearing) * geo.DegreesPerMeterLat
	cosLat := math.Cos(base.Lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLng := distance * math.Sin(bearing) * geo.DegreesPerMeterLat / cosLat

	return domain.Coordinate{
		Lat: base.Lat + dLat,
		Lng: base.Lng + dLng,
	}
}

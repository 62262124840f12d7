package acquisition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func effectKinds(effects []Effect) []EffectKind {
	kinds := make([]EffectKind, 0, len(effects))
	for _, eff := range effects {
		kinds = append(kinds, eff.Kind)
	}
	return kinds
}

func findEffect(effects []Effect, kind EffectKind) (Effect, bool) {
	for _, eff := range effects {
		if eff.Kind == kind {
			return eff, true
		}
	}
	return Effect{}, false
}

// TestTransition_ActivateStartsHighAccuracy verifies that a session without a
// coordinate begins locating on activation with a high-accuracy request.
func TestTransition_ActivateStartsHighAccuracy(t *testing.T) {
	initial := domain.AcquisitionState{Phase: domain.PhaseIdle}

	next, effects := Transition(initial, Event{Kind: EventActivate, ProviderAvailable: true}, testNow)

	assert.Equal(t, domain.PhaseLocating, next.Phase)
	assert.True(t, next.HighAccuracy)
	assert.Nil(t, next.Coordinate)

	req, ok := findEffect(effects, EffectRequestPosition)
	assert.True(t, ok, "activation must issue a positioning request")
	assert.True(t, req.HighAccuracy)
	assert.Equal(t, HighAccuracyTimeout, req.Timeout)
	assert.False(t, req.AllowCached, "first attempt must not accept cached fixes")
}

// TestTransition_ActivateWithCoordinateStaysIdle verifies that a pre-filled
// coordinate suppresses automatic acquisition.
func TestTransition_ActivateWithCoordinateStaysIdle(t *testing.T) {
	coord := domain.Coordinate{Lat: 31.63, Lng: -7.99}
	initial := domain.AcquisitionState{Phase: domain.PhaseIdle, Coordinate: &coord, Source: domain.SourceManual}

	next, effects := Transition(initial, Event{Kind: EventActivate, ProviderAvailable: true}, testNow)

	assert.Equal(t, domain.PhaseIdle, next.Phase)
	assert.Equal(t, &coord, next.Coordinate)
	_, ok := findEffect(effects, EffectRequestPosition)
	assert.False(t, ok, "no request may be issued when a coordinate exists")
}

// TestTransition_ActivateWithoutProviderFailsSilently verifies that a missing
// positioning capability produces a failed state with no alert.
func TestTransition_ActivateWithoutProviderFailsSilently(t *testing.T) {
	initial := domain.AcquisitionState{Phase: domain.PhaseIdle}

	next, effects := Transition(initial, Event{Kind: EventActivate, ProviderAvailable: false}, testNow)

	assert.Equal(t, domain.PhaseFailed, next.Phase)
	_, alerted := findEffect(effects, EffectAlert)
	assert.False(t, alerted, "capability absence must not raise an alert")
	_, requested := findEffect(effects, EffectRequestPosition)
	assert.False(t, requested)
}

// TestTransition_ActivateDegradedWarnsOnce verifies the one-time warning when
// map rendering is unavailable.
func TestTransition_ActivateDegradedWarns(t *testing.T) {
	initial := domain.AcquisitionState{Phase: domain.PhaseIdle, Degraded: true}

	next, effects := Transition(initial, Event{Kind: EventActivate, ProviderAvailable: true}, testNow)

	assert.True(t, next.Degraded)
	warn, ok := findEffect(effects, EffectWarnDegraded)
	assert.True(t, ok)
	assert.Equal(t, WarnMapUnavailable, warn.Message)
}

// TestTransition_TimeoutRetriesLowAccuracyOnce verifies the single automatic
// retry after a high-accuracy timeout.
func TestTransition_TimeoutRetriesLowAccuracyOnce(t *testing.T) {
	// Step 1: high-accuracy attempt times out.
	locating := domain.AcquisitionState{Phase: domain.PhaseLocating, HighAccuracy: true}
	timeout := &domain.PositionError{Code: domain.PositionTimeout, Message: "timeout expired"}

	next, effects := Transition(locating, Event{Kind: EventPositionError, Err: timeout}, testNow)

	assert.Equal(t, domain.PhaseLocating, next.Phase)
	assert.False(t, next.HighAccuracy, "retry must downgrade accuracy")

	req, ok := findEffect(effects, EffectRequestPosition)
	assert.True(t, ok, "timeout must trigger the retry request")
	assert.False(t, req.HighAccuracy)
	assert.Equal(t, RetryTimeout, req.Timeout)
	assert.False(t, req.AllowCached, "retry must not accept cached fixes either")
	_, alerted := findEffect(effects, EffectAlert)
	assert.False(t, alerted, "retry path must stay quiet")

	// Step 2: the retry times out too. No second retry, one alert.
	next, effects = Transition(next, Event{Kind: EventPositionError, Err: timeout}, testNow)

	assert.Equal(t, domain.PhaseFailed, next.Phase)
	_, requested := findEffect(effects, EffectRequestPosition)
	assert.False(t, requested, "only one automatic retry is allowed")
	alert, alerted := findEffect(effects, EffectAlert)
	assert.True(t, alerted)
	assert.Equal(t, AlertLocationFailed, alert.Message)
}

// TestTransition_NonTimeoutErrorFailsWithAlert verifies that permission and
// availability errors fail immediately without a retry.
func TestTransition_NonTimeoutErrorFailsWithAlert(t *testing.T) {
	testCases := []struct {
		name string
		code domain.PositionErrorCode
	}{
		{name: "Permission denied", code: domain.PositionPermissionDenied},
		{name: "Position unavailable", code: domain.PositionUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			locating := domain.AcquisitionState{Phase: domain.PhaseLocating, HighAccuracy: true}
			err := &domain.PositionError{Code: tc.code, Message: "provider error"}

			next, effects := Transition(locating, Event{Kind: EventPositionError, Err: err}, testNow)

			assert.Equal(t, domain.PhaseFailed, next.Phase)
			_, requested := findEffect(effects, EffectRequestPosition)
			assert.False(t, requested)
			alert, alerted := findEffect(effects, EffectAlert)
			assert.True(t, alerted)
			assert.Equal(t, AlertLocationFailed, alert.Message)
		})
	}
}

// TestTransition_FixSelectsDeviceCoordinate verifies the effect sequence on a
// successful fix.
func TestTransition_FixSelectsDeviceCoordinate(t *testing.T) {
	locating := domain.AcquisitionState{Phase: domain.PhaseLocating, HighAccuracy: true}
	coord := domain.Coordinate{Lat: 31.63, Lng: -7.99}

	next, effects := Transition(locating, Event{Kind: EventFix, Coordinate: coord}, testNow)

	assert.Equal(t, domain.PhaseLocated, next.Phase)
	assert.Equal(t, coord, *next.Coordinate)
	assert.Equal(t, domain.SourceDevice, next.Source)
	assert.Equal(t,
		[]EffectKind{EffectNotifySelect, EffectCenterMap, EffectPlaceMarker},
		effectKinds(effects))

	sel, _ := findEffect(effects, EffectNotifySelect)
	assert.Equal(t, coord, sel.Selection.Coordinate)
	assert.Equal(t, domain.SourceDevice, sel.Selection.Source)
	assert.Equal(t, testNow, sel.Selection.At)
}

// TestTransition_FixIgnoredOutsideLocating verifies that results arriving in
// any non-locating phase do not change state.
func TestTransition_FixIgnoredOutsideLocating(t *testing.T) {
	coord := domain.Coordinate{Lat: 40.0, Lng: -3.7}
	for _, phase := range []domain.Phase{domain.PhaseIdle, domain.PhaseLocated, domain.PhaseFailed, domain.PhaseManualPending} {
		state := domain.AcquisitionState{Phase: phase}

		next, effects := Transition(state, Event{Kind: EventFix, Coordinate: coord}, testNow)

		assert.Equal(t, state, next, "phase %s must ignore a late fix", phase)
		assert.Empty(t, effects)

		next, effects = Transition(state, Event{Kind: EventPositionError, Err: &domain.PositionError{Code: domain.PositionTimeout}}, testNow)
		assert.Equal(t, state, next, "phase %s must ignore a late error", phase)
		assert.Empty(t, effects)
	}
}

// TestTransition_LocateIgnoredWhileLocating verifies mash protection on the
// locate trigger.
func TestTransition_LocateIgnoredWhileLocating(t *testing.T) {
	locating := domain.AcquisitionState{Phase: domain.PhaseLocating, HighAccuracy: true}

	next, effects := Transition(locating, Event{Kind: EventLocate, ProviderAvailable: true}, testNow)

	assert.Equal(t, locating, next)
	assert.Empty(t, effects, "a locate during an outstanding attempt must be a no-op")
}

// TestTransition_LocateRestartsFromTerminalPhases verifies that locating can
// be retriggered after success or failure.
func TestTransition_LocateRestartsFromTerminalPhases(t *testing.T) {
	coord := domain.Coordinate{Lat: 31.63, Lng: -7.99}
	for _, state := range []domain.AcquisitionState{
		{Phase: domain.PhaseLocated, Coordinate: &coord, Source: domain.SourceDevice},
		{Phase: domain.PhaseFailed},
		{Phase: domain.PhaseManualPending},
	} {
		next, effects := Transition(state, Event{Kind: EventLocate, ProviderAvailable: true}, testNow)

		assert.Equal(t, domain.PhaseLocating, next.Phase)
		assert.True(t, next.HighAccuracy, "a fresh locate restarts at high accuracy")
		assert.Nil(t, next.Coordinate, "a fresh locate clears the previous selection")

		req, ok := findEffect(effects, EffectRequestPosition)
		assert.True(t, ok)
		assert.True(t, req.HighAccuracy)
	}
}

// TestTransition_ManualRequestArmsPendingState verifies manual selection arming.
func TestTransition_ManualRequestArmsPendingState(t *testing.T) {
	coord := domain.Coordinate{Lat: 31.63, Lng: -7.99}
	located := domain.AcquisitionState{Phase: domain.PhaseLocated, Coordinate: &coord, Source: domain.SourceDevice}

	next, effects := Transition(located, Event{Kind: EventManualRequest}, testNow)

	assert.Equal(t, domain.PhaseManualPending, next.Phase)
	assert.Nil(t, next.Coordinate)
	assert.Empty(t, effects)
}

// TestTransition_ManualRequestIgnoredWhenDegraded verifies that arming manual
// selection is refused without a rendered map.
func TestTransition_ManualRequestIgnoredWhenDegraded(t *testing.T) {
	state := domain.AcquisitionState{Phase: domain.PhaseFailed, Degraded: true}

	next, effects := Transition(state, Event{Kind: EventManualRequest}, testNow)

	assert.Equal(t, state, next)
	assert.Empty(t, effects)
}

// TestTransition_TapSelectsFromAnyPhase verifies the unconditional map tap.
func TestTransition_TapSelectsFromAnyPhase(t *testing.T) {
	coord := domain.Coordinate{Lat: 40.0, Lng: -3.7}
	for _, phase := range []domain.Phase{domain.PhaseIdle, domain.PhaseLocating, domain.PhaseLocated, domain.PhaseFailed, domain.PhaseManualPending} {
		state := domain.AcquisitionState{Phase: phase, HighAccuracy: phase == domain.PhaseLocating}

		next, effects := Transition(state, Event{Kind: EventTap, Coordinate: coord}, testNow)

		assert.Equal(t, domain.PhaseLocated, next.Phase, "tap must select from phase %s", phase)
		assert.Equal(t, coord, *next.Coordinate)
		assert.Equal(t, domain.SourceManual, next.Source)

		sel, ok := findEffect(effects, EffectNotifySelect)
		assert.True(t, ok)
		assert.Equal(t, domain.SourceManual, sel.Selection.Source)
	}
}

// TestTransition_TapIgnoredWhenDegraded verifies that map taps are disabled in
// degraded mode.
func TestTransition_TapIgnoredWhenDegraded(t *testing.T) {
	state := domain.AcquisitionState{Phase: domain.PhaseManualPending, Degraded: true}
	coord := domain.Coordinate{Lat: 40.0, Lng: -3.7}

	next, effects := Transition(state, Event{Kind: EventTap, Coordinate: coord}, testNow)

	assert.Equal(t, state, next)
	assert.Empty(t, effects)
}

// TestTransition_UseDefaultAlwaysSelects verifies that the static default is
// accepted from every phase, including degraded mode.
func TestTransition_UseDefaultAlwaysSelects(t *testing.T) {
	def := domain.Coordinate{Lat: 36.7538, Lng: 3.0588}
	for _, state := range []domain.AcquisitionState{
		{Phase: domain.PhaseIdle},
		{Phase: domain.PhaseLocating, HighAccuracy: true},
		{Phase: domain.PhaseFailed},
		{Phase: domain.PhaseFailed, Degraded: true},
		{Phase: domain.PhaseManualPending},
	} {
		next, effects := Transition(state, Event{Kind: EventUseDefault, Coordinate: def}, testNow)

		assert.Equal(t, domain.PhaseLocated, next.Phase)
		assert.Equal(t, def, *next.Coordinate)
		assert.Equal(t, domain.SourceDefault, next.Source)

		sel, ok := findEffect(effects, EffectNotifySelect)
		assert.True(t, ok)
		assert.Equal(t, domain.SourceDefault, sel.Selection.Source)
	}
}

// TestTransition_DegradedFlagSurvivesTransitions verifies that the degraded
// flag is carried through every state change.
func TestTransition_DegradedFlagSurvivesTransitions(t *testing.T) {
	state := domain.AcquisitionState{Phase: domain.PhaseIdle, Degraded: true}

	state, _ = Transition(state, Event{Kind: EventActivate, ProviderAvailable: true}, testNow)
	assert.True(t, state.Degraded)

	state, _ = Transition(state, Event{Kind: EventFix, Coordinate: domain.Coordinate{Lat: 31.63, Lng: -7.99}}, testNow)
	assert.True(t, state.Degraded)

	state, _ = Transition(state, Event{Kind: EventUseDefault, Coordinate: domain.Coordinate{Lat: 36.7538, Lng: 3.0588}}, testNow)
	assert.True(t, state.Degraded)
}

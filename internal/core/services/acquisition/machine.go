package acquisition

import (
	"time"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

// Positioning call budgets. The first attempt asks for a high-accuracy fix;
// a timeout on it triggers exactly one automatic low-accuracy retry with a
// longer budget. Cached fixes are never accepted on either attempt.
const (
	HighAccuracyTimeout = 10 * time.Second
	RetryTimeout        = 20 * time.Second
)

// User-visible messages emitted as effects.
const (
	AlertLocationFailed = "Could not determine your location. Select it on the map or use the default location."
	WarnMapUnavailable  = "Map display is unavailable. Your location can still be set from your device position or the default location."
)

// EventKind enumerates the inputs the machine reacts to.
type EventKind int

const (
	// EventActivate is the mount event, applied once when a session starts.
	EventActivate EventKind = iota
	// EventLocate is an explicit "use current location" request.
	EventLocate
	// EventFix is a successful result of the outstanding positioning call.
	EventFix
	// EventPositionError is a failed result of the outstanding call.
	EventPositionError
	// EventManualRequest arms manual selection on the map.
	EventManualRequest
	// EventTap is a map tap, accepted unconditionally.
	EventTap
	// EventUseDefault selects the static default coordinate.
	EventUseDefault
)

// Event is one input to the transition function. Payload fields are
// populated according to the kind. The shell feeds the machine only
// results belonging to the current attempt; stale results never become
// events.
type Event struct {
	Kind EventKind

	// ProviderAvailable tells Activate and Locate whether a positioning
	// call can be issued at all. When false the machine fails silently
	// instead of requesting a position.
	ProviderAvailable bool

	// Coordinate carries the position for Fix, Tap and UseDefault.
	Coordinate domain.Coordinate

	// Err carries the provider error for PositionError.
	Err *domain.PositionError
}

// EffectKind enumerates the side effects a transition can demand.
type EffectKind int

const (
	// EffectRequestPosition instructs the shell to issue exactly one
	// positioning call with the embedded parameters.
	EffectRequestPosition EffectKind = iota
	// EffectNotifySelect delivers the selection to coordinate consumers.
	EffectNotifySelect
	// EffectCenterMap pans the map surface to the selection.
	EffectCenterMap
	// EffectPlaceMarker drops or moves the selection marker.
	EffectPlaceMarker
	// EffectAlert surfaces a user-visible failure message.
	EffectAlert
	// EffectWarnDegraded surfaces the one-time degraded-mode warning.
	EffectWarnDegraded
)

// Effect is one side effect demanded by a transition. The machine only
// describes effects; the controller executes them.
type Effect struct {
	Kind         EffectKind
	HighAccuracy bool             // RequestPosition
	Timeout      time.Duration    // RequestPosition
	AllowCached  bool             // RequestPosition, never true today
	Selection    domain.Selection // NotifySelect, CenterMap, PlaceMarker
	Message      string           // Alert, WarnDegraded
}

// Transition computes the next state and the effects of applying one event.
// It is pure: no clock reads, no I/O. Event/state pairs with no defined
// meaning return the state unchanged with no effects, so the function is
// total over its inputs.
func Transition(s domain.AcquisitionState, ev Event, now time.Time) (domain.AcquisitionState, []Effect) {
	switch ev.Kind {
	case EventActivate:
		if s.Coordinate != nil {
			// A caller-supplied coordinate means the consumer already holds
			// it; stay idle and do not re-notify.
			return s, warnIfDegraded(s, nil)
		}
		if !ev.ProviderAvailable {
			// Capability absent: fail silently, manual affordances remain.
			return failed(s), warnIfDegraded(s, nil)
		}
		next := s
		next.Phase = domain.PhaseLocating
		next.HighAccuracy = true
		return next, append(warnIfDegraded(s, nil), requestEffect(true))

	case EventLocate:
		if s.Phase == domain.PhaseLocating {
			// At most one outstanding call: a pending attempt resolves or
			// is superseded, never duplicated.
			return s, nil
		}
		if !ev.ProviderAvailable {
			return failed(s), nil
		}
		next := s
		next.Phase = domain.PhaseLocating
		next.HighAccuracy = true
		next.Coordinate = nil
		next.Source = ""
		return next, []Effect{requestEffect(true)}

	case EventFix:
		if s.Phase != domain.PhaseLocating {
			return s, nil
		}
		return locate(s, ev.Coordinate, domain.SourceDevice, now)

	case EventPositionError:
		if s.Phase != domain.PhaseLocating {
			return s, nil
		}
		if s.HighAccuracy && ev.Err.IsTimeout() {
			// The single automatic retry: high accuracy off, longer budget.
			next := s
			next.HighAccuracy = false
			return next, []Effect{requestEffect(false)}
		}
		// Terminal for the automatic path. Alert once per failed run; the
		// retried timeout above does not alert.
		return failed(s), []Effect{{Kind: EffectAlert, Message: AlertLocationFailed}}

	case EventManualRequest:
		if s.Degraded {
			return s, nil
		}
		next := s
		next.Phase = domain.PhaseManualPending
		next.Coordinate = nil
		next.Source = ""
		return next, nil

	case EventTap:
		if s.Degraded {
			// Map-tap selection is disabled without a rendering surface.
			return s, nil
		}
		return locate(s, ev.Coordinate, domain.SourceManual, now)

	case EventUseDefault:
		// The static default is the always-available last resort, degraded
		// mode included.
		return locate(s, ev.Coordinate, domain.SourceDefault, now)
	}

	return s, nil
}

// locate lands a transition into the located phase. Every such transition
// emits exactly one consumer notification plus the map side effects;
// re-entry from located is last-write-wins and notifies again.
func locate(s domain.AcquisitionState, c domain.Coordinate, src domain.Source, now time.Time) (domain.AcquisitionState, []Effect) {
	next := s
	next.Phase = domain.PhaseLocated
	next.HighAccuracy = false
	coord := c
	next.Coordinate = &coord
	next.Source = src

	sel := domain.Selection{Coordinate: c, Source: src, At: now}
	return next, []Effect{
		{Kind: EffectNotifySelect, Selection: sel},
		{Kind: EffectCenterMap, Selection: sel},
		{Kind: EffectPlaceMarker, Selection: sel},
	}
}

func failed(s domain.AcquisitionState) domain.AcquisitionState {
	next := s
	next.Phase = domain.PhaseFailed
	next.HighAccuracy = false
	next.Coordinate = nil
	next.Source = ""
	return next
}

func requestEffect(high bool) Effect {
	timeout := HighAccuracyTimeout
	if !high {
		timeout = RetryTimeout
	}
	return Effect{
		Kind:         EffectRequestPosition,
		HighAccuracy: high,
		Timeout:      timeout,
	}
}

func warnIfDegraded(s domain.AcquisitionState, effects []Effect) []Effect {
	if s.Degraded {
		return append(effects, Effect{Kind: EffectWarnDegraded, Message: WarnMapUnavailable})
	}
	return effects
}

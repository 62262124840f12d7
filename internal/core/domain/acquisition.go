package domain

// Phase enumerates the acquisition states. Exactly one phase is active at
// any observation point.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseLocating      Phase = "locating"
	PhaseLocated       Phase = "located"
	PhaseFailed        Phase = "failed"
	PhaseManualPending Phase = "manual_pending"
)

// AcquisitionState is the single authoritative variable of a coordinate
// acquisition: the current phase plus the data that phase carries.
type AcquisitionState struct {
	Phase Phase `json:"phase"`

	// HighAccuracy is meaningful only while locating and distinguishes the
	// first attempt from the automatic low-accuracy retry.
	HighAccuracy bool `json:"high_accuracy,omitempty"`

	// Coordinate holds the selected pair when located, or a caller-supplied
	// pair while idle. Nil otherwise.
	Coordinate *Coordinate `json:"coordinate,omitempty"`

	// Source records how the current coordinate was produced.
	Source Source `json:"source,omitempty"`

	// Degraded marks a session whose map surface cannot render; manual map
	// selection is disabled and only positioning and the static default
	// remain available.
	Degraded bool `json:"degraded,omitempty"`
}

// Located reports whether a coordinate has been selected.
func (s AcquisitionState) Located() bool {
	return s.Phase == PhaseLocated
}

package triage

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
	"github.com/imedaveo16/imed-dz/internal/geo"
)

var (
	flagsAttached = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imed",
		Subsystem: "triage",
		Name:      "flags_total",
		Help:      "Advisory flags attached to submitted reports.",
	}, []string{"flag"})

	evaluations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "imed",
		Subsystem: "triage",
		Name:      "evaluations_total",
		Help:      "Reports run through the triage rules.",
	})
)

// Rule inspects a submitted report and decides whether its advisory flag
// applies. Rules must be side-effect free; lookups they need are injected
// at construction.
type Rule interface {
	// Name returns the flag attached when the rule matches.
	Name() string

	// Applies reports whether the flag should be attached.
	Applies(ctx context.Context, report domain.Report) bool
}

// Engine runs the configured rules against each submitted report and
// collects the matching flags.
type Engine struct {
	rules []Rule
	mu    sync.RWMutex
}

// NewEngine creates an engine with the given rules. Rules are evaluated
// in registration order.
func NewEngine(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// AddRule registers an additional rule.
func (e *Engine) AddRule(rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule)
}

// Evaluate returns the advisory flags for the report. Flags never block a
// submission; they only mark it for operator attention.
func (e *Engine) Evaluate(ctx context.Context, report domain.Report) []string {
	e.mu.RLock()
	rules := make([]Rule, len(e.rules))
	copy(rules, e.rules)
	e.mu.RUnlock()

	evaluations.Inc()

	var flags []string
	for _, rule := range rules {
		if rule.Applies(ctx, report) {
			flags = append(flags, rule.Name())
			flagsAttached.WithLabelValues(rule.Name()).Inc()
		}
	}

	if len(flags) > 0 {
		log.Printf("[Triage] Report %s flagged: %v", report.ID, flags)
	}
	return flags
}

// DefaultLocationRule flags reports whose coordinate is the static
// default, since those carry no real position information.
type DefaultLocationRule struct{}

func (DefaultLocationRule) Name() string { return domain.FlagDefaultLocation }

func (DefaultLocationRule) Applies(_ context.Context, report domain.Report) bool {
	return report.Source == domain.SourceDefault
}

// ServiceAreaRule flags reports that fall outside the configured service
// bounding box. A zero box disables the check.
type ServiceAreaRule struct {
	Area domain.BoundingBox
}

func (r ServiceAreaRule) Name() string { return domain.FlagOutOfArea }

func (r ServiceAreaRule) Applies(_ context.Context, report domain.Report) bool {
	if r.Area.IsZero() {
		return false
	}
	return !r.Area.Contains(report.Coordinate)
}

const (
	// DefaultDuplicateRadius is the distance in meters under which two
	// same-category reports are considered likely duplicates.
	DefaultDuplicateRadius = 150.0

	// DefaultDuplicateWindow bounds how far back the duplicate check looks.
	DefaultDuplicateWindow = 24 * time.Hour

	duplicateQueryLimit = 200
)

// DuplicateRule flags a report when another report of the same category
// was submitted nearby within the lookback window.
type DuplicateRule struct {
	Store        ports.ReportStore
	RadiusMeters float64
	Window       time.Duration
}

// NewDuplicateRule creates a duplicate rule with the default radius and
// window.
func NewDuplicateRule(store ports.ReportStore) *DuplicateRule {
	return &DuplicateRule{
		Store:        store,
		RadiusMeters: DefaultDuplicateRadius,
		Window:       DefaultDuplicateWindow,
	}
}

func (r *DuplicateRule) Name() string { return domain.FlagDuplicate }

func (r *DuplicateRule) Applies(ctx context.Context, report domain.Report) bool {
	recent, err := r.Store.ListReports(ctx, domain.ReportFilter{
		Category: report.Category,
		Since:    time.Now().Add(-r.Window),
		Limit:    duplicateQueryLimit,
	})
	if err != nil {
		// A storage hiccup must not block intake. Skip the check.
		log.Printf("[Triage] Duplicate lookup failed: %v", err)
		return false
	}

	for _, other := range recent {
		if other.ID == report.ID {
			continue
		}
		if geo.Distance(report.Coordinate, other.Coordinate) <= r.RadiusMeters {
			return true
		}
	}
	return false
}

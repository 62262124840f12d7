package mock

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/imedaveo16/imed-dz/internal/adapters/positioning"
	"github.com/imedaveo16/imed-dz/internal/core/services/report"
	"github.com/imedaveo16/imed-dz/internal/core/services/session"
)

// ScenarioMixed rotates through all positioning scenarios so the
// dashboard shows the full range of outcomes.
const ScenarioMixed = "mixed"

// Integration feeds demo traffic into a running application: a
// background spawner opens simulated citizen sessions against the real
// session manager, so the operator dashboard has live data without a
// single connected device.
type Integration struct {
	sessions *session.Manager
	reports  *report.Service
	bridge   *positioning.Bridge
	gen      *DataGenerator
	scenario string

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewIntegration creates a demo integration for the named scenario. An
// empty name selects the rotating mix.
func NewIntegration(sessions *session.Manager, reports *report.Service, bridge *positioning.Bridge, scenario string) *Integration {
	if scenario == "" {
		scenario = ScenarioMixed
	}

	log.Printf("[Demo] Initializing demo integration with scenario: %s", scenario)

	return &Integration{
		sessions: sessions,
		reports:  reports,
		bridge:   bridge,
		gen:      NewDataGenerator(),
		scenario: scenario,
	}
}

// Start launches the spawner. An opening burst fills the dashboard, then
// new citizens arrive at a jittered interval until ctx ends or Stop is
// called.
func (m *Integration) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	burst, interval := m.plan()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		for i := 0; i < burst; i++ {
			m.spawn(runCtx)
			if !sleepCtx(runCtx, m.gen.Between(500*time.Millisecond, 2*time.Second)) {
				return
			}
		}

		for {
			if !sleepCtx(runCtx, m.gen.Between(interval/2, interval*3/2)) {
				return
			}
			m.spawn(runCtx)
		}
	}()

	log.Printf("[Demo] Demo integration started")
}

// Stop cancels the spawner and waits for in-flight citizens to finish.
func (m *Integration) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
	log.Printf("[Demo] Demo integration stopped")
}

// Scenario returns the resolved scenario name.
func (m *Integration) Scenario() string {
	return m.scenario
}

// spawn launches one citizen with its own generator, so concurrent
// citizens never share a rand source.
func (m *Integration) spawn(ctx context.Context) {
	scenario := m.scenario
	if scenario == ScenarioMixed {
		scenario = m.gen.Scenario()
	}

	c := &citizen{
		sessions: m.sessions,
		reports:  m.reports,
		bridge:   m.bridge,
		gen:      NewDataGenerator(),
		scenario: scenario,
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		c.run(ctx)
	}()
}

// plan sizes the traffic for the selected scenario. Slow scenarios hold
// sessions open for tens of seconds, so they spawn fewer at a time.
func (m *Integration) plan() (burst int, interval time.Duration) {
	switch m.scenario {
	case positioning.ScenarioInstantFix:
		return 3, 12 * time.Second
	case positioning.ScenarioRetryThenFix, positioning.ScenarioDeadDevice:
		return 2, 25 * time.Second
	case positioning.ScenarioDenied, positioning.ScenarioNoGeolocation:
		return 3, 15 * time.Second
	case ScenarioMixed:
		return 4, 10 * time.Second
	default:
		return 3, 15 * time.Second
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

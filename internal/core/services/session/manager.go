package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/core/ports"
	"github.com/imedaveo16/imed-dz/internal/core/services/acquisition"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "imed",
		Name:      "sessions_active_total",
		Help:      "The number of open form sessions in memory.",
	})
	sessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "imed",
		Name:      "sessions_opened_total",
		Help:      "The total number of form sessions opened.",
	})
	sessionsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "imed",
		Name:      "sessions_pruned_total",
		Help:      "The total number of idle sessions removed by cleanup.",
	})
	cleanupRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "imed",
		Name:      "session_cleanup_runs_total",
		Help:      "The total number of session cleanup cycles executed.",
	})
	geocodeDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "imed",
		Name:      "session_geocode_drops_total",
		Help:      "Address resolutions dropped because the queue was full.",
	})
)

// ErrSessionNotFound is returned when an operation references an unknown or
// expired session.
var ErrSessionNotFound = errors.New("session not found")

type session struct {
	id         string
	ctrl       *acquisition.Controller
	caps       domain.Capabilities
	createdAt  time.Time
	lastActive time.Time
	address    string
	notices    []domain.Notice
}

// Manager owns the lifecycle of form sessions. Each session carries its own
// acquisition controller wired to the client bridge; the manager fans session
// events out to observers and keeps idle sessions from accumulating.
type Manager struct {
	bridge    ports.ClientBridge
	subject   *Subject
	addresses *AddressWorker
	def       domain.Coordinate
	zoom      int

	sessions map[string]*session
	mu       sync.RWMutex
}

// NewManager creates a new session manager.
func NewManager(bridge ports.ClientBridge, geocoder ports.ReverseGeocoder, def domain.Coordinate, zoom int) *Manager {
	m := &Manager{
		bridge:   bridge,
		subject:  NewSubject(),
		def:      def,
		zoom:     zoom,
		sessions: make(map[string]*session),
	}
	m.addresses = NewAddressWorker(geocoder, 64, m.setAddress)
	return m
}

// AddObserver registers an observer for session events.
func (m *Manager) AddObserver(obs Observer) {
	m.subject.AddObserver(obs)
}

// Start launches the background workers.
func (m *Manager) Start(ctx context.Context) {
	m.addresses.Start(ctx)
}

// Open creates a session, wires its controller to the bridge and starts
// acquisition. A client that reports no map rendering runs degraded; one that
// reports no geolocation gets a nil provider and fails silently into manual
// selection.
func (m *Manager) Open(ctx context.Context, caps domain.Capabilities, initial *domain.Coordinate) (domain.SessionInfo, error) {
	id := uuid.New().String()

	var provider ports.PositioningProvider
	if caps.Geolocation {
		provider = m.bridge.ProviderFor(id)
	}
	var surface ports.MapSurface
	if caps.MapRendering {
		surface = m.bridge.SurfaceFor(id)
	}

	ctrl := acquisition.New(acquisition.Config{
		Initial:  initial,
		Provider: provider,
		Surface:  surface,
		Degraded: !caps.MapRendering,
		Default:  m.def,
		Zoom:     m.zoom,
	})
	ctrl.SetCallbacks(
		func(n domain.Notice) { m.handleNotice(id, n) },
		func(st domain.AcquisitionState) { m.handleState(id, st) },
	)
	ctrl.Subscribe(&sessionConsumer{manager: m, sessionID: id})

	now := time.Now()
	sess := &session{
		id:         id,
		ctrl:       ctrl,
		caps:       caps,
		createdAt:  now,
		lastActive: now,
	}

	m.mu.Lock()
	m.sessions[id] = sess
	total := len(m.sessions)
	m.mu.Unlock()

	sessionsOpened.Inc()
	sessionsActive.Set(float64(total))

	ctrl.Start(ctx)

	return m.infoFor(sess), nil
}

// CloseSession removes a session and releases its bridge state.
func (m *Manager) CloseSession(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	total := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sessionsActive.Set(float64(total))
	m.bridge.Release(id)
	return nil
}

// Locate retriggers automatic acquisition for a session.
func (m *Manager) Locate(id string) error {
	sess, ok := m.get(id)
	if !ok {
		return ErrSessionNotFound
	}
	m.Touch(id)
	sess.ctrl.RequestLocate()
	return nil
}

// RequestManual arms manual selection for a session.
func (m *Manager) RequestManual(id string) error {
	sess, ok := m.get(id)
	if !ok {
		return ErrSessionNotFound
	}
	m.Touch(id)
	sess.ctrl.RequestManual()
	return nil
}

// Tap forwards a map tap. The coordinate is validated before it reaches the
// controller.
func (m *Manager) Tap(id string, coord domain.Coordinate) error {
	if err := coord.Validate(); err != nil {
		return err
	}
	sess, ok := m.get(id)
	if !ok {
		return ErrSessionNotFound
	}
	m.Touch(id)
	sess.ctrl.Tap(coord)
	return nil
}

// UseDefault selects the configured default coordinate for a session.
func (m *Manager) UseDefault(id string) error {
	sess, ok := m.get(id)
	if !ok {
		return ErrSessionNotFound
	}
	m.Touch(id)
	sess.ctrl.UseDefault()
	return nil
}

// Info returns a snapshot of one session.
func (m *Manager) Info(id string) (domain.SessionInfo, error) {
	sess, ok := m.get(id)
	if !ok {
		return domain.SessionInfo{}, ErrSessionNotFound
	}
	return m.infoFor(sess), nil
}

// Selection returns the currently selected coordinate of a session, if any.
func (m *Manager) Selection(id string) (*domain.Selection, error) {
	sess, ok := m.get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	state := sess.ctrl.Snapshot()
	if !state.Located() {
		return nil, nil
	}
	return &domain.Selection{Coordinate: *state.Coordinate, Source: state.Source}, nil
}

// List returns snapshots of all open sessions.
func (m *Manager) List() []domain.SessionInfo {
	m.mu.RLock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.RUnlock()

	infos := make([]domain.SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, m.infoFor(sess))
	}
	return infos
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Touch marks a session as recently active.
func (m *Manager) Touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		sess.lastActive = time.Now()
	}
}

// DrainNotices returns and clears the buffered notices of a session. Notices
// raised while no client was attached are replayed on the next attach.
func (m *Manager) DrainNotices(id string) []domain.Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok || len(sess.notices) == 0 {
		return nil
	}
	drained := sess.notices
	sess.notices = nil
	return drained
}

// StartCleanupLoop manages the periodic removal of idle sessions.
func (m *Manager) StartCleanupLoop(ctx context.Context, ttl time.Duration, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cleanupRuns.Inc()
				pruned := m.pruneIdle(ttl)
				if pruned > 0 {
					sessionsPruned.Add(float64(pruned))
					sessionsActive.Set(float64(m.Count()))
				}
			}
		}
	}()
}

func (m *Manager) pruneIdle(ttl time.Duration) int {
	threshold := time.Now().Add(-ttl)

	m.mu.Lock()
	var expired []string
	for id, sess := range m.sessions {
		if sess.lastActive.Before(threshold) {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		m.bridge.Release(id)
	}
	return len(expired)
}

func (m *Manager) get(id string) (*session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

func (m *Manager) infoFor(sess *session) domain.SessionInfo {
	m.mu.RLock()
	address := sess.address
	createdAt := sess.createdAt
	m.mu.RUnlock()

	return domain.SessionInfo{
		ID:        sess.id,
		State:     sess.ctrl.Snapshot(),
		Address:   address,
		CreatedAt: createdAt,
	}
}

func (m *Manager) handleState(id string, state domain.AcquisitionState) {
	m.Touch(id)
	m.subject.NotifyState(context.Background(), id, state)
}

func (m *Manager) handleNotice(id string, notice domain.Notice) {
	m.mu.Lock()
	if sess, ok := m.sessions[id]; ok {
		sess.notices = append(sess.notices, notice)
	}
	m.mu.Unlock()
	m.subject.NotifyNotice(context.Background(), id, notice)
}

func (m *Manager) handleSelection(id string, sel domain.Selection) {
	m.Touch(id)
	m.subject.NotifySelected(context.Background(), id, sel)
	m.addresses.Enqueue(id, sel.Coordinate)
}

func (m *Manager) setAddress(id string, address string) {
	m.mu.Lock()
	if sess, ok := m.sessions[id]; ok {
		sess.address = address
	}
	m.mu.Unlock()
	m.subject.NotifyAddress(context.Background(), id, address)
}

type sessionConsumer struct {
	manager   *Manager
	sessionID string
}

func (c *sessionConsumer) OnLocationSelect(sel domain.Selection) {
	c.manager.handleSelection(c.sessionID, sel)
}

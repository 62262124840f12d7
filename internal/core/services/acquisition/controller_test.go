package acquisition

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

type providerCall struct {
	req     domain.PositionRequest
	deliver func(domain.PositionResult)
}

type fakeProvider struct {
	available bool
	calls     chan providerCall
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{available: true, calls: make(chan providerCall, 4)}
}

func (p *fakeProvider) Available() bool { return p.available }

func (p *fakeProvider) RequestPosition(ctx context.Context, req domain.PositionRequest, deliver func(domain.PositionResult)) {
	p.calls <- providerCall{req: req, deliver: deliver}
}

func waitCall(t *testing.T, p *fakeProvider) providerCall {
	t.Helper()
	select {
	case call := <-p.calls:
		return call
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a positioning request")
		return providerCall{}
	}
}

func expectNoCall(t *testing.T, p *fakeProvider) {
	t.Helper()
	select {
	case call := <-p.calls:
		t.Fatalf("unexpected positioning request (high accuracy=%v)", call.req.HighAccuracy)
	case <-time.After(50 * time.Millisecond):
	}
}

type fakeSurface struct {
	mu      sync.Mutex
	centers []domain.Coordinate
	markers []domain.Coordinate
}

func (s *fakeSurface) CenterOn(coord domain.Coordinate, zoom int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.centers = append(s.centers, coord)
}

func (s *fakeSurface) PlaceMarker(coord domain.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers = append(s.markers, coord)
}

func (s *fakeSurface) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.centers), len(s.markers)
}

type captureConsumer struct {
	mu         sync.Mutex
	selections []domain.Selection
}

func (c *captureConsumer) OnLocationSelect(sel domain.Selection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selections = append(c.selections, sel)
}

func (c *captureConsumer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.selections)
}

func (c *captureConsumer) last() domain.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selections[len(c.selections)-1]
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (r *noticeRecorder) record(n domain.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) all() []domain.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

type stateRecorder struct {
	mu     sync.Mutex
	states []domain.AcquisitionState
}

func (r *stateRecorder) record(s domain.AcquisitionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) all() []domain.AcquisitionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AcquisitionState, len(r.states))
	copy(out, r.states)
	return out
}

// TestController_AutoStartAndFix verifies the happy path from activation to a
// device fix.
func TestController_AutoStartAndFix(t *testing.T) {
	provider := newFakeProvider()
	surface := &fakeSurface{}
	consumer := &captureConsumer{}

	ctrl := New(Config{Provider: provider, Surface: surface})
	ctrl.Subscribe(consumer)
	ctrl.Start(context.Background())

	call := waitCall(t, provider)
	assert.True(t, call.req.HighAccuracy)
	assert.Equal(t, HighAccuracyTimeout, call.req.Timeout)
	assert.NotEmpty(t, call.req.AttemptID)

	coord := domain.Coordinate{Lat: 31.63, Lng: -7.99}
	call.deliver(domain.PositionResult{AttemptID: call.req.AttemptID, Coordinate: &coord})

	state := ctrl.Snapshot()
	assert.Equal(t, domain.PhaseLocated, state.Phase)
	assert.Equal(t, coord, *state.Coordinate)
	assert.Equal(t, domain.SourceDevice, state.Source)

	assert.Equal(t, 1, consumer.count(), "the consumer must be notified exactly once")
	assert.Equal(t, coord, consumer.last().Coordinate)

	centers, markers := surface.counts()
	assert.Equal(t, 1, centers)
	assert.Equal(t, 1, markers)
}

// TestController_TimeoutRetryThenFix verifies the full degraded-accuracy
// sequence: one timeout, one low-accuracy retry, then success.
func TestController_TimeoutRetryThenFix(t *testing.T) {
	provider := newFakeProvider()
	consumer := &captureConsumer{}
	notices := &noticeRecorder{}

	ctrl := New(Config{Provider: provider})
	ctrl.Subscribe(consumer)
	ctrl.SetCallbacks(notices.record, nil)
	ctrl.Start(context.Background())

	// Step 1: the high-accuracy call times out.
	first := waitCall(t, provider)
	assert.True(t, first.req.HighAccuracy)
	first.deliver(domain.PositionResult{
		AttemptID: first.req.AttemptID,
		Err:       &domain.PositionError{Code: domain.PositionTimeout, Message: "timeout expired"},
	})

	// Step 2: the retry goes out with a fresh attempt id.
	second := waitCall(t, provider)
	assert.False(t, second.req.HighAccuracy)
	assert.Equal(t, RetryTimeout, second.req.Timeout)
	assert.False(t, second.req.AllowCached)
	assert.NotEqual(t, first.req.AttemptID, second.req.AttemptID)
	assert.Empty(t, notices.all(), "the retry must not surface an alert")

	// Step 3: the retry succeeds.
	coord := domain.Coordinate{Lat: 31.63, Lng: -7.99}
	second.deliver(domain.PositionResult{AttemptID: second.req.AttemptID, Coordinate: &coord})

	state := ctrl.Snapshot()
	assert.Equal(t, domain.PhaseLocated, state.Phase)
	assert.Equal(t, 1, consumer.count())
	assert.Equal(t, domain.SourceDevice, consumer.last().Source)
}

// TestController_RetryPushesDowngradedState verifies that the automatic
// low-accuracy retry reaches the state callback even though the phase stays
// locating.
func TestController_RetryPushesDowngradedState(t *testing.T) {
	provider := newFakeProvider()
	states := &stateRecorder{}

	ctrl := New(Config{Provider: provider})
	ctrl.SetCallbacks(nil, states.record)
	ctrl.Start(context.Background())

	first := waitCall(t, provider)
	pushed := states.all()
	assert.Len(t, pushed, 1)
	assert.True(t, pushed[0].HighAccuracy)

	first.deliver(domain.PositionResult{
		AttemptID: first.req.AttemptID,
		Err:       &domain.PositionError{Code: domain.PositionTimeout, Message: "timeout expired"},
	})
	second := waitCall(t, provider)
	assert.False(t, second.req.HighAccuracy)

	pushed = states.all()
	assert.Len(t, pushed, 2, "the downgrade must be pushed")
	assert.Equal(t, domain.PhaseLocating, pushed[1].Phase)
	assert.False(t, pushed[1].HighAccuracy, "the pushed state must report the accuracy downgrade")
}

// TestController_DoubleTimeoutFailsWithOneAlert verifies that a second timeout
// ends acquisition with a single alert.
func TestController_DoubleTimeoutFailsWithOneAlert(t *testing.T) {
	provider := newFakeProvider()
	notices := &noticeRecorder{}

	ctrl := New(Config{Provider: provider})
	ctrl.SetCallbacks(notices.record, nil)
	ctrl.Start(context.Background())

	timeout := &domain.PositionError{Code: domain.PositionTimeout, Message: "timeout expired"}
	first := waitCall(t, provider)
	first.deliver(domain.PositionResult{AttemptID: first.req.AttemptID, Err: timeout})
	second := waitCall(t, provider)
	second.deliver(domain.PositionResult{AttemptID: second.req.AttemptID, Err: timeout})

	expectNoCall(t, provider)
	assert.Equal(t, domain.PhaseFailed, ctrl.Snapshot().Phase)

	recorded := notices.all()
	assert.Len(t, recorded, 1)
	assert.Equal(t, domain.NoticeAlert, recorded[0].Level)
	assert.Equal(t, AlertLocationFailed, recorded[0].Message)
}

// TestController_StaleResultAfterTap verifies that a provider result arriving
// after a manual tap is discarded by attempt identity.
func TestController_StaleResultAfterTap(t *testing.T) {
	provider := newFakeProvider()
	consumer := &captureConsumer{}

	ctrl := New(Config{Provider: provider})
	ctrl.Subscribe(consumer)
	ctrl.Start(context.Background())

	call := waitCall(t, provider)

	// The user taps the map before the provider answers.
	tapped := domain.Coordinate{Lat: 40.0, Lng: -3.7}
	ctrl.Tap(tapped)
	assert.Equal(t, 1, consumer.count())
	assert.Equal(t, domain.SourceManual, consumer.last().Source)

	// The outstanding call now completes. It must change nothing.
	late := domain.Coordinate{Lat: 31.63, Lng: -7.99}
	call.deliver(domain.PositionResult{AttemptID: call.req.AttemptID, Coordinate: &late})

	state := ctrl.Snapshot()
	assert.Equal(t, domain.PhaseLocated, state.Phase)
	assert.Equal(t, tapped, *state.Coordinate)
	assert.Equal(t, domain.SourceManual, state.Source)
	assert.Equal(t, 1, consumer.count(), "the superseded result must not notify again")

	// A late error is equally ignored.
	call.deliver(domain.PositionResult{
		AttemptID: call.req.AttemptID,
		Err:       &domain.PositionError{Code: domain.PositionTimeout, Message: "timeout expired"},
	})
	expectNoCall(t, provider)
	assert.Equal(t, domain.PhaseLocated, ctrl.Snapshot().Phase)
}

// TestController_StaleResultAfterRestart verifies that a result from a
// superseded attempt is matched against the attempt id under the same lock
// that applies the transition: a fix or timeout still in flight across a
// tap-and-relocate restart must not touch the restarted attempt.
func TestController_StaleResultAfterRestart(t *testing.T) {
	provider := newFakeProvider()
	consumer := &captureConsumer{}

	ctrl := New(Config{Provider: provider})
	ctrl.Subscribe(consumer)
	ctrl.Start(context.Background())

	first := waitCall(t, provider)

	// The user taps, then restarts acquisition while the first attempt's
	// result is still in flight.
	tapped := domain.Coordinate{Lat: 40.0, Lng: -3.7}
	ctrl.Tap(tapped)
	ctrl.RequestLocate()
	second := waitCall(t, provider)
	assert.NotEqual(t, first.req.AttemptID, second.req.AttemptID)

	// The superseded fix lands while the second attempt is outstanding.
	stale := domain.Coordinate{Lat: 31.63, Lng: -7.99}
	first.deliver(domain.PositionResult{AttemptID: first.req.AttemptID, Coordinate: &stale})

	state := ctrl.Snapshot()
	assert.Equal(t, domain.PhaseLocating, state.Phase, "the restarted attempt must stay outstanding")
	assert.Equal(t, 1, consumer.count(), "only the tap may notify")
	assert.Equal(t, tapped, consumer.last().Coordinate)

	// A superseded timeout must not spawn a downgrade retry beside the
	// outstanding high-accuracy call.
	first.deliver(domain.PositionResult{
		AttemptID: first.req.AttemptID,
		Err:       &domain.PositionError{Code: domain.PositionTimeout, Message: "timeout expired"},
	})
	expectNoCall(t, provider)
	assert.Equal(t, domain.PhaseLocating, ctrl.Snapshot().Phase)
	assert.True(t, ctrl.Snapshot().HighAccuracy)

	// The live attempt still completes normally.
	coord := domain.Coordinate{Lat: 36.7538, Lng: 3.0588}
	second.deliver(domain.PositionResult{AttemptID: second.req.AttemptID, Coordinate: &coord})
	assert.Equal(t, domain.PhaseLocated, ctrl.Snapshot().Phase)
	assert.Equal(t, coord, *ctrl.Snapshot().Coordinate)
	assert.Equal(t, 2, consumer.count())
}

// TestController_ConcurrentRestartNeverAppliesStaleFix races an in-flight
// delivery against a tap-and-relocate restart. Whatever the interleaving,
// the session must end up in the restarted locating phase, never located on
// the superseded coordinate.
func TestController_ConcurrentRestartNeverAppliesStaleFix(t *testing.T) {
	for i := 0; i < 300; i++ {
		provider := newFakeProvider()
		consumer := &captureConsumer{}

		ctrl := New(Config{Provider: provider})
		ctrl.Subscribe(consumer)
		ctrl.Start(context.Background())
		call := waitCall(t, provider)

		stale := domain.Coordinate{Lat: 31.63, Lng: -7.99}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			call.deliver(domain.PositionResult{AttemptID: call.req.AttemptID, Coordinate: &stale})
		}()
		go func() {
			defer wg.Done()
			ctrl.Tap(domain.Coordinate{Lat: 40.0, Lng: -3.7})
			ctrl.RequestLocate()
		}()
		wg.Wait()
		waitCall(t, provider)

		state := ctrl.Snapshot()
		assert.Equal(t, domain.PhaseLocating, state.Phase)
		assert.True(t, state.HighAccuracy)
		assert.Nil(t, state.Coordinate)
		assert.LessOrEqual(t, consumer.count(), 2)
	}
}

// TestController_NoProviderFailsSilently verifies capability absence.
func TestController_NoProviderFailsSilently(t *testing.T) {
	notices := &noticeRecorder{}

	ctrl := New(Config{Provider: nil})
	ctrl.SetCallbacks(notices.record, nil)
	ctrl.Start(context.Background())

	assert.Equal(t, domain.PhaseFailed, ctrl.Snapshot().Phase)
	assert.Empty(t, notices.all(), "missing capability must not raise an alert")
}

// TestController_NonTimeoutErrorAlertsOnce verifies the immediate failure path.
func TestController_NonTimeoutErrorAlertsOnce(t *testing.T) {
	provider := newFakeProvider()
	notices := &noticeRecorder{}

	ctrl := New(Config{Provider: provider})
	ctrl.SetCallbacks(notices.record, nil)
	ctrl.Start(context.Background())

	call := waitCall(t, provider)
	call.deliver(domain.PositionResult{
		AttemptID: call.req.AttemptID,
		Err:       &domain.PositionError{Code: domain.PositionPermissionDenied, Message: "permission denied"},
	})

	expectNoCall(t, provider)
	assert.Equal(t, domain.PhaseFailed, ctrl.Snapshot().Phase)
	assert.Len(t, notices.all(), 1)
}

// TestController_UseDefaultBehavesLikeTap verifies that the static default is
// selected with the same effect sequence as a manual tap.
func TestController_UseDefaultBehavesLikeTap(t *testing.T) {
	provider := newFakeProvider()
	surface := &fakeSurface{}
	consumer := &captureConsumer{}
	def := domain.Coordinate{Lat: 36.7538, Lng: 3.0588}

	ctrl := New(Config{Provider: provider, Surface: surface, Default: def})
	ctrl.Subscribe(consumer)
	ctrl.Start(context.Background())
	waitCall(t, provider)

	ctrl.UseDefault()

	state := ctrl.Snapshot()
	assert.Equal(t, domain.PhaseLocated, state.Phase)
	assert.Equal(t, def, *state.Coordinate)
	assert.Equal(t, domain.SourceDefault, state.Source)
	assert.Equal(t, 1, consumer.count())

	centers, markers := surface.counts()
	assert.Equal(t, 1, centers)
	assert.Equal(t, 1, markers)
}

// TestController_DegradedWarnsOnStart verifies the one-time warning and that
// map taps are refused while the default remains available.
func TestController_DegradedWarnsOnStart(t *testing.T) {
	provider := newFakeProvider()
	consumer := &captureConsumer{}
	notices := &noticeRecorder{}
	def := domain.Coordinate{Lat: 36.7538, Lng: 3.0588}

	ctrl := New(Config{Provider: provider, Degraded: true, Default: def})
	ctrl.Subscribe(consumer)
	ctrl.SetCallbacks(notices.record, nil)
	ctrl.Start(context.Background())
	waitCall(t, provider)

	recorded := notices.all()
	assert.Len(t, recorded, 1)
	assert.Equal(t, domain.NoticeWarning, recorded[0].Level)
	assert.Equal(t, WarnMapUnavailable, recorded[0].Message)

	// Taps are dead in degraded mode.
	ctrl.Tap(domain.Coordinate{Lat: 40.0, Lng: -3.7})
	assert.Equal(t, 0, consumer.count())

	// The default stays available.
	ctrl.UseDefault()
	assert.Equal(t, 1, consumer.count())
	assert.Equal(t, domain.SourceDefault, consumer.last().Source)
}

// TestController_LocateMashIssuesOneRequest verifies that repeated locate
// triggers reuse the outstanding attempt.
func TestController_LocateMashIssuesOneRequest(t *testing.T) {
	provider := newFakeProvider()

	ctrl := New(Config{Provider: provider})
	ctrl.Start(context.Background())
	waitCall(t, provider)

	ctrl.RequestLocate()
	ctrl.RequestLocate()
	ctrl.RequestLocate()

	expectNoCall(t, provider)
	assert.Equal(t, domain.PhaseLocating, ctrl.Snapshot().Phase)
}

// TestController_StartWithInitialCoordinateStaysIdle verifies that a prefilled
// form never auto-locates.
func TestController_StartWithInitialCoordinateStaysIdle(t *testing.T) {
	provider := newFakeProvider()
	coord := domain.Coordinate{Lat: 31.63, Lng: -7.99}

	ctrl := New(Config{Provider: provider, Initial: &coord})
	ctrl.Start(context.Background())

	expectNoCall(t, provider)
	state := ctrl.Snapshot()
	assert.Equal(t, domain.PhaseIdle, state.Phase)
	assert.Equal(t, coord, *state.Coordinate)
}

// TestController_StartIsIdempotent verifies that repeated starts do not issue
// additional requests.
func TestController_StartIsIdempotent(t *testing.T) {
	provider := newFakeProvider()

	ctrl := New(Config{Provider: provider})
	ctrl.Start(context.Background())
	waitCall(t, provider)

	ctrl.Start(context.Background())
	expectNoCall(t, provider)
}

// TestController_SnapshotIsACopy verifies that mutating a snapshot cannot
// corrupt controller state.
func TestController_SnapshotIsACopy(t *testing.T) {
	provider := newFakeProvider()

	ctrl := New(Config{Provider: provider})
	ctrl.Start(context.Background())
	call := waitCall(t, provider)

	coord := domain.Coordinate{Lat: 31.63, Lng: -7.99}
	call.deliver(domain.PositionResult{AttemptID: call.req.AttemptID, Coordinate: &coord})

	snap := ctrl.Snapshot()
	snap.Coordinate.Lat = 0

	assert.Equal(t, 31.63, ctrl.Snapshot().Coordinate.Lat)
}

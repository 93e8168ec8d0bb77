package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mirakyux/micept/internal/clock"
	"github.com/mirakyux/micept/internal/config"
	"github.com/mirakyux/micept/internal/engine"
	"github.com/mirakyux/micept/internal/lcu"
	"github.com/mirakyux/micept/internal/state"
)

var (
	credsA = engine.Credentials{Port: "1001", Token: "token-a"}
	credsB = engine.Credentials{Port: "1002", Token: "token-b"}

	errBoom = errors.New("boom")
)

type fakeDiscoverer struct {
	mu    sync.Mutex
	creds engine.Credentials
	err   error
	calls int
}

func (f *fakeDiscoverer) Discover(context.Context) (engine.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return engine.Credentials{}, f.err
	}
	return f.creds, nil
}

func (f *fakeDiscoverer) set(creds engine.Credentials, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds, f.err = creds, err
}

type fakeClient struct {
	mu          sync.Mutex
	validateErr error
	summoner    engine.Summoner
	summonerErr error
	phase       engine.Phase
	phaseErr    error
	acceptErr   error

	validates int
	summoners int
	accepts   int
}

func (f *fakeClient) Validate(context.Context, engine.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validates++
	return f.validateErr
}

func (f *fakeClient) Summoner(context.Context, engine.Credentials) (engine.Summoner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summoners++
	return f.summoner, f.summonerErr
}

func (f *fakeClient) GameflowPhase(context.Context, engine.Credentials) (engine.Phase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phaseErr != nil {
		return engine.PhaseNone, f.phaseErr
	}
	return f.phase, nil
}

func (f *fakeClient) AcceptReadyCheck(context.Context, engine.Credentials) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepts++
	if f.acceptErr != nil {
		return "", f.acceptErr
	}
	return lcu.AcceptedMessage, nil
}

func (f *fakeClient) setPhase(p engine.Phase) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phase = p
}

type recordingSink struct {
	mu           sync.Mutex
	connectivity []bool
	summoners    []engine.Summoner
	phases       []engine.Phase
	accepted     []string
}

func (r *recordingSink) ConnectivityChanged(c bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectivity = append(r.connectivity, c)
}

func (r *recordingSink) SummonerUpdated(s engine.Summoner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summoners = append(r.summoners, s)
}

func (r *recordingSink) GameflowChanged(p engine.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, p)
}

func (r *recordingSink) MatchAccepted(m string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accepted = append(r.accepted, m)
}

type fakeWindow struct {
	shows, hides int
}

func (w *fakeWindow) Show() error { w.shows++; return nil }
func (w *fakeWindow) Hide() error { w.hides++; return nil }

type fakeConfig struct {
	cfg     config.Config
	updates int
}

func (c *fakeConfig) Update(fn func(*config.Config)) {
	c.updates++
	fn(&c.cfg)
}

type harness struct {
	state  *state.State
	disc   *fakeDiscoverer
	client *fakeClient
	sink   *recordingSink
	window *fakeWindow
	config *fakeConfig
	loop   *Loop
}

func newHarness(t *testing.T, toggles state.Toggles) *harness {
	t.Helper()
	h := &harness{
		state:  state.New(toggles),
		disc:   &fakeDiscoverer{creds: credsA},
		client: &fakeClient{summoner: engine.Summoner{DisplayName: "Faker#KR1", Level: 30}, phase: engine.PhaseLobby},
		sink:   &recordingSink{},
		window: &fakeWindow{},
		config: &fakeConfig{cfg: config.Default()},
	}
	h.loop = New(h.state, h.disc, h.client, h.sink, Options{
		Logger: zap.NewNop(),
		Window: h.window,
		Config: h.config,
		Clock:  clock.Fake(time.Unix(0, 0)),
	})
	return h
}

func (h *harness) cycles(n int) {
	for i := 0; i < n; i++ {
		h.loop.cycle(context.Background())
	}
}

func TestBackoffGrowsAndResetsOnSuccess(t *testing.T) {
	h := newHarness(t, state.Toggles{})
	h.disc.set(engine.Credentials{}, lcu.ErrClientNotFound)

	base := engine.DefaultBaseInterval
	var got []time.Duration
	for i := 0; i < 8; i++ {
		h.cycles(1)
		got = append(got, h.loop.Interval())
	}
	assert.Equal(t, []time.Duration{
		2 * base, 3 * base, 4 * base, 5 * base, 6 * base, 6 * base, 6 * base, 6 * base,
	}, got)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i], got[i-1])
	}

	h.disc.set(credsA, nil)
	h.cycles(1)
	assert.Equal(t, base, h.loop.Interval(), "success resets backoff")
	assert.True(t, h.state.Connected())
}

func TestIntervalFollowsPhase(t *testing.T) {
	h := newHarness(t, state.Toggles{})

	h.client.setPhase(engine.PhaseReadyCheck)
	h.cycles(1)
	assert.Equal(t, engine.DefaultReadyCheckInterval, h.loop.Interval())

	h.client.setPhase(engine.PhaseInProgress)
	h.cycles(1)
	assert.Equal(t, engine.DefaultInGameInterval, h.loop.Interval())

	h.client.setPhase(engine.PhaseChampSelect)
	h.cycles(1)
	assert.Equal(t, engine.DefaultBaseInterval, h.loop.Interval())
}

func TestGameflowEmittedOnlyOnChange(t *testing.T) {
	h := newHarness(t, state.Toggles{})

	for _, p := range []engine.Phase{engine.PhaseLobby, engine.PhaseLobby, engine.PhaseReadyCheck} {
		h.client.setPhase(p)
		h.cycles(1)
	}
	assert.Equal(t, []engine.Phase{engine.PhaseLobby, engine.PhaseReadyCheck}, h.sink.phases)
}

func TestConnectivityEventsOnTransitionsOnly(t *testing.T) {
	h := newHarness(t, state.Toggles{})

	h.cycles(3)
	assert.Equal(t, []bool{true}, h.sink.connectivity)
	assert.Equal(t, 2, h.client.validates, "later cycles validate the cache")
	assert.Equal(t, 1, h.disc.calls)

	h.client.validateErr = errBoom
	h.disc.set(engine.Credentials{}, lcu.ErrClientNotFound)
	h.cycles(3)
	assert.Equal(t, []bool{true, false}, h.sink.connectivity)

	snap := h.state.Snapshot()
	assert.False(t, snap.Connected)
	assert.Nil(t, snap.Summoner)
	assert.Equal(t, engine.PhaseNone, snap.Phase)
}

func TestRediscoveryWithSameClientKeepsConnectivity(t *testing.T) {
	h := newHarness(t, state.Toggles{})
	h.cycles(1)

	h.client.validateErr = errBoom
	h.cycles(1)
	assert.Equal(t, []bool{true}, h.sink.connectivity)
	assert.True(t, h.state.Connected())
	assert.Equal(t, 1, h.client.summoners, "same client keeps the summoner")
}

func TestSummonerEventOnlyOnIdentityChange(t *testing.T) {
	h := newHarness(t, state.Toggles{})
	h.cycles(1)
	require.Len(t, h.sink.summoners, 1)

	// Client restart forces a refetch; only the icon changed.
	h.client.validateErr = errBoom
	h.disc.set(credsB, nil)
	h.client.summoner.ProfileIconID = 7
	h.cycles(1)
	assert.Equal(t, 2, h.client.summoners)
	assert.Len(t, h.sink.summoners, 1, "icon-only change is not announced")
	got, ok := h.state.Summoner()
	require.True(t, ok)
	assert.Equal(t, 7, got.ProfileIconID, "fresh snapshot is still stored")

	h.disc.set(credsA, nil)
	h.client.summoner.Level = 31
	h.cycles(1)
	require.Len(t, h.sink.summoners, 2)
	assert.Equal(t, 31, h.sink.summoners[1].Level)
}

func TestSummonerFetchFailureLeavesItAbsent(t *testing.T) {
	h := newHarness(t, state.Toggles{})
	h.client.summonerErr = errBoom
	h.cycles(2)

	_, ok := h.state.Summoner()
	assert.False(t, ok)
	assert.Empty(t, h.sink.summoners)
	assert.Equal(t, 2, h.client.summoners, "absent summoner is retried each cycle")

	h.client.summonerErr = nil
	h.cycles(2)
	assert.Len(t, h.sink.summoners, 1)
	assert.Equal(t, 3, h.client.summoners)
}

func TestPhaseFailureResetsPhaseButKeepsCredentials(t *testing.T) {
	h := newHarness(t, state.Toggles{})
	h.cycles(1)
	require.Equal(t, engine.PhaseLobby, h.state.Phase())

	h.client.phaseErr = errBoom
	h.cycles(1)
	assert.Equal(t, engine.PhaseNone, h.state.Phase())
	assert.True(t, h.state.Connected())
	assert.Equal(t, []engine.Phase{engine.PhaseLobby}, h.sink.phases)
}

func TestAutoAcceptEveryReadyCheckCycle(t *testing.T) {
	tests := []struct {
		name        string
		autoAccept  bool
		wantAccepts int
	}{
		{"enabled", true, 3},
		{"disabled", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, state.Toggles{AutoAccept: tt.autoAccept})
			h.client.setPhase(engine.PhaseReadyCheck)
			h.cycles(3)

			assert.Equal(t, tt.wantAccepts, h.client.accepts)
			assert.Len(t, h.sink.accepted, tt.wantAccepts)
		})
	}
}

func TestAutoAcceptFailureIsSwallowed(t *testing.T) {
	h := newHarness(t, state.Toggles{AutoAccept: true})
	h.client.setPhase(engine.PhaseReadyCheck)
	h.client.acceptErr = errBoom
	h.cycles(2)

	assert.Equal(t, 2, h.client.accepts)
	assert.Empty(t, h.sink.accepted)
	assert.True(t, h.state.Connected())
}

func TestWindowRules(t *testing.T) {
	tests := []struct {
		name      string
		autoHide  bool
		phases    []engine.Phase
		failAt    map[int]bool // cycles whose phase fetch fails
		wantHides int
		wantShows int
	}{
		{
			name:      "enter and stay",
			autoHide:  true,
			phases:    []engine.Phase{engine.PhaseChampSelect, engine.PhaseInProgress, engine.PhaseInProgress, engine.PhaseInProgress},
			wantHides: 1,
		},
		{
			name:      "enter and leave",
			autoHide:  true,
			phases:    []engine.Phase{engine.PhaseInProgress, engine.PhaseInProgress, engine.PhaseWaitingForStats, engine.PhaseEndOfGame},
			wantHides: 1,
			wantShows: 1,
		},
		{
			name:      "legacy in-game name",
			autoHide:  true,
			phases:    []engine.Phase{engine.PhaseLobby, engine.PhaseInGame, engine.PhaseInProgress, engine.PhaseLobby},
			wantHides: 1,
			wantShows: 1,
		},
		{
			name:      "phase fetch fails mid game",
			autoHide:  true,
			phases:    []engine.Phase{engine.PhaseInProgress, engine.PhaseInProgress, engine.PhaseInProgress, engine.PhaseLobby},
			failAt:    map[int]bool{1: true},
			wantHides: 1,
			wantShows: 1,
		},
		{
			name:   "auto hide off",
			phases: []engine.Phase{engine.PhaseInProgress, engine.PhaseLobby},
		},
		{
			name:     "never in game",
			autoHide: true,
			phases:   []engine.Phase{engine.PhaseLobby, engine.PhaseReadyCheck, engine.PhaseChampSelect},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, state.Toggles{AutoHide: tt.autoHide, WindowVisible: true})
			for i, p := range tt.phases {
				h.client.setPhase(p)
				h.client.phaseErr = nil
				if tt.failAt[i] {
					h.client.phaseErr = errBoom
				}
				h.cycles(1)
			}
			assert.Equal(t, tt.wantHides, h.window.hides)
			assert.Equal(t, tt.wantShows, h.window.shows)
		})
	}
}

func TestHiddenWindowStateIsPersisted(t *testing.T) {
	h := newHarness(t, state.Toggles{AutoHide: true, WindowVisible: true})
	h.client.setPhase(engine.PhaseInProgress)
	h.cycles(1)
	assert.False(t, h.state.Toggles().WindowVisible)
	assert.False(t, h.config.cfg.WindowVisible)

	h.client.setPhase(engine.PhaseEndOfGame)
	h.cycles(1)
	assert.True(t, h.state.Toggles().WindowVisible)
	assert.True(t, h.config.cfg.WindowVisible)
	assert.Equal(t, 2, h.config.updates)
}

func TestLostConnectionRestoresHiddenWindow(t *testing.T) {
	h := newHarness(t, state.Toggles{AutoHide: true})
	h.client.setPhase(engine.PhaseInProgress)
	h.cycles(1)
	require.Equal(t, 1, h.window.hides)

	h.client.validateErr = errBoom
	h.disc.set(engine.Credentials{}, lcu.ErrClientNotFound)
	h.cycles(2)
	assert.Equal(t, 1, h.window.shows)
}

func TestRunSleepsThenStops(t *testing.T) {
	h := newHarness(t, state.Toggles{})
	fake := clock.Fake(time.Unix(0, 0))
	h.loop.clock = fake

	done := make(chan error, 1)
	go func() { done <- h.loop.Run(context.Background()) }()

	fake.WaitForTimers(1)
	assert.Equal(t, 0, h.disc.calls, "first cycle waits for the base interval")
	fake.Advance(engine.DefaultBaseInterval)

	// Second sleep is requested once the first cycle finished.
	fake.WaitForRequests(2)
	assert.True(t, h.state.Connected())
	assert.Equal(t, []time.Duration{engine.DefaultBaseInterval, engine.DefaultBaseInterval}, fake.Requested())

	h.state.Stop()
	fake.WaitForTimers(1)
	fake.Advance(engine.DefaultBaseInterval)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, 1, h.disc.calls, "no cycle after stop")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	h := newHarness(t, state.Toggles{})
	fake := clock.Fake(time.Unix(0, 0))
	h.loop.clock = fake

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.loop.Run(ctx) }()

	fake.WaitForTimers(1)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestSinksFanOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	sinks := Sinks{a, b}
	sinks.GameflowChanged(engine.PhaseLobby)
	sinks.MatchAccepted("ok")

	for _, r := range []*recordingSink{a, b} {
		assert.Equal(t, []engine.Phase{engine.PhaseLobby}, r.phases)
		assert.Equal(t, []string{"ok"}, r.accepted)
	}
}

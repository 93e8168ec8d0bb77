// Package reconcile keeps the shared state in step with the running League
// client. A single goroutine runs Loop.Run: sleep, resolve credentials,
// refresh summoner and phase, react to the phase, pick the next interval.
package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mirakyux/micept/internal/clock"
	"github.com/mirakyux/micept/internal/config"
	"github.com/mirakyux/micept/internal/engine"
	"github.com/mirakyux/micept/internal/state"
)

const DefaultRequestTimeout = 5 * time.Second

type Options struct {
	Policy         engine.Policy
	RequestTimeout time.Duration
	Clock          clock.Clock
	Logger         *zap.Logger
	Window         Window
	Config         ConfigWriter
}

// Loop is not safe for concurrent use; Run must be called once.
type Loop struct {
	state      *state.State
	discoverer Discoverer
	client     SessionClient
	sink       Sink
	window     Window
	config     ConfigWriter
	clock      clock.Clock
	policy     engine.Policy
	timeout    time.Duration
	logger     *zap.Logger

	failures int
	interval time.Duration
	// hidden is set only when the loop itself hid the window.
	hidden bool
	// announced is the last summoner sent to the sink.
	announced *engine.Summoner
}

func New(st *state.State, d Discoverer, c SessionClient, sink Sink, opts Options) *Loop {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Window == nil {
		opts.Window = nopWindow{}
	}
	if opts.Config == nil {
		opts.Config = nopConfig{}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if sink == nil {
		sink = Sinks(nil)
	}
	policy := opts.Policy.WithDefaults()
	return &Loop{
		state:      st,
		discoverer: d,
		client:     c,
		sink:       sink,
		window:     opts.Window,
		config:     opts.Config,
		clock:      opts.Clock,
		policy:     policy,
		timeout:    opts.RequestTimeout,
		logger:     opts.Logger,
		interval:   policy.Base,
	}
}

// Run loops until the state's running flag is cleared or ctx is done. It
// always returns nil; failures inside a cycle only change the state.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("reconciliation loop started", zap.Duration("interval", l.interval))
	defer l.logger.Info("reconciliation loop stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.clock.After(l.interval):
		}
		if !l.state.Running() {
			return nil
		}
		l.cycle(ctx)
	}
}

// Interval is the sleep chosen by the last cycle.
func (l *Loop) Interval() time.Duration { return l.interval }

func (l *Loop) cycle(ctx context.Context) {
	defer func() {
		l.interval = l.policy.Interval(l.state.Phase(), l.failures)
	}()

	creds, ok := l.resolveCredentials(ctx)
	if !ok {
		return
	}
	l.refreshSummoner(ctx, creds)
	phase := l.refreshPhase(ctx, creds)
	l.autoAccept(ctx, creds, phase)
}

// resolveCredentials validates the cached credentials or discovers new
// ones. It reports false when the cycle has nothing to talk to.
func (l *Loop) resolveCredentials(ctx context.Context) (engine.Credentials, bool) {
	cached, wasConnected := l.state.Credentials()
	if wasConnected {
		err := l.call(ctx, func(ctx context.Context) error {
			return l.client.Validate(ctx, cached)
		})
		if err == nil {
			l.failures = 0
			return cached, true
		}
		l.logger.Info("cached credentials rejected, rediscovering",
			zap.String("port", cached.Port), zap.Error(err))
		l.state.ClearCredentials()
	}

	var found engine.Credentials
	err := l.call(ctx, func(ctx context.Context) error {
		var err error
		found, err = l.discoverer.Discover(ctx)
		return err
	})
	if err != nil {
		l.failures++
		l.state.ResetSession()
		if wasConnected {
			l.announced = nil
			l.logger.Warn("client connection lost", zap.Int("failures", l.failures), zap.Error(err))
			l.sink.ConnectivityChanged(false)
		} else {
			l.logger.Debug("client not found", zap.Int("failures", l.failures), zap.Error(err))
		}
		l.restoreWindow()
		return engine.Credentials{}, false
	}

	l.failures = 0
	l.state.SetCredentials(found)
	switch {
	case !wasConnected:
		l.logger.Info("client connected", zap.String("port", found.Port), zap.String("token", found.MaskedToken()))
		l.sink.ConnectivityChanged(true)
	case found != cached:
		// New client session; its summoner may differ.
		l.logger.Info("client restarted", zap.String("port", found.Port), zap.String("old_port", cached.Port))
		l.state.ClearSummoner()
	}
	return found, true
}

func (l *Loop) refreshSummoner(ctx context.Context, creds engine.Credentials) {
	if _, ok := l.state.Summoner(); ok {
		return
	}

	var sum engine.Summoner
	err := l.call(ctx, func(ctx context.Context) error {
		var err error
		sum, err = l.client.Summoner(ctx, creds)
		return err
	})
	if err != nil {
		l.state.ClearSummoner()
		l.logger.Debug("fetching summoner failed", zap.Error(err))
		return
	}

	l.state.SetSummoner(sum)
	if l.announced != nil && l.announced.SameIdentity(sum) {
		return
	}
	l.announced = &sum
	l.logger.Info("summoner updated", zap.String("summoner", sum.DisplayName), zap.Int("level", sum.Level))
	l.sink.SummonerUpdated(sum)
}

func (l *Loop) refreshPhase(ctx context.Context, creds engine.Credentials) engine.Phase {
	var phase engine.Phase
	err := l.call(ctx, func(ctx context.Context) error {
		var err error
		phase, err = l.client.GameflowPhase(ctx, creds)
		return err
	})
	if err != nil {
		l.state.SetPhase(engine.PhaseNone)
		l.logger.Debug("fetching gameflow phase failed", zap.Error(err))
		return engine.PhaseNone
	}

	old := l.state.SetPhase(phase)
	if old == phase {
		return phase
	}
	l.logger.Info("gameflow phase changed", zap.Stringer("old_phase", old), zap.Stringer("phase", phase))
	l.sink.GameflowChanged(phase)
	l.applyWindowRules(old, phase)
	return phase
}

// applyWindowRules hides the window once on entering a game when auto-hide
// is on, and shows it once on leaving if the loop was the one hiding it.
func (l *Loop) applyWindowRules(old, next engine.Phase) {
	switch {
	case next.IsInGame() && !old.IsInGame():
		if l.hidden || !l.state.AutoHide() {
			return
		}
		if err := l.window.Hide(); err != nil {
			l.logger.Warn("hiding window failed", zap.Error(err))
			return
		}
		l.hidden = true
		l.setWindowVisible(false)
	case !next.IsInGame():
		l.restoreWindow()
	}
}

func (l *Loop) restoreWindow() {
	if !l.hidden {
		return
	}
	if err := l.window.Show(); err != nil {
		l.logger.Warn("showing window failed", zap.Error(err))
		return
	}
	l.hidden = false
	l.setWindowVisible(true)
}

func (l *Loop) setWindowVisible(visible bool) {
	l.state.SetWindowVisible(visible)
	l.config.Update(func(c *config.Config) { c.WindowVisible = visible })
}

func (l *Loop) autoAccept(ctx context.Context, creds engine.Credentials, phase engine.Phase) {
	if !phase.IsReadyCheck() || !l.state.AutoAccept() {
		return
	}
	var message string
	err := l.call(ctx, func(ctx context.Context) error {
		var err error
		message, err = l.client.AcceptReadyCheck(ctx, creds)
		return err
	})
	if err != nil {
		l.logger.Warn("accepting ready check failed", zap.Error(err))
		return
	}
	l.logger.Info("ready check accepted")
	l.sink.MatchAccepted(message)
}

// call bounds fn by the request timeout.
func (l *Loop) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return fn(ctx)
}

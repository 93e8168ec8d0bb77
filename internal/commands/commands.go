// Package commands is the synchronous surface the UI drives: read the
// state, flip toggles, remember the window, quit. Every mutation writes the
// shared state first, then persists, then notifies.
package commands

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mirakyux/micept/internal/config"
	"github.com/mirakyux/micept/internal/engine"
	"github.com/mirakyux/micept/internal/lcu"
	"github.com/mirakyux/micept/internal/state"
	"github.com/mirakyux/micept/pkg/types"
)

var ErrNoDiscoverer = errors.New("credential discovery unavailable")

type ConfigStore interface {
	Config() config.Config
	Update(fn func(*config.Config))
}

type Notifier interface {
	SettingsChanged(types.AppState)
	WindowVisibilityChanged(visible bool)
}

type Discoverer interface {
	Discover(ctx context.Context) (engine.Credentials, error)
}

type Options struct {
	Notifier   Notifier
	Discoverer Discoverer
	// Quit is called after the running flag is cleared.
	Quit   func()
	Logger *zap.Logger
}

type Service struct {
	state      *state.State
	store      ConfigStore
	notifier   Notifier
	discoverer Discoverer
	quit       func()
	logger     *zap.Logger
}

func New(st *state.State, store ConfigStore, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Quit == nil {
		opts.Quit = func() {}
	}
	return &Service{
		state:      st,
		store:      store,
		notifier:   opts.Notifier,
		discoverer: opts.Discoverer,
		quit:       opts.Quit,
		logger:     opts.Logger,
	}
}

// TogglesFromConfig seeds the shared state at startup.
func TogglesFromConfig(c config.Config) state.Toggles {
	return state.Toggles{
		AutoAccept:    c.AutoAccept,
		MouseThrough:  c.MouseThrough,
		AutoHide:      c.AutoHide,
		WindowVisible: c.WindowVisible,
	}
}

func (s *Service) AppState() types.AppState {
	return s.state.Snapshot().AppState()
}

// setting describes one boolean user toggle.
type setting struct {
	name    string
	field   func(*state.Toggles) *bool
	persist func(*config.Config, bool)
}

var (
	autoAccept = setting{
		name:    "auto-accept",
		field:   func(t *state.Toggles) *bool { return &t.AutoAccept },
		persist: func(c *config.Config, v bool) { c.AutoAccept = v },
	}
	mouseThrough = setting{
		name:    "mouse-through",
		field:   func(t *state.Toggles) *bool { return &t.MouseThrough },
		persist: func(c *config.Config, v bool) { c.MouseThrough = v },
	}
	autoHide = setting{
		name:    "auto-hide",
		field:   func(t *state.Toggles) *bool { return &t.AutoHide },
		persist: func(c *config.Config, v bool) { c.AutoHide = v },
	}
)

func (s *Service) SetAutoAccept(enabled bool) types.Ack   { return s.set(autoAccept, enabled) }
func (s *Service) SetMouseThrough(enabled bool) types.Ack { return s.set(mouseThrough, enabled) }
func (s *Service) SetAutoHide(enabled bool) types.Ack     { return s.set(autoHide, enabled) }

// Toggle* flip a setting the way the tray menu does and return the new
// value.
func (s *Service) ToggleAutoAccept() bool   { return s.toggle(autoAccept) }
func (s *Service) ToggleMouseThrough() bool { return s.toggle(mouseThrough) }
func (s *Service) ToggleAutoHide() bool     { return s.toggle(autoHide) }

func (s *Service) set(st setting, enabled bool) types.Ack {
	s.state.SetToggle(st.field, enabled)
	s.committed(st, enabled)
	return types.Ack{Message: fmt.Sprintf("%s %s", st.name, onOff(enabled))}
}

func (s *Service) toggle(st setting) bool {
	v := s.state.Flip(st.field)
	s.committed(st, v)
	return v
}

func (s *Service) committed(st setting, v bool) {
	s.store.Update(func(c *config.Config) { st.persist(c, v) })
	s.logger.Info("setting changed", zap.String("setting", st.name), zap.Bool("enabled", v))
	if s.notifier != nil {
		s.notifier.SettingsChanged(s.AppState())
	}
}

func (s *Service) SaveWindowPosition(x, y int) types.Ack {
	s.store.Update(func(c *config.Config) { c.WindowPosition = config.WindowPosition{X: x, Y: y} })
	s.logger.Debug("window position saved", zap.Int("x", x), zap.Int("y", y))
	return types.Ack{Message: "window position saved"}
}

func (s *Service) SaveWindowVisible(visible bool) types.Ack {
	s.state.SetWindowVisible(visible)
	s.store.Update(func(c *config.Config) { c.WindowVisible = visible })
	s.logger.Debug("window visibility saved", zap.Bool("visible", visible))
	if s.notifier != nil {
		s.notifier.WindowVisibilityChanged(visible)
	}
	return types.Ack{Message: "window visibility saved"}
}

func (s *Service) WindowPosition() config.WindowPosition {
	return s.store.Config().WindowPosition
}

// Quit stops the reconciliation loop and then the process.
func (s *Service) Quit() types.Ack {
	s.logger.Info("quit requested")
	s.state.Stop()
	s.quit()
	return types.Ack{Message: "shutting down"}
}

// DiscoverCredentials runs a discovery outside the loop. It does not touch
// the shared state.
func (s *Service) DiscoverCredentials(ctx context.Context) (types.LCUAuth, error) {
	if s.discoverer == nil {
		return types.LCUAuth{}, ErrNoDiscoverer
	}
	creds, err := s.discoverer.Discover(ctx)
	if err != nil {
		return types.LCUAuth{}, err
	}
	return types.LCUAuth{Port: creds.Port, Token: creds.MaskedToken(), IsConnected: true}, nil
}

func (s *Service) Privileges() lcu.Privileges {
	return lcu.CheckPrivileges()
}

func onOff(v bool) string {
	if v {
		return "enabled"
	}
	return "disabled"
}

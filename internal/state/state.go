package state

import (
	"sync"
	"sync/atomic"

	"github.com/mirakyux/micept/internal/engine"
)

// Toggles are the user-controlled switches.
type Toggles struct {
	AutoAccept    bool
	MouseThrough  bool
	AutoHide      bool
	WindowVisible bool
}

// Snapshot is a consistent copy of every field.
type Snapshot struct {
	Toggles
	Phase     engine.Phase
	Connected bool
	Summoner  *engine.Summoner
}

type State struct {
	mu       sync.RWMutex
	creds    *engine.Credentials
	summoner *engine.Summoner
	phase    engine.Phase
	toggles  Toggles

	running atomic.Bool
}

func New(toggles Toggles) *State {
	s := &State{
		phase:   engine.PhaseNone,
		toggles: toggles,
	}
	s.running.Store(true)
	return s
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Toggles:   s.toggles,
		Phase:     s.phase,
		Connected: s.creds != nil,
	}
	if s.summoner != nil {
		sum := *s.summoner
		snap.Summoner = &sum
	}
	return snap
}

// Running is the cooperative shutdown flag.
func (s *State) Running() bool { return s.running.Load() }

// Stop asks the loop to exit after its current sleep.
func (s *State) Stop() { s.running.Store(false) }

func (s *State) Credentials() (engine.Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return engine.Credentials{}, false
	}
	return *s.creds, true
}

// Connected is derived from the presence of credentials.
func (s *State) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds != nil
}

func (s *State) SetCredentials(c engine.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = &c
}

// ClearCredentials reports whether credentials were present.
func (s *State) ClearCredentials() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.creds != nil
	s.creds = nil
	return had
}

func (s *State) Summoner() (engine.Summoner, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.summoner == nil {
		return engine.Summoner{}, false
	}
	return *s.summoner, true
}

func (s *State) SetSummoner(sum engine.Summoner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summoner = &sum
}

// ClearSummoner reports whether a summoner was present.
func (s *State) ClearSummoner() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.summoner != nil
	s.summoner = nil
	return had
}

func (s *State) Phase() engine.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// SetPhase stores p and returns the previous phase.
func (s *State) SetPhase(p engine.Phase) engine.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.phase
	s.phase = p
	return old
}

// ResetSession drops credentials, summoner and phase in one step and
// reports whether the session was connected.
func (s *State) ResetSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.creds != nil
	s.creds = nil
	s.summoner = nil
	s.phase = engine.PhaseNone
	return had
}

func (s *State) Toggles() Toggles {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.toggles
}

func (s *State) AutoAccept() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.toggles.AutoAccept
}

func (s *State) AutoHide() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.toggles.AutoHide
}

// SetToggle writes the toggle selected by field.
func (s *State) SetToggle(field func(*Toggles) *bool, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*field(&s.toggles) = v
}

func (s *State) SetWindowVisible(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggles.WindowVisible = v
}

// Flip inverts one toggle in place and returns its new value.
func (s *State) Flip(field func(*Toggles) *bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := field(&s.toggles)
	*p = !*p
	return *p
}

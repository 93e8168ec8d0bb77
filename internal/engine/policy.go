package engine

import "time"

const (
	DefaultBaseInterval       = 3 * time.Second
	DefaultReadyCheckInterval = 500 * time.Millisecond
	DefaultInGameInterval     = 10 * time.Second
	DefaultMaxBackoffSteps    = 5
)

// Policy maps the observed session to a polling interval.
type Policy struct {
	Base       time.Duration
	ReadyCheck time.Duration
	InGame     time.Duration
	// MaxBackoffSteps caps the failure multiplier at 1+MaxBackoffSteps.
	MaxBackoffSteps int
}

func DefaultPolicy() Policy {
	return Policy{
		Base:            DefaultBaseInterval,
		ReadyCheck:      DefaultReadyCheckInterval,
		InGame:          DefaultInGameInterval,
		MaxBackoffSteps: DefaultMaxBackoffSteps,
	}
}

// WithDefaults fills zero fields from DefaultPolicy.
func (p Policy) WithDefaults() Policy {
	d := DefaultPolicy()
	if p.Base <= 0 {
		p.Base = d.Base
	}
	if p.ReadyCheck <= 0 {
		p.ReadyCheck = d.ReadyCheck
	}
	if p.InGame <= 0 {
		p.InGame = d.InGame
	}
	if p.MaxBackoffSteps <= 0 {
		p.MaxBackoffSteps = d.MaxBackoffSteps
	}
	return p
}

// Interval is the sleep before the next cycle. ReadyCheck and in-game
// phases use fixed intervals; everything else, including the disconnected
// path, backs off linearly with consecutive failures.
func (p Policy) Interval(phase Phase, failures int) time.Duration {
	switch {
	case phase.IsReadyCheck():
		return p.ReadyCheck
	case phase.IsInGame():
		return p.InGame
	}
	if failures < 0 {
		failures = 0
	}
	steps := min(failures, p.MaxBackoffSteps)
	return p.Base * time.Duration(1+steps)
}

package reconcile

import (
	"context"

	"github.com/mirakyux/micept/internal/config"
	"github.com/mirakyux/micept/internal/engine"
)

type Discoverer interface {
	Discover(ctx context.Context) (engine.Credentials, error)
}

type SessionClient interface {
	Validate(ctx context.Context, creds engine.Credentials) error
	Summoner(ctx context.Context, creds engine.Credentials) (engine.Summoner, error)
	GameflowPhase(ctx context.Context, creds engine.Credentials) (engine.Phase, error)
	AcceptReadyCheck(ctx context.Context, creds engine.Credentials) (string, error)
}

// Sink receives change notifications. Implementations must not block.
type Sink interface {
	ConnectivityChanged(connected bool)
	SummonerUpdated(s engine.Summoner)
	GameflowChanged(p engine.Phase)
	MatchAccepted(message string)
}

// Window shows and hides the overlay.
type Window interface {
	Show() error
	Hide() error
}

type ConfigWriter interface {
	Update(fn func(*config.Config))
}

// Sinks fans every notification out to each member in order.
type Sinks []Sink

func (s Sinks) ConnectivityChanged(connected bool) {
	for _, sink := range s {
		sink.ConnectivityChanged(connected)
	}
}

func (s Sinks) SummonerUpdated(sum engine.Summoner) {
	for _, sink := range s {
		sink.SummonerUpdated(sum)
	}
}

func (s Sinks) GameflowChanged(p engine.Phase) {
	for _, sink := range s {
		sink.GameflowChanged(p)
	}
}

func (s Sinks) MatchAccepted(message string) {
	for _, sink := range s {
		sink.MatchAccepted(message)
	}
}

type nopWindow struct{}

func (nopWindow) Show() error { return nil }
func (nopWindow) Hide() error { return nil }

type nopConfig struct{}

func (nopConfig) Update(func(*config.Config)) {}

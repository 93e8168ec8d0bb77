package engine

import "strings"

// Phase is the gameflow phase reported verbatim by the client. Values the
// engine does not know about are kept as opaque phases.
type Phase string

const (
	PhaseNone            Phase = "None"
	PhaseLobby           Phase = "Lobby"
	PhaseMatchmaking     Phase = "Matchmaking"
	PhaseReadyCheck      Phase = "ReadyCheck"
	PhaseChampSelect     Phase = "ChampSelect"
	PhaseInProgress      Phase = "InProgress"
	PhaseInGame          Phase = "InGame"
	PhaseReconnect       Phase = "Reconnect"
	PhaseWaitingForStats Phase = "WaitingForStats"
	PhasePreEndOfGame    Phase = "PreEndOfGame"
	PhaseEndOfGame       Phase = "EndOfGame"
)

// ParsePhase normalizes a raw phase string. Blank input means no session.
func ParsePhase(raw string) Phase {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return PhaseNone
	}
	return Phase(raw)
}

func (p Phase) IsReadyCheck() bool { return p == PhaseReadyCheck }

// IsInGame reports whether a match is being played. Older clients said
// "InGame", current ones say "InProgress".
func (p Phase) IsInGame() bool { return p == PhaseInProgress || p == PhaseInGame }

func (p Phase) String() string { return string(p) }

var displayNames = map[Phase]string{
	PhaseNone:            "Not connected",
	PhaseLobby:           "Lobby",
	PhaseMatchmaking:     "Matchmaking",
	PhaseReadyCheck:      "Ready check",
	PhaseChampSelect:     "Champion select",
	PhaseInProgress:      "In game",
	PhaseInGame:          "In game",
	PhaseReconnect:       "Reconnecting",
	PhaseWaitingForStats: "Waiting for stats",
	PhasePreEndOfGame:    "Game ending",
	PhaseEndOfGame:       "Game over",
}

// DisplayName is the human label for a phase; unknown phases show as-is.
func (p Phase) DisplayName() string {
	if name, ok := displayNames[p]; ok {
		return name
	}
	return string(p)
}

// Credentials authenticate against the local client API.
type Credentials struct {
	Port  string
	Token string
}

func (c Credentials) Valid() bool { return c.Port != "" && c.Token != "" }

// MaskedToken returns the first 8 characters of the token, for logs.
func (c Credentials) MaskedToken() string {
	if len(c.Token) <= 8 {
		return c.Token
	}
	return c.Token[:8] + "..."
}

type Summoner struct {
	DisplayName      string `json:"display_name"`
	Level            int    `json:"summoner_level"`
	ProfileIconID    int    `json:"profile_icon_id"`
	XPSinceLastLevel int    `json:"xp_since_last_level"`
	XPUntilNextLevel int    `json:"xp_until_next_level"`
}

// SameIdentity compares the fields worth announcing. Icon and xp changes
// alone are not.
func (s Summoner) SameIdentity(other Summoner) bool {
	return s.DisplayName == other.DisplayName && s.Level == other.Level
}

// XPProgress is the percentage through the current level, 0 when unknown.
func (s Summoner) XPProgress() float64 {
	total := s.XPSinceLastLevel + s.XPUntilNextLevel
	if total <= 0 {
		return 0
	}
	return float64(s.XPSinceLastLevel) / float64(total) * 100
}

type EventType string

const (
	EvtConnectivityChanged EventType = "connectivity-changed"
	EvtSummonerUpdated     EventType = "summoner-info-updated"
	EvtGameflowChanged     EventType = "gameflow-changed"
	EvtMatchAccepted       EventType = "match-accepted"
	EvtAppState            EventType = "app-state"
	EvtWindowVisibility    EventType = "window-visibility"
	EvtSettingsChanged     EventType = "settings-changed"
)

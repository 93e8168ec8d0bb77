package state

import (
	"github.com/mirakyux/micept/internal/engine"
	"github.com/mirakyux/micept/pkg/types"
)

// AppState converts a snapshot to the wire shape handed to the UI.
func (s Snapshot) AppState() types.AppState {
	out := types.AppState{
		MouseThrough:  s.MouseThrough,
		AutoAccept:    s.AutoAccept,
		AutoHide:      s.AutoHide,
		GameflowPhase: s.Phase.String(),
		LCUConnected:  s.Connected,
	}
	if s.Summoner != nil {
		info := FromSummoner(*s.Summoner)
		out.SummonerInfo = &info
	}
	return out
}

func FromSummoner(s engine.Summoner) types.SummonerInfo {
	return types.SummonerInfo{
		DisplayName:      s.DisplayName,
		SummonerLevel:    s.Level,
		ProfileIconID:    s.ProfileIconID,
		XPSinceLastLevel: s.XPSinceLastLevel,
		XPUntilNextLevel: s.XPUntilNextLevel,
	}
}

package types

// SummonerInfo mirrors the current summoner as shown in the overlay.
type SummonerInfo struct {
	DisplayName      string `json:"display_name"`
	SummonerLevel    int    `json:"summoner_level"`
	ProfileIconID    int    `json:"profile_icon_id"`
	XPSinceLastLevel int    `json:"xp_since_last_level"`
	XPUntilNextLevel int    `json:"xp_until_next_level"`
}

// AppState is the reply to get_app_state and the payload of the
// "app-state" and "settings-changed" events.
type AppState struct {
	MouseThrough  bool          `json:"mouse_through"`
	AutoAccept    bool          `json:"auto_accept"`
	AutoHide      bool          `json:"auto_hide"`
	GameflowPhase string        `json:"gameflow_phase"`
	LCUConnected  bool          `json:"lcu_connected"`
	SummonerInfo  *SummonerInfo `json:"summoner_info"`
}

// WindowVisibility is the payload of "window-visibility".
type WindowVisibility struct {
	Visible bool `json:"visible"`
}

// LCUAuth answers the discovery diagnostic. Token is masked.
type LCUAuth struct {
	Port        string `json:"port"`
	Token       string `json:"token"`
	IsConnected bool   `json:"is_connected"`
}

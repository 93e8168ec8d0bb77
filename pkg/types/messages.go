package types

import "encoding/json"

// Server -> Client
//
// Every event is {"type": ..., "payload": ...}:
//   connectivity-changed   bool
//   summoner-info-updated  SummonerInfo
//   gameflow-changed       phase string
//   match-accepted         message string
//   app-state              AppState (sent once on join)
//   settings-changed       AppState
//   window-visibility      WindowVisibility
//   ack                    Ack (reply to the sender only)
//   error                  ErrorResponse (reply to the sender only)
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an Event.
func NewEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: raw}, nil
}

// Client -> Server
//
//   SetAutoAccept / SetMouseThrough / SetAutoHide: enabled
//   SaveWindowPosition: x, y
//   SaveWindowVisible: visible
//   GetAppState: {}
type ClientMessage struct {
	Type    string `json:"type"`
	Enabled *bool  `json:"enabled,omitempty"`
	Visible *bool  `json:"visible,omitempty"`
	X       *int   `json:"x,omitempty"`
	Y       *int   `json:"y,omitempty"`
}

const (
	MsgSetAutoAccept      = "SetAutoAccept"
	MsgSetMouseThrough    = "SetMouseThrough"
	MsgSetAutoHide        = "SetAutoHide"
	MsgSaveWindowPosition = "SaveWindowPosition"
	MsgSaveWindowVisible  = "SaveWindowVisible"
	MsgGetAppState        = "GetAppState"
)

// Replies to a websocket client's own message.
const (
	EvtAck   = "ack"
	EvtError = "error"
)

// Ack answers a command.
type Ack struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

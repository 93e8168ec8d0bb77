package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/mirakyux/micept/internal/commands"
	"github.com/mirakyux/micept/internal/engine"
	"github.com/mirakyux/micept/internal/hub"
	"github.com/mirakyux/micept/pkg/types"
)

const (
	outboxSize   = 16
	writeTimeout = 3 * time.Second
	// Idle clients are kept; the read deadline only bounds a single frame.
	readTimeout = 5 * time.Minute
)

// Options loosen origin checks for local overlay frontends served from
// another port.
type Options struct {
	OriginPatterns []string
	Logger         *zap.Logger
}

func Handler(h *hub.Hub, svc *commands.Service, opts Options) http.HandlerFunc {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			logger.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.Event, outboxSize)
		clientID := randID(6)
		log := logger.With(zap.String("client", clientID))

		if !h.Send(hub.Join{ClientID: clientID, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "shutting down")
			return
		}
		defer h.Send(hub.Leave{ClientID: clientID})
		log.Debug("websocket client connected")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case ev, ok := <-out:
					if !ok {
						// Hub closed our outbox: slow client or shutdown.
						conn.Close(websocket.StatusTryAgainLater, "event stream closed")
						return
					}
					if err := writeJSON(writeCtx, conn, ev); err != nil {
						log.Debug("websocket write failed", zap.Error(err))
						writeCancel()
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(writeCtx, readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("websocket read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = writeJSON(writeCtx, conn, errorEvent("bad json"))
				continue
			}

			reply, err := dispatch(svc, cm)
			if err != nil {
				_ = writeJSON(writeCtx, conn, errorEvent(err.Error()))
				continue
			}
			if reply != nil {
				_ = writeJSON(writeCtx, conn, *reply)
			}
		}
	}
}

// dispatch runs a client message against the command surface and returns
// the direct reply, if any. Setting changes also reach every client as a
// settings-changed event through the hub.
func dispatch(svc *commands.Service, m types.ClientMessage) (*types.Event, error) {
	var payload any
	switch m.Type {
	case types.MsgSetAutoAccept, types.MsgSetMouseThrough, types.MsgSetAutoHide:
		if m.Enabled == nil {
			return nil, fmt.Errorf("%s: missing enabled", m.Type)
		}
		switch m.Type {
		case types.MsgSetAutoAccept:
			payload = svc.SetAutoAccept(*m.Enabled)
		case types.MsgSetMouseThrough:
			payload = svc.SetMouseThrough(*m.Enabled)
		default:
			payload = svc.SetAutoHide(*m.Enabled)
		}
	case types.MsgSaveWindowPosition:
		if m.X == nil || m.Y == nil {
			return nil, fmt.Errorf("%s: missing x or y", m.Type)
		}
		payload = svc.SaveWindowPosition(*m.X, *m.Y)
	case types.MsgSaveWindowVisible:
		if m.Visible == nil {
			return nil, fmt.Errorf("%s: missing visible", m.Type)
		}
		payload = svc.SaveWindowVisible(*m.Visible)
	case types.MsgGetAppState:
		ev, err := types.NewEvent(string(engine.EvtAppState), svc.AppState())
		if err != nil {
			return nil, err
		}
		return &ev, nil
	default:
		return nil, fmt.Errorf("unknown type %q", m.Type)
	}

	ev, err := types.NewEvent(types.EvtAck, payload)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func errorEvent(msg string) types.Event {
	ev, _ := types.NewEvent(types.EvtError, types.ErrorResponse{Error: msg})
	return ev
}

func writeJSON(ctx context.Context, conn *websocket.Conn, ev types.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}

// Package hub fans session events out to connected UI clients. The hub is
// a single goroutine that owns the client set; everything else talks to it
// through its inbox.
package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/mirakyux/micept/internal/engine"
	"github.com/mirakyux/micept/internal/state"
	"github.com/mirakyux/micept/pkg/types"
)

const inboxSize = 64

type Msg interface{ isHubMsg() }

type Join struct {
	ClientID string
	Outbox   chan types.Event // where this client wants to receive events
}

func (Join) isHubMsg() {}

type Leave struct{ ClientID string }

func (Leave) isHubMsg() {}

type Publish struct{ Event types.Event }

func (Publish) isHubMsg() {}

type GetView struct {
	Reply chan View
}

func (GetView) isHubMsg() {}

type Shutdown struct{}

func (Shutdown) isHubMsg() {}

type View struct {
	NumClients int
	Published  int
	Dropped    int
}

type Hub struct {
	inbox    chan Msg
	clients  map[string]chan types.Event
	snapshot func() types.AppState
	logger   *zap.Logger

	published int
	dropped   int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New starts the hub. snapshot supplies the app-state event every client
// receives on join.
func New(parent context.Context, snapshot func() types.AppState, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan Msg, inboxSize),
		clients:  make(map[string]chan types.Event),
		snapshot: snapshot,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- Msg { return h.inbox }

// Done is closed once the hub has stopped and closed every outbox.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Send delivers m unless the hub has stopped.
func (h *Hub) Send(m Msg) bool {
	if h.ctx.Err() != nil {
		return false
	}
	select {
	case h.inbox <- m:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Publish queues ev without blocking. When the inbox is full the event is
// dropped; the caller is the reconciliation loop and must not stall.
func (h *Hub) Publish(ev types.Event) {
	select {
	case h.inbox <- Publish{Event: ev}:
	default:
		h.logger.Warn("hub inbox full, event dropped", zap.String("type", ev.Type))
	}
}

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.clients[msg.ClientID] = msg.Outbox
				if ev, err := types.NewEvent(string(engine.EvtAppState), h.snapshot()); err == nil {
					h.deliver(msg.ClientID, msg.Outbox, ev)
				}
				h.logger.Debug("client joined", zap.String("client", msg.ClientID), zap.Int("clients", len(h.clients)))

			case Leave:
				delete(h.clients, msg.ClientID)
				h.logger.Debug("client left", zap.String("client", msg.ClientID))

			case Publish:
				h.published++
				for id, ch := range h.clients {
					h.deliver(id, ch, msg.Event)
				}

			case GetView:
				msg.Reply <- View{NumClients: len(h.clients), Published: h.published, Dropped: h.dropped}

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

// deliver drops a client whose outbox is full.
func (h *Hub) deliver(id string, ch chan types.Event, ev types.Event) {
	select {
	case ch <- ev:
	default:
		close(ch)
		delete(h.clients, id)
		h.dropped++
		h.logger.Info("slow client dropped", zap.String("client", id))
	}
}

func (h *Hub) shutdown() {
	for id, ch := range h.clients {
		close(ch) // no more events
		delete(h.clients, id)
	}
	h.cancel()
}

func (h *Hub) publish(eventType engine.EventType, payload any) {
	ev, err := types.NewEvent(string(eventType), payload)
	if err != nil {
		h.logger.Error("encoding event", zap.String("type", string(eventType)), zap.Error(err))
		return
	}
	h.Publish(ev)
}

func (h *Hub) ConnectivityChanged(connected bool) {
	h.publish(engine.EvtConnectivityChanged, connected)
}

func (h *Hub) SummonerUpdated(s engine.Summoner) {
	h.publish(engine.EvtSummonerUpdated, state.FromSummoner(s))
}

func (h *Hub) GameflowChanged(p engine.Phase) {
	h.publish(engine.EvtGameflowChanged, p.String())
}

func (h *Hub) MatchAccepted(message string) {
	h.publish(engine.EvtMatchAccepted, message)
}

func (h *Hub) SettingsChanged(s types.AppState) {
	h.publish(engine.EvtSettingsChanged, s)
}

func (h *Hub) WindowVisibilityChanged(visible bool) {
	h.publish(engine.EvtWindowVisibility, types.WindowVisibility{Visible: visible})
}

// Show and Hide tell the overlay to change visibility.
func (h *Hub) Show() error {
	h.WindowVisibilityChanged(true)
	return nil
}

func (h *Hub) Hide() error {
	h.WindowVisibilityChanged(false)
	return nil
}

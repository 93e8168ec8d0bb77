package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/websocket"

	"github.com/mirakyux/micept/internal/engine"
	"github.com/mirakyux/micept/pkg/types"
)

const (
	minRedial    = time.Second
	maxRedial    = 10 * time.Second
	writeTimeout = 3 * time.Second
)

var errNotConnected = errors.New("not connected to micept")

type eventMsg struct{ event types.Event }

type linkMsg struct {
	up  bool
	err error
}

type sentMsg struct{ err error }

// stream keeps one websocket to the daemon open, redialing with backoff,
// and forwards every event to out.
type stream struct {
	url string
	out chan tea.Msg

	mu   sync.Mutex
	conn *websocket.Conn
}

func newStream(url string) *stream {
	return &stream{url: url, out: make(chan tea.Msg, 64)}
}

func (s *stream) run(ctx context.Context) {
	defer close(s.out)
	var backoff time.Duration
	for {
		linked, err := s.session(ctx)
		if ctx.Err() != nil {
			return
		}
		s.emit(linkMsg{up: false, err: err})
		backoff = nextRedial(backoff, linked)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

// nextRedial doubles the wait up to maxRedial. A session that got as far as
// linking starts over from minRedial.
func nextRedial(prev time.Duration, linked bool) time.Duration {
	if linked || prev == 0 {
		return minRedial
	}
	return min(prev*2, maxRedial)
}

// session reports whether the dial succeeded along with the error that
// ended it.
func (s *stream) session(ctx context.Context) (bool, error) {
	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return false, err
	}
	s.setConn(conn)
	defer func() {
		s.setConn(nil)
		conn.Close(websocket.StatusNormalClosure, "bye")
	}()
	s.emit(linkMsg{up: true})

	resyncing := false
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return true, err
		}
		var ev types.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		delivered := s.emit(eventMsg{event: ev})
		if ev.Type == string(engine.EvtAppState) {
			resyncing = false
		}
		if !delivered && !resyncing {
			resyncing = true
			s.resync(ctx, conn)
		}
	}
}

// resync asks for a fresh app-state after an event was dropped. One request
// is outstanding at a time; a dropped reply asks again.
func (s *stream) resync(ctx context.Context, conn *websocket.Conn) {
	data, err := json.Marshal(types.ClientMessage{Type: types.MsgGetAppState})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, data)
}

func (s *stream) setConn(c *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = c
}

// emit never blocks the reader. It reports false when msg was dropped.
func (s *stream) emit(msg tea.Msg) bool {
	select {
	case s.out <- msg:
		return true
	default:
		return false
	}
}

func (s *stream) send(m types.ClientMessage) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errNotConnected
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// waitStream turns the next stream message into a tea.Msg.
func waitStream(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mirakyux/micept/internal/engine"
	"github.com/mirakyux/micept/pkg/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89B3C"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	onStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	offStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	noteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#785A28")).Padding(0, 1)
)

type model struct {
	keys     keyMap
	help     help.Model
	progress progress.Model
	spinner  spinner.Model

	inbound <-chan tea.Msg
	send    func(types.ClientMessage) error

	linked  bool
	app     types.AppState
	// visible is nil until the daemon reports the overlay's visibility.
	visible *bool
	status  string
}

func newModel(inbound <-chan tea.Msg, send func(types.ClientMessage) error) model {
	return model{
		keys:     defaultKeys,
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(28)),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		inbound:  inbound,
		send:     send,
		app:      types.AppState{GameflowPhase: engine.PhaseNone.String()},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitStream(m.inbound))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.AutoAccept):
			return m, m.sendCmd(setting(types.MsgSetAutoAccept, !m.app.AutoAccept))
		case key.Matches(msg, m.keys.AutoHide):
			return m, m.sendCmd(setting(types.MsgSetAutoHide, !m.app.AutoHide))
		case key.Matches(msg, m.keys.MouseThrough):
			return m, m.sendCmd(setting(types.MsgSetMouseThrough, !m.app.MouseThrough))
		case key.Matches(msg, m.keys.Refresh):
			return m, m.sendCmd(types.ClientMessage{Type: types.MsgGetAppState})
		}
		return m, nil

	case eventMsg:
		m.apply(msg.event)
		return m, waitStream(m.inbound)

	case linkMsg:
		m.linked = msg.up
		if msg.err != nil {
			m.status = "daemon unreachable: " + msg.err.Error()
		} else if msg.up {
			m.status = ""
		}
		return m, waitStream(m.inbound)

	case sentMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func setting(msgType string, enabled bool) types.ClientMessage {
	return types.ClientMessage{Type: msgType, Enabled: &enabled}
}

func (m model) sendCmd(cm types.ClientMessage) tea.Cmd {
	send := m.send
	return func() tea.Msg {
		return sentMsg{err: send(cm)}
	}
}

// apply folds one daemon event into the model. Unknown events are ignored.
func (m *model) apply(ev types.Event) {
	switch engine.EventType(ev.Type) {
	case engine.EvtAppState, engine.EvtSettingsChanged:
		var app types.AppState
		if json.Unmarshal(ev.Payload, &app) == nil {
			m.app = app
		}
	case engine.EvtConnectivityChanged:
		var connected bool
		if json.Unmarshal(ev.Payload, &connected) == nil {
			m.app.LCUConnected = connected
			if !connected {
				m.app.SummonerInfo = nil
				m.app.GameflowPhase = engine.PhaseNone.String()
			}
		}
	case engine.EvtSummonerUpdated:
		var info types.SummonerInfo
		if json.Unmarshal(ev.Payload, &info) == nil {
			m.app.SummonerInfo = &info
		}
	case engine.EvtGameflowChanged:
		var phase string
		if json.Unmarshal(ev.Payload, &phase) == nil {
			m.app.GameflowPhase = phase
		}
	case engine.EvtMatchAccepted:
		var message string
		if json.Unmarshal(ev.Payload, &message) == nil {
			m.status = message
		}
	case engine.EvtWindowVisibility:
		var v types.WindowVisibility
		if json.Unmarshal(ev.Payload, &v) == nil {
			visible := v.Visible
			m.visible = &visible
		}
	default:
		switch ev.Type {
		case types.EvtError:
			var e types.ErrorResponse
			if json.Unmarshal(ev.Payload, &e) == nil {
				m.status = e.Error
			}
		case types.EvtAck:
			var a types.Ack
			if json.Unmarshal(ev.Payload, &a) == nil {
				m.status = a.Message
			}
		}
	}
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("micept"))
	b.WriteString("\n\n")

	if !m.linked {
		b.WriteString(m.spinner.View() + " waiting for the micept daemon\n")
	} else {
		phase := engine.ParsePhase(m.app.GameflowPhase)
		b.WriteString(row("client", onOff(m.app.LCUConnected, "connected", "not running")))
		b.WriteString(row("phase", phase.DisplayName()))
		if s := m.app.SummonerInfo; s != nil {
			b.WriteString(row("summoner", fmt.Sprintf("%s  lv.%d", s.DisplayName, s.SummonerLevel)))
			sum := engine.Summoner{XPSinceLastLevel: s.XPSinceLastLevel, XPUntilNextLevel: s.XPUntilNextLevel}
			b.WriteString(row("xp", m.progress.ViewAs(sum.XPProgress()/100)))
		}
		b.WriteString("\n")
		b.WriteString(row("auto-accept", onOff(m.app.AutoAccept, "on", "off")))
		b.WriteString(row("auto-hide", onOff(m.app.AutoHide, "on", "off")))
		b.WriteString(row("mouse-through", onOff(m.app.MouseThrough, "on", "off")))
		if m.visible == nil {
			b.WriteString(row("overlay", noteStyle.Render("unknown")))
		} else {
			b.WriteString(row("overlay", onOff(*m.visible, "shown", "hidden")))
		}
	}

	if m.status != "" {
		b.WriteString("\n" + noteStyle.Render(m.status) + "\n")
	}
	return boxStyle.Render(b.String()) + "\n" + m.help.View(m.keys) + "\n"
}

func row(label, value string) string {
	return labelStyle.Render(label) + value + "\n"
}

func onOff(v bool, on, off string) string {
	if v {
		return onStyle.Render(on)
	}
	return offStyle.Render(off)
}

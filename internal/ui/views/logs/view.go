package logs

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"engagectl/internal/platform/logsink"
	"engagectl/internal/ui/theme"
)

const maxLines = 1000

// Source is the consumer side of the log sink.
type Source interface {
	Next(ctx context.Context) (logsink.Event, error)
	Drain() []logsink.Event
}

// EventsMsg carries events read from the sink. Closed is set once the sink is
// closed and no more events will arrive.
type EventsMsg struct {
	Events []logsink.Event
	Closed bool
}

// Model is the Logs tab: a capped, scrollable view of every drained event.
type Model struct {
	source Source
	ctx    context.Context
	events []logsink.Event
	view   viewport.Model
	follow bool
	width  int
	height int
}

// New builds the view. ctx bounds the blocking read on the sink.
func New(ctx context.Context, source Source) Model {
	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().Background(theme.Mantle).Foreground(theme.Text).Padding(0, 1)
	return Model{source: source, ctx: ctx, view: vp, follow: true}
}

func (m Model) Init() tea.Cmd {
	return m.waitCmd()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.view.Width = msg.Width
		m.view.Height = msg.Height - 2
		m.refresh()
		return m, nil

	case EventsMsg:
		m.Append(msg.Events)
		if msg.Closed {
			return m, nil
		}
		return m, m.waitCmd()

	case tea.KeyMsg:
		switch msg.String() {
		case "end", "G":
			m.follow = true
			m.view.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	m.follow = m.view.AtBottom()
	return m, cmd
}

func (m Model) View() string {
	header := theme.Title.Render("Logs") + "  " + theme.Muted.Render("↑/↓: scroll  G: follow")
	return lipgloss.JoinVertical(lipgloss.Left, header, m.view.View())
}

// Append adds events and keeps the newest maxLines.
func (m *Model) Append(events []logsink.Event) {
	if len(events) == 0 {
		return
	}
	m.events = append(m.events, events...)
	if len(m.events) > maxLines {
		m.events = m.events[len(m.events)-maxLines:]
	}
	m.refresh()
}

func (m *Model) Clear() {
	m.events = nil
	m.refresh()
}

func (m Model) Len() int { return len(m.events) }

func (m *Model) refresh() {
	lines := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		lines = append(lines, theme.Severity(ev.Severity).Render(ev.String()))
	}
	m.view.SetContent(strings.Join(lines, "\n"))
	if m.follow {
		m.view.GotoBottom()
	}
}

// waitCmd blocks for the next event, then takes whatever else is pending so a
// burst renders in one update.
func (m Model) waitCmd() tea.Cmd {
	if m.source == nil {
		return nil
	}
	return func() tea.Msg {
		ev, err := m.source.Next(m.ctx)
		if err != nil {
			return EventsMsg{Closed: true}
		}
		return EventsMsg{Events: append([]logsink.Event{ev}, m.source.Drain()...)}
	}
}

package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	engagementdto "engagectl/internal/modules/engagement/dto"
	historydto "engagectl/internal/modules/history/dto"
	plugindto "engagectl/internal/modules/plugin/dto"
	"engagectl/internal/ui/components"
	"engagectl/internal/ui/theme"
	historyview "engagectl/internal/ui/views/history"
	logsview "engagectl/internal/ui/views/logs"
	pluginsview "engagectl/internal/ui/views/plugins"
	sessionsview "engagectl/internal/ui/views/sessions"
)

// ─── ports ───────────────────────────────────────────────────────────────────
// Each port is the minimal interface that this orchestration layer requires.
// Sub-view ports are defined in their own packages and narrowed further.

type EngagementPort interface {
	StartPresets(ctx context.Context, presets []string) ([]engagementdto.StartOutput, error)
	StartAs(ctx context.Context, preset, name string) (engagementdto.StartOutput, error)
	Stop(ctx context.Context, name string) error
	StopAll(ctx context.Context)
}

type HistoryPort interface {
	Runs(ctx context.Context, page int) (historydto.RunPage, error)
	Outcomes(ctx context.Context, runID string) ([]historydto.OutcomeOutput, error)
}

type PluginPort interface {
	ListActions(ctx context.Context, pluginName string) ([]plugindto.ActionInfo, error)
	Try(ctx context.Context, pluginName, kind, target string, dryRun bool) (plugindto.ExecuteOutput, error)
}

// ─── tab index ───────────────────────────────────────────────────────────────

type tabID int

const (
	tabSessions tabID = iota
	tabLogs
	tabHistory
	tabPlugins
	tabCount
)

var tabLabels = [tabCount]string{
	"Sessions", "Logs", "History", "Plugins",
}

// ─── async messages ───────────────────────────────────────────────────────────

type startedMsg struct {
	out []engagementdto.StartOutput
	err error
}

type stoppedMsg struct {
	name string
	all  bool
	err  error
}

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Tab      key.Binding
	Help     key.Binding
	Palette  key.Binding
	Quit     key.Binding
	Start    key.Binding
	Stop     key.Binding
	StartAll key.Binding
	StopAll  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Palette:  key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "palette")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "stop all and quit")),
		Start:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start preset")),
		Stop:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop session")),
		StartAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "start all")),
		StopAll:  key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "stop all")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Help, k.Palette, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Start, k.Stop},
		{k.StartAll, k.StopAll},
		{k.Help, k.Palette, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. It owns tab routing, the help overlay
// and the command palette. Session control goes through EngagementPort; the
// Logs tab is the single consumer of the event sink.
type Model struct {
	engagement EngagementPort

	sessionsView sessionsview.Model
	logsView     logsview.Model
	historyView  historyview.Model
	pluginView   pluginsview.Model

	activeTab tabID
	keys      keyMap
	help      help.Model
	showHelp  bool
	palette   components.Palette
	status    string
	width     int
	height    int
}

// ─── constructor ─────────────────────────────────────────────────────────────

func NewModel(
	ctx context.Context,
	engagement EngagementPort,
	sessions sessionsview.Port,
	events logsview.Source,
	history HistoryPort,
	plugin PluginPort,
	defaultTarget string,
) Model {
	return Model{
		engagement:   engagement,
		sessionsView: sessionsview.New(sessions),
		logsView:     logsview.New(ctx, events),
		historyView:  historyview.New(history),
		pluginView:   pluginsview.New(plugin, defaultTarget),
		activeTab:    tabSessions,
		keys:         defaultKeys(),
		help:         help.New(),
		palette:      components.NewPalette(),
		status:       "ready",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.sessionsView.Init(),
		m.logsView.Init(),
		m.historyView.Init(),
		m.pluginView.Init(),
	)
}

// ─── update ───────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Background feeds reach their view regardless of the active tab or palette.
	switch msg := msg.(type) {
	case logsview.EventsMsg:
		var cmd tea.Cmd
		m.logsView, cmd = m.logsView.Update(msg)
		return m, cmd
	case sessionsview.LoadedMsg:
		if msg.Err == nil {
			m.palette.SetCompletions(paletteCompletions(msg.Presets, msg.Sessions))
		}
		var cmd tea.Cmd
		m.sessionsView, cmd = m.sessionsView.Update(msg)
		return m, cmd
	case sessionsview.TickMsg:
		var cmd tea.Cmd
		m.sessionsView, cmd = m.sessionsView.Update(msg)
		return m, cmd
	case historyview.PageLoadedMsg, historyview.OutcomesLoadedMsg:
		var cmd tea.Cmd
		m.historyView, cmd = m.historyView.Update(msg)
		return m, cmd
	case pluginsview.ActionsLoadedMsg, pluginsview.TrialDoneMsg:
		var cmd tea.Cmd
		m.pluginView, cmd = m.pluginView.Update(msg)
		return m, cmd
	}

	// The palette intercepts all input while open.
	if m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 80))
		m.help.Width = m.width
		m.propagateSize()
		return m, nil

	case startedMsg:
		if msg.err != nil {
			m.status = "start failed: " + msg.err.Error()
		} else {
			names := make([]string, 0, len(msg.out))
			for _, out := range msg.out {
				names = append(names, out.Name)
			}
			m.status = "started: " + strings.Join(names, ", ")
		}
		return m, nil

	case stoppedMsg:
		switch {
		case msg.err != nil:
			m.status = "stop failed: " + msg.err.Error()
		case msg.all:
			m.status = "stop requested for all sessions"
		default:
			m.status = "stop requested: " + msg.name
		}
		// Sessions that already ended have been persisted; show them.
		return m, m.historyView.Refresh()

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}

		// Yield to sub-view when its search filter is active.
		if m.subViewFiltering() {
			break
		}
		if m.pluginInputFocused() && !isNavigationKey(msg.String()) {
			break
		}

		switch msg.String() {
		case "ctrl+c", "q":
			// Stop requests go out before the program exits; the caller waits
			// for the sessions to settle.
			if m.engagement != nil {
				m.engagement.StopAll(context.Background())
			}
			return m, tea.Quit
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case "shift+tab":
			m.activeTab = (m.activeTab + tabCount - 1) % tabCount
			return m, nil
		case "?":
			m.showHelp = !m.showHelp
			return m, nil
		case ":":
			cmds = append(cmds, m.palette.Open())
			return m, tea.Batch(cmds...)
		}

		if m.activeTab == tabSessions {
			switch msg.String() {
			case "enter":
				if name, preset, running := m.sessionsView.Selected(); preset && !running {
					return m, m.startCmd([]string{name})
				}
				m.status = "select an idle preset to start"
				return m, nil
			case "x":
				if name, _, running := m.sessionsView.Selected(); running {
					return m, m.stopCmd(name)
				}
				m.status = "selected session is not running"
				return m, nil
			case "a":
				return m, m.startCmd(nil)
			case "X":
				return m, m.stopAllCmd()
			}
		}
	}

	// Propagate the message to the active tab's sub-view.
	var tabCmd tea.Cmd
	switch m.activeTab {
	case tabSessions:
		m.sessionsView, tabCmd = m.sessionsView.Update(msg)
	case tabLogs:
		m.logsView, tabCmd = m.logsView.Update(msg)
	case tabHistory:
		m.historyView, tabCmd = m.historyView.Update(msg)
	case tabPlugins:
		m.pluginView, tabCmd = m.pluginView.Update(msg)
	}
	cmds = append(cmds, tabCmd)

	return m, tea.Batch(cmds...)
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	tabBarH := lipgloss.Height(tabBar)
	statusBarH := lipgloss.Height(statusBar)

	contentH := m.height - tabBarH - statusBarH
	if contentH < 1 {
		contentH = 1
	}

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).
			Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH,
			lipgloss.Center, lipgloss.Center, m.palette.View())
	default:
		content = m.activeView()
	}

	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) activeView() string {
	switch m.activeTab {
	case tabSessions:
		return m.sessionsView.View()
	case tabLogs:
		return m.logsView.View()
	case tabHistory:
		return m.historyView.View()
	case tabPlugins:
		return m.pluginView.View()
	}
	return ""
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		label := tabLabels[i]
		if i == m.activeTab {
			parts[i] = theme.Hot.Render(" " + label + " ")
		} else {
			parts[i] = theme.Muted.Render(" " + label + " ")
		}
	}
	sep := theme.Muted.Render(" │ ")
	bar := "engagectl  " + strings.Join(parts, sep)
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	if running := m.sessionsView.Running(); running > 0 {
		left = theme.Hot.Render(fmt.Sprintf("● %d running", running)) + "  " + left
	}
	right := theme.Muted.Render("?:help  tab:switch  :::palette  q:quit")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

// ─── palette execution ────────────────────────────────────────────────────────

// paletteCompletions offers every preset to start and every live session to stop.
func paletteCompletions(presets []engagementdto.PresetOutput, sessions []engagementdto.SessionOutput) []string {
	out := make([]string, 0, len(presets)+len(sessions))
	for _, p := range presets {
		out = append(out, "session:start "+p.Name)
	}
	for _, s := range sessions {
		if !s.Terminal {
			out = append(out, "session:stop "+s.Name)
		}
	}
	return out
}

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(input) == "" {
		return m, nil
	}
	parts := strings.Fields(input)

	switch parts[0] {
	case "session:start":
		if len(parts) < 2 {
			m.status = "usage: session:start <preset> [name]"
			return m, nil
		}
		if len(parts) >= 3 {
			return m, m.startNamedCmd(parts[1], parts[2])
		}
		return m, m.startCmd([]string{parts[1]})

	case "session:start-all":
		return m, m.startCmd(nil)

	case "session:stop":
		name := ""
		if len(parts) >= 2 {
			name = parts[1]
		} else {
			name, _, _ = m.sessionsView.Selected()
		}
		if name == "" {
			m.status = "usage: session:stop <name>"
			return m, nil
		}
		return m, m.stopCmd(name)

	case "session:stop-all":
		return m, m.stopAllCmd()

	case "logs:clear":
		m.logsView.Clear()
		m.status = "log view cleared"
		return m, nil

	case "history:page":
		if len(parts) < 2 {
			m.status = "usage: history:page <n>"
			return m, nil
		}
		page, err := strconv.Atoi(parts[1])
		if err != nil || page < 1 {
			m.status = "invalid page"
			return m, nil
		}
		m.activeTab = tabHistory
		return m, m.historyView.LoadPage(page)

	case "history:refresh":
		m.activeTab = tabHistory
		return m, m.historyView.Refresh()

	case "plugin:actions":
		if len(parts) < 2 {
			m.status = "usage: plugin:actions <plugin>"
			return m, nil
		}
		m.activeTab = tabPlugins
		return m, m.pluginView.LoadActions(parts[1])

	case "plugin:try":
		if len(parts) < 4 {
			m.status = "usage: plugin:try <plugin> <kind> <target>"
			return m, nil
		}
		m.activeTab = tabPlugins
		return m, m.pluginView.TryAction(parts[1], parts[2], parts[3])

	default:
		m.status = "unknown command: " + parts[0]
	}
	return m, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// subViewFiltering reports whether the active tab's list filter is open,
// in which case global key bindings must yield to allow free typing.
func (m Model) subViewFiltering() bool {
	switch m.activeTab {
	case tabSessions:
		return m.sessionsView.Filtering()
	case tabHistory:
		return m.historyView.Filtering()
	case tabPlugins:
		return m.pluginView.Filtering()
	}
	return false
}

func (m Model) pluginInputFocused() bool {
	return m.activeTab == tabPlugins && m.pluginView.Typing()
}

func isNavigationKey(k string) bool {
	return k == "tab" || k == "shift+tab" || k == "ctrl+c"
}

func (m *Model) propagateSize() {
	sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 3}
	m.sessionsView, _ = m.sessionsView.Update(sz)
	m.logsView, _ = m.logsView.Update(sz)
	m.historyView, _ = m.historyView.Update(sz)
	m.pluginView, _ = m.pluginView.Update(sz)
}

// ─── async commands ───────────────────────────────────────────────────────────

func (m Model) startCmd(presets []string) tea.Cmd {
	return func() tea.Msg {
		if m.engagement == nil {
			return startedMsg{err: fmt.Errorf("engagement adapter not configured")}
		}
		out, err := m.engagement.StartPresets(context.Background(), presets)
		return startedMsg{out: out, err: err}
	}
}

func (m Model) startNamedCmd(preset, name string) tea.Cmd {
	return func() tea.Msg {
		if m.engagement == nil {
			return startedMsg{err: fmt.Errorf("engagement adapter not configured")}
		}
		out, err := m.engagement.StartAs(context.Background(), preset, name)
		if err != nil {
			return startedMsg{err: err}
		}
		return startedMsg{out: []engagementdto.StartOutput{out}}
	}
}

func (m Model) stopCmd(name string) tea.Cmd {
	return func() tea.Msg {
		if m.engagement == nil {
			return stoppedMsg{name: name, err: fmt.Errorf("engagement adapter not configured")}
		}
		return stoppedMsg{name: name, err: m.engagement.Stop(context.Background(), name)}
	}
}

func (m Model) stopAllCmd() tea.Cmd {
	return func() tea.Msg {
		if m.engagement != nil {
			m.engagement.StopAll(context.Background())
		}
		return stoppedMsg{all: true}
	}
}

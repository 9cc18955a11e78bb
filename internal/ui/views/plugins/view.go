package plugins

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	plugindto "engagectl/internal/modules/plugin/dto"
	"engagectl/internal/ui/theme"
)

// maxTrials bounds the dry-run log kept in the output pane.
const maxTrials = 20

// Port is the minimal interface this view needs from the plugin use-case.
type Port interface {
	ListActions(ctx context.Context, pluginName string) ([]plugindto.ActionInfo, error)
	Try(ctx context.Context, pluginName, kind, target string, dryRun bool) (plugindto.ExecuteOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type ActionsLoadedMsg struct {
	PluginName string
	Actions    []plugindto.ActionInfo
	Err        error
}

// TrialDoneMsg is sent when a dry run finishes.
type TrialDoneMsg struct {
	PluginName string
	Kind       string
	Target     string
	Out        plugindto.ExecuteOutput
	Err        error
}

// ─── list item ───────────────────────────────────────────────────────────────

type actionItem struct{ action plugindto.ActionInfo }

func (i actionItem) Title() string       { return i.action.Kind }
func (i actionItem) Description() string { return i.action.Description }
func (i actionItem) FilterValue() string { return i.action.Kind }

type pane int

const (
	paneInput pane = iota
	paneActions
	paneTrials
)

// Model is the Plugins tab: pick a plugin, browse its actions and dry-run them
// against a target. Dry runs never reach the target.
type Model struct {
	port        Port
	pane        pane
	nameInput   textinput.Model
	targetInput textinput.Model
	editing     bool
	actionList  list.Model
	trialsView  viewport.Model
	spinner     spinner.Model
	plugin      string
	target      string
	trials      []TrialDoneMsg
	loadErr     error
	loading     bool
	width       int
	height      int
}

func New(port Port, target string) Model {
	name := textinput.New()
	name.Placeholder = "plugin name (e.g. simulated)"
	name.Focus()
	name.CharLimit = 80

	tgt := textinput.New()
	tgt.Placeholder = "target"
	tgt.CharLimit = 256

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Actions"
	l.Styles.Title = theme.Title
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().Background(theme.Mantle).Foreground(theme.Text).Padding(1)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{
		port:        port,
		pane:        paneInput,
		nameInput:   name,
		targetInput: tgt,
		actionList:  l,
		trialsView:  vp,
		spinner:     sp,
		target:      target,
	}
}

// Typing reports whether a text input has focus, so the parent keeps its
// single-key shortcuts away from it.
func (m Model) Typing() bool {
	return !m.loading && (m.pane == paneInput || m.editing)
}

func (m Model) Filtering() bool {
	return m.actionList.FilterState() == list.Filtering
}

func (m Model) Target() string { return m.target }

// TryAction dry-runs one action directly. Used by the command palette.
func (m *Model) TryAction(pluginName, kind, target string) tea.Cmd {
	m.loading = true
	m.plugin = pluginName
	m.nameInput.SetValue(pluginName)
	if target != "" {
		m.target = target
	}
	return tea.Batch(m.tryCmd(pluginName, kind, m.target), m.spinner.Tick)
}

// LoadActions lists a plugin's actions without typing its name. Used by the
// command palette.
func (m *Model) LoadActions(pluginName string) tea.Cmd {
	m.loading = true
	m.nameInput.SetValue(pluginName)
	return tea.Batch(m.loadActionsCmd(pluginName), m.spinner.Tick)
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case ActionsLoadedMsg:
		m.loading = false
		m.loadErr = msg.Err
		if msg.Err != nil {
			m.pane = paneInput
			m.nameInput.Focus()
			return m, nil
		}
		m.plugin = msg.PluginName
		items := make([]list.Item, len(msg.Actions))
		for i, a := range msg.Actions {
			items[i] = actionItem{action: a}
		}
		m.pane = paneActions
		m.nameInput.Blur()
		return m, m.actionList.SetItems(items)

	case TrialDoneMsg:
		m.loading = false
		m.trials = append([]TrialDoneMsg{msg}, m.trials...)
		if len(m.trials) > maxTrials {
			m.trials = m.trials[:maxTrials]
		}
		m.trialsView.SetContent(m.renderTrials())
		m.trialsView.GotoTop()
		m.pane = paneTrials
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	switch m.pane {
	case paneInput:
		var cmd tea.Cmd
		m.nameInput, cmd = m.nameInput.Update(msg)
		cmds = append(cmds, cmd)
	case paneActions:
		var cmd tea.Cmd
		m.actionList, cmd = m.actionList.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	var cmd tea.Cmd
	switch m.pane {
	case paneInput:
		if msg.String() == "enter" {
			name := strings.TrimSpace(m.nameInput.Value())
			if name == "" || m.port == nil {
				return m, nil
			}
			m.loading = true
			return m, tea.Batch(m.loadActionsCmd(name), m.spinner.Tick)
		}
		m.nameInput, cmd = m.nameInput.Update(msg)
		return m, cmd

	case paneActions:
		if m.editing {
			switch msg.String() {
			case "enter":
				if target := strings.TrimSpace(m.targetInput.Value()); target != "" {
					m.target = target
				}
				m.editing = false
				m.targetInput.Blur()
			case "esc":
				m.editing = false
				m.targetInput.Blur()
			default:
				m.targetInput, cmd = m.targetInput.Update(msg)
			}
			return m, cmd
		}
		if m.Filtering() {
			m.actionList, cmd = m.actionList.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "enter":
			item, ok := m.actionList.SelectedItem().(actionItem)
			if !ok || m.port == nil {
				return m, nil
			}
			m.loading = true
			return m, tea.Batch(m.tryCmd(m.plugin, item.action.Kind, m.target), m.spinner.Tick)
		case "t":
			m.editing = true
			m.targetInput.SetValue(m.target)
			m.targetInput.CursorEnd()
			return m, m.targetInput.Focus()
		case "l":
			if len(m.trials) > 0 {
				m.pane = paneTrials
			}
			return m, nil
		case "esc":
			m.pane = paneInput
			return m, m.nameInput.Focus()
		}
		m.actionList, cmd = m.actionList.Update(msg)
		return m, cmd

	case paneTrials:
		if msg.String() == "esc" {
			if m.plugin != "" {
				m.pane = paneActions
			} else {
				m.pane = paneInput
				return m, m.nameInput.Focus()
			}
			return m, nil
		}
		m.trialsView, cmd = m.trialsView.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.spinner.View()+" Working…")
	}

	header := m.renderHeader()
	bodyH := max(m.height-lipgloss.Height(header), 1)

	var body string
	switch m.pane {
	case paneInput:
		text := theme.Muted.Render("Enter a plugin name and press enter to list its actions.") + "\n\n" +
			lipgloss.NewStyle().Width(m.width-4).Render(m.nameInput.View())
		if m.loadErr != nil {
			text += "\n\n" + theme.Bad.Render(m.loadErr.Error())
		}
		body = lipgloss.Place(m.width, bodyH, lipgloss.Left, lipgloss.Center, text)

	case paneActions:
		listW := m.width * 4 / 10
		listPane := lipgloss.NewStyle().Width(listW).Height(bodyH).Render(m.actionList.View())
		detailPane := lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).BorderForeground(theme.Surface1).
			Background(theme.Mantle).Width(max(m.width-listW-2, 10)).Height(max(bodyH-2, 1)).
			Render(m.renderDetail())
		body = lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)

	case paneTrials:
		hint := theme.Muted.Render("esc: back  ↑/↓: scroll") + "\n"
		m.trialsView.Height = max(bodyH-lipgloss.Height(hint), 1)
		body = lipgloss.JoinVertical(lipgloss.Left, hint, m.trialsView.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func (m *Model) resize() {
	m.actionList.SetSize(m.width*4/10, max(m.height-3, 1))
	m.trialsView.Width = max(m.width-4, 1)
	m.trialsView.Height = max(m.height-4, 1)
}

func (m Model) renderHeader() string {
	plugin := m.plugin
	if plugin == "" {
		plugin = "(none)"
	}
	return theme.Title.Render("Plugins") + "  " +
		theme.Muted.Render(fmt.Sprintf("plugin: %s  target: %s  dry runs: %d", plugin, m.target, len(m.trials))) + "\n"
}

func (m Model) renderDetail() string {
	var sb strings.Builder
	if item, ok := m.actionList.SelectedItem().(actionItem); ok {
		sb.WriteString(theme.Title.Render(item.action.Kind) + "\n\n")
		if item.action.Description != "" {
			sb.WriteString(item.action.Description + "\n")
		}
		sb.WriteString(theme.Muted.Render(fmt.Sprintf("timeout %s", time.Duration(item.action.TimeoutMS)*time.Millisecond)) + "\n\n")
	}
	if m.editing {
		sb.WriteString("target: " + m.targetInput.View() + "\n")
		sb.WriteString(theme.Muted.Render("enter: keep  esc: cancel"))
		return sb.String()
	}
	sb.WriteString(theme.Muted.Render("enter: dry run against "+m.target) + "\n")
	sb.WriteString(theme.Muted.Render("t: change target  l: dry-run log  esc: back"))
	return sb.String()
}

func (m Model) renderTrials() string {
	var sb strings.Builder
	for _, trial := range m.trials {
		label := fmt.Sprintf("%s:%s → %s", trial.PluginName, trial.Kind, trial.Target)
		switch {
		case trial.Err != nil:
			sb.WriteString(theme.Bad.Render("error  ") + label + "  " + theme.Muted.Render(trial.Err.Error()))
		case trial.Out.OK:
			sb.WriteString(theme.Good.Render("ok     ") + label + "  " + theme.Muted.Render(trial.Out.Elapsed.String()))
		case trial.Out.Fatal:
			sb.WriteString(theme.Bad.Render("fatal  ") + label + "  " + trial.Out.Error)
		default:
			sb.WriteString(theme.Hot.Render("failed ") + label + "  " + trial.Out.Error)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) loadActionsCmd(pluginName string) tea.Cmd {
	port := m.port
	return func() tea.Msg {
		if port == nil {
			return ActionsLoadedMsg{PluginName: pluginName, Err: fmt.Errorf("plugins are not available")}
		}
		actions, err := port.ListActions(context.Background(), pluginName)
		return ActionsLoadedMsg{PluginName: pluginName, Actions: actions, Err: err}
	}
}

func (m Model) tryCmd(pluginName, kind, target string) tea.Cmd {
	port := m.port
	return func() tea.Msg {
		msg := TrialDoneMsg{PluginName: pluginName, Kind: kind, Target: target}
		if port == nil {
			msg.Err = fmt.Errorf("plugins are not available")
			return msg
		}
		msg.Out, msg.Err = port.Try(context.Background(), pluginName, kind, target, true)
		return msg
	}
}

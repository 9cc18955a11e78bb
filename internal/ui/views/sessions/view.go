package sessions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	engagementdto "engagectl/internal/modules/engagement/dto"
	"engagectl/internal/ui/theme"
)

// RefreshInterval is how often the view polls the registry.
const RefreshInterval = time.Second

// ─── port ────────────────────────────────────────────────────────────────────

type Port interface {
	List(ctx context.Context) ([]engagementdto.SessionOutput, error)
	Presets(ctx context.Context) ([]engagementdto.PresetOutput, error)
	Diagnostics(ctx context.Context) engagementdto.DiagnosticsOutput
}

// ─── messages ────────────────────────────────────────────────────────────────

type TickMsg struct{}

type LoadedMsg struct {
	Sessions    []engagementdto.SessionOutput
	Presets     []engagementdto.PresetOutput
	Diagnostics engagementdto.DiagnosticsOutput
	Err         error
}

// ─── list item ───────────────────────────────────────────────────────────────

// row is a preset, a session, or a session started from a preset of the same name.
type row struct {
	name    string
	preset  *engagementdto.PresetOutput
	session *engagementdto.SessionOutput
}

func (r row) state() string {
	if r.session == nil {
		return "idle"
	}
	return r.session.State
}

func (r row) Title() string {
	return r.name + "  " + theme.State(r.state()).Render(r.state())
}

func (r row) Description() string {
	switch {
	case r.session != nil:
		return fmt.Sprintf("%d actions  %s", r.session.ActionCount, r.session.Target)
	case r.preset != nil:
		return fmt.Sprintf("%s  %s", strings.Join(r.preset.Actions, ","), r.preset.Target)
	}
	return ""
}

func (r row) FilterValue() string { return r.name }

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port   Port
	list   list.Model
	detail viewport.Model
	rows   []row
	diag   engagementdto.DiagnosticsOutput
	err    error
	width  int
	height int
}

func New(port Port) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Sessions"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().
		Background(theme.Mantle).
		Foreground(theme.Text).
		Padding(1)

	return Model{port: port, list: l, detail: vp}
}

func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case TickMsg:
		return m, m.loadCmd()

	case LoadedMsg:
		m.err = msg.Err
		if msg.Err == nil {
			m.diag = msg.Diagnostics
			m.rows = mergeRows(msg.Presets, msg.Sessions)
			items := make([]list.Item, len(m.rows))
			for i, r := range m.rows {
				items[i] = r
			}
			cmds = append(cmds, m.list.SetItems(items))
			m.detail.SetContent(m.renderDetail())
		}
		cmds = append(cmds, tea.Tick(RefreshInterval, func(time.Time) tea.Msg { return TickMsg{} }))
		return m, tea.Batch(cmds...)
	}

	var lCmd tea.Cmd
	m.list, lCmd = m.list.Update(msg)
	m.detail.SetContent(m.renderDetail())
	return m, lCmd
}

func (m Model) View() string {
	listW := m.width * 4 / 10
	detailW := m.width - listW

	listPane := lipgloss.NewStyle().
		Width(listW).
		Height(m.height).
		Render(m.list.View())

	detailPane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Surface1).
		Background(theme.Mantle).
		Width(detailW - 2).
		Height(m.height - 2).
		Render(m.detail.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}

// Selected returns the highlighted row's name and whether a live session holds it.
func (m Model) Selected() (string, bool, bool) {
	r, ok := m.list.SelectedItem().(row)
	if !ok {
		return "", false, false
	}
	running := r.session != nil && !r.session.Terminal
	return r.name, r.preset != nil, running
}

func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Running counts sessions that have not reached a terminal state.
func (m Model) Running() int {
	n := 0
	for _, r := range m.rows {
		if r.session != nil && !r.session.Terminal {
			n++
		}
	}
	return n
}

// ─── private ─────────────────────────────────────────────────────────────────

func mergeRows(presets []engagementdto.PresetOutput, sessions []engagementdto.SessionOutput) []row {
	byName := map[string]*row{}
	for i := range presets {
		byName[presets[i].Name] = &row{name: presets[i].Name, preset: &presets[i]}
	}
	for i := range sessions {
		r, ok := byName[sessions[i].Name]
		if !ok {
			r = &row{name: sessions[i].Name}
			byName[sessions[i].Name] = r
		}
		r.session = &sessions[i]
	}
	out := make([]row, 0, len(byName))
	for _, r := range byName {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (m *Model) resize() {
	listW := m.width * 4 / 10
	detailW := m.width - listW
	m.list.SetSize(listW, m.height)
	m.detail.Width = detailW - 4
	m.detail.Height = m.height - 4
}

func (m Model) renderDetail() string {
	var sb strings.Builder
	if m.err != nil {
		sb.WriteString(theme.Bad.Render("refresh failed: "+m.err.Error()) + "\n\n")
	}
	r, ok := m.list.SelectedItem().(row)
	if !ok {
		sb.WriteString(theme.Muted.Render("No presets configured. Use the palette to start a session."))
		return sb.String()
	}
	sb.WriteString(theme.Title.Render(r.name) + "  " + theme.State(r.state()).Render(r.state()) + "\n\n")
	if p := r.preset; p != nil {
		sb.WriteString(theme.Muted.Render("target:    ") + p.Target + "\n")
		sb.WriteString(theme.Muted.Render("actions:   ") + strings.Join(p.Actions, ", ") + "\n")
		sb.WriteString(theme.Muted.Render("duration:  ") + p.Duration.String() + "\n")
		if p.Repetitions > 0 {
			sb.WriteString(fmt.Sprintf("%s%d\n", theme.Muted.Render("reps:      "), p.Repetitions))
		}
		sb.WriteString(fmt.Sprintf("%s%s (%s–%s, chance %.2f)\n", theme.Muted.Render("intensity: "), p.Intensity, p.DelayMin, p.DelayMax, p.Chance))
	}
	if s := r.session; s != nil {
		sb.WriteString("\n")
		sb.WriteString(theme.Muted.Render("run:       ") + s.RunID + "\n")
		sb.WriteString(fmt.Sprintf("%s%d\n", theme.Muted.Render("actions:   "), s.ActionCount))
		sb.WriteString(theme.Muted.Render("started:   ") + s.StartedAt.Local().Format("15:04:05") + "\n")
		if !s.FinishedAt.IsZero() {
			sb.WriteString(theme.Muted.Render("finished:  ") + s.FinishedAt.Local().Format("15:04:05") + "\n")
		}
		if s.Error != "" {
			sb.WriteString(theme.Bad.Render("error: "+s.Error) + "\n")
		}
	}
	sb.WriteString(fmt.Sprintf("\n%s active=%d pending=%d dropped=%d\n", theme.Muted.Render("sink:"), m.diag.Active, m.diag.Pending, m.diag.Dropped))
	sb.WriteString("\n" + theme.Muted.Render("enter: start  x: stop  a: start all  X: stop all"))
	return sb.String()
}

func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		if m.port == nil {
			return LoadedMsg{}
		}
		ctx := context.Background()
		sessions, err := m.port.List(ctx)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		presets, err := m.port.Presets(ctx)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		return LoadedMsg{Sessions: sessions, Presets: presets, Diagnostics: m.port.Diagnostics(ctx)}
	}
}

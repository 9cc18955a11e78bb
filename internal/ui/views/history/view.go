package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	historydto "engagectl/internal/modules/history/dto"
	"engagectl/internal/ui/theme"
)

type Port interface {
	Runs(ctx context.Context, page int) (historydto.RunPage, error)
	Outcomes(ctx context.Context, runID string) ([]historydto.OutcomeOutput, error)
}

type PageLoadedMsg struct {
	Page historydto.RunPage
	Err  error
}

type OutcomesLoadedMsg struct {
	RunID    string
	Outcomes []historydto.OutcomeOutput
	Err      error
}

type runItem struct{ run historydto.RunOutput }

func (i runItem) Title() string {
	return i.run.Session + "  " + theme.State(i.run.State).Render(i.run.State)
}

func (i runItem) Description() string {
	return fmt.Sprintf("%s  ok=%d failed=%d skipped=%d", i.run.StartedAt.Local().Format("2006-01-02 15:04"), i.run.Succeeded, i.run.Failed, i.run.Skipped)
}

func (i runItem) FilterValue() string { return i.run.Session + " " + i.run.RunID }

type Model struct {
	port     Port
	list     list.Model
	detail   viewport.Model
	page     historydto.RunPage
	outcomes map[string][]historydto.OutcomeOutput
	err      error
	width    int
	height   int
}

func New(port Port) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "History"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().
		Background(theme.Mantle).
		Foreground(theme.Text).
		Padding(1)

	return Model{port: port, list: l, detail: vp, outcomes: map[string][]historydto.OutcomeOutput{}}
}

func (m Model) Init() tea.Cmd {
	return m.LoadPage(1)
}

// LoadPage fetches one page of runs.
func (m Model) LoadPage(page int) tea.Cmd {
	return func() tea.Msg {
		if m.port == nil {
			return PageLoadedMsg{}
		}
		out, err := m.port.Runs(context.Background(), page)
		return PageLoadedMsg{Page: out, Err: err}
	}
}

// Refresh reloads the current page.
func (m Model) Refresh() tea.Cmd {
	page := m.page.Page
	if page < 1 {
		page = 1
	}
	return m.LoadPage(page)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listW := m.width * 4 / 10
		m.list.SetSize(listW, m.height)
		m.detail.Width = m.width - listW - 4
		m.detail.Height = m.height - 4
		return m, nil

	case PageLoadedMsg:
		m.err = msg.Err
		if msg.Err == nil {
			m.page = msg.Page
			m.outcomes = map[string][]historydto.OutcomeOutput{}
			items := make([]list.Item, len(msg.Page.Runs))
			for i, run := range msg.Page.Runs {
				items[i] = runItem{run: run}
			}
			m.list.Title = fmt.Sprintf("History %d/%d", msg.Page.Page, msg.Page.Pages)
			cmds = append(cmds, m.list.SetItems(items))
			if len(msg.Page.Runs) > 0 {
				cmds = append(cmds, m.loadOutcomesCmd(msg.Page.Runs[0].RunID))
			}
		}
		m.detail.SetContent(m.renderDetail())
		return m, tea.Batch(cmds...)

	case OutcomesLoadedMsg:
		if msg.Err == nil {
			m.outcomes[msg.RunID] = msg.Outcomes
		}
		m.detail.SetContent(m.renderDetail())
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "left":
				if m.page.Page > 1 {
					return m, m.LoadPage(m.page.Page - 1)
				}
				return m, nil
			case "right":
				if m.page.Page < m.page.Pages {
					return m, m.LoadPage(m.page.Page + 1)
				}
				return m, nil
			case "r":
				return m, m.Refresh()
			}
		}
	}

	prev := m.list.Index()
	var lCmd tea.Cmd
	m.list, lCmd = m.list.Update(msg)
	cmds = append(cmds, lCmd)
	if m.list.Index() != prev {
		if item, ok := m.list.SelectedItem().(runItem); ok {
			if _, cached := m.outcomes[item.run.RunID]; !cached {
				cmds = append(cmds, m.loadOutcomesCmd(item.run.RunID))
			}
		}
		m.detail.SetContent(m.renderDetail())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	listW := m.width * 4 / 10
	detailW := m.width - listW
	listPane := lipgloss.NewStyle().Width(listW).Height(m.height).Render(m.list.View())
	detailPane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Surface1).
		Background(theme.Mantle).
		Width(detailW - 2).
		Height(m.height - 2).
		Render(m.detail.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}

func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) renderDetail() string {
	if m.err != nil {
		return theme.Bad.Render("history: " + m.err.Error())
	}
	item, ok := m.list.SelectedItem().(runItem)
	if !ok {
		return theme.Muted.Render("No runs recorded yet.")
	}
	r := item.run
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(r.Session) + "  " + theme.State(r.State).Render(r.State) + "\n\n")
	sb.WriteString(theme.Muted.Render("run:      ") + r.RunID + "\n")
	sb.WriteString(theme.Muted.Render("target:   ") + r.Target + "\n")
	sb.WriteString(theme.Muted.Render("actions:  ") + strings.Join(r.Actions, ", ") + "\n")
	if r.Duration > 0 {
		sb.WriteString(theme.Muted.Render("duration: ") + r.Duration.String() + "\n")
	}
	if r.Error != "" {
		sb.WriteString(theme.Bad.Render("error: "+r.Error) + "\n")
	}
	outcomes, loaded := m.outcomes[r.RunID]
	sb.WriteString("\n" + theme.Title.Render("Outcomes") + "\n")
	switch {
	case !loaded:
		sb.WriteString(theme.Muted.Render("loading…") + "\n")
	case len(outcomes) == 0:
		sb.WriteString(theme.Muted.Render("none") + "\n")
	default:
		for _, o := range outcomes {
			line := fmt.Sprintf("%s %-8s %s", o.At.Local().Format("15:04:05"), o.Kind, o.Elapsed)
			if o.OK {
				sb.WriteString(theme.Good.Render(line) + "\n")
			} else {
				sb.WriteString(theme.Bad.Render(line+" "+o.Error) + "\n")
			}
		}
	}
	sb.WriteString("\n" + theme.Muted.Render("←/→: page  r: refresh"))
	return sb.String()
}

func (m Model) loadOutcomesCmd(runID string) tea.Cmd {
	return func() tea.Msg {
		outcomes, err := m.port.Outcomes(context.Background(), runID)
		return OutcomesLoadedMsg{RunID: runID, Outcomes: outcomes, Err: err}
	}
}

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"engagectl/internal/ui/theme"
)

// PaletteSubmitMsg is emitted when the user confirms a command.
type PaletteSubmitMsg struct{ Input string }

// PaletteCancelMsg is emitted when the user presses esc.
type PaletteCancelMsg struct{}

const (
	maxShownHints = 6
	maxRecall     = 20
)

var (
	paletteStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Peach).
			Background(theme.Mantle).
			Foreground(theme.Text).
			Padding(0, 1)

	hintStyle = lipgloss.NewStyle().Foreground(theme.Subtext0)
)

// hints must stay in sync with the switch in app/model.go executePalette.
var paletteHints = []string{
	"session:start <preset> [name]",
	"session:start-all",
	"session:stop [name]",
	"session:stop-all",
	"logs:clear",
	"history:page <n>",
	"history:refresh",
	"plugin:actions <plugin>",
	"plugin:try <plugin> <kind> <target>",
}

// Palette is a command-palette overlay. Tab completes the input from the
// static hints and the live completions; up and down recall earlier commands.
type Palette struct {
	input       textinput.Model
	visible     bool
	width       int
	completions []string
	recall      []string
	recallAt    int
}

func NewPalette() Palette {
	ti := textinput.New()
	ti.Placeholder = "type a command, tab completes"
	ti.CharLimit = 256
	return Palette{input: ti}
}

func (p Palette) Visible() bool { return p.visible }

// Open shows the palette, clears the input, and returns the focus command.
func (p *Palette) Open() tea.Cmd {
	p.visible = true
	p.input.SetValue("")
	p.recallAt = len(p.recall)
	return p.input.Focus()
}

func (p *Palette) SetWidth(w int) { p.width = w }

// SetCompletions replaces the concrete commands offered next to the static
// hints, e.g. "session:start website" for every known preset.
func (p *Palette) SetCompletions(commands []string) {
	p.completions = append(p.completions[:0], commands...)
}

func (p Palette) Update(msg tea.Msg) (Palette, tea.Cmd) {
	if !p.visible {
		return p, nil
	}
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			p.visible = false
			p.input.Blur()
			return p, func() tea.Msg { return PaletteCancelMsg{} }
		case "enter":
			val := strings.TrimSpace(p.input.Value())
			p.visible = false
			p.input.Blur()
			p.remember(val)
			return p, func() tea.Msg { return PaletteSubmitMsg{Input: val} }
		case "tab":
			if matches := p.matching(); len(matches) > 0 {
				p.input.SetValue(completion(matches[0]))
				p.input.CursorEnd()
			}
			return p, nil
		case "up":
			if p.recallAt > 0 {
				p.recallAt--
				p.input.SetValue(p.recall[p.recallAt])
				p.input.CursorEnd()
			}
			return p, nil
		case "down":
			if p.recallAt < len(p.recall) {
				p.recallAt++
			}
			value := ""
			if p.recallAt < len(p.recall) {
				value = p.recall[p.recallAt]
			}
			p.input.SetValue(value)
			p.input.CursorEnd()
			return p, nil
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p *Palette) remember(command string) {
	if command == "" {
		return
	}
	if n := len(p.recall); n > 0 && p.recall[n-1] == command {
		return
	}
	p.recall = append(p.recall, command)
	if len(p.recall) > maxRecall {
		p.recall = p.recall[len(p.recall)-maxRecall:]
	}
}

// matching returns live completions before static hints, filtered by the
// current input as a prefix.
func (p Palette) matching() []string {
	prefix := strings.ToLower(p.input.Value())
	var out []string
	for _, group := range [][]string{p.completions, paletteHints} {
		for _, candidate := range group {
			if prefix == "" || strings.HasPrefix(candidate, prefix) {
				out = append(out, candidate)
			}
		}
	}
	return out
}

// completion drops placeholder arguments from a hint so the user can type them.
func completion(hint string) string {
	if idx := strings.IndexAny(hint, "<["); idx >= 0 {
		return hint[:idx]
	}
	return hint
}

func (p Palette) View() string {
	if !p.visible {
		return ""
	}
	matching := p.matching()
	if len(matching) > maxShownHints {
		matching = matching[:maxShownHints]
	}

	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Command Palette") + "\n")
	sb.WriteString(": " + p.input.View() + "\n")
	if len(matching) > 0 {
		sb.WriteString("\n")
		for _, h := range matching {
			sb.WriteString(hintStyle.Render("  "+h) + "\n")
		}
	}

	w := p.width
	if w < 20 {
		w = 64
	}
	return paletteStyle.Width(w - 2).Render(sb.String())
}

package ui

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// pickerModel lets the user choose one of several lens titles.
type pickerModel struct {
	prompt string
	items  []string
	cursor int
	chosen int
	width  int
}

func newPickerModel(prompt string, items []string) *pickerModel {
	return &pickerModel{prompt: prompt, items: items, width: 80}
}

func (m *pickerModel) Init() tea.Cmd { return nil }

func (m *pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "enter":
			m.chosen = m.cursor + 1
			return m, tea.Quit
		case "esc", "q", "ctrl+c":
			m.chosen = 0
			return m, tea.Quit
		default:
			if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
				if n := int(key[0] - '0'); n <= len(m.items) {
					m.chosen = n
					return m, tea.Quit
				}
			}
		}
	}
	return m, nil
}

func (m *pickerModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	selected := lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	hint := lipgloss.NewStyle().Faint(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.prompt))
	b.WriteString("\n")
	for i, item := range m.items {
		line := fmt.Sprintf("%d: %s", i+1, truncate(item, m.width-6))
		if i == m.cursor {
			b.WriteString(selected.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString(hint.Render("enter select, 1-9 pick, esc cancel"))
	b.WriteString("\n")
	return b.String()
}

// Pick shows items in an interactive list on in/out and returns the
// one-based choice, 0 when cancelled.
func Pick(prompt string, items []string, in io.Reader, out io.Writer) (int, error) {
	model := newPickerModel(prompt, items)
	program := tea.NewProgram(model, tea.WithInput(in), tea.WithOutput(out))
	final, err := program.Run()
	if err != nil {
		return 0, err
	}
	return final.(*pickerModel).chosen, nil
}

// PromptChoice is the non-interactive fallback: it prints the numbered list
// and reads a number from in. Anything unparsable cancels.
func PromptChoice(prompt string, items []string, in io.Reader, out io.Writer) int {
	fmt.Fprintln(out, prompt)
	for i, item := range items {
		fmt.Fprintf(out, "%d: %s\n", i+1, item)
	}
	fmt.Fprint(out, "> ")
	var n int
	if _, err := fmt.Fscan(in, &n); err != nil {
		return 0
	}
	return n
}

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"lensctl/internal/codelens"
)

// Backend names one language server row in the progress view.
type Backend struct {
	ID   codelens.BackendID
	Name string
}

type progressModel struct {
	title      string
	events     <-chan codelens.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []backendItem
	index      map[codelens.BackendID]int
	stageLabel string
	width      int
	done       bool
}

type backendItem struct {
	name     string
	status   string
	stage    codelens.Stage
	resolved int
}

type eventMsg codelens.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders refresh progress
// for backends until events is closed.
func NewProgressModel(title string, backends []Backend, events <-chan codelens.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]backendItem, 0, len(backends))
	index := make(map[codelens.BackendID]int, len(backends))
	for i, b := range backends {
		items = append(items, backendItem{name: b.Name, status: "queued"})
		index[b.ID] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(codelens.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 12
	nameWidth := max(m.width-statusWidth-4, 20)

	for _, item := range m.items {
		name := truncate(item.name, nameWidth)
		if item.resolved > 0 {
			name = fmt.Sprintf("%s (%d resolved)", name, item.resolved)
		}
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%12s", item.status))
		b.WriteString(fmt.Sprintf("  %s %s", statusStyled, name))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")

	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev codelens.Event) tea.Cmd {
	label := statusLabel(ev.Stage, ev.Status)
	if ev.Backend == 0 {
		if label != "" {
			m.stageLabel = label
		}
		return nil
	}
	idx, ok := m.index[ev.Backend]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	switch {
	case ev.Stage == codelens.StageResolve:
		if ev.Status == codelens.StatusDone {
			item.resolved++
		}
	case label != "":
		item.status = label
		item.stage = ev.Stage
	}

	total := 0.0
	for _, it := range m.items {
		total += progressFromStatus(it)
	}
	return m.prog.SetPercent(total / float64(len(m.items)))
}

func progressFromStatus(item backendItem) float64 {
	switch item.status {
	case "done", "error":
		return 1.0
	case "resolving":
		return 0.6
	case "running":
		return 0.5
	case "requesting":
		return 0.2
	default:
		return 0.0
	}
}

func statusLabel(stage codelens.Stage, status codelens.Status) string {
	switch status {
	case codelens.StatusDone:
		return "done"
	case codelens.StatusError:
		return "error"
	case codelens.StatusThrottled:
		return "throttled"
	case codelens.StatusWorking:
		return stageLabel(stage)
	default:
		return ""
	}
}

func stageLabel(stage codelens.Stage) string {
	switch stage {
	case codelens.StageRefresh:
		return "requesting"
	case codelens.StageBackend, codelens.StageResolve:
		return "resolving"
	case codelens.StageExecute:
		return "running"
	default:
		return ""
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "requesting", "resolving", "running":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}

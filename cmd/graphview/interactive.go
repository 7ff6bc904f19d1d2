package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/handle-graph/handle"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB"))

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const eventLogDepth = 8

type model struct {
	reg    *handle.Registry
	names  map[handle.Handle]string
	events []string
	flash  string
	input  textinput.Model
}

func newModel(cfg handle.Config) *model {
	ti := textinput.New()
	ti.Placeholder = "new <name> | dep <a> <b> | release <id> | close | quit"
	ti.Prompt = "> "
	ti.Width = 60
	ti.Focus()

	m := &model{
		reg:   handle.NewRegistry(cfg),
		names: make(map[handle.Handle]string),
		input: ti,
	}
	m.reg.Subscribe(m)
	return m
}

func (m *model) name(h handle.Handle) string {
	if n, ok := m.names[h]; ok {
		return n
	}
	return fmt.Sprintf("handle-%d", h)
}

// OnHandleEvent implements handle.Observer. All registry mutations happen
// inside Update, so appending here is single-threaded.
func (m *model) OnHandleEvent(e handle.Event) {
	switch e.Type {
	case handle.EventCreated:
		if n, ok := e.Resource.(string); ok {
			m.names[e.Handle] = n
		}
		m.events = append(m.events, fmt.Sprintf("created %s (id %d)", m.name(e.Handle), e.Handle))
	case handle.EventLinked:
		m.events = append(m.events, fmt.Sprintf("linked %s -> %s (refcount %d)",
			m.name(e.Handle), m.name(e.Related), e.RefCount))
	case handle.EventReleased:
		m.events = append(m.events, fmt.Sprintf("released %s (refcount %d)", m.name(e.Handle), e.RefCount))
	case handle.EventDestroyed:
		m.events = append(m.events, fmt.Sprintf("destroyed %s", m.name(e.Handle)))
	}
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			m.reg.Close()
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			if line == "quit" || line == "q" {
				m.reg.Close()
				return m, tea.Quit
			}
			m.flash = ""
			if err := m.execute(line); err != nil {
				m.flash = err.Error()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) execute(line string) error {
	fields := strings.Fields(line)

	switch fields[0] {
	case "new":
		if len(fields) != 2 {
			return fmt.Errorf("usage: new <name>")
		}
		_, err := m.reg.New(fields[1], nil)
		return err

	case "dep":
		if len(fields) != 3 {
			return fmt.Errorf("usage: dep <dependent> <dependency>")
		}
		dependent, err := parseHandle(fields[1])
		if err != nil {
			return err
		}
		dependency, err := parseHandle(fields[2])
		if err != nil {
			return err
		}
		return m.reg.AddDependency(dependent, dependency)

	case "release":
		if len(fields) != 2 {
			return fmt.Errorf("usage: release <id>")
		}
		h, err := parseHandle(fields[1])
		if err != nil {
			return err
		}
		return m.reg.Release(h)

	case "close":
		return m.reg.Close()

	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

func parseHandle(s string) (handle.Handle, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad handle id %q", s)
	}
	return handle.Handle(v), nil
}

func (m *model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("graphview"))
	b.WriteString("\n\n")

	rows := snapshot(m.reg)
	if len(rows) == 0 {
		b.WriteString(helpStyle.Render("no live handles"))
		b.WriteString("\n")
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-4s %-14s %-7s %s", "ID", "NAME", "CLAIMS", "DEPENDENCIES")))
		b.WriteString("\n")
		for _, r := range rows {
			b.WriteString(fmt.Sprintf("%-4d ", r.h))
			b.WriteString(nameStyle.Render(fmt.Sprintf("%-14s", r.name)))
			b.WriteString(fmt.Sprintf(" %-7d %s\n", r.count, formatDeps(r.deps)))
		}
	}

	if len(m.events) > 0 {
		b.WriteString("\n")
		start := len(m.events) - eventLogDepth
		if start < 0 {
			start = 0
		}
		for _, line := range m.events[start:] {
			b.WriteString(eventStyle.Render("  " + line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.flash != "" {
		b.WriteString(errorStyle.Render(m.flash))
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter run command • ctrl+c quit"))

	return b.String()
}

func runInteractive(cfg handle.Config) error {
	p := tea.NewProgram(newModel(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

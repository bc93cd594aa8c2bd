package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"carrier-probe/internal/probe"
)

// KeyMap represents the key bindings for the results table
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Details key.Binding
	Filter  key.Binding
	Help    key.Binding
	Back    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Details: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		Filter: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle empty/failed"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ResultsTable browses probe outcomes: one row per selector, with the
// previews and any error of the selected row shown on demand.
type ResultsTable struct {
	table    table.Model
	title    string
	outcomes []probe.Outcome
	visible  []int // indexes into outcomes of the rows shown
	showAll  bool
	detail   bool
	showHelp bool
	quitting bool
	useColor bool
	keys     KeyMap
}

// NewResultsTable creates a results table. Only matched selectors are shown
// until showAll is toggled.
func NewResultsTable(title string, outcomes []probe.Outcome, showAll, useColor bool) *ResultsTable {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "SELECTOR", Width: selectorColumnWidth(outcomes)},
			{Title: "STATUS", Width: 8},
			{Title: "COUNT", Width: 6},
			{Title: "PREVIEW", Width: 60},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	if useColor {
		s := table.DefaultStyles()
		s.Header = s.Header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(false)
		s.Selected = s.Selected.
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(false)
		t.SetStyles(s)
	}

	m := &ResultsTable{
		table:    t,
		title:    title,
		outcomes: outcomes,
		showAll:  showAll,
		useColor: useColor,
		keys:     DefaultKeyMap(),
	}
	m.refreshRows()
	return m
}

func (m *ResultsTable) refreshRows() {
	m.visible = m.visible[:0]
	rows := make([]table.Row, 0, len(m.outcomes))
	for i, o := range m.outcomes {
		if o.Status != probe.StatusMatched && !m.showAll {
			continue
		}
		m.visible = append(m.visible, i)
		preview := ""
		if len(o.Previews) > 0 {
			preview = o.Previews[0]
		}
		if o.Status == probe.StatusFailed && o.Err != nil {
			preview = o.Err.Error()
		}
		rows = append(rows, table.Row{o.Selector, string(o.Status), strconv.Itoa(o.Count), truncate(preview, 60)})
	}
	m.table.SetRows(rows)
	// An empty table leaves the cursor at -1; move it back once rows appear.
	if c := m.table.Cursor(); len(rows) > 0 && (c < 0 || c >= len(rows)) {
		m.table.SetCursor(min(max(c, 0), len(rows)-1))
	}
}

// Selected returns the outcome under the cursor.
func (m *ResultsTable) Selected() (probe.Outcome, bool) {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.visible) {
		return probe.Outcome{}, false
	}
	return m.outcomes[m.visible[cursor]], true
}

// Init initializes the results table
func (m *ResultsTable) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m *ResultsTable) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.detail {
			switch {
			case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Details):
				m.detail = false
			case key.Matches(msg, m.keys.Quit):
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Filter):
			m.showAll = !m.showAll
			m.refreshRows()
			return m, nil

		case key.Matches(msg, m.keys.Details):
			if _, ok := m.Selected(); ok {
				m.detail = true
			}
			return m, nil

		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		return m, nil
	}

	return m, nil
}

// View renders the results table
func (m *ResultsTable) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.render(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")), m.title))
	b.WriteString("\n\n")

	if m.showHelp {
		b.WriteString(m.helpView())
		b.WriteString("\n")
	}

	if m.detail {
		b.WriteString(m.detailView())
	} else {
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")
	b.WriteString(m.render(lipgloss.NewStyle().Foreground(lipgloss.Color("244")), m.statusLine()))
	return b.String()
}

func (m *ResultsTable) render(style lipgloss.Style, s string) string {
	if !m.useColor {
		return s
	}
	return style.Render(s)
}

// helpView returns the help view
func (m *ResultsTable) helpView() string {
	help := strings.Builder{}
	help.WriteString("Help:\n")
	help.WriteString("  ↑/k         - Move up\n")
	help.WriteString("  ↓/j         - Move down\n")
	help.WriteString("  enter       - Show all previews\n")
	help.WriteString("  a           - Toggle empty and failed selectors\n")
	help.WriteString("  ?           - Toggle help\n")
	help.WriteString("  q/ctrl+c    - Quit\n")
	return help.String()
}

func (m *ResultsTable) detailView() string {
	o, ok := m.Selected()
	if !ok {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", m.render(lipgloss.NewStyle().Bold(true), o.Selector))
	fmt.Fprintf(&b, "Status: %s  Elements: %d\n\n", o.Status, o.Count)
	if o.Err != nil {
		fmt.Fprintf(&b, "Error: %v\n", o.Err)
	}
	for i, preview := range o.Previews {
		fmt.Fprintf(&b, "  [%d]: %s\n", o.PreviewIndex(i), preview)
	}
	for _, err := range o.ElementErrors {
		fmt.Fprintf(&b, "  %v\n", err)
	}
	if o.Status == probe.StatusEmpty {
		b.WriteString("  (no elements matched)\n")
	}
	return b.String()
}

// statusLine returns the status line
func (m *ResultsTable) statusLine() string {
	if m.detail {
		return "Details | Press esc to return to the results"
	}
	if len(m.visible) == 0 {
		if m.showAll {
			return "No selectors probed | Press q to quit"
		}
		return "No selectors matched | Press a to show all, q to quit"
	}
	return fmt.Sprintf("Selector %d of %d | Press ? for help", m.table.Cursor()+1, len(m.visible))
}

func selectorColumnWidth(outcomes []probe.Outcome) int {
	width := len("SELECTOR")
	for _, o := range outcomes {
		width = max(width, len(o.Selector))
	}
	return min(width, 48)
}

// RunResultsTable runs the results table until the user quits
func RunResultsTable(title string, outcomes []probe.Outcome, showAll, useColor bool) error {
	p := tea.NewProgram(NewResultsTable(title, outcomes, showAll, useColor), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

package ui

import (
	"eepromkv/pkg/eeprom"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model is the interactive console. Only one batch of commands runs at a
// time, so the store is never used from two goroutines at once.
type Model struct {
	store       *eeprom.Store
	name        string
	editor      textarea.Model
	historyView viewport.Model
	resultTable table.Model
	spinner     spinner.Model
	help        help.Model

	width        int
	height       int
	executing    bool
	showHelp     bool
	lastResult   Result
	lastError    error
	lastDuration time.Duration
	stats        eeprom.Stats
	history      []string
	keys         keyMap
}

// NewModel builds a console over an initialised store. name labels the
// header, typically the image path.
func NewModel(store *eeprom.Store, name string) Model {
	ta := textarea.New()
	ta.Placeholder = "write param1 42\nread param1"
	ta.CharLimit = 2000
	ta.ShowLineNumbers = true
	ta.SetHeight(4)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle().Background(bgLight)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(textMuted)
	ta.FocusedStyle.Text = lipgloss.NewStyle().Foreground(textPrimary)
	ta.FocusedStyle.LineNumber = lipgloss.NewStyle().Foreground(textMuted)

	vp := viewport.New(80, 6)
	vp.Style = historyStyle

	t := table.New(
		table.WithColumns([]table.Column{{Title: "Result", Width: 40}}),
		table.WithRows([]table.Row{}),
		table.WithFocused(false),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(primaryColor).
		BorderBottom(true).
		Bold(true).
		Foreground(primaryColor)
	s.Selected = s.Selected.
		Foreground(bgDark).
		Background(secondaryColor).
		Bold(false)
	t.SetStyles(s)

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		store:       store,
		name:        name,
		editor:      ta,
		historyView: vp,
		resultTable: t,
		spinner:     sp,
		help:        help.New(),
		keys:        keys,
		stats:       store.Stats(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textarea.Blink,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()

	case tea.KeyMsg:
		if m.executing {
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Execute):
			if strings.TrimSpace(m.editor.Value()) != "" {
				m.executing = true
				return m, tea.Batch(m.spinner.Tick, m.execute(m.editor.Value()))
			}
			return m, nil

		case key.Matches(msg, m.keys.Clear):
			m.editor.SetValue("")
			m.lastResult = Result{}
			m.lastError = nil
			return m, nil

		case key.Matches(msg, m.keys.ShowValues):
			m.executing = true
			return m, m.execute("values")

		case key.Matches(msg, m.keys.ShowPages):
			m.executing = true
			return m, m.execute("pages")

		case key.Matches(msg, m.keys.ShowStats):
			m.executing = true
			return m, m.execute("stats")

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		}

	case commandsDoneMsg:
		m.executing = false
		m.lastResult = msg.result
		m.lastError = msg.err
		m.lastDuration = msg.duration
		m.stats = msg.stats
		m.history = append(m.history, msg.log...)
		m.historyView.SetContent(strings.Join(m.history, "\n"))
		m.historyView.GotoBottom()
		m.updateResultTable()
		if msg.err == nil {
			m.editor.SetValue("")
		}
		return m, nil

	case spinner.TickMsg:
		if m.executing {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if !m.executing {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		cmds = append(cmds, cmd)

		m.historyView, cmd = m.historyView.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	sections := []string{
		m.renderHeader(),
		m.renderEditor(),
	}

	switch {
	case m.executing:
		sections = append(sections, m.renderExecuting())
	case m.lastError != nil:
		sections = append(sections, m.renderError())
	case len(m.lastResult.Rows) > 0:
		sections = append(sections, m.renderResultTable())
	case m.lastResult.Message != "":
		sections = append(sections, m.renderMessage())
	}

	if len(m.history) > 0 {
		sections = append(sections, m.historyView.View())
	}

	sections = append(sections, m.renderStatusBar())

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	}

	return appStyle.Render(strings.Join(sections, "\n"))
}

func (m Model) renderHelp() string {
	helpText := m.help.FullHelpView([][]key.Binding{
		{m.keys.Execute, m.keys.Clear, m.keys.Help, m.keys.Quit},
		{m.keys.ShowValues, m.keys.ShowPages, m.keys.ShowStats},
	})

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(primaryColor).
		Padding(1, 2).
		Render(helpText + "\n\ncommands: read <id> | write <id> <value> | values | pages | stats | format")
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("💾 eepromkv console")
	badge := badgeStyle.Render(m.name)
	counters := lipgloss.NewStyle().
		Foreground(textSecondary).
		Render(fmt.Sprintf("Appends: %d | Transfers: %d | Recovery: %s",
			m.stats.Appends, m.stats.Transfers, m.stats.LastRecovery))

	header := lipgloss.JoinHorizontal(lipgloss.Left, title, "  ", badge, "  ", counters)

	separator := lipgloss.NewStyle().
		Foreground(bgLight).
		Render(strings.Repeat("─", max(m.width-4, 0)))

	return header + "\n" + separator
}

func (m Model) renderEditor() string {
	label := lipgloss.NewStyle().
		Foreground(primaryColor).
		Bold(true).
		Render("Commands (one per line)")

	return fmt.Sprintf("%s\n%s", label, editorStyle.Render(m.editor.View()))
}

func (m Model) renderExecuting() string {
	content := lipgloss.JoinHorizontal(lipgloss.Left, m.spinner.View(), " Running...")
	return lipgloss.NewStyle().
		Foreground(primaryColor).
		Padding(1, 0).
		Render(content)
}

func (m Model) renderError() string {
	icon := errorStyle.Render(" ⚠ ERROR ")
	message := lipgloss.NewStyle().
		Foreground(errorColor).
		Render(m.lastError.Error())

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(errorColor).
		Padding(0, 1).
		Render(fmt.Sprintf("%s %s", icon, message))
}

func (m Model) renderResultTable() string {
	header := lipgloss.NewStyle().
		Foreground(accentColor).
		Bold(true).
		Render(fmt.Sprintf("✓ %d rows in %v", len(m.lastResult.Rows), m.lastDuration))

	return fmt.Sprintf("%s\n%s", header, m.resultTable.View())
}

func (m Model) renderMessage() string {
	return lipgloss.NewStyle().
		Foreground(accentColor).
		Padding(1, 0).
		Render(fmt.Sprintf("%s %s", successStyle.Render(" ✓ "), m.lastResult.Message))
}

func (m Model) renderStatusBar() string {
	timer := ""
	if m.lastDuration > 0 {
		timer = fmt.Sprintf(" | Last batch: %v", m.lastDuration)
	}

	content := lipgloss.NewStyle().Foreground(accentColor).Render("● Ready") +
		lipgloss.NewStyle().Foreground(textMuted).Render(timer+" | Press Ctrl+H for help")

	return statusBarStyle.Width(max(m.width-4, 0)).Render(content)
}

// updateResultTable sizes the columns to the current result.
func (m *Model) updateResultTable() {
	columns := make([]table.Column, len(m.lastResult.Columns))
	for i, title := range m.lastResult.Columns {
		columns[i] = table.Column{Title: title, Width: columnWidth(title, i, m.lastResult.Rows)}
	}

	rows := make([]table.Row, len(m.lastResult.Rows))
	for i, row := range m.lastResult.Rows {
		rows[i] = table.Row(row)
	}

	// Clear rows first: SetColumns re-renders the old rows, which may be
	// narrower than the new column set.
	m.resultTable.SetRows(nil)
	m.resultTable.SetColumns(columns)
	m.resultTable.SetRows(rows)
}

func columnWidth(title string, index int, rows [][]string) int {
	width := len(title) + 2
	for _, row := range rows {
		if index < len(row) {
			width = max(width, len(row[index])+2)
		}
	}
	return min(max(width, 8), 30)
}

// updateLayout adjusts component sizes based on window size
func (m *Model) updateLayout() {
	m.editor.SetWidth(max(m.width-8, 20))
	m.historyView.Width = max(m.width-6, 20)
	m.historyView.Height = max(m.height-26, 3)
	m.resultTable.SetHeight(8)
}

type commandsDoneMsg struct {
	result   Result
	log      []string
	err      error
	stats    eeprom.Stats
	duration time.Duration
}

// execute runs every non-empty line in order and stops at the first error.
func (m Model) execute(input string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		return runBatch(store, input)
	}
}

func runBatch(store *eeprom.Store, input string) commandsDoneMsg {
	start := time.Now()
	var msg commandsDoneMsg

	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cmd, err := ParseCommand(line)
		if err == nil {
			msg.result, err = Execute(store, cmd)
		}
		if err != nil {
			msg.err = err
			msg.log = append(msg.log, "✗ "+line+": "+err.Error())
			break
		}

		entry := "› " + line
		if msg.result.Message != "" {
			entry += "  " + msg.result.Message
		}
		msg.log = append(msg.log, entry)
	}

	msg.stats = store.Stats()
	msg.duration = time.Since(start)
	return msg
}

package ui

import (
	"eepromkv/pkg/eeprom"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// Color palette - shared across all readers
var (
	PrimaryColor   = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7C3AED"}
	SecondaryColor = lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#06B6D4"}
	SuccessColor   = lipgloss.AdaptiveColor{Light: "#02BA84", Dark: "#10B981"}
	WarningColor   = lipgloss.AdaptiveColor{Light: "#FF8C00", Dark: "#F59E0B"}
	ErrorColor     = lipgloss.AdaptiveColor{Light: "#FF5F56", Dark: "#EF4444"}
	MutedColor     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#94A3B8"}
	FgColor        = lipgloss.AdaptiveColor{Light: "#1E1E2E", Dark: "#CDD6F4"}
)

// Common styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(0, 1)

	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(PrimaryColor).
				Bold(true).
				Padding(0, 1)

	ItemStyle = lipgloss.NewStyle().
			Foreground(FgColor).
			Padding(0, 1)

	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(SecondaryColor).
				Bold(true).
				Padding(0, 1)

	CellStyle = lipgloss.NewStyle().
			Foreground(FgColor).
			Padding(0, 1)

	// PanelStyle frames one page in the overview.
	PanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(MutedColor).
			Padding(0, 2).
			Width(36)

	LabelStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	ValueStyle = lipgloss.NewStyle().
			Foreground(FgColor)

	HelpStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			MarginTop(1).
			Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(PrimaryColor).
			Padding(0, 1).
			MarginTop(1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			Padding(1)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true).
			Padding(0, 1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true).
			Padding(0, 1)
)

// StateStyle colors a page marker: ACTIVE green, RECEIVING amber,
// CLEARED muted and anything else red.
func StateStyle(s eeprom.PageState) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch s {
	case eeprom.StateActive:
		return SuccessStyle
	case eeprom.StateReceiving:
		return WarningStyle
	case eeprom.StateCleared:
		return base.Foreground(MutedColor)
	default:
		return base.Foreground(ErrorColor)
	}
}

// Common key bindings
type CommonKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Back   key.Binding
	Reload key.Binding
	Help   key.Binding
	Quit   key.Binding
}

var CommonKeys = CommonKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "move down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "open page"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload image"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Navigation key bindings
type NavigationKeyMap struct {
	NextPage key.Binding
	PrevPage key.Binding
}

var NavigationKeys = NavigationKeyMap{
	NextPage: key.NewBinding(
		key.WithKeys("n", "tab", "right", "l"),
		key.WithHelp("n/tab", "next page"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("p", "shift+tab", "left", "h"),
		key.WithHelp("p", "prev page"),
	),
}

// RenderError renders an error message with instructions to quit
func RenderError(err error) string {
	return ErrorStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		"Error: "+err.Error(),
		"",
		"Press q to quit.",
	))
}

// RenderStatusBar renders a status bar with the given text
func RenderStatusBar(text string) string {
	return StatusBarStyle.Render(text)
}

// RenderTitle renders a title with an icon
func RenderTitle(icon, title string) string {
	return TitleStyle.Render(icon + "  " + title)
}

// RenderHeaderWithCount renders a header with optional count
func RenderHeaderWithCount(text string, count int) string {
	if count >= 0 {
		return HeaderStyle.Render(fmt.Sprintf(" %s (%d) ", text, count))
	}
	return HeaderStyle.Render(" " + text + " ")
}

// RenderField renders a "label: value" line for a panel.
func RenderField(label, value string) string {
	return LabelStyle.Render(PadString(label+":", 10)) + " " + ValueStyle.Render(value)
}

// RenderTable renders a simple table with headers and data. selectedRow < 0
// highlights nothing.
func RenderTable(headers []string, data [][]string, colWidths []int, selectedRow int) string {
	var b strings.Builder

	headerRow := ""
	for i, header := range headers {
		headerRow += TableHeaderStyle.Render(PadString(header, colWidths[i]))
		if i < len(headers)-1 {
			headerRow += " "
		}
	}
	b.WriteString(headerRow + "\n")

	separator := ""
	for i, width := range colWidths {
		separator += strings.Repeat("─", width+2)
		if i < len(colWidths)-1 {
			separator += "┼"
		}
	}
	b.WriteString(lipgloss.NewStyle().Foreground(MutedColor).Render(separator) + "\n")

	for rowIdx, row := range data {
		rowStr := ""
		for colIdx, cell := range row {
			cellContent := PadString(TruncateString(cell, colWidths[colIdx]), colWidths[colIdx])
			if rowIdx == selectedRow {
				rowStr += SelectedItemStyle.Render(cellContent)
			} else {
				rowStr += CellStyle.Render(cellContent)
			}
			if colIdx < len(row)-1 {
				rowStr += " "
			}
		}
		b.WriteString(rowStr + "\n")
	}

	return b.String()
}

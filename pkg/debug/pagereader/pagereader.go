package main

import (
	"eepromkv/pkg/debug/ui"
	"eepromkv/pkg/device"
	"eepromkv/pkg/eeprom"
	"eepromkv/pkg/primitives"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type pageKeyMap struct {
	ui.CommonKeyMap
	ui.NavigationKeyMap
}

// ShortHelp implements help.KeyMap.
func (k pageKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.NextPage, k.Back, k.Reload, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k pageKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back},
		{k.NextPage, k.PrevPage},
		{k.Reload, k.Help, k.Quit},
	}
}

var pageKeys = pageKeyMap{
	CommonKeyMap:     ui.CommonKeys,
	NavigationKeyMap: ui.NavigationKeys,
}

type pageModel struct {
	imagePath   primitives.Filepath
	geometry    eeprom.Geometry
	currentView string // "loading", "overview", "records"
	cursor      primitives.PageIndex
	pages       [primitives.NumPages]eeprom.PageView
	viewport    viewport.Model
	help        help.Model
	width       int
	height      int
	err         error
}

func initialPageModel(imagePath primitives.Filepath) pageModel {
	return pageModel{
		imagePath:   imagePath,
		geometry:    eeprom.DefaultGeometry(),
		currentView: "loading",
		viewport:    viewport.New(80, 20),
		help:        help.New(),
	}
}

func (m pageModel) Init() tea.Cmd {
	return loadImage(m.imagePath, m.geometry)
}

type imageLoadedMsg struct {
	pages [primitives.NumPages]eeprom.PageView
	err   error
}

// loadImage reads both pages of the image without running recovery, so a
// torn image is shown exactly as it is on disk.
func loadImage(path primitives.Filepath, geo eeprom.Geometry) tea.Cmd {
	return func() tea.Msg {
		if !path.Exists() {
			return imageLoadedMsg{err: fmt.Errorf("image %s does not exist", path)}
		}

		region, err := geo.Region()
		if err != nil {
			return imageLoadedMsg{err: err}
		}

		dev, err := device.OpenFileFlash(path, region)
		if err != nil {
			return imageLoadedMsg{err: err}
		}
		defer dev.Close()

		cfg := eeprom.DefaultConfig()
		cfg.Geometry = geo
		store, err := eeprom.New(dev, cfg)
		if err != nil {
			return imageLoadedMsg{err: err}
		}

		pages, err := store.Snapshot()
		return imageLoadedMsg{pages: pages, err: err}
	}
}

func (m pageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case imageLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.pages = msg.pages
		if m.currentView == "loading" {
			m.currentView = "overview"
		}
		m.viewport.SetContent(m.renderRecords())
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = max(msg.Height-12, 3)
		return m, nil

	case tea.KeyMsg:
		if m.err != nil {
			if key.Matches(msg, pageKeys.Quit) {
				return m, tea.Quit
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, pageKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, pageKeys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, pageKeys.Reload):
			return m, loadImage(m.imagePath, m.geometry)
		}

		switch m.currentView {
		case "overview":
			switch {
			case key.Matches(msg, pageKeys.Up), key.Matches(msg, pageKeys.PrevPage):
				m.cursor = primitives.Page0
			case key.Matches(msg, pageKeys.Down), key.Matches(msg, pageKeys.NextPage):
				m.cursor = primitives.Page1
			case key.Matches(msg, pageKeys.Select):
				m.currentView = "records"
				m.viewport.SetContent(m.renderRecords())
				m.viewport.GotoTop()
			}
			return m, nil

		case "records":
			switch {
			case key.Matches(msg, pageKeys.Back):
				m.currentView = "overview"
				return m, nil
			case key.Matches(msg, pageKeys.NextPage), key.Matches(msg, pageKeys.PrevPage):
				m.cursor = m.cursor.Other()
				m.viewport.SetContent(m.renderRecords())
				m.viewport.GotoTop()
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m pageModel) View() string {
	if m.err != nil {
		return ui.RenderError(m.err)
	}

	var b strings.Builder
	b.WriteString(ui.RenderTitle("💾", "EEPROM Page Reader") + "\n")

	switch m.currentView {
	case "loading":
		b.WriteString("Loading image...\n")
	case "overview":
		b.WriteString(m.renderOverview())
	case "records":
		view := m.pages[m.cursor]
		b.WriteString(ui.RenderHeaderWithCount(fmt.Sprintf("%s %s", view.Index, view.State), len(view.Records)) + "\n")
		b.WriteString(m.viewport.View() + "\n")
	}

	b.WriteString(m.renderStatusBar() + "\n")
	b.WriteString(ui.HelpStyle.Render(m.help.View(pageKeys)))
	return b.String()
}

func (m pageModel) renderOverview() string {
	panels := make([]string, 0, primitives.NumPages)
	for i, view := range m.pages {
		lines := []string{
			ui.RenderField("page", view.Index.String()),
			ui.RenderField("base", view.Base.String()),
			ui.RenderField("marker", fmt.Sprintf("0x%08X", uint32(view.Marker))),
			ui.RenderField("state", ui.StateStyle(view.State).Render(view.State.String())),
			ui.RenderField("records", fmt.Sprintf("%d/%d", len(view.Records), view.Capacity)),
			ui.RenderField("usage", ui.FillBar(len(view.Records), view.Capacity, 12)+" "+ui.Percent(len(view.Records), view.Capacity)),
		}

		if view.State == eeprom.StateActive {
			latest := view.Latest()
			lines = append(lines, "", ui.LabelStyle.Render("values:"))
			for _, id := range sortedIDs(latest) {
				lines = append(lines, ui.ItemStyle.Render(fmt.Sprintf("%s = %d", id, latest[id])))
			}
		}

		style := ui.PanelStyle
		if primitives.PageIndex(i) == m.cursor {
			style = style.BorderForeground(ui.PrimaryColor)
		}
		panels = append(panels, style.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panels...) + "\n"
}

func (m pageModel) renderRecords() string {
	view := m.pages[m.cursor]
	if len(view.Records) == 0 {
		return "No records on this page."
	}

	data := make([][]string, len(view.Records))
	for i, r := range view.Records {
		live := ""
		if isLastFor(view.Records, i) {
			live = "*"
		}
		data[i] = []string{
			fmt.Sprintf("%d", i),
			r.Address.String(),
			r.ID.String(),
			fmt.Sprintf("%d", r.Value),
			live,
		}
	}

	return ui.RenderTable(
		[]string{"slot", "address", "id", "value", "live"},
		data,
		[]int{4, 10, 10, 10, 4},
		-1,
	)
}

// isLastFor reports whether records[i] is the highest-addressed record for its id.
func isLastFor(records []eeprom.Record, i int) bool {
	for _, r := range records[i+1:] {
		if r.ID == records[i].ID {
			return false
		}
	}
	return true
}

func sortedIDs(values map[primitives.VariableID]uint32) []primitives.VariableID {
	ids := make([]primitives.VariableID, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (m pageModel) renderStatusBar() string {
	var status string
	switch m.currentView {
	case "overview":
		status = fmt.Sprintf(" Image: %s | Selected: %s | Page size: %d ", m.imagePath, m.cursor, m.geometry.PageSize)
	case "records":
		status = fmt.Sprintf(" %s | %d%% scrolled ", m.cursor, int(m.viewport.ScrollPercent()*100))
	default:
		status = " Loading... "
	}
	return ui.RenderStatusBar(status)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: pagereader <image-file>")
		os.Exit(1)
	}

	p := tea.NewProgram(
		initialPageModel(primitives.Filepath(os.Args[1])),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

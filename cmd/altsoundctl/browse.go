package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jsm174/libaltsound/internal/catalog"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

// categoryRow is one line of the browse view: a category and the
// samples declared under it.
type categoryRow struct {
	category catalog.Category
	samples  []*catalog.Sample
}

// catalogBrowseModel is a read-only Bubble Tea browser over a loaded
// Catalog, adapted from the teacher's device list browser.
type catalogBrowseModel struct {
	rows          []categoryRow
	selectedIndex int
	viewport      viewport.Model
	ready         bool
}

func newCatalogBrowseModel(cat *catalog.Catalog) catalogBrowseModel {
	byCategory := make(map[catalog.Category][]*catalog.Sample)
	for _, s := range cat.Samples() {
		byCategory[s.Category] = append(byCategory[s.Category], s)
	}

	var cats []catalog.Category
	for c := range byCategory {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	var rows []categoryRow
	for _, c := range cats {
		samples := byCategory[c]
		sort.Slice(samples, func(i, j int) bool { return samples[i].Command < samples[j].Command })
		rows = append(rows, categoryRow{category: c, samples: samples})
	}

	return catalogBrowseModel{rows: rows}
}

func (m catalogBrowseModel) Init() tea.Cmd { return nil }

func (m catalogBrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.viewport.SetContent(m.renderRows())

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if m.selectedIndex > 0 {
				m.selectedIndex--
				m.viewport.SetContent(m.renderRows())
			}
		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if m.selectedIndex < len(m.rows)-1 {
				m.selectedIndex++
				m.viewport.SetContent(m.renderRows())
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m catalogBrowseModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	title := titleStyle.Render("Catalog Browser")
	help := infoStyle.Render("↑/↓: Navigate • q: Quit")
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m catalogBrowseModel) renderRows() string {
	if len(m.rows) == 0 {
		return "No samples in catalog."
	}

	var sb strings.Builder
	for i, row := range m.rows {
		line := fmt.Sprintf("[%s] %d sample(s)\n", row.category, len(row.samples))
		for _, s := range row.samples {
			line += fmt.Sprintf("    cmd=0x%04X %s gain=%.2f loop=%v ducking=%s\n",
				s.Command, s.Path, s.DefaultGain, s.Loop, s.DuckingProfile)
		}
		if i == m.selectedIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func runBrowse(base, game string) error {
	cat, err := catalog.LoadFromGameDir(base, game)
	if err != nil {
		return err
	}

	p := tea.NewProgram(newCatalogBrowseModel(cat), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-dra/pkg/assessment"
	"github.com/dd0wney/cluso-dra/pkg/reliability"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginLeft(2).
			MarginTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#626262")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#04B575")).
			Padding(1, 2).
			MarginRight(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E06C75")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5C07B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7F7F7F")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	runsView view = iota
	markovView
	faultTreeView
	hybridView
	warningsView
	viewCount
)

var tabNames = []string{"Runs", "Markov", "Fault tree", "Hybrid", "Warnings"}

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Reload   key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open run"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Reload, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Tab, k.ShiftTab, k.Enter}, {k.Reload, k.Quit}}
}

type model struct {
	ctx         context.Context
	src         source
	runKeys     []string
	runs        table.Model
	skills      table.Model
	current     *assessment.Assessment
	currentKey  string
	currentView view
	help        help.Model
	width       int
	message     string
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#5FAFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#7D56F4")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func initialModel(ctx context.Context, src source) (model, error) {
	m := model{
		ctx:  ctx,
		src:  src,
		runs: newTable([]table.Column{{Title: "Run", Width: 44}}),
		skills: newTable([]table.Column{
			{Title: "Skill", Width: 20},
			{Title: "P(failure)", Width: 12},
			{Title: "Rank", Width: 6},
			{Title: "Influence", Width: 12},
		}),
		help: help.New(),
	}
	if err := m.reload(); err != nil {
		return m, err
	}
	if len(m.runKeys) == 1 {
		m.open(m.runKeys[0])
	}
	return m, nil
}

func (m *model) reload() error {
	ks, err := m.src.Keys(m.ctx)
	if err != nil {
		return err
	}
	m.runKeys = ks
	rows := make([]table.Row, len(ks))
	for i, k := range ks {
		rows[i] = table.Row{k}
	}
	m.runs.SetRows(rows)
	if m.currentKey != "" {
		m.open(m.currentKey)
	}
	return nil
}

func (m *model) open(name string) {
	a, err := m.src.Load(m.ctx, name)
	if err != nil {
		m.message = err.Error()
		return
	}
	m.current = a
	m.currentKey = name
	m.message = ""
	if m.currentView == runsView {
		switch {
		case a.Markov != nil:
			m.currentView = markovView
		case a.FaultTree != nil:
			m.currentView = faultTreeView
		default:
			m.currentView = hybridView
		}
	}
	m.refreshSkills()
}

func (m *model) report() *reliability.Report {
	if m.current == nil {
		return nil
	}
	switch m.currentView {
	case markovView:
		return m.current.Markov
	case faultTreeView:
		return m.current.FaultTree
	case hybridView:
		return m.current.Hybrid
	}
	return nil
}

func (m *model) refreshSkills() {
	m.skills.SetRows(skillRows(m.report()))
}

// skillRows lists every skill with its failure probability and rank,
// most influential first. Ranked parameters without a per-skill value
// (robot components of a hybrid model) are listed too.
func skillRows(r *reliability.Report) []table.Row {
	if r == nil {
		return nil
	}
	rank := make(map[string]int, len(r.Sensitivity))
	score := make(map[string]float64, len(r.Sensitivity))
	for i, imp := range r.Sensitivity {
		rank[imp.Component] = i + 1
		score[imp.Component] = imp.Score
	}

	labels := make([]string, 0, len(r.PerSkill))
	for l := range r.PerSkill {
		labels = append(labels, l)
	}
	for _, imp := range r.Sensitivity {
		if _, ok := r.PerSkill[imp.Component]; !ok {
			labels = append(labels, imp.Component)
		}
	}
	sort.Slice(labels, func(i, j int) bool {
		ri, oki := rank[labels[i]]
		rj, okj := rank[labels[j]]
		if oki != okj {
			return oki
		}
		if ri != rj {
			return ri < rj
		}
		return labels[i] < labels[j]
	})

	rows := make([]table.Row, len(labels))
	for i, l := range labels {
		row := table.Row{l, "-", "-", "-"}
		if p, ok := r.PerSkill[l]; ok {
			row[1] = fmt.Sprintf("%.6f", p)
		}
		if n, ok := rank[l]; ok {
			row[2] = fmt.Sprintf("%d", n)
			row[3] = fmt.Sprintf("%.6f", score[l])
		}
		rows[i] = row
	}
	return rows
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Tab):
			m.currentView = (m.currentView + 1) % viewCount
			m.refreshSkills()
			return m, nil

		case key.Matches(msg, keys.ShiftTab):
			m.currentView = (m.currentView + viewCount - 1) % viewCount
			m.refreshSkills()
			return m, nil

		case key.Matches(msg, keys.Reload):
			if err := m.reload(); err != nil {
				m.message = err.Error()
			}
			return m, nil

		case key.Matches(msg, keys.Enter):
			if m.currentView == runsView && len(m.runKeys) > 0 {
				m.open(m.runKeys[m.runs.Cursor()])
				return m, nil
			}
		}
	}

	switch m.currentView {
	case runsView:
		m.runs, cmd = m.runs.Update(msg)
	case markovView, faultTreeView, hybridView:
		m.skills, cmd = m.skills.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Dynamic Reliability Assessment"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n")

	var body string
	switch m.currentView {
	case runsView:
		body = m.runs.View()
	case markovView, faultTreeView, hybridView:
		body = m.renderReport()
	case warningsView:
		body = m.renderWarnings()
	}
	s.WriteString(contentStyle.Render(body))

	if m.message != "" {
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render("✗ " + m.message))
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(keys.ShortHelp())))
	return s.String()
}

func (m model) renderTabs() string {
	rendered := make([]string, len(tabNames))
	for i, name := range tabNames {
		if view(i) == m.currentView {
			rendered[i] = activeTabStyle.Render(name)
		} else {
			rendered[i] = inactiveTabStyle.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m model) renderReport() string {
	if m.current == nil {
		return "No run selected"
	}
	r := m.report()
	if r == nil {
		return "This run did not solve the " + tabNames[m.currentView] + " model"
	}

	stats := fmt.Sprintf("Run        %s\nGenerated  %s\nP(failure) %.6f",
		m.current.RunID, m.current.GeneratedAt.Format("2006-01-02 15:04:05"), r.Overall)
	if r.Strategy != "" {
		stats += fmt.Sprintf("\nStrategy   %s", r.Strategy)
	}
	if r.Iterations > 0 {
		stats += fmt.Sprintf("\nIterations %d", r.Iterations)
	}
	if len(r.Gates) > 0 {
		stats += fmt.Sprintf("\nGates      %d", len(r.Gates))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, statsBoxStyle.Render(stats), m.skills.View())
}

func (m model) renderWarnings() string {
	if m.current == nil {
		return "No run selected"
	}
	if len(m.current.Warnings) == 0 {
		return "No warnings"
	}
	lines := make([]string, len(m.current.Warnings))
	for i, w := range m.current.Warnings {
		lines[i] = warnStyle.Render(fmt.Sprintf("%s  %s", w.Code, w.Message))
	}
	return strings.Join(lines, "\n")
}

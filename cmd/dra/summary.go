package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-dra/pkg/assessment"
	"github.com/dd0wney/cluso-dra/pkg/reliability"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5FAFFF")).
			Padding(0, 1).
			MarginRight(2)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7F7F7F"))

	highStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E06C75")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5C07B"))
)

// topN is how many sensitivity entries the summary shows
const topN = 5

func renderSummary(a *assessment.Assessment) string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Dynamic Reliability Assessment"))
	s.WriteString("\n")
	s.WriteString(labelStyle.Render(fmt.Sprintf("run %s  %d instances  %d skills",
		a.RunID, a.Instances, len(a.Skills))))
	s.WriteString("\n\n")

	var boxes []string
	for _, r := range a.Reports() {
		boxes = append(boxes, boxStyle.Render(renderReport(r)))
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))

	if len(a.Warnings) > 0 {
		s.WriteString("\n")
		for _, w := range a.Warnings {
			s.WriteString(warnStyle.Render(fmt.Sprintf("! %s %s", w.Code, w.Message)))
			s.WriteString("\n")
		}
	}
	return s.String()
}

func renderReport(r *reliability.Report) string {
	var s strings.Builder
	title := string(r.Model)
	if r.Strategy != "" {
		title += " (" + r.Strategy + ")"
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("P(failure)"), formatProbability(r.Overall)))

	s.WriteString(labelStyle.Render("per skill"))
	s.WriteString("\n")
	labels := make([]string, 0, len(r.PerSkill))
	for l := range r.PerSkill {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		s.WriteString(fmt.Sprintf("  %-12s %s\n", l, formatProbability(r.PerSkill[l])))
	}

	s.WriteString(labelStyle.Render("influence"))
	for i, imp := range r.Top(topN) {
		s.WriteString(fmt.Sprintf("\n  %d. %-12s %.4f", i+1, imp.Component, imp.Score))
	}
	return s.String()
}

func formatProbability(p float64) string {
	text := fmt.Sprintf("%.4f", p)
	if p >= 0.5 {
		return highStyle.Render(text)
	}
	return text
}

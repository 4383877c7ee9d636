package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rezkam/atlas/internal/application/cycle"
	"github.com/rezkam/atlas/internal/domain"
	"github.com/rezkam/atlas/internal/flow"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0")).Width(14)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	healthColors = map[string]lipgloss.Color{
		"green":  lipgloss.Color("#4CAF50"),
		"orange": lipgloss.Color("#F7B801"),
		"red":    lipgloss.Color("#FF6B6B"),
	}
)

var reportStatuses = []domain.TaskStatus{
	domain.TaskStatusOpen,
	domain.TaskStatusWorking,
	domain.TaskStatusPendingReview,
	domain.TaskStatusCompleted,
	domain.TaskStatusCancelled,
}

func healthStyle(h flow.Health) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(healthColors[h.Color()])
}

func row(label string, value any) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), fmt.Sprint(value))
}

func renderMetrics(p *domain.Project, r *flow.Result) string {
	lines := []string{
		titleStyle.Render(p.Name) + " " + mutedStyle.Render(string(p.ExecutionMode)),
		"",
		row("Health", healthStyle(r.Health).Render(string(r.Health))),
		row("Efficiency", fmt.Sprintf("%d%%", r.Efficiency)),
		row("In progress", r.InProgress),
		row("Open", r.Open),
		row("Backlog", r.Backlog),
		row("Stale", r.Stale),
		"",
		r.Message,
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func renderReport(r *cycle.Report) string {
	lines := []string{
		titleStyle.Render(r.CycleName) + " " + mutedStyle.Render(r.CycleID),
		"",
		row("Project", r.ProjectID),
		row("Window", window(r.StartDate, r.EndDate)),
		row("Completed", r.CompletedAt.Format(time.RFC3339)),
	}
	for _, s := range reportStatuses {
		if n := r.TaskCounts[s]; n > 0 {
			lines = append(lines, row(string(s), n))
		}
	}
	moved := fmt.Sprint(r.MovedTasks)
	if r.MovedTo != nil {
		moved += " to " + *r.MovedTo
	}
	lines = append(lines,
		row("Moved", moved),
		row("Health", healthStyle(r.Flow.Health).Render(string(r.Flow.Health))),
		row("Efficiency", fmt.Sprintf("%d%%", r.Flow.Efficiency)),
	)
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func renderReportList(reports []*cycle.Report) string {
	if len(reports) == 0 {
		return mutedStyle.Render("no reports archived")
	}
	lines := make([]string, 0, len(reports))
	for _, r := range reports {
		lines = append(lines, fmt.Sprintf("%s  %-24s %s  %s",
			r.CompletedAt.Format(time.DateOnly),
			r.CycleName,
			healthStyle(r.Flow.Health).Render(fmt.Sprintf("%-9s", r.Flow.Health)),
			mutedStyle.Render(r.CycleID),
		))
	}
	return strings.Join(lines, "\n")
}

func window(start, end *time.Time) string {
	format := func(t *time.Time) string {
		if t == nil {
			return "?"
		}
		return t.Format(time.DateOnly)
	}
	if start == nil && end == nil {
		return "unscheduled"
	}
	return format(start) + " .. " + format(end)
}

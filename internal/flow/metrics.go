// Package flow computes project flow efficiency and backlog health from a
// snapshot of task state. Everything here is pure; callers supply the clock.
package flow

import (
	"math"
	"time"

	"github.com/rezkam/atlas/internal/domain"
)

// StaleAfter is how long a backlog task may go untouched before it counts as stale.
const StaleAfter = 14 * 24 * time.Hour

// Health is the backlog health label.
type Health string

const (
	HealthOptimized Health = "Optimized"
	HealthAtRisk    Health = "AtRisk"
	HealthUnhealthy Health = "Unhealthy"
)

// Color is the display colour paired with each health label.
func (h Health) Color() string {
	switch h {
	case HealthOptimized:
		return "green"
	case HealthAtRisk:
		return "orange"
	default:
		return "red"
	}
}

// lowEfficiency is the threshold below which flow counts as stalled.
const lowEfficiency = 40

type messageKey struct {
	health Health
	low    bool
}

// messages is keyed by health and whether efficiency is below lowEfficiency.
// Optimized never co-occurs with low efficiency because of the downgrade rule.
var messages = map[messageKey]string{
	{HealthOptimized, false}: "Backlog is lean and work is flowing.",
	{HealthAtRisk, true}:     "Too much work is waiting. Pull open tasks into progress.",
	{HealthAtRisk, false}:    "Backlog is growing or going stale. Groom it soon.",
	{HealthUnhealthy, true}:  "Backlog is overloaded and little is in progress. Re-plan the project.",
	{HealthUnhealthy, false}: "Backlog is overloaded or stale. Prune or archive old tasks.",
}

// TaskSnapshot is the subset of task state the metrics depend on.
type TaskSnapshot struct {
	Status    domain.TaskStatus
	CycleID   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SnapshotOf extracts the metric-relevant fields of a task.
func SnapshotOf(t domain.Task) TaskSnapshot {
	return TaskSnapshot{
		Status:    t.Status,
		CycleID:   t.CycleID,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// Result is the computed flow report for one project.
type Result struct {
	Efficiency int    `json:"efficiency"`
	Health     Health `json:"health"`
	Message    string `json:"message"`
	Color      string `json:"color"`

	InProgress int `json:"in_progress"`
	Open       int `json:"open"`
	Backlog    int `json:"backlog"`
	Stale      int `json:"stale"`
}

// Compute derives efficiency and backlog health.
//
// Efficiency is the share of active work (Working, Pending Review) among
// active plus open work, 100 when there is none. The backlog is every Open
// task, or under Scrum only Open tasks outside any cycle.
func Compute(tasks []TaskSnapshot, mode domain.ExecutionMode, now time.Time) Result {
	var res Result
	cutoff := now.Add(-StaleAfter)

	for _, t := range tasks {
		switch {
		case t.Status.IsInProgress():
			res.InProgress++
		case t.Status == domain.TaskStatusOpen:
			res.Open++
			if mode == domain.ExecutionModeScrum && t.CycleID != nil {
				continue
			}
			res.Backlog++
			if lastTouched(t).Before(cutoff) {
				res.Stale++
			}
		}
	}

	res.Efficiency = 100
	if total := res.InProgress + res.Open; total > 0 {
		res.Efficiency = int(math.Round(100 * float64(res.InProgress) / float64(total)))
	}

	res.Health = classify(res.Backlog, res.Stale)
	low := res.Efficiency < lowEfficiency
	if low && res.Health == HealthOptimized {
		res.Health = HealthAtRisk
	}

	res.Message = messages[messageKey{res.Health, low}]
	res.Color = res.Health.Color()
	return res
}

func classify(backlog, stale int) Health {
	if backlog == 0 {
		return HealthOptimized
	}
	ratio := float64(stale) / float64(backlog)
	switch {
	case backlog <= 10 && ratio < 0.3:
		return HealthOptimized
	case backlog <= 25 && ratio < 0.6:
		return HealthAtRisk
	default:
		return HealthUnhealthy
	}
}

func lastTouched(t TaskSnapshot) time.Time {
	if t.UpdatedAt.IsZero() {
		return t.CreatedAt
	}
	return t.UpdatedAt
}

package flow

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rezkam/atlas/internal/domain"
	"github.com/rezkam/atlas/internal/ptr"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func tasks(n int, status domain.TaskStatus, touched time.Time) []TaskSnapshot {
	out := make([]TaskSnapshot, n)
	for i := range out {
		out[i] = TaskSnapshot{Status: status, CreatedAt: touched, UpdatedAt: touched}
	}
	return out
}

func TestCompute_EmptyProject(t *testing.T) {
	res := Compute(nil, domain.ExecutionModeKanban, now)

	assert.Equal(t, 100, res.Efficiency)
	assert.Equal(t, HealthOptimized, res.Health)
	assert.Equal(t, "green", res.Color)
	assert.NotEmpty(t, res.Message)
}

func TestCompute_AllOpenDowngradesToAtRisk(t *testing.T) {
	res := Compute(tasks(10, domain.TaskStatusOpen, now), domain.ExecutionModeKanban, now)

	assert.Equal(t, 0, res.Efficiency)
	assert.Equal(t, 10, res.Backlog)
	assert.Equal(t, 0, res.Stale)
	assert.Equal(t, HealthAtRisk, res.Health)
	assert.Equal(t, "AtRisk", string(res.Health))
	assert.Equal(t, "orange", res.Color)
	assert.Equal(t, messages[messageKey{HealthAtRisk, true}], res.Message)
}

func TestCompute_HalfInProgress(t *testing.T) {
	snapshot := append(tasks(5, domain.TaskStatusWorking, now), tasks(5, domain.TaskStatusOpen, now)...)
	res := Compute(snapshot, domain.ExecutionModeKanban, now)

	assert.Equal(t, 50, res.Efficiency)
	assert.Equal(t, 5, res.Backlog)
	assert.Equal(t, HealthOptimized, res.Health)
}

func TestCompute_PendingReviewCountsAsInProgress(t *testing.T) {
	snapshot := append(tasks(2, domain.TaskStatusPendingReview, now), tasks(1, domain.TaskStatusOpen, now)...)
	res := Compute(snapshot, domain.ExecutionModeKanban, now)

	assert.Equal(t, 2, res.InProgress)
	assert.Equal(t, 67, res.Efficiency)
}

func TestCompute_FinishedTasksAreIgnored(t *testing.T) {
	snapshot := append(tasks(3, domain.TaskStatusCompleted, now), tasks(3, domain.TaskStatusCancelled, now)...)
	res := Compute(snapshot, domain.ExecutionModeKanban, now)

	assert.Equal(t, 100, res.Efficiency)
	assert.Equal(t, 0, res.Backlog)
}

func TestCompute_ScrumBacklogExcludesCycleTasks(t *testing.T) {
	inCycle := tasks(4, domain.TaskStatusOpen, now)
	for i := range inCycle {
		inCycle[i].CycleID = ptr.To("cycle-1")
	}
	snapshot := append(inCycle, tasks(2, domain.TaskStatusOpen, now)...)
	snapshot = append(snapshot, tasks(6, domain.TaskStatusWorking, now)...)

	scrum := Compute(snapshot, domain.ExecutionModeScrum, now)
	assert.Equal(t, 2, scrum.Backlog)
	assert.Equal(t, 6, scrum.Open)
	assert.Equal(t, 50, scrum.Efficiency)

	kanban := Compute(snapshot, domain.ExecutionModeKanban, now)
	assert.Equal(t, 6, kanban.Backlog)
}

func TestCompute_StaleUsesModifiedThenCreated(t *testing.T) {
	old := now.Add(-15 * 24 * time.Hour)
	fresh := now.Add(-13 * 24 * time.Hour)

	snapshot := []TaskSnapshot{
		{Status: domain.TaskStatusOpen, CreatedAt: old},                   // stale via created
		{Status: domain.TaskStatusOpen, CreatedAt: old, UpdatedAt: fresh}, // touched recently
		{Status: domain.TaskStatusWorking, CreatedAt: old},
	}
	res := Compute(snapshot, domain.ExecutionModeKanban, now)

	assert.Equal(t, 1, res.Stale)
	assert.Equal(t, 2, res.Backlog)
}

func TestCompute_HealthThresholds(t *testing.T) {
	old := now.Add(-30 * 24 * time.Hour)

	tests := []struct {
		name   string
		fresh  int
		stale  int
		active int
		want   Health
	}{
		{"small and fresh", 10, 0, 10, HealthOptimized},
		{"small but 30 percent stale", 7, 3, 10, HealthAtRisk},
		{"eleven tasks", 11, 0, 11, HealthAtRisk},
		{"25 tasks just under 60 percent stale", 11, 14, 25, HealthAtRisk},
		{"25 tasks at 60 percent stale", 10, 15, 25, HealthUnhealthy},
		{"26 fresh tasks", 26, 0, 26, HealthUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := tasks(tt.fresh, domain.TaskStatusOpen, now)
			snapshot = append(snapshot, tasks(tt.stale, domain.TaskStatusOpen, old)...)
			snapshot = append(snapshot, tasks(tt.active, domain.TaskStatusWorking, now)...)

			res := Compute(snapshot, domain.ExecutionModeKanban, now)
			assert.Equal(t, tt.want, res.Health)
			assert.Equal(t, tt.want.Color(), res.Color)
		})
	}
}

// Every reachable (health, low efficiency) pair has a message.
func TestCompute_MessageAlwaysPresent(t *testing.T) {
	for open := 0; open <= 30; open += 3 {
		for active := 0; active <= 30; active += 5 {
			t.Run(fmt.Sprintf("open=%d active=%d", open, active), func(t *testing.T) {
				snapshot := append(tasks(open, domain.TaskStatusOpen, now), tasks(active, domain.TaskStatusWorking, now)...)
				res := Compute(snapshot, domain.ExecutionModeKanban, now)

				assert.NotEmpty(t, res.Message)
				assert.GreaterOrEqual(t, res.Efficiency, 0)
				assert.LessOrEqual(t, res.Efficiency, 100)
				if res.Efficiency < lowEfficiency {
					assert.NotEqual(t, HealthOptimized, res.Health)
				}
			})
		}
	}
}

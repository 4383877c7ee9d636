package cycle

import (
	"time"

	"github.com/rezkam/atlas/internal/domain"
	"github.com/rezkam/atlas/internal/flow"
)

// Report summarizes a cycle at the moment it completed.
type Report struct {
	CycleID     string                    `json:"cycle_id"`
	ProjectID   string                    `json:"project_id"`
	CycleName   string                    `json:"cycle_name"`
	StartDate   *time.Time                `json:"start_date,omitempty"`
	EndDate     *time.Time                `json:"end_date,omitempty"`
	CompletedAt time.Time                 `json:"completed_at"`
	TaskCounts  map[domain.TaskStatus]int `json:"task_counts"`
	MovedTasks  int                       `json:"moved_tasks"`
	MovedTo     *string                   `json:"moved_to,omitempty"`
	Flow        flow.Result               `json:"flow"`
}

package handler

import (
	"time"

	"github.com/rezkam/atlas/internal/domain"
)

// ProjectDTO is the wire form of a project.
type ProjectDTO struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ExecutionMode string    `json:"execution_mode"`
	Owner         string    `json:"owner"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MemberDTO is one project member.
type MemberDTO struct {
	UserID  string    `json:"user_id"`
	Role    string    `json:"role"`
	AddedAt time.Time `json:"added_at"`
}

// CycleDTO is the wire form of a cycle.
type CycleDTO struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	Name          string    `json:"name"`
	Sequence      int       `json:"sequence"`
	Status        string    `json:"status"`
	StartDate     *Date     `json:"start_date"`
	EndDate       *Date     `json:"end_date"`
	ActualEndDate *Date     `json:"actual_end_date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TaskDTO is the wire form of a task.
type TaskDTO struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	Weight       float64   `json:"weight"`
	Origin       string    `json:"origin"`
	ProjectID    *string   `json:"project_id"`
	ParentTaskID *string   `json:"parent_task_id"`
	Type         *string   `json:"type"`
	CycleID      *string   `json:"cycle_id"`
	IsGroup      bool      `json:"is_group"`
	Owner        string    `json:"owner"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AssignmentDTO is the wire form of an assignment.
type AssignmentDTO struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	AllocatedTo string    `json:"allocated_to"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RelationshipDTO is the wire form of a task link.
type RelationshipDTO struct {
	ID           string    `json:"id"`
	SourceTaskID string    `json:"source_task_id"`
	TargetTaskID string    `json:"target_task_id"`
	Type         string    `json:"type"`
	IsReverse    bool      `json:"is_reverse"`
	CreatedAt    time.Time `json:"created_at"`
}

// TaskTypeDTO is the wire form of a task type.
type TaskTypeDTO struct {
	ID                string   `json:"id"`
	Description       string   `json:"description"`
	IsContainer       bool     `json:"is_container"`
	AllowedChildTypes []string `json:"allowed_child_types"`
}

// CycleTemplateDTO is the wire form of a cycle template.
type CycleTemplateDTO struct {
	Name         string `json:"name"`
	DurationDays int    `json:"duration_days"`
	Count        int    `json:"count"`
}

// UserDTO is the wire form of a user.
type UserDTO struct {
	ID       string   `json:"id"`
	FullName string   `json:"full_name"`
	Roles    []string `json:"roles"`
}

// SearchHitDTO is one global search hit.
type SearchHitDTO struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Title string `json:"title"`
}

// DraftSessionDTO is the wire form of a drafting session.
type DraftSessionDTO struct {
	ID            string         `json:"id"`
	ProjectID     string         `json:"project_id"`
	CycleID       *string        `json:"cycle_id"`
	ExecutionMode string         `json:"execution_mode"`
	Prompt        string         `json:"prompt"`
	Status        string         `json:"status"`
	BlockedReason string         `json:"blocked_reason,omitempty"`
	Intents       []string       `json:"intents"`
	CreatedBy     string         `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Drafts        []TaskDraftDTO `json:"drafts"`
}

// TaskDraftDTO is one proposed task.
type TaskDraftDTO struct {
	ID               string   `json:"id"`
	Subject          string   `json:"subject"`
	Priority         string   `json:"priority"`
	Weight           float64  `json:"weight"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	ValidationErrors []string `json:"validation_errors"`
	Status           string   `json:"status"`
	TaskID           *string  `json:"task_id"`
}

func projectDTO(p *domain.Project) ProjectDTO {
	return ProjectDTO{
		ID:            p.ID,
		Name:          p.Name,
		ExecutionMode: string(p.ExecutionMode),
		Owner:         p.Owner,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func memberDTOs(members []domain.ProjectMember) []MemberDTO {
	out := make([]MemberDTO, 0, len(members))
	for _, m := range members {
		out = append(out, MemberDTO{UserID: m.UserID, Role: m.Role, AddedAt: m.AddedAt})
	}
	return out
}

func cycleDTO(c *domain.Cycle) CycleDTO {
	return CycleDTO{
		ID:            c.ID,
		ProjectID:     c.ProjectID,
		Name:          c.Name,
		Sequence:      c.Sequence,
		Status:        string(c.Status),
		StartDate:     datePtr(c.StartDate),
		EndDate:       datePtr(c.EndDate),
		ActualEndDate: datePtr(c.ActualEndDate),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func cycleDTOs(cycles []domain.Cycle) []CycleDTO {
	out := make([]CycleDTO, 0, len(cycles))
	for i := range cycles {
		out = append(out, cycleDTO(&cycles[i]))
	}
	return out
}

func taskDTO(t *domain.Task) TaskDTO {
	return TaskDTO{
		ID:           t.ID,
		Subject:      t.Subject,
		Status:       string(t.Status),
		Priority:     string(t.Priority),
		Weight:       t.Weight,
		Origin:       string(t.Origin),
		ProjectID:    t.ProjectID,
		ParentTaskID: t.ParentTaskID,
		Type:         t.TypeID,
		CycleID:      t.CycleID,
		IsGroup:      t.IsGroup,
		Owner:        t.Owner,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func assignmentDTO(a *domain.Assignment) AssignmentDTO {
	return AssignmentDTO{
		ID:          a.ID,
		TaskID:      a.TaskID,
		AllocatedTo: a.AllocatedTo,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func relationshipDTO(r *domain.Relationship) RelationshipDTO {
	return RelationshipDTO{
		ID:           r.ID,
		SourceTaskID: r.SourceTaskID,
		TargetTaskID: r.TargetTaskID,
		Type:         string(r.Type),
		IsReverse:    r.IsReverse,
		CreatedAt:    r.CreatedAt,
	}
}

func taskTypeDTO(t *domain.TaskType) TaskTypeDTO {
	allowed := t.AllowedChildTypes
	if allowed == nil {
		allowed = []string{}
	}
	return TaskTypeDTO{
		ID:                t.ID,
		Description:       t.Description,
		IsContainer:       t.IsContainer,
		AllowedChildTypes: allowed,
	}
}

func draftSessionDTO(s *domain.DraftSession) DraftSessionDTO {
	intents := s.Intents
	if intents == nil {
		intents = []string{}
	}
	drafts := make([]TaskDraftDTO, 0, len(s.Drafts))
	for _, d := range s.Drafts {
		errs := d.ValidationErrors
		if errs == nil {
			errs = []string{}
		}
		drafts = append(drafts, TaskDraftDTO{
			ID:               d.ID,
			Subject:          d.Subject,
			Priority:         string(d.Priority),
			Weight:           d.Weight,
			Confidence:       d.Confidence,
			Reasoning:        d.Reasoning,
			ValidationErrors: errs,
			Status:           string(d.Status),
			TaskID:           d.TaskID,
		})
	}
	return DraftSessionDTO{
		ID:            s.ID,
		ProjectID:     s.ProjectID,
		CycleID:       s.CycleID,
		ExecutionMode: string(s.ExecutionMode),
		Prompt:        s.Prompt,
		Status:        string(s.Status),
		BlockedReason: s.BlockedReason,
		Intents:       intents,
		CreatedBy:     s.CreatedBy,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		Drafts:        drafts,
	}
}

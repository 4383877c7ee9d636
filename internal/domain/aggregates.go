package domain

import (
	"time"
)

// User is a principal that owns, is assigned to, or is a member of work.
type User struct {
	ID       string
	FullName string
	Roles    []string
}

// TaskType describes one kind of task and which kinds it may contain.
// Referenced, never mutated, by hierarchy validation.
type TaskType struct {
	ID          string
	Description string
	IsContainer bool

	// AllowedChildTypes restricts children when non-empty.
	// Empty means any type may be a child (subject to IsContainer).
	AllowedChildTypes []string
}

// AllowsChild reports whether a task of childType may sit under this type.
// Only meaningful when IsContainer is true.
func (t *TaskType) AllowsChild(childType string) bool {
	if len(t.AllowedChildTypes) == 0 {
		return true
	}
	for _, allowed := range t.AllowedChildTypes {
		if allowed == childType {
			return true
		}
	}
	return false
}

// Project is an aggregate root grouping tasks and cycles.
type Project struct {
	ID            string
	Name          string
	ExecutionMode ExecutionMode
	Owner         string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// CycleSequence is the number of cycles ever created for the project.
	// The next cycle is numbered CycleSequence+1; numbers are never reused.
	CycleSequence int
}

// ProjectMember links a user to a project.
type ProjectMember struct {
	ProjectID string
	UserID    string
	Role      string
	AddedAt   time.Time
}

// Task is a unit of work, optionally nested under a parent task and placed in a cycle.
type Task struct {
	ID       string
	Subject  string
	Status   TaskStatus
	Priority TaskPriority
	Weight   float64
	Origin   TaskOrigin

	ProjectID    *string
	ParentTaskID *string
	TypeID       *string
	CycleID      *string

	// IsGroup mirrors the task type's IsContainer and is recomputed on every save.
	IsGroup bool

	Owner     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LastTouched returns the modification time, falling back to creation time.
func (t *Task) LastTouched() time.Time {
	if t.UpdatedAt.IsZero() {
		return t.CreatedAt
	}
	return t.UpdatedAt
}

// Cycle is a time-boxed iteration of a Scrum project.
type Cycle struct {
	ID            string
	ProjectID     string
	Name          string
	Sequence      int
	Status        CycleStatus
	StartDate     *time.Time
	EndDate       *time.Time
	ActualEndDate *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CycleTemplate describes a repeating series of cycles.
type CycleTemplate struct {
	Name         string
	DurationDays int
	Count        int
}

// Assignment allocates a task to a user.
type Assignment struct {
	ID          string
	TaskID      string
	AllocatedTo string
	Status      AssignmentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Relationship links two tasks.
type Relationship struct {
	ID           string
	SourceTaskID string
	TargetTaskID string
	Type         RelationType
	IsReverse    bool
	CreatedAt    time.Time
}

// DraftSession is one run of the AI drafting pipeline for a project.
type DraftSession struct {
	ID            string
	ProjectID     string
	CycleID       *string
	ExecutionMode ExecutionMode
	Prompt        string
	Status        DraftSessionStatus
	BlockedReason string
	Intents       []string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Drafts []TaskDraft
}

// TaskDraft is a proposed task awaiting human review.
type TaskDraft struct {
	ID               string
	SessionID        string
	Subject          string
	Priority         TaskPriority
	Weight           float64
	Confidence       float64
	Reasoning        string
	ValidationErrors []string
	Status           DraftStatus
	TaskID           *string
	CreatedAt        time.Time
}

// IsValid reports whether the draft passed validation.
func (d *TaskDraft) IsValid() bool {
	return len(d.ValidationErrors) == 0
}

// APIKey is an aggregate root representing an API key for authentication.
//
// Keys act on behalf of UserID; every request authenticated with the key is
// evaluated against that user's roles and memberships.
type APIKey struct {
	ID             string
	UserID         string
	KeyType        string // "sk" = secret key, "pk" = public key
	Service        string // Service name (e.g., "atlas")
	Version        string // API version (e.g., "v1")
	ShortToken     string // Indexed portion for fast lookup
	LongSecretHash string // BLAKE2b-256 hash of long secret
	Name           string // Human-readable name/description
	IsActive       bool
	CreatedAt      time.Time
	LastUsedAt     *time.Time
	ExpiresAt      *time.Time
}

// Package cycle implements the cycle lifecycle of Scrum projects:
// Planned -> Active -> Completed, with at most one Active cycle per project.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/domain"
	"github.com/rezkam/atlas/internal/flow"
)

const instrumentationName = "github.com/rezkam/atlas/internal/application/cycle"

// Service provides the cycle lifecycle operations.
type Service struct {
	repo        Repository
	reports     ReportSink
	now         func() time.Time
	transitions metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new cycle service.
// reports may be nil, in which case completed cycles are not archived.
func NewService(repo Repository, reports ReportSink, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		reports: reports,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	counter, err := otel.Meter(instrumentationName).Int64Counter("atlas.cycle.transitions",
		metric.WithDescription("Cycle lifecycle transitions"),
		metric.WithUnit("{transition}"))
	if err != nil {
		slog.Warn("failed to create cycle transition counter", "error", err)
	}
	s.transitions = counter

	return s
}

// CreateInput carries optional fields for a new cycle.
type CreateInput struct {
	StartDate *time.Time
	EndDate   *time.Time
}

// Create adds a Planned cycle to a Scrum project, named "{project} - {N}".
// Returns domain.ErrUnsupportedExecutionMode for Kanban projects.
func (s *Service) Create(ctx context.Context, user access.User, projectID string, in CreateInput) (*domain.Cycle, error) {
	if _, err := s.repo.FindVisibleProject(ctx, access.Projects(user), projectID); err != nil {
		return nil, err
	}

	var created *domain.Cycle
	err := s.repo.AtomicCycle(ctx, func(repo Repository) error {
		c, err := s.createInTx(ctx, repo, projectID, in.StartDate, in.EndDate)
		if err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, "", domain.CycleStatusPlanned)
	slog.InfoContext(ctx, "cycle created",
		"cycle_id", created.ID,
		"project_id", projectID,
		"name", created.Name)
	return created, nil
}

// CreateFromTemplate creates template.Count back-to-back Planned cycles of
// template.DurationDays each. The series starts at start, or the day after
// the latest cycle ends, or today.
func (s *Service) CreateFromTemplate(ctx context.Context, user access.User, projectID, templateName string, start *time.Time) ([]domain.Cycle, error) {
	if _, err := s.repo.FindVisibleProject(ctx, access.Projects(user), projectID); err != nil {
		return nil, err
	}

	tmpl, err := s.repo.FindCycleTemplate(ctx, templateName)
	if err != nil {
		return nil, err
	}
	if tmpl.DurationDays <= 0 || tmpl.Count <= 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidTemplate, tmpl.Name)
	}

	var created []domain.Cycle
	err = s.repo.AtomicCycle(ctx, func(repo Repository) error {
		from := dateOnly(s.now())
		if start != nil {
			from = dateOnly(*start)
		} else {
			latest, err := repo.FindLatestCycle(ctx, projectID)
			if err != nil {
				return err
			}
			if latest != nil && latest.EndDate != nil {
				from = latest.EndDate.AddDate(0, 0, 1)
			}
		}

		for i := 0; i < tmpl.Count; i++ {
			startDate := from.AddDate(0, 0, i*tmpl.DurationDays)
			endDate := startDate.AddDate(0, 0, tmpl.DurationDays-1)
			c, err := s.createInTx(ctx, repo, projectID, &startDate, &endDate)
			if err != nil {
				return err
			}
			created = append(created, *c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "cycles created from template",
		"project_id", projectID,
		"template", tmpl.Name,
		"count", len(created))
	return created, nil
}

func (s *Service) createInTx(ctx context.Context, repo Repository, projectID string, startDate, endDate *time.Time) (*domain.Cycle, error) {
	if err := repo.LockProject(ctx, projectID); err != nil {
		return nil, err
	}

	project, err := repo.FindProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ExecutionMode != domain.ExecutionModeScrum {
		return nil, fmt.Errorf("%w: project %s is %s", domain.ErrUnsupportedExecutionMode, project.Name, project.ExecutionMode)
	}

	seq, err := repo.IncrementCycleSequence(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate cycle number: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	now := s.now()
	c := &domain.Cycle{
		ID:        id.String(),
		ProjectID: projectID,
		Name:      fmt.Sprintf("%s - %d", project.Name, seq),
		Sequence:  seq,
		Status:    domain.CycleStatusPlanned,
		StartDate: datePtr(startDate),
		EndDate:   datePtr(endDate),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := Validate(ctx, repo, c); err != nil {
		return nil, err
	}
	if err := repo.CreateCycle(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create cycle: %w", err)
	}
	return c, nil
}

// Get returns a visible cycle.
func (s *Service) Get(ctx context.Context, user access.User, id string) (*domain.Cycle, error) {
	return s.repo.FindVisibleCycle(ctx, access.Cycles(user), id)
}

// List returns the visible cycles of a project.
func (s *Service) List(ctx context.Context, user access.User, projectID string) ([]domain.Cycle, error) {
	if _, err := s.repo.FindVisibleProject(ctx, access.Projects(user), projectID); err != nil {
		return nil, err
	}
	return s.repo.ListCycles(ctx, access.Cycles(user), projectID)
}

// Update edits the name and dates of a cycle. Status changes go through Start and Complete.
func (s *Service) Update(ctx context.Context, user access.User, params domain.UpdateCycleParams) (*domain.Cycle, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindVisibleCycle(ctx, access.Cycles(user), params.CycleID); err != nil {
		return nil, err
	}

	var updated *domain.Cycle
	err := s.repo.AtomicCycle(ctx, func(repo Repository) error {
		c, err := repo.FindCycleForUpdate(ctx, params.CycleID)
		if err != nil {
			return err
		}
		if params.Has(domain.FieldName) {
			c.Name = *params.Name
		}
		if params.Has(domain.FieldStartDate) {
			c.StartDate = datePtr(params.StartDate)
		}
		if params.Has(domain.FieldEndDate) {
			c.EndDate = datePtr(params.EndDate)
		}
		c.UpdatedAt = s.now()

		if err := Validate(ctx, repo, c); err != nil {
			return err
		}
		if err := repo.UpdateCycle(ctx, c); err != nil {
			return fmt.Errorf("failed to update cycle: %w", err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// StartInput carries the fields supplied when a cycle starts.
type StartInput struct {
	// Name renames the cycle when non-empty.
	Name string
	// StartDate defaults to today.
	StartDate *time.Time
	// EndDate is required.
	EndDate *time.Time
}

// Start moves a Planned cycle to Active.
//
// The active-cycle check and the status write run in one transaction that
// holds the project lock, so two concurrent starts in one project cannot
// both succeed.
//
// Returns *domain.InvalidTransitionError unless the cycle is Planned,
// *domain.ConflictError (domain.ErrConflictingActiveCycle) naming the
// other active cycle, or domain.ErrMissingEndDate.
func (s *Service) Start(ctx context.Context, user access.User, id string, in StartInput) (*domain.Cycle, error) {
	visible, err := s.repo.FindVisibleCycle(ctx, access.Cycles(user), id)
	if err != nil {
		return nil, err
	}

	var started *domain.Cycle
	err = s.repo.AtomicCycle(ctx, func(repo Repository) error {
		if err := repo.LockProject(ctx, visible.ProjectID); err != nil {
			return err
		}
		c, err := repo.FindCycleForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if c.Status != domain.CycleStatusPlanned {
			return &domain.InvalidTransitionError{From: c.Status, To: domain.CycleStatusActive}
		}

		active, err := repo.FindActiveCycle(ctx, c.ProjectID, c.ID)
		if err != nil {
			return err
		}
		if active != nil {
			return domain.NewConflictError(domain.ErrConflictingActiveCycle, active.ID)
		}

		if in.EndDate == nil {
			return domain.ErrMissingEndDate
		}

		startDate := dateOnly(s.now())
		if in.StartDate != nil {
			startDate = dateOnly(*in.StartDate)
		}
		if in.Name != "" {
			c.Name = in.Name
		}
		c.StartDate = &startDate
		c.EndDate = datePtr(in.EndDate)
		c.Status = domain.CycleStatusActive
		c.UpdatedAt = s.now()

		if err := Validate(ctx, repo, c); err != nil {
			return err
		}
		if err := repo.UpdateCycle(ctx, c); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return domain.ErrConflictingActiveCycle
			}
			return fmt.Errorf("failed to start cycle: %w", err)
		}
		started = c
		return nil
	})
	if err != nil {
		return nil, s.namedActiveConflict(ctx, err, visible.ProjectID, id)
	}

	s.record(ctx, domain.CycleStatusPlanned, domain.CycleStatusActive)
	slog.InfoContext(ctx, "cycle started",
		"cycle_id", started.ID,
		"project_id", started.ProjectID,
		"end_date", started.EndDate)
	return started, nil
}

// namedActiveConflict attaches the rival cycle's id to a conflict raised by
// the active-cycle unique index. The lookup runs after the transaction has
// rolled back, since a failed statement aborts it on PostgreSQL.
func (s *Service) namedActiveConflict(ctx context.Context, err error, projectID, cycleID string) error {
	var named *domain.ConflictError
	if !errors.Is(err, domain.ErrConflictingActiveCycle) || errors.As(err, &named) {
		return err
	}
	active, lookupErr := s.repo.FindActiveCycle(ctx, projectID, cycleID)
	if lookupErr != nil || active == nil {
		return err
	}
	return domain.NewConflictError(domain.ErrConflictingActiveCycle, active.ID)
}

// CompleteResult describes a completed cycle.
type CompleteResult struct {
	Cycle      *domain.Cycle
	MovedTasks int
}

// Complete moves an Active cycle to Completed.
//
// Unfinished tasks (Open, Working, Pending Review) block completion unless
// moveTo names another Planned cycle of the same project; they are moved
// before the cycle is marked Completed. On failure nothing changes.
//
// Returns *domain.InvalidTransitionError unless the cycle is Active,
// *domain.OpenTasksRemainError, or domain.ErrInvalidMoveTarget.
func (s *Service) Complete(ctx context.Context, user access.User, id string, moveTo *string) (*CompleteResult, error) {
	visible, err := s.repo.FindVisibleCycle(ctx, access.Cycles(user), id)
	if err != nil {
		return nil, err
	}

	var res CompleteResult
	err = s.repo.AtomicCycle(ctx, func(repo Repository) error {
		if err := repo.LockProject(ctx, visible.ProjectID); err != nil {
			return err
		}
		c, err := repo.FindCycleForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if c.Status != domain.CycleStatusActive {
			return &domain.InvalidTransitionError{From: c.Status, To: domain.CycleStatusCompleted}
		}

		unfinished, err := repo.CountUnfinishedTasks(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("failed to count unfinished tasks: %w", err)
		}

		if unfinished > 0 {
			if moveTo == nil || *moveTo == "" {
				return &domain.OpenTasksRemainError{Count: unfinished}
			}
			if err := checkMoveTarget(ctx, repo, c, *moveTo); err != nil {
				return err
			}
			moved, err := repo.MoveUnfinishedTasks(ctx, c.ID, *moveTo)
			if err != nil {
				return fmt.Errorf("failed to move tasks: %w", err)
			}
			res.MovedTasks = moved
		}

		now := s.now()
		c.Status = domain.CycleStatusCompleted
		c.ActualEndDate = &now
		c.UpdatedAt = now

		if err := Validate(ctx, repo, c); err != nil {
			return err
		}
		if err := repo.UpdateCycle(ctx, c); err != nil {
			return fmt.Errorf("failed to complete cycle: %w", err)
		}
		res.Cycle = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, domain.CycleStatusActive, domain.CycleStatusCompleted)
	slog.InfoContext(ctx, "cycle completed",
		"cycle_id", res.Cycle.ID,
		"project_id", res.Cycle.ProjectID,
		"moved_tasks", res.MovedTasks)

	s.archive(ctx, res.Cycle, res.MovedTasks, moveTo)
	return &res, nil
}

func checkMoveTarget(ctx context.Context, repo Repository, from *domain.Cycle, targetID string) error {
	if targetID == from.ID {
		return fmt.Errorf("%w: target is the completing cycle", domain.ErrInvalidMoveTarget)
	}
	target, err := repo.FindCycleByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, domain.ErrCycleNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrInvalidMoveTarget, targetID)
		}
		return err
	}
	if target.ProjectID != from.ProjectID {
		return fmt.Errorf("%w: %s belongs to another project", domain.ErrInvalidMoveTarget, targetID)
	}
	if target.Status != domain.CycleStatusPlanned {
		return fmt.Errorf("%w: %s is %s", domain.ErrInvalidMoveTarget, targetID, target.Status)
	}
	return nil
}

// archive writes the completion report. Failures are logged; the cycle is
// already committed as Completed.
func (s *Service) archive(ctx context.Context, c *domain.Cycle, moved int, moveTo *string) {
	if s.reports == nil {
		return
	}

	counts, err := s.repo.CycleStatusCounts(ctx, c.ID)
	if err != nil {
		slog.WarnContext(ctx, "failed to build cycle report", "cycle_id", c.ID, "error", err)
		return
	}

	var metrics flow.Result
	project, err := s.repo.FindProjectByID(ctx, c.ProjectID)
	if err == nil {
		var tasks []domain.Task
		tasks, err = s.repo.ListProjectTasks(ctx, c.ProjectID)
		if err == nil {
			snapshot := make([]flow.TaskSnapshot, len(tasks))
			for i, t := range tasks {
				snapshot[i] = flow.SnapshotOf(t)
			}
			metrics = flow.Compute(snapshot, project.ExecutionMode, s.now())
		}
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to compute flow metrics for cycle report", "cycle_id", c.ID, "error", err)
	}

	report := &Report{
		CycleID:     c.ID,
		ProjectID:   c.ProjectID,
		CycleName:   c.Name,
		StartDate:   c.StartDate,
		EndDate:     c.EndDate,
		CompletedAt: *c.ActualEndDate,
		TaskCounts:  counts,
		MovedTasks:  moved,
		Flow:        metrics,
	}
	if moved > 0 {
		report.MovedTo = moveTo
	}
	if err := s.reports.Put(ctx, report); err != nil {
		slog.WarnContext(ctx, "failed to archive cycle report", "cycle_id", c.ID, "error", err)
	}
}

// Delete removes a Planned or Archived cycle. Its tasks stay, detached.
// Returns domain.ErrCannotDeleteActive or domain.ErrCannotDeleteCompleted.
func (s *Service) Delete(ctx context.Context, user access.User, id string) error {
	visible, err := s.repo.FindVisibleCycle(ctx, access.Cycles(user), id)
	if err != nil {
		return err
	}

	err = s.repo.AtomicCycle(ctx, func(repo Repository) error {
		if err := repo.LockProject(ctx, visible.ProjectID); err != nil {
			return err
		}
		c, err := repo.FindCycleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch c.Status {
		case domain.CycleStatusActive:
			return domain.ErrCannotDeleteActive
		case domain.CycleStatusCompleted:
			return domain.ErrCannotDeleteCompleted
		}
		return repo.DeleteCycle(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "cycle deleted", "cycle_id", id, "project_id", visible.ProjectID)
	return nil
}

// Validate is the save-time check run on every cycle write: known status,
// Active cycles carry both dates, start on or before end, and no other
// Active cycle in the project (the cycle itself is excluded by id).
func Validate(ctx context.Context, repo Repository, c *domain.Cycle) error {
	if _, err := domain.NewCycleStatus(string(c.Status)); err != nil {
		return err
	}
	if c.Status == domain.CycleStatusActive && (c.StartDate == nil || c.EndDate == nil) {
		return domain.ErrActiveCycleDates
	}
	if c.StartDate != nil && c.EndDate != nil && c.StartDate.After(*c.EndDate) {
		return domain.ErrInvalidDateRange
	}
	if c.Status == domain.CycleStatusActive {
		active, err := repo.FindActiveCycle(ctx, c.ProjectID, c.ID)
		if err != nil {
			return err
		}
		if active != nil {
			return domain.NewConflictError(domain.ErrConflictingActiveCycle, active.ID)
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, from, to domain.CycleStatus) {
	if s.transitions == nil {
		return
	}
	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := dateOnly(*t)
	return &d
}

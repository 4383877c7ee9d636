// Package drafting turns a free-form prompt into reviewable task drafts and
// converts accepted drafts into tasks.
//
// The pipeline runs decompose, guard, draft and validate in that order. A
// session that fails a step is left Blocked with a reason; otherwise it ends
// in Reviewing with one draft per proposal.
package drafting

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/application/task"
	"github.com/rezkam/atlas/internal/domain"
)

// Reasons recorded on blocked sessions.
const (
	ReasonNoIntents          = "No actionable intents"
	ReasonInsufficientSignal = "Insufficient architectural signal"
	ReasonNoDrafts           = "No drafts produced"
)

// MinPromptWords is the shortest prompt the guard lets through.
const MinPromptWords = 5

// Outcome statuses reported by Accept.
const (
	OutcomeSuccess = "SUCCESS"
	OutcomeFailed  = "FAILED"
)

// TaskCreator creates tasks on behalf of a user. Accepted drafts go through
// it so that every task write rule applies to them.
type TaskCreator interface {
	Create(ctx context.Context, user access.User, in task.CreateInput) (*domain.Task, error)
}

// Service runs drafting sessions.
type Service struct {
	repo      Repository
	generator Generator
	tasks     TaskCreator
	now       func() time.Time
}

// NewService creates a new drafting service.
func NewService(repo Repository, generator Generator, tasks TaskCreator) *Service {
	return &Service{
		repo:      repo,
		generator: generator,
		tasks:     tasks,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Open starts a session for a visible project and runs the pipeline.
// A blocked session is returned without error; check its Status.
func (s *Service) Open(ctx context.Context, user access.User, projectID, prompt string, cycleID *string) (*domain.DraftSession, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, domain.ErrPromptRequired
	}

	p, err := s.repo.FindVisibleProject(ctx, access.Projects(user), projectID)
	if err != nil {
		return nil, err
	}
	if cycleID != nil {
		c, err := s.repo.FindCycleByID(ctx, *cycleID)
		if err != nil {
			return nil, err
		}
		if c.ProjectID != p.ID {
			return nil, fmt.Errorf("%w: cycle %s", domain.ErrCycleProjectMismatch, c.ID)
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}
	now := s.now()
	session := &domain.DraftSession{
		ID:            id.String(),
		ProjectID:     p.ID,
		CycleID:       cycleID,
		ExecutionMode: p.ExecutionMode,
		Prompt:        prompt,
		Status:        domain.DraftSessionDecomposing,
		CreatedBy:     user.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create drafting session: %w", err)
	}

	intents, err := s.generator.Decompose(ctx, prompt)
	if err != nil {
		slog.WarnContext(ctx, "decompose failed", "session_id", session.ID, "error", err)
		intents = nil
	}
	session.Intents = cleanIntents(intents)

	if len(session.Intents) == 0 {
		return s.block(ctx, session, ReasonNoIntents)
	}
	if len(strings.Fields(prompt)) < MinPromptWords {
		return s.block(ctx, session, ReasonInsufficientSignal)
	}

	proposals, err := s.generator.Draft(ctx, DraftRequest{ProjectName: p.Name, Intents: session.Intents})
	if err != nil {
		slog.WarnContext(ctx, "drafting failed", "session_id", session.ID, "error", err)
		proposals = nil
	}
	if len(proposals) == 0 {
		return s.block(ctx, session, ReasonNoDrafts)
	}

	drafts := make([]domain.TaskDraft, 0, len(proposals))
	for _, prop := range proposals {
		draftID, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate id: %w", err)
		}
		prop.Subject = strings.TrimSpace(prop.Subject)
		drafts = append(drafts, domain.TaskDraft{
			ID:               draftID.String(),
			SessionID:        session.ID,
			Subject:          prop.Subject,
			Priority:         domain.TaskPriority(prop.Priority),
			Weight:           prop.Weight,
			Confidence:       prop.Confidence,
			Reasoning:        prop.Reasoning,
			ValidationErrors: Check(prop),
			Status:           domain.DraftStatusDraft,
			CreatedAt:        s.now(),
		})
	}

	session.Status = domain.DraftSessionReviewing
	session.UpdatedAt = s.now()
	err = s.repo.AtomicDrafting(ctx, func(repo Repository) error {
		for i := range drafts {
			if err := repo.CreateDraft(ctx, &drafts[i]); err != nil {
				return fmt.Errorf("failed to save draft: %w", err)
			}
		}
		return repo.UpdateSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	session.Drafts = drafts

	slog.InfoContext(ctx, "drafting session ready for review",
		"session_id", session.ID, "intents", len(session.Intents), "drafts", len(drafts))
	return session, nil
}

func (s *Service) block(ctx context.Context, session *domain.DraftSession, reason string) (*domain.DraftSession, error) {
	session.Status = domain.DraftSessionBlocked
	session.BlockedReason = reason
	session.UpdatedAt = s.now()
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to block drafting session: %w", err)
	}
	slog.InfoContext(ctx, "drafting session blocked", "session_id", session.ID, "reason", reason)
	return session, nil
}

func cleanIntents(intents []string) []string {
	out := make([]string, 0, len(intents))
	for _, in := range intents {
		if in = strings.TrimSpace(in); in != "" {
			out = append(out, in)
		}
	}
	return out
}

// Get returns a session whose project is visible to user.
func (s *Service) Get(ctx context.Context, user access.User, id string) (*domain.DraftSession, error) {
	session, err := s.repo.FindSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindVisibleProject(ctx, access.Projects(user), session.ProjectID); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return session, nil
}

// Outcome reports what happened to one draft during Accept.
type Outcome struct {
	DraftID string  `json:"draft_id"`
	Subject string  `json:"subject"`
	Status  string  `json:"status"`
	TaskID  *string `json:"task_id,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// AcceptResult is the session after Accept with one outcome per selected draft.
type AcceptResult struct {
	Session  *domain.DraftSession
	Outcomes []Outcome
}

// Accept creates tasks from the selected drafts of a Reviewing session and
// rejects the rest. An empty selection accepts every draft. Each task is
// created independently; a failure is reported in its outcome and does not
// stop the others. The session ends Completed.
func (s *Service) Accept(ctx context.Context, user access.User, sessionID string, draftIDs []string) (*AcceptResult, error) {
	session, err := s.Get(ctx, user, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.DraftSessionReviewing {
		return nil, fmt.Errorf("%w: session is %s", domain.ErrSessionNotReviewable, session.Status)
	}

	selected := func(id string) bool { return len(draftIDs) == 0 || slices.Contains(draftIDs, id) }

	result := &AcceptResult{Session: session}
	for i := range session.Drafts {
		d := &session.Drafts[i]
		if d.Status != domain.DraftStatusDraft {
			continue
		}
		if !selected(d.ID) {
			d.Status = domain.DraftStatusRejected
			continue
		}

		outcome := Outcome{DraftID: d.ID, Subject: d.Subject}
		if !d.IsValid() {
			outcome.Status = OutcomeFailed
			outcome.Error = strings.Join(d.ValidationErrors, ", ")
			d.Status = domain.DraftStatusRejected
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		created, err := s.tasks.Create(ctx, user, task.CreateInput{
			Subject:   d.Subject,
			Status:    domain.TaskStatusOpen,
			Priority:  d.Priority,
			Weight:    d.Weight,
			Origin:    domain.TaskOriginAI,
			ProjectID: &session.ProjectID,
			CycleID:   session.CycleID,
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to create task from draft", "draft_id", d.ID, "error", err)
			outcome.Status = OutcomeFailed
			outcome.Error = err.Error()
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		d.Status = domain.DraftStatusAccepted
		d.TaskID = &created.ID
		outcome.Status = OutcomeSuccess
		outcome.TaskID = &created.ID
		result.Outcomes = append(result.Outcomes, outcome)
	}

	session.Status = domain.DraftSessionCompleted
	session.UpdatedAt = s.now()
	err = s.repo.AtomicDrafting(ctx, func(repo Repository) error {
		for i := range session.Drafts {
			if err := repo.UpdateDraft(ctx, &session.Drafts[i]); err != nil {
				return fmt.Errorf("failed to update draft: %w", err)
			}
		}
		return repo.UpdateSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

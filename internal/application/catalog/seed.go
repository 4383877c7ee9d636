package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rezkam/atlas/internal/domain"
)

//go:embed defaults.yaml
var defaultFixture []byte

// DefaultFixture returns the built-in reference data.
func DefaultFixture() io.Reader {
	return strings.NewReader(string(defaultFixture))
}

// Fixture is the YAML document accepted by Seed.
type Fixture struct {
	TaskTypes      []TaskTypeFixture      `yaml:"task_types"`
	CycleTemplates []CycleTemplateFixture `yaml:"cycle_templates"`
	Users          []UserFixture          `yaml:"users"`
}

type TaskTypeFixture struct {
	ID                string   `yaml:"id"`
	Description       string   `yaml:"description"`
	IsContainer       bool     `yaml:"is_container"`
	AllowedChildTypes []string `yaml:"allowed_child_types"`
}

type CycleTemplateFixture struct {
	Name         string `yaml:"name"`
	DurationDays int    `yaml:"duration_days"`
	Count        int    `yaml:"count"`
}

type UserFixture struct {
	ID       string   `yaml:"id"`
	FullName string   `yaml:"full_name"`
	Roles    []string `yaml:"roles"`
}

// SeedSummary counts what a Seed call wrote.
type SeedSummary struct {
	TaskTypes      int
	CycleTemplates int
	Users          int
}

// Seed upserts the reference data in r in one transaction. Task types may
// reference each other regardless of their order in the document.
func (s *Service) Seed(ctx context.Context, r io.Reader) (SeedSummary, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return SeedSummary{}, fmt.Errorf("failed to parse fixture: %w", err)
	}

	var summary SeedSummary
	err := s.repo.AtomicCatalog(ctx, func(repo Repository) error {
		summary = SeedSummary{}

		for _, u := range fx.Users {
			if strings.TrimSpace(u.ID) == "" {
				return errors.New("invalid fixture: user id is required")
			}
			if err := repo.UpsertUser(ctx, &domain.User{ID: strings.TrimSpace(u.ID), FullName: u.FullName, Roles: u.Roles}); err != nil {
				return fmt.Errorf("failed to seed user %s: %w", u.ID, err)
			}
			summary.Users++
		}

		pending := make(map[string]bool, len(fx.TaskTypes))
		for _, t := range fx.TaskTypes {
			pending[strings.TrimSpace(t.ID)] = true
		}
		for _, t := range fx.TaskTypes {
			tt := domain.TaskType{
				ID:                t.ID,
				Description:       t.Description,
				IsContainer:       t.IsContainer,
				AllowedChildTypes: t.AllowedChildTypes,
			}
			if err := saveTaskType(ctx, repo, &tt, pending); err != nil {
				return err
			}
			summary.TaskTypes++
		}

		for _, t := range fx.CycleTemplates {
			tpl := domain.CycleTemplate{Name: t.Name, DurationDays: t.DurationDays, Count: t.Count}
			if err := checkTemplate(&tpl); err != nil {
				return err
			}
			if err := repo.UpsertCycleTemplate(ctx, &tpl); err != nil {
				return fmt.Errorf("failed to seed cycle template %s: %w", tpl.Name, err)
			}
			summary.CycleTemplates++
		}
		return nil
	})
	if err != nil {
		return SeedSummary{}, err
	}
	return summary, nil
}

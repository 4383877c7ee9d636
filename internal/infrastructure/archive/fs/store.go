// Package fs archives cycle reports as JSON files in a local directory.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rezkam/atlas/internal/application/cycle"
	"github.com/rezkam/atlas/internal/infrastructure/archive"
)

// maxConcurrentReads bounds open files while listing.
const maxConcurrentReads = 20

// Store writes one <cycle_id>.json file per report.
type Store struct {
	baseDir string
	mu      sync.RWMutex
}

var _ archive.Archive = (*Store)(nil)

// NewStore creates the base directory if needed.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) path(cycleID string) string {
	return filepath.Join(s.baseDir, archive.ObjectName(filepath.Base(cycleID)))
}

// Put writes the report, replacing any earlier report for the same cycle.
// The file is written to a temp name and renamed so readers never see a partial report.
func (s *Store) Put(_ context.Context, report *cycle.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(report.CycleID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Get reads the report of one cycle.
func (s *Store) Get(_ context.Context, cycleID string) (*cycle.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(cycleID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", archive.ErrReportNotFound, cycleID)
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var report cycle.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// List loads every report in parallel, newest first. Unreadable files are skipped.
func (s *Store) List(ctx context.Context) ([]*cycle.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		reports = []*cycle.Report{}
	)
	semaphore := make(chan struct{}, maxConcurrentReads)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			break
		}

		wg.Add(1)
		semaphore <- struct{}{}
		go func(name string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			data, err := os.ReadFile(filepath.Join(s.baseDir, name))
			if err != nil {
				return
			}
			var report cycle.Report
			if err := json.Unmarshal(data, &report); err != nil {
				return
			}
			mu.Lock()
			reports = append(reports, &report)
			mu.Unlock()
		}(entry.Name())
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	archive.SortReports(reports)
	return reports, nil
}

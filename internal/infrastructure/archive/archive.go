// Package archive stores reports of completed cycles outside the database.
package archive

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/rezkam/atlas/internal/application/cycle"
)

// ErrReportNotFound is returned when no report exists for a cycle.
var ErrReportNotFound = errors.New("report not found")

// Archive is a write-once store of cycle reports keyed by cycle id.
// Implementations satisfy cycle.ReportSink.
type Archive interface {
	Put(ctx context.Context, report *cycle.Report) error
	Get(ctx context.Context, cycleID string) (*cycle.Report, error)
	List(ctx context.Context) ([]*cycle.Report, error)
}

// ObjectName is the file or object name of a cycle's report.
func ObjectName(cycleID string) string {
	return cycleID + ".json"
}

// SortReports orders reports newest first, breaking ties by cycle id.
func SortReports(reports []*cycle.Report) {
	slices.SortFunc(reports, func(a, b *cycle.Report) int {
		if c := b.CompletedAt.Compare(a.CompletedAt); c != 0 {
			return c
		}
		return strings.Compare(a.CycleID, b.CycleID)
	})
}

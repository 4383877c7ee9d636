// Package compliance holds the behavior every archive.Archive must share.
package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/atlas/internal/application/cycle"
	"github.com/rezkam/atlas/internal/domain"
	"github.com/rezkam/atlas/internal/flow"
	"github.com/rezkam/atlas/internal/infrastructure/archive"
)

func newReport(completedAt time.Time) *cycle.Report {
	start := completedAt.AddDate(0, 0, -14)
	return &cycle.Report{
		CycleID:     uuid.NewString(),
		ProjectID:   uuid.NewString(),
		CycleName:   "Apollo - 1",
		StartDate:   &start,
		CompletedAt: completedAt,
		TaskCounts: map[domain.TaskStatus]int{
			domain.TaskStatusCompleted: 4,
			domain.TaskStatusOpen:      1,
		},
		MovedTasks: 1,
		Flow:       flow.Result{Efficiency: 80, Health: flow.HealthOptimized},
	}
}

// RunArchiveComplianceTest runs the shared archive tests. setup returns a
// fresh, empty archive and a teardown func.
func RunArchiveComplianceTest(t *testing.T, setup func() (archive.Archive, func())) {
	t.Run("PutAndGet", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()
		ctx := context.Background()

		report := newReport(time.Now().UTC().Truncate(time.Second))
		require.NoError(t, store.Put(ctx, report))

		got, err := store.Get(ctx, report.CycleID)
		require.NoError(t, err)
		assert.Equal(t, report.CycleID, got.CycleID)
		assert.Equal(t, report.CycleName, got.CycleName)
		assert.True(t, report.CompletedAt.Equal(got.CompletedAt))
		assert.Equal(t, 4, got.TaskCounts[domain.TaskStatusCompleted])
		assert.Equal(t, 80, got.Flow.Efficiency)
		assert.Nil(t, got.EndDate)
	})

	t.Run("PutReplaces", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()
		ctx := context.Background()

		report := newReport(time.Now().UTC())
		require.NoError(t, store.Put(ctx, report))

		report.MovedTasks = 7
		require.NoError(t, store.Put(ctx, report))

		got, err := store.Get(ctx, report.CycleID)
		require.NoError(t, err)
		assert.Equal(t, 7, got.MovedTasks)
	})

	t.Run("GetMissing", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()

		_, err := store.Get(context.Background(), uuid.NewString())
		assert.ErrorIs(t, err, archive.ErrReportNotFound)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()
		ctx := context.Background()

		now := time.Now().UTC().Truncate(time.Second)
		older := newReport(now.Add(-time.Hour))
		newer := newReport(now)
		require.NoError(t, store.Put(ctx, older))
		require.NoError(t, store.Put(ctx, newer))

		reports, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, reports, 2)
		assert.Equal(t, newer.CycleID, reports[0].CycleID)
		assert.Equal(t, older.CycleID, reports[1].CycleID)
	})

	t.Run("ListEmpty", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()

		reports, err := store.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, reports)
	})
}

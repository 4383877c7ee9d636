package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rezkam/atlas/internal/application/cycle"
)

const meterName = "github.com/rezkam/atlas/cycles"

// MeteredSink counts completed cycles by backlog health and records how
// many tasks each completion carried over, then forwards the report.
type MeteredSink struct {
	next      cycle.ReportSink
	completed metric.Int64Counter
	moved     metric.Int64Histogram
}

var _ cycle.ReportSink = (*MeteredSink)(nil)

// NewMeteredSink wraps next. A nil next only records metrics.
// mp may be nil to use the global meter provider.
func NewMeteredSink(next cycle.ReportSink, mp metric.MeterProvider) (*MeteredSink, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	completed, err := meter.Int64Counter("atlas.cycles.completed",
		metric.WithDescription("Cycles completed, by backlog health"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}
	moved, err := meter.Int64Histogram("atlas.cycles.moved_tasks",
		metric.WithDescription("Unfinished tasks moved out of a completed cycle"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, err
	}
	return &MeteredSink{next: next, completed: completed, moved: moved}, nil
}

func (s *MeteredSink) Put(ctx context.Context, report *cycle.Report) error {
	attrs := metric.WithAttributes(attribute.String("health", string(report.Flow.Health)))
	s.completed.Add(ctx, 1, attrs)
	s.moved.Record(ctx, int64(report.MovedTasks), attrs)

	if s.next == nil {
		return nil
	}
	return s.next.Put(ctx, report)
}

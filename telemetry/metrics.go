package telemetry

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/maastricht-university/datecoach-analytics"

// Recorder holds the engine's instruments. A nil *Recorder records nothing.
type Recorder struct {
	samples   metric.Int64Counter
	rejected  metric.Int64Counter
	snapshots metric.Int64Counter
	segments  metric.Int64Counter
	moments   metric.Int64Counter
	reports   metric.Int64Counter
	chemistry metric.Float64Histogram
}

// NewRecorder registers instruments on the global provider, a no-op until an exporter is installed.
func NewRecorder() (*Recorder, error) {
	return NewRecorderFromMeter(otel.Meter(meterName))
}

func NewRecorderFromMeter(meter metric.Meter) (*Recorder, error) {
	var r Recorder
	var err error
	if r.samples, err = meter.Int64Counter("datecoach_samples_admitted_total",
		metric.WithDescription("Emotion samples admitted into the signal buffer"),
		metric.WithUnit("{sample}")); err != nil {
		return nil, fmt.Errorf("creating samples counter: %w", err)
	}
	if r.rejected, err = meter.Int64Counter("datecoach_events_rejected_total",
		metric.WithDescription("Feed events rejected by the session"),
		metric.WithUnit("{event}")); err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}
	if r.snapshots, err = meter.Int64Counter("datecoach_snapshots_total",
		metric.WithDescription("Snapshots appended to emotion history"),
		metric.WithUnit("{snapshot}")); err != nil {
		return nil, fmt.Errorf("creating snapshots counter: %w", err)
	}
	if r.segments, err = meter.Int64Counter("datecoach_segments_total",
		metric.WithDescription("Conversation segments completed"),
		metric.WithUnit("{segment}")); err != nil {
		return nil, fmt.Errorf("creating segments counter: %w", err)
	}
	if r.moments, err = meter.Int64Counter("datecoach_key_moments_total",
		metric.WithDescription("Key moments in terminal reports"),
		metric.WithUnit("{moment}")); err != nil {
		return nil, fmt.Errorf("creating key moments counter: %w", err)
	}
	if r.reports, err = meter.Int64Counter("datecoach_reports_total",
		metric.WithDescription("Performance reports generated"),
		metric.WithUnit("{report}")); err != nil {
		return nil, fmt.Errorf("creating reports counter: %w", err)
	}
	if r.chemistry, err = meter.Float64Histogram("datecoach_chemistry_score",
		metric.WithDescription("Per-snapshot chemistry score"),
		metric.WithExplicitBucketBoundaries(0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1)); err != nil {
		return nil, fmt.Errorf("creating chemistry histogram: %w", err)
	}
	return &r, nil
}

func (r *Recorder) SampleAdmitted(ctx context.Context, modality string) {
	if r == nil {
		return
	}
	r.samples.Add(ctx, 1, metric.WithAttributes(attribute.String("modality", modality)))
}

func (r *Recorder) Rejected(ctx context.Context, reason string) {
	if r == nil {
		return
	}
	r.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (r *Recorder) Snapshot(ctx context.Context, score float64) {
	if r == nil {
		return
	}
	r.snapshots.Add(ctx, 1)
	r.chemistry.Record(ctx, score)
}

func (r *Recorder) Segment(ctx context.Context) {
	if r == nil {
		return
	}
	r.segments.Add(ctx, 1)
}

func (r *Recorder) KeyMoment(ctx context.Context, impact string) {
	if r == nil {
		return
	}
	r.moments.Add(ctx, 1, metric.WithAttributes(attribute.String("impact", impact)))
}

func (r *Recorder) Report(ctx context.Context, final bool) {
	if r == nil {
		return
	}
	r.reports.Add(ctx, 1, metric.WithAttributes(attribute.String("final", strconv.FormatBool(final))))
}

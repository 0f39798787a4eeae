package orchestrator

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/datecoach-analytics/chemistry"
	cfg "github.com/maastricht-university/datecoach-analytics/config"
	"github.com/maastricht-university/datecoach-analytics/emotion"
	"github.com/maastricht-university/datecoach-analytics/report"
	"github.com/maastricht-university/datecoach-analytics/segment"
	"github.com/maastricht-university/datecoach-analytics/signals"
	"github.com/maastricht-university/datecoach-analytics/telemetry"
)

type Options struct {
	ID    string
	Clock func() time.Time
	// Ticks replaces the snapshot ticker; DisableTimer leaves sampling to Tick.
	Ticks              <-chan time.Time
	DisableTimer       bool
	SnapshotInterval   time.Duration
	QueueSize          int
	Keywords           segment.Keywords
	Thresholds         segment.Thresholds
	Weights            chemistry.Weights
	KeyMomentThreshold float64
	Report             report.Config
	Table              *emotion.Table
	Logger             *logrus.Entry
	Metrics            *telemetry.Recorder
	// OnEnd runs once, after the terminal report exists.
	OnEnd func(Bundle)
}

func DefaultOptions() Options {
	return Options{
		Clock:              time.Now,
		SnapshotInterval:   signals.DefaultInterval,
		QueueSize:          256,
		Keywords:           segment.DefaultKeywords(),
		Thresholds:         segment.DefaultThresholds(),
		Weights:            chemistry.DefaultWeights(),
		KeyMomentThreshold: chemistry.DefaultThreshold,
		Report:             report.DefaultConfig(),
		Table:              emotion.DefaultTable(),
	}
}

func OptionsFromConfig(c *cfg.Root) Options {
	o := DefaultOptions()
	o.SnapshotInterval = c.Session.SnapshotInterval
	if c.Session.QueueSize > 0 {
		o.QueueSize = c.Session.QueueSize
	}
	o.Keywords = c.Keywords
	o.Thresholds = c.Thresholds()
	o.Weights = c.Analysis.Weights
	o.KeyMomentThreshold = c.Analysis.KeyMomentThreshold
	o.Report = c.Report()
	return o
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Clock == nil {
		o.Clock = d.Clock
	}
	if o.SnapshotInterval <= 0 {
		o.SnapshotInterval = d.SnapshotInterval
	}
	if o.QueueSize <= 0 {
		o.QueueSize = d.QueueSize
	}
	if o.Table == nil {
		o.Table = d.Table
	}
	if o.Weights == (chemistry.Weights{}) {
		o.Weights = d.Weights
	}
	if o.Thresholds == (segment.Thresholds{}) {
		o.Thresholds = d.Thresholds
	}
	if o.Report.JokeReaction == 0 && o.Report.ResponseMinLength == 0 && o.Report.Bands == (report.Bands{}) {
		o.Report = d.Report
	}
	if o.Logger == nil {
		o.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return o
}

// derive runs the pure passes over detached copies of the logs.
func (s *Session) derive(history []signals.Snapshot, segs []segment.Segment, at time.Time, final bool) (chemistry.Series, report.PerformanceReport) {
	series := s.scorer.Series(history)
	moments := chemistry.DetectKeyMoments(series, s.opts.KeyMomentThreshold)
	rep := s.aggregator.Build(report.Input{
		Segments: segs,
		Series:   series,
		Moments:  moments,
		At:       at,
		Final:    final,
	})
	return series, rep
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrOutOfOrder):
		return "out_of_order"
	case errors.Is(err, ErrSessionEnded):
		return "ended"
	case errors.Is(err, ErrNotStarted):
		return "not_started"
	case errors.Is(err, ErrUnknownParticipant):
		return "unknown_participant"
	}
	return "other"
}

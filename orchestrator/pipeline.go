package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/datecoach-analytics/chemistry"
	"github.com/maastricht-university/datecoach-analytics/emotion"
	"github.com/maastricht-university/datecoach-analytics/report"
	"github.com/maastricht-university/datecoach-analytics/segment"
	"github.com/maastricht-university/datecoach-analytics/signals"
)

// Session is one live conversation. All writes go through a single consumer loop;
// reads work on copies and never block ingestion.
type Session struct {
	id   string
	opts Options
	log  *logrus.Entry

	buffer     *signals.Buffer
	history    *signals.History
	sampler    *signals.Sampler
	segments   *segment.Log
	tracker    *segment.Tracker
	scorer     *chemistry.Scorer
	aggregator *report.Aggregator

	events chan event
	done   chan struct{}
	cancel context.CancelFunc

	// owned by the loop
	lastAdmitted time.Time

	mu        sync.Mutex
	state     state
	startedAt time.Time
	endedAt   time.Time
	final     *report.PerformanceReport
	onEnd     sync.Once
}

func NewSession(o Options) *Session {
	o = o.withDefaults()
	history := signals.NewHistory()
	buffer := signals.NewBuffer()
	segs := segment.NewLog()
	return &Session{
		id:         o.ID,
		opts:       o,
		log:        o.Logger.WithField("session_id", o.ID),
		buffer:     buffer,
		history:    history,
		sampler:    signals.NewSampler(buffer, history, o.SnapshotInterval),
		segments:   segs,
		tracker:    segment.NewTracker(segment.NewClassifier(o.Keywords, o.Thresholds, o.Table), segs),
		scorer:     chemistry.NewScorer(o.Table, o.Weights),
		aggregator: report.NewAggregator(o.Report, o.Table),
		events:     make(chan event, o.QueueSize),
		done:       make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// Start opens the session at ts and starts the consumer loop and the sampler timer.
func (s *Session) Start(ctx context.Context, ts time.Time) error {
	s.mu.Lock()
	switch s.state {
	case running:
		s.mu.Unlock()
		return ErrAlreadyStarted
	case ended:
		s.mu.Unlock()
		return ErrSessionEnded
	}
	s.state = running
	s.startedAt = ts
	s.lastAdmitted = ts
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run()
	if !s.opts.DisableTimer {
		go s.sampler.Run(ctx, s.opts.Ticks, func() { s.enqueueTick(ctx) })
	}
	s.log.WithField("interval", s.sampler.Interval()).Info("session started")
	return nil
}

func (s *Session) PushFacial(participant string, d emotion.Distribution) error {
	return s.pushSample(participant, emotion.Facial, d)
}

func (s *Session) PushVocal(participant string, d emotion.Distribution) error {
	return s.pushSample(participant, emotion.Vocal, d)
}

func (s *Session) pushSample(participant string, m emotion.Modality, d emotion.Distribution) error {
	p, ok := emotion.ParseParticipant(participant)
	if !ok {
		s.opts.Metrics.Rejected(context.Background(), reason(ErrUnknownParticipant))
		return fmt.Errorf("%w: %q", ErrUnknownParticipant, participant)
	}
	now := s.opts.Clock()
	return s.submit(event{
		kind:   evSample,
		at:     now,
		sample: emotion.Sample{Participant: p, Modality: m, Timestamp: now, Emotions: d.Clone()},
	})
}

// PushTranscript admits one completed utterance.
func (s *Session) PushTranscript(speaker, text string) error {
	p, ok := emotion.ParseParticipant(speaker)
	if !ok {
		s.opts.Metrics.Rejected(context.Background(), reason(ErrUnknownParticipant))
		return fmt.Errorf("%w: %q", ErrUnknownParticipant, speaker)
	}
	return s.submit(event{kind: evUtterance, at: s.opts.Clock(), speaker: p, text: text})
}

// Tick takes a snapshot now, through the same queue as the timer.
func (s *Session) Tick() error {
	return s.submit(event{kind: evTick})
}

func (s *Session) submit(ev event) error {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	switch st {
	case idle:
		s.opts.Metrics.Rejected(context.Background(), reason(ErrNotStarted))
		return ErrNotStarted
	case ended:
		s.opts.Metrics.Rejected(context.Background(), reason(ErrSessionEnded))
		return ErrSessionEnded
	}

	ev.reply = make(chan error, 1)
	select {
	case s.events <- ev:
	case <-s.done:
		return ErrSessionEnded
	}
	select {
	case err := <-ev.reply:
		return err
	case <-s.done:
		select {
		case err := <-ev.reply:
			return err
		default:
			return ErrSessionEnded
		}
	}
}

func (s *Session) enqueueTick(ctx context.Context) {
	select {
	case s.events <- event{kind: evTick}:
	case <-s.done:
	case <-ctx.Done():
	}
}

func (s *Session) run() {
	defer close(s.done)
	for ev := range s.events {
		if ev.kind == evEnd {
			s.finish(ev.at)
			ev.reply <- nil
			return
		}
		err := s.apply(ev)
		if err != nil {
			s.opts.Metrics.Rejected(context.Background(), reason(err))
		}
		if ev.reply != nil {
			ev.reply <- err
		}
	}
}

func (s *Session) apply(ev event) error {
	ctx := context.Background()
	if ev.kind == evTick {
		// a timer tick queued while End was raising the barrier
		if s.closing() {
			return ErrSessionEnded
		}
		ev.at = s.opts.Clock()
	}
	if ev.at.Before(s.lastAdmitted) {
		return ErrOutOfOrder
	}

	switch ev.kind {
	case evSample:
		s.buffer.Record(ev.sample)
		s.tracker.Observe(ev.sample)
		s.opts.Metrics.SampleAdmitted(ctx, string(ev.sample.Modality))
		s.log.WithFields(logrus.Fields{
			"participant": ev.sample.Participant,
			"modality":    ev.sample.Modality,
		}).Debug("sample admitted")
	case evUtterance:
		seg, done, err := s.tracker.Utterance(ev.speaker, ev.text, ev.at, s.buffer.Current())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrOutOfOrder, err)
		}
		if done {
			s.segmentDone(seg)
		}
	case evTick:
		snap, err := s.sampler.Sample(ev.at)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrOutOfOrder, err)
		}
		s.opts.Metrics.Snapshot(ctx, s.scorer.Score(snap))
	}
	s.lastAdmitted = ev.at
	return nil
}

func (s *Session) segmentDone(seg segment.Segment) {
	s.opts.Metrics.Segment(context.Background())
	s.log.WithFields(logrus.Fields{
		"index":    seg.Index,
		"speaker":  seg.Speaker,
		"question": seg.Derived.QuestionAsked,
		"joke":     seg.Derived.JokeDetected,
		"story":    seg.Derived.StoryTelling,
	}).Debug("segment completed")
}

func (s *Session) closing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == ended
}

// finish is the end barrier: the sampler stops first, the open turn closes, and the
// single terminal report is built from the state as of at. An end instant before
// the last admitted event is raised to it.
func (s *Session) finish(at time.Time) {
	s.cancel()
	if at.Before(s.lastAdmitted) {
		at = s.lastAdmitted
	}
	if seg, done, err := s.tracker.Close(at, s.buffer.Current()); err != nil {
		s.log.WithError(err).Warn("closing last turn")
	} else if done {
		s.segmentDone(seg)
	}

	_, rep := s.derive(s.history.Snapshot(), s.segments.Snapshot(), at, true)
	ctx := context.Background()
	s.opts.Metrics.Report(ctx, true)
	for _, m := range rep.KeyMoments {
		s.opts.Metrics.KeyMoment(ctx, string(m.Impact))
	}

	s.mu.Lock()
	s.final = &rep
	s.endedAt = at
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"segments":  rep.SegmentCount,
		"snapshots": rep.SnapshotCount,
		"chemistry": rep.Scores.Chemistry,
	}).Info("session ended")
}

// End fires the barrier and returns the terminal report. Later calls return the same report.
func (s *Session) End(ts time.Time) (report.PerformanceReport, error) {
	s.mu.Lock()
	switch s.state {
	case idle:
		s.mu.Unlock()
		return report.PerformanceReport{}, ErrNotStarted
	case ended:
		s.mu.Unlock()
		<-s.done
		return s.terminal(), nil
	}
	s.state = ended
	s.mu.Unlock()

	s.events <- event{kind: evEnd, at: ts, reply: make(chan error, 1)}
	<-s.done

	rep := s.terminal()
	if s.opts.OnEnd != nil {
		s.onEnd.Do(func() { s.opts.OnEnd(s.Bundle()) })
	}
	return rep, nil
}

func (s *Session) terminal() report.PerformanceReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.final
}

// Ended reports whether the end barrier has completed.
func (s *Session) Ended() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// GenerateReport returns the terminal report after End. Before that it returns a
// best-effort partial report (Final=false) that excludes the still-open turn.
func (s *Session) GenerateReport() report.PerformanceReport {
	s.mu.Lock()
	final := s.final
	s.mu.Unlock()
	if final != nil {
		return *final
	}
	_, rep := s.derive(s.history.Snapshot(), s.segments.Snapshot(), s.opts.Clock(), false)
	s.opts.Metrics.Report(context.Background(), false)
	return rep
}

func (s *Session) History() []signals.Snapshot { return s.history.Snapshot() }

func (s *Session) Segments() []segment.Segment { return s.segments.Snapshot() }

func (s *Session) ChemistrySeries() chemistry.Series { return s.scorer.Series(s.history.Snapshot()) }

func (s *Session) KeyMoments() []chemistry.KeyMoment {
	return chemistry.DetectKeyMoments(s.ChemistrySeries(), s.opts.KeyMomentThreshold)
}

func (s *Session) Bundle() Bundle {
	s.mu.Lock()
	b := Bundle{SessionID: s.id, StartedAt: s.startedAt, EndedAt: s.endedAt}
	s.mu.Unlock()
	b.History = s.history.Snapshot()
	b.Segments = s.segments.Snapshot()
	b.Series = s.scorer.Series(b.History)
	b.Report = s.GenerateReport()
	return b
}

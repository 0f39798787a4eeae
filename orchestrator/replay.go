package orchestrator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/maastricht-university/datecoach-analytics/emotion"
	"github.com/maastricht-university/datecoach-analytics/report"
)

// Script is a recorded session: feed events at offsets from the start.
type Script struct {
	Start    time.Time     `yaml:"start"`
	Interval time.Duration `yaml:"interval"`
	Events   []ScriptEvent `yaml:"events"`
}

type ScriptEvent struct {
	At          time.Duration        `yaml:"at"`
	Type        string               `yaml:"type"` // facial | vocal | transcript | tick | end
	Participant string               `yaml:"participant,omitempty"`
	Emotions    emotion.Distribution `yaml:"emotions,omitempty"`
	Speaker     string               `yaml:"speaker,omitempty"`
	Text        string               `yaml:"text,omitempty"`
}

func LoadScript(r io.Reader) (*Script, error) {
	var s Script
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("script decode: %w", err)
	}
	if s.Start.IsZero() {
		s.Start = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	for i, ev := range s.Events {
		switch ev.Type {
		case "facial", "vocal", "transcript", "tick", "end":
		default:
			return nil, fmt.Errorf("script event %d: unknown type %q", i, ev.Type)
		}
	}
	return &s, nil
}

type simClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *simClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *simClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Replay drives a session through the script on a simulated clock. Without explicit
// tick events, snapshots are taken every interval strictly before the end.
func Replay(ctx context.Context, sc *Script, o Options) (*Session, report.PerformanceReport, error) {
	clock := &simClock{now: sc.Start}
	o.Clock = clock.Now
	o.DisableTimer = true
	if sc.Interval > 0 {
		o.SnapshotInterval = sc.Interval
	}
	s := NewSession(o)
	if err := s.Start(ctx, sc.Start); err != nil {
		return nil, report.PerformanceReport{}, err
	}

	autoTicks := true
	end := sc.Start
	for _, ev := range sc.Events {
		if ev.Type == "tick" {
			autoTicks = false
		}
		if t := sc.Start.Add(ev.At); t.After(end) {
			end = t
		}
	}

	interval := s.sampler.Interval()
	nextTick := sc.Start.Add(interval)
	ticksBefore := func(t time.Time) {
		for autoTicks && nextTick.Before(t) {
			clock.Set(nextTick)
			if err := s.Tick(); err != nil {
				s.log.WithError(err).Warn("replay tick rejected")
			}
			nextTick = nextTick.Add(interval)
		}
	}

loop:
	for i, ev := range sc.Events {
		if err := ctx.Err(); err != nil {
			rep, _ := s.End(clock.Now())
			return s, rep, err
		}
		at := sc.Start.Add(ev.At)
		ticksBefore(at)
		clock.Set(at)

		var err error
		switch ev.Type {
		case "facial":
			err = s.PushFacial(ev.Participant, ev.Emotions)
		case "vocal":
			err = s.PushVocal(ev.Participant, ev.Emotions)
		case "transcript":
			err = s.PushTranscript(ev.Speaker, ev.Text)
		case "tick":
			err = s.Tick()
		case "end":
			end = at
		}
		if err != nil {
			s.log.WithError(err).WithField("event", i).Warn("replay event rejected")
		}
		if ev.Type == "end" {
			break loop
		}
	}
	ticksBefore(end)
	clock.Set(end)

	rep, err := s.End(end)
	return s, rep, err
}

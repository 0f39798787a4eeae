package segment

import (
	"strings"
	"time"

	"github.com/maastricht-university/datecoach-analytics/emotion"
	"github.com/maastricht-university/datecoach-analytics/signals"
)

type turn struct {
	speaker emotion.Participant
	texts   []string
	start   time.Time
	last    time.Time
}

type feed struct {
	p emotion.Participant
	m emotion.Modality
}

// Tracker assembles transcript utterances into turns and closes a turn when the
// other participant speaks or the session ends.
type Tracker struct {
	classifier *Classifier
	log        *Log
	open       *turn
	window     map[feed]emotion.Distribution
}

func NewTracker(c *Classifier, log *Log) *Tracker {
	return &Tracker{classifier: c, log: log, window: map[feed]emotion.Distribution{}}
}

// Observe folds a sample into the current turn window. Each label keeps its highest
// score, so a feed contributes one entry per label however often it reports.
func (t *Tracker) Observe(s emotion.Sample) {
	k := feed{s.Participant, s.Modality}
	t.window[k] = signals.Fuse(t.window[k], s.Emotions)
}

// Utterance adds text for speaker at ts. When the speaker differs from the open
// turn, that turn ends at ts and is classified and appended; the completed segment
// is returned.
func (t *Tracker) Utterance(speaker emotion.Participant, text string, ts time.Time, cur signals.Distributions) (Segment, bool, error) {
	if t.open != nil && t.open.speaker == speaker {
		t.open.texts = append(t.open.texts, text)
		t.open.last = ts
		return Segment{}, false, nil
	}
	seg, done, err := t.Close(ts, cur)
	t.open = &turn{speaker: speaker, texts: []string{text}, start: ts, last: ts}
	return seg, done, err
}

// Close completes the open turn, if any, with the floor held until end. An end
// before the turn's last utterance is raised to it.
func (t *Tracker) Close(end time.Time, cur signals.Distributions) (Segment, bool, error) {
	if t.open == nil {
		return Segment{}, false, nil
	}
	o := t.open
	t.open = nil
	if end.Before(o.last) {
		end = o.last
	}
	listener := o.speaker.Other()
	in := Input{
		Speaker:        o.speaker,
		Text:           strings.Join(o.texts, " "),
		StartTime:      o.start,
		Duration:       end.Sub(o.start),
		LastSpokenAt:   o.last,
		Facial:         t.during(o.speaker, emotion.Facial, cur),
		Prosody:        t.during(o.speaker, emotion.Vocal, cur),
		ListenerFacial: t.during(listener, emotion.Facial, cur),
	}
	t.window = map[feed]emotion.Distribution{}
	seg, err := t.log.Append(t.classifier.Classify(in))
	if err != nil {
		return Segment{}, false, err
	}
	return seg, true, nil
}

// Speaking reports the speaker of the open turn.
func (t *Tracker) Speaking() (emotion.Participant, bool) {
	if t.open == nil {
		return "", false
	}
	return t.open.speaker, true
}

// during prefers samples seen inside the window and falls back to the held one.
func (t *Tracker) during(p emotion.Participant, m emotion.Modality, cur signals.Distributions) emotion.Distribution {
	if d, ok := t.window[feed{p, m}]; ok {
		return d.Clone()
	}
	d, _ := cur.Get(p, m)
	return d
}

package chemistry

import (
	"errors"
	"time"

	"github.com/maastricht-university/datecoach-analytics/emotion"
	"github.com/maastricht-university/datecoach-analytics/signals"
)

// ErrNoData marks statistics over an empty series. It is distinct from a real 0 score.
var ErrNoData = errors.New("chemistry: no snapshots")

// Weights of shared positive affect and penalized shared negative affect.
type Weights struct {
	Positive float64 `yaml:"positive" mapstructure:"positive"`
	Negative float64 `yaml:"negative" mapstructure:"negative"`
}

func DefaultWeights() Weights { return Weights{Positive: 0.7, Negative: 0.3} }

// Point is one entry of the score series, index-aligned with the history.
type Point struct {
	Timestamp  time.Time `json:"timestamp"`
	Score      float64   `json:"score"`
	P1Dominant string    `json:"p1DominantEmotion"`
	P2Dominant string    `json:"p2DominantEmotion"`
	Shared     string    `json:"sharedEmotion"`
}

type Series []Point

type Scorer struct {
	table   *emotion.Table
	weights Weights
}

func NewScorer(table *emotion.Table, w Weights) *Scorer {
	if table == nil {
		table = emotion.DefaultTable()
	}
	return &Scorer{table: table, weights: w}
}

// Score computes clamp01(wp*min(p1Pos,p2Pos)/100 - wn*(p1Neg+p2Neg)/200).
func (s *Scorer) Score(snap signals.Snapshot) float64 {
	p1Pos := s.table.Sum(emotion.Positive, snap.Participant1)
	p2Pos := s.table.Sum(emotion.Positive, snap.Participant2)
	p1Neg := s.table.Sum(emotion.Negative, snap.Participant1)
	p2Neg := s.table.Sum(emotion.Negative, snap.Participant2)

	positiveSync := min(p1Pos, p2Pos) / 100
	negativeSync := (p1Neg + p2Neg) / 200
	return clamp01(s.weights.Positive*positiveSync - s.weights.Negative*negativeSync)
}

// Series is a pure function of history; equal inputs give equal outputs.
func (s *Scorer) Series(history []signals.Snapshot) Series {
	out := make(Series, len(history))
	for i, snap := range history {
		out[i] = Point{
			Timestamp:  snap.Timestamp,
			Score:      s.Score(snap),
			P1Dominant: snap.Participant1.Dominant(),
			P2Dominant: snap.Participant2.Dominant(),
			Shared:     sharedEmotion(snap),
		}
	}
	return out
}

// sharedEmotion picks the label both participants show with the highest lower score,
// falling back to participant1's dominant label.
func sharedEmotion(snap signals.Snapshot) string {
	best, bestScore := "", -1.0
	for _, e := range snap.Participant1 {
		other, ok := snap.Participant2.Lookup(e.Label)
		if !ok {
			continue
		}
		if m := min(e.Score, other); m > bestScore {
			best, bestScore = e.Label, m
		}
	}
	if best == "" {
		return snap.Participant1.Dominant()
	}
	return best
}

// Stats summarize a non-empty series.
type Stats struct {
	OverallScore       float64 `json:"overallScore"`
	Peak               Point   `json:"peakMoment"`
	Low                Point   `json:"lowMoment"`
	EmotionalSynchrony float64 `json:"emotionalSynchrony"`
}

// Stats returns ErrNoData for an empty series. Peak and low ties keep the earliest point.
func (s Series) Stats() (Stats, error) {
	if len(s) == 0 {
		return Stats{}, ErrNoData
	}
	sum := 0.0
	peak, low := 0, 0
	for i, p := range s {
		sum += p.Score
		if p.Score > s[peak].Score {
			peak = i
		}
		if p.Score < s[low].Score {
			low = i
		}
	}
	matched := 0
	for _, p := range s[1:] {
		if emotion.Normalize(p.P1Dominant) == emotion.Normalize(p.P2Dominant) {
			matched++
		}
	}
	st := Stats{
		OverallScore: sum / float64(len(s)),
		Peak:         s[peak],
		Low:          s[low],
	}
	if len(s) > 1 {
		st.EmotionalSynchrony = float64(matched) / float64(len(s)-1)
	}
	return st, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

package signals

import (
	"sync"

	"github.com/maastricht-university/datecoach-analytics/emotion"
)

type slot struct {
	p emotion.Participant
	m emotion.Modality
}

// Buffer holds the latest distribution per (participant, modality). No history is kept here.
type Buffer struct {
	mu   sync.RWMutex
	held map[slot]emotion.Distribution
}

func NewBuffer() *Buffer {
	return &Buffer{held: make(map[slot]emotion.Distribution, 4)}
}

// Record replaces the held distribution. An empty distribution is kept as "seen but neutral".
func (b *Buffer) Record(s emotion.Sample) {
	d := s.Emotions.Clone()
	if d == nil {
		d = emotion.Distribution{}
	}
	b.mu.Lock()
	b.held[slot{s.Participant, s.Modality}] = d
	b.mu.Unlock()
}

// Current returns a copy that later Record calls cannot touch.
func (b *Buffer) Current() Distributions {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(Distributions, len(b.held))
	for k, d := range b.held {
		out[k] = d.Clone()
	}
	return out
}

// Distributions is a detached view of the buffer.
type Distributions map[slot]emotion.Distribution

// Get reports the held distribution and whether the pair has reported at all.
func (d Distributions) Get(p emotion.Participant, m emotion.Modality) (emotion.Distribution, bool) {
	v, ok := d[slot{p, m}]
	return v, ok
}

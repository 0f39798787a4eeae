package segment

import (
	"errors"
	"fmt"
	"sync"
)

var ErrNotMonotonic = errors.New("segment starts before log tail")

// Log is the append-only segment sequence. The only permitted write to a stored
// segment is the one-time response latency back-fill through the pending index.
type Log struct {
	mu      sync.RWMutex
	items   []Segment
	pending int
}

func NewLog() *Log { return &Log{pending: -1} }

// Append assigns the next index, back-fills the latency of the pending segment and
// makes the new segment pending. Latency runs from the pending segment's last
// utterance, or its end when that is unknown, to the new segment's start.
func (l *Log) Append(s Segment) (Segment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.items); n > 0 && s.StartTime.Before(l.items[n-1].StartTime) {
		return Segment{}, fmt.Errorf("segment %d: %w", n, ErrNotMonotonic)
	}
	if l.pending >= 0 {
		prev := &l.items[l.pending]
		ref := prev.End()
		if !prev.LastSpokenAt.IsZero() {
			ref = prev.LastSpokenAt
		}
		lat := s.StartTime.Sub(ref)
		if lat < 0 {
			lat = 0
		}
		prev.Derived.ResponseLatency = &lat
	}
	s = s.clone()
	s.Derived.ResponseLatency = nil
	s.Index = len(l.items)
	l.items = append(l.items, s)
	l.pending = s.Index
	return s.clone(), nil
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Snapshot returns deep copies in order.
func (l *Log) Snapshot() []Segment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Segment, len(l.items))
	for i, s := range l.items {
		out[i] = s.clone()
	}
	return out
}

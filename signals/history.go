package signals

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/maastricht-university/datecoach-analytics/emotion"
)

var ErrNotMonotonic = errors.New("snapshot precedes history tail")

// Snapshot is a time-aligned pair of fused distributions, one per participant.
type Snapshot struct {
	Timestamp    time.Time            `json:"timestamp"`
	Participant1 emotion.Distribution `json:"participant1Emotions"`
	Participant2 emotion.Distribution `json:"participant2Emotions"`
}

func (s Snapshot) For(p emotion.Participant) emotion.Distribution {
	if p == emotion.Participant2 {
		return s.Participant2
	}
	return s.Participant1
}

// History is the session's append-only EmotionHistory log. Components share one instance.
type History struct {
	mu    sync.RWMutex
	items []Snapshot
}

func NewHistory() *History { return &History{} }

func (h *History) Append(s Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.items); n > 0 && s.Timestamp.Before(h.items[n-1].Timestamp) {
		return fmt.Errorf("append at %s: %w", s.Timestamp.Format(time.RFC3339Nano), ErrNotMonotonic)
	}
	h.items = append(h.items, s)
	return nil
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

// Snapshot returns an ordered copy of the log as of the call.
func (h *History) Snapshot() []Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Snapshot, len(h.items))
	copy(out, h.items)
	return out
}

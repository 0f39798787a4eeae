package signals

import (
	"context"
	"time"

	"github.com/maastricht-university/datecoach-analytics/emotion"
)

const DefaultInterval = 5 * time.Second

// Fuse merges facial and vocal lists. A label reported by both keeps the higher score;
// facial order comes first, then labels only the voice reported.
func Fuse(facial, vocal emotion.Distribution) emotion.Distribution {
	out := make(emotion.Distribution, 0, len(facial)+len(vocal))
	pos := make(map[string]int, len(facial)+len(vocal))
	for _, list := range []emotion.Distribution{facial, vocal} {
		for _, s := range list {
			key := emotion.Normalize(s.Label)
			if i, ok := pos[key]; ok {
				if s.Score > out[i].Score {
					out[i].Score = s.Score
				}
				continue
			}
			pos[key] = len(out)
			out = append(out, s)
		}
	}
	return out
}

// Sampler materializes snapshots from the buffer into the shared history.
type Sampler struct {
	interval time.Duration
	buffer   *Buffer
	history  *History
}

func NewSampler(b *Buffer, h *History, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{interval: interval, buffer: b, history: h}
}

func (s *Sampler) Interval() time.Duration { return s.interval }

// Sample fuses the current distributions for both participants and appends the snapshot.
func (s *Sampler) Sample(ts time.Time) (Snapshot, error) {
	cur := s.buffer.Current()
	fused := func(p emotion.Participant) emotion.Distribution {
		f, _ := cur.Get(p, emotion.Facial)
		v, _ := cur.Get(p, emotion.Vocal)
		return Fuse(f, v)
	}
	snap := Snapshot{
		Timestamp:    ts,
		Participant1: fused(emotion.Participant1),
		Participant2: fused(emotion.Participant2),
	}
	if err := s.history.Append(snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Run forwards ticks to fire until ctx is done or ticks closes. If ticks is nil a
// time.Ticker at the sampler interval is used and stopped on return.
func (s *Sampler) Run(ctx context.Context, ticks <-chan time.Time, fire func()) {
	if ticks == nil {
		t := time.NewTicker(s.interval)
		defer t.Stop()
		ticks = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			// a tick racing with cancellation is discarded
			if ctx.Err() != nil {
				return
			}
			fire()
		}
	}
}

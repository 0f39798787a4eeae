package emotion

import "strings"

const Neutral = "neutral"

// Category groups labels that scorers treat alike.
type Category int

const (
	Positive  Category = iota // shared positive affect for chemistry
	Negative                  // shared negative affect for chemistry
	Listening                 // listener cues for active listening
	Energy                    // energy level of a turn
	Laughter                  // partner reaction that marks a landed joke
)

func (c Category) String() string {
	switch c {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	case Listening:
		return "listening"
	case Energy:
		return "energy"
	case Laughter:
		return "laughter"
	}
	return "unknown"
}

// Amusement is looked up on its own by the joke detector.
const Amusement = "amusement"

// Normalize is the single label comparison key used by every scorer.
func Normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Table is the label classification table. Membership is case-insensitive and exact.
type Table struct {
	members map[Category]map[string]struct{}
}

func NewTable(sets map[Category][]string) *Table {
	t := &Table{members: make(map[Category]map[string]struct{}, len(sets))}
	for c, labels := range sets {
		m := make(map[string]struct{}, len(labels))
		for _, l := range labels {
			m[Normalize(l)] = struct{}{}
		}
		t.members[c] = m
	}
	return t
}

func DefaultTable() *Table {
	return NewTable(map[Category][]string{
		Positive:  {"joy", "interest", "excitement", "amusement"},
		Negative:  {"sadness", "anger", "fear", "disgust"},
		Listening: {"interest", "joy", "engagement", "surprise"},
		Energy:    {"excitement", "enthusiasm", "energy"},
		Laughter:  {"joy", "amusement"},
	})
}

func (t *Table) Is(c Category, label string) bool {
	_, ok := t.members[c][Normalize(label)]
	return ok
}

// Sum adds the scores of every entry of d that belongs to c.
func (t *Table) Sum(c Category, d Distribution) float64 {
	total := 0.0
	for _, s := range d {
		if t.Is(c, s.Label) {
			total += s.Score
		}
	}
	return total
}

// AnyAbove reports whether some entry of d in c scores strictly above threshold.
func (t *Table) AnyAbove(c Category, d Distribution, threshold float64) bool {
	for _, s := range d {
		if t.Is(c, s.Label) && s.Score > threshold {
			return true
		}
	}
	return false
}

// CountAbove returns how many entries of d in c score strictly above threshold.
func (t *Table) CountAbove(c Category, d Distribution, threshold float64) int {
	n := 0
	for _, s := range d {
		if t.Is(c, s.Label) && s.Score > threshold {
			n++
		}
	}
	return n
}

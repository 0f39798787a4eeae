package emotion

import (
	"strings"
	"time"
)

type Participant string

const (
	Participant1 Participant = "participant1"
	Participant2 Participant = "participant2"
)

// ParseParticipant accepts the canonical ids case-insensitively.
func ParseParticipant(s string) (Participant, bool) {
	switch Participant(strings.ToLower(strings.TrimSpace(s))) {
	case Participant1:
		return Participant1, true
	case Participant2:
		return Participant2, true
	}
	return "", false
}

func (p Participant) Valid() bool { return p == Participant1 || p == Participant2 }

// Other returns the conversation partner of p.
func (p Participant) Other() Participant {
	if p == Participant1 {
		return Participant2
	}
	return Participant1
}

type Modality string

const (
	Facial Modality = "facial"
	Vocal  Modality = "vocal"
)

// Score is one (label, score) entry. Scores are bounded floats in [0,100], not probabilities.
type Score struct {
	Label string  `json:"label" yaml:"label"`
	Score float64 `json:"score" yaml:"score"`
}

// Distribution is an ordered list of scored labels as delivered by a feed.
type Distribution []Score

func (d Distribution) Clone() Distribution {
	if d == nil {
		return nil
	}
	out := make(Distribution, len(d))
	copy(out, d)
	return out
}

// Dominant returns the top-1 label. Ties keep the earliest entry; an empty distribution is Neutral.
func (d Distribution) Dominant() string {
	if len(d) == 0 {
		return Neutral
	}
	best := 0
	for i := 1; i < len(d); i++ {
		if d[i].Score > d[best].Score {
			best = i
		}
	}
	return d[best].Label
}

// Lookup finds the score of label, matching case-insensitively.
func (d Distribution) Lookup(label string) (float64, bool) {
	key := Normalize(label)
	for _, s := range d {
		if Normalize(s.Label) == key {
			return s.Score, true
		}
	}
	return 0, false
}

// Sample is one feed delivery for a participant and modality. Immutable once created.
type Sample struct {
	Participant Participant  `json:"participantId"`
	Modality    Modality     `json:"modality"`
	Timestamp   time.Time    `json:"timestamp"`
	Emotions    Distribution `json:"emotions"`
}

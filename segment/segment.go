package segment

import (
	"time"

	"github.com/maastricht-university/datecoach-analytics/emotion"
)

// Features are the per-turn values derived by the Classifier.
type Features struct {
	EngagementLevel float64 `json:"engagementLevel"`
	EnergyLevel     float64 `json:"energyLevel"`
	EmotionalRange  float64 `json:"emotionalRange"`
	JokeDetected    bool    `json:"jokeDetected"`
	QuestionAsked   bool    `json:"questionAsked"`
	StoryTelling    bool    `json:"storyTelling"`
	ActiveListening bool    `json:"activeListening"`
	// ResponseLatency is set once, when the next turn starts.
	ResponseLatency *time.Duration `json:"responseLatency,omitempty"`
}

// Segment is one completed speaker turn. Duration is the time the speaker held the
// floor: from the first utterance until the other speaker started or the session ended.
type Segment struct {
	Index           int                  `json:"index"`
	Speaker         emotion.Participant  `json:"speaker"`
	Text            string               `json:"text"`
	StartTime       time.Time            `json:"startTime"`
	Duration        time.Duration        `json:"duration"`
	LastSpokenAt    time.Time            `json:"lastSpokenAt"`
	FacialEmotions  emotion.Distribution `json:"facialEmotions"`
	ProsodyEmotions emotion.Distribution `json:"prosodyEmotions"`
	ListenerFacial  emotion.Distribution `json:"listenerFacialEmotions"`
	Derived         Features             `json:"derived"`
}

func (s Segment) End() time.Time { return s.StartTime.Add(s.Duration) }

func (s Segment) clone() Segment {
	s.FacialEmotions = s.FacialEmotions.Clone()
	s.ProsodyEmotions = s.ProsodyEmotions.Clone()
	s.ListenerFacial = s.ListenerFacial.Clone()
	if s.Derived.ResponseLatency != nil {
		l := *s.Derived.ResponseLatency
		s.Derived.ResponseLatency = &l
	}
	return s
}

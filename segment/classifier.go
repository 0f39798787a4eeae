package segment

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/maastricht-university/datecoach-analytics/emotion"
)

type Thresholds struct {
	Amusement      float64 `yaml:"amusement_threshold" mapstructure:"amusement_threshold"`
	Listening      float64 `yaml:"listening_threshold" mapstructure:"listening_threshold"`
	Range          float64 `yaml:"range_threshold" mapstructure:"range_threshold"`
	StoryMinLength int     `yaml:"story_min_length" mapstructure:"story_min_length"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Amusement: 60, Listening: 30, Range: 20, StoryMinLength: 50}
}

// Input is a completed turn before classification.
type Input struct {
	Speaker        emotion.Participant
	Text           string
	StartTime      time.Time
	Duration       time.Duration
	LastSpokenAt   time.Time
	Facial         emotion.Distribution
	Prosody        emotion.Distribution
	ListenerFacial emotion.Distribution
}

// Classifier tags a turn with behaviors and scalar features. It never fails:
// missing data pulls scores toward zero.
type Classifier struct {
	kw    Keywords
	th    Thresholds
	table *emotion.Table
}

func NewClassifier(kw Keywords, th Thresholds, table *emotion.Table) *Classifier {
	if table == nil {
		table = emotion.DefaultTable()
	}
	return &Classifier{kw: kw.WithDefaults(), th: th, table: table}
}

func (c *Classifier) Classify(in Input) Segment {
	all := make(emotion.Distribution, 0, len(in.Facial)+len(in.Prosody))
	all = append(all, in.Facial...)
	all = append(all, in.Prosody...)

	return Segment{
		Speaker:         in.Speaker,
		Text:            in.Text,
		StartTime:       in.StartTime,
		Duration:        in.Duration,
		LastSpokenAt:    in.LastSpokenAt,
		FacialEmotions:  in.Facial.Clone(),
		ProsodyEmotions: in.Prosody.Clone(),
		ListenerFacial:  in.ListenerFacial.Clone(),
		Derived: Features{
			EngagementLevel: engagement(all),
			EnergyLevel:     c.table.Sum(emotion.Energy, all) / 100,
			EmotionalRange:  c.emotionalRange(all),
			JokeDetected:    c.IsJoke(in.Text, in.Facial),
			QuestionAsked:   c.IsQuestion(in.Text),
			StoryTelling:    c.IsStory(in.Text),
			ActiveListening: c.table.AnyAbove(emotion.Listening, in.ListenerFacial, c.th.Listening),
		},
	}
}

func (c *Classifier) IsQuestion(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, w := range c.kw.Interrogatives {
		if hasWordPrefix(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func (c *Classifier) IsJoke(text string, facial emotion.Distribution) bool {
	lower := strings.ToLower(text)
	for _, m := range c.kw.AmusementMarkers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	for _, s := range facial {
		if emotion.Normalize(s.Label) == emotion.Amusement && s.Score > c.th.Amusement {
			return true
		}
	}
	return false
}

func (c *Classifier) IsStory(text string) bool {
	if utf8.RuneCountInString(text) <= c.th.StoryMinLength {
		return false
	}
	lower := strings.ToLower(text)
	for _, m := range c.kw.NarrativeMarkers {
		if containsWord(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

func engagement(all emotion.Distribution) float64 {
	if len(all) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range all {
		sum += s.Score
	}
	return clamp01(sum / float64(len(all)) / 100)
}

func (c *Classifier) emotionalRange(all emotion.Distribution) float64 {
	if len(all) == 0 {
		return 0
	}
	n := 0
	for _, s := range all {
		if s.Score > c.th.Range {
			n++
		}
	}
	return float64(n) / float64(len(all))
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

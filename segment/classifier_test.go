package segment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/maastricht-university/datecoach-analytics/emotion"
)

func newTestClassifier() *Classifier {
	return NewClassifier(DefaultKeywords(), DefaultThresholds(), emotion.DefaultTable())
}

func TestIsQuestion(t *testing.T) {
	c := newTestClassifier()
	tests := []struct {
		text string
		want bool
	}{
		{"What do you do for fun?", true},
		{"  how was your weekend", true},
		{"Do you like hiking", true},
		{"WHERE did you grow up", true},
		{"you like jazz?", true},
		{"Whatever, I like jazz", false},
		{"Showing up late is rude", false},
		{"I love hiking.", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsQuestion(tt.text))
		})
	}
}

func TestIsJoke(t *testing.T) {
	c := newTestClassifier()

	assert.True(t, c.IsJoke("lol that's hilarious", nil), "keyword match with no facial data")
	assert.True(t, c.IsJoke("HAHAHA okay", nil))
	assert.True(t, c.IsJoke("That was a good one", emotion.Distribution{{Label: "Amusement", Score: 61}}))
	assert.False(t, c.IsJoke("That was a good one", emotion.Distribution{{Label: "Amusement", Score: 60}}))
	assert.False(t, c.IsJoke("I work in finance", emotion.Distribution{{Label: "Joy", Score: 95}}))
}

func TestIsStory(t *testing.T) {
	c := newTestClassifier()

	assert.True(t, c.IsStory("We drove to the coast and then the car broke down near the pier."))
	assert.True(t, c.IsStory("Yesterday I finally went to that little bakery on the corner."))
	assert.False(t, c.IsStory("and then it rained"), "too short")
	assert.False(t, c.IsStory("My favourite cuisines are Thai, Ethiopian, Peruvian and Italian food."),
		"long but no narrative marker")
	assert.False(t, c.IsStory("I think the reasoning is that also elastic bands are very useful."),
		"markers must sit on word boundaries")
}

func TestClassifyFeatures(t *testing.T) {
	c := newTestClassifier()
	seg := c.Classify(Input{
		Speaker:        emotion.Participant1,
		Text:           "I love that",
		StartTime:      time.Unix(0, 0),
		Duration:       3 * time.Second,
		Facial:         emotion.Distribution{{Label: "Joy", Score: 60}, {Label: "Excitement", Score: 40}},
		Prosody:        emotion.Distribution{{Label: "Enthusiasm", Score: 30}, {Label: "Calmness", Score: 10}},
		ListenerFacial: emotion.Distribution{{Label: "Interest", Score: 31}},
	})

	assert.InDelta(t, 0.35, seg.Derived.EngagementLevel, 1e-9)
	assert.InDelta(t, 0.70, seg.Derived.EnergyLevel, 1e-9)
	assert.InDelta(t, 0.75, seg.Derived.EmotionalRange, 1e-9)
	assert.True(t, seg.Derived.ActiveListening)
	assert.False(t, seg.Derived.QuestionAsked)
	assert.Nil(t, seg.Derived.ResponseLatency)
}

func TestClassifyEmptyInputDegradesToZero(t *testing.T) {
	seg := newTestClassifier().Classify(Input{Speaker: emotion.Participant2})

	assert.Zero(t, seg.Derived.EngagementLevel)
	assert.Zero(t, seg.Derived.EnergyLevel)
	assert.Zero(t, seg.Derived.EmotionalRange)
	assert.False(t, seg.Derived.JokeDetected)
	assert.False(t, seg.Derived.ActiveListening)
}

func TestEnergyIsNotClamped(t *testing.T) {
	seg := newTestClassifier().Classify(Input{
		Facial:  emotion.Distribution{{Label: "Excitement", Score: 90}},
		Prosody: emotion.Distribution{{Label: "Energy", Score: 80}},
	})
	assert.InDelta(t, 1.7, seg.Derived.EnergyLevel, 1e-9)
	assert.InDelta(t, 0.85, seg.Derived.EngagementLevel, 1e-9)
}

func TestCustomKeywords(t *testing.T) {
	c := NewClassifier(Keywords{AmusementMarkers: []string{"jaja"}}, DefaultThresholds(), nil)
	assert.True(t, c.IsJoke("jajaja", nil))
	assert.False(t, c.IsJoke("haha", nil))
	assert.True(t, c.IsQuestion("why not"), "empty tables fall back to defaults")
}

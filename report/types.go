package report

import (
	"time"

	"github.com/maastricht-university/datecoach-analytics/chemistry"
	"github.com/maastricht-university/datecoach-analytics/emotion"
)

// SpeakerMetrics describe the coached user's own turns.
type SpeakerMetrics struct {
	TurnCount            int     `json:"turnCount"`
	SpeakingTimeShare    float64 `json:"speakingTimeShare"`
	WordsPerTurn         float64 `json:"wordsPerTurn"`
	JokesTold            int     `json:"jokesTold"`
	StoriesTold          int     `json:"storiesTold"`
	QuestionsAsked       int     `json:"questionsAsked"`
	JokeSuccessRate      float64 `json:"jokeSuccessRate"`
	StoryEngagementScore float64 `json:"storyEngagementScore"`
	QuestionQuality      float64 `json:"questionQuality"`
	AverageEnergy        float64 `json:"averageEnergy"`
	AverageEngagement    float64 `json:"averageEngagement"`
	// AverageResponseLatency is how long the user took to answer the partner.
	AverageResponseLatency time.Duration `json:"averageResponseLatency"`
}

// ListenerMetrics describe the user while the partner speaks.
type ListenerMetrics struct {
	ActiveListeningScore float64 `json:"activeListeningScore"`
	ActiveListeningRatio float64 `json:"activeListeningRatio"`
	PartnerEngagement    float64 `json:"partnerEngagement"`
}

// Scores are all clamped to [0,1].
type Scores struct {
	Charisma         float64 `json:"charisma"`
	Empathy          float64 `json:"empathy"`
	Authenticity     float64 `json:"authenticity"`
	Chemistry        float64 `json:"chemistry"`
	ConversationFlow float64 `json:"conversationFlow"`
}

type Insights struct {
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Tips         []string `json:"tips"`
}

// ChemistrySummary keeps "no measurement" apart from a measured zero.
type ChemistrySummary struct {
	HasData bool            `json:"hasData"`
	Stats   chemistry.Stats `json:"stats"`
}

// PerformanceReport is built once per call and never mutated. Reports with Final
// unset were taken before session end and are incomplete by definition.
type PerformanceReport struct {
	User          emotion.Participant   `json:"user"`
	GeneratedAt   time.Time             `json:"generatedAt"`
	Final         bool                  `json:"final"`
	Speaker       SpeakerMetrics        `json:"speakerMetrics"`
	Listener      ListenerMetrics       `json:"listenerMetrics"`
	Scores        Scores                `json:"scores"`
	Chemistry     ChemistrySummary      `json:"chemistry"`
	KeyMoments    []chemistry.KeyMoment `json:"keyMoments"`
	Insights      Insights              `json:"insights"`
	SegmentCount  int                   `json:"segmentCount"`
	SnapshotCount int                   `json:"snapshotCount"`
}

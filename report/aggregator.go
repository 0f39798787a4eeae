package report

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/maastricht-university/datecoach-analytics/chemistry"
	"github.com/maastricht-university/datecoach-analytics/emotion"
	"github.com/maastricht-university/datecoach-analytics/segment"
)

type Config struct {
	User              emotion.Participant `yaml:"user" mapstructure:"user"`
	JokeReaction      float64             `yaml:"joke_reaction_threshold" mapstructure:"joke_reaction_threshold"`
	ResponseMinLength int                 `yaml:"response_min_length" mapstructure:"response_min_length"`
	Listening         float64             `yaml:"listening_threshold" mapstructure:"listening_threshold"`
	Bands             Bands               `yaml:"bands" mapstructure:"bands"`
}

func DefaultConfig() Config {
	return Config{
		User:              emotion.Participant1,
		JokeReaction:      50,
		ResponseMinLength: 30,
		Listening:         30,
		Bands:             DefaultBands(),
	}
}

// Input is everything a report is computed from.
type Input struct {
	Segments []segment.Segment
	Series   chemistry.Series
	Moments  []chemistry.KeyMoment
	At       time.Time
	Final    bool
}

type Aggregator struct {
	cfg   Config
	table *emotion.Table
}

func NewAggregator(cfg Config, table *emotion.Table) *Aggregator {
	if !cfg.User.Valid() {
		cfg.User = emotion.Participant1
	}
	if table == nil {
		table = emotion.DefaultTable()
	}
	return &Aggregator{cfg: cfg, table: table}
}

// Build never fails; empty inputs give zero scores and empty insight lists.
func (a *Aggregator) Build(in Input) PerformanceReport {
	segs := in.Segments
	user := a.cfg.User

	r := PerformanceReport{
		User:          user,
		GeneratedAt:   in.At,
		Final:         in.Final,
		KeyMoments:    append([]chemistry.KeyMoment{}, in.Moments...),
		SegmentCount:  len(segs),
		SnapshotCount: len(in.Series),
	}

	// ErrNoData is the only failure; it leaves HasData false and the chemistry score at 0.
	if st, err := in.Series.Stats(); err == nil {
		r.Chemistry = ChemistrySummary{HasData: true, Stats: st}
	}

	r.Speaker = a.speaker(segs)
	r.Listener = a.listener(segs)

	authenticity := mean(filter(segs, user), func(s segment.Segment) float64 { return s.Derived.EmotionalRange })
	r.Scores = Scores{
		Charisma: clamp01(0.3*r.Speaker.JokeSuccessRate +
			0.4*r.Speaker.StoryEngagementScore +
			0.3*r.Speaker.QuestionQuality),
		Empathy:          clamp01(r.Listener.ActiveListeningScore),
		Authenticity:     clamp01(authenticity),
		Chemistry:        clamp01(r.Chemistry.Stats.OverallScore),
		ConversationFlow: clamp01(conversationFlow(segs)),
	}

	r.Insights = DefaultRules(a.cfg.Bands).Evaluate(r, facts{
		userTurns:    r.Speaker.TurnCount,
		partnerTurns: len(filter(segs, user.Other())),
		userActs:     r.Speaker.JokesTold + r.Speaker.StoriesTold + r.Speaker.QuestionsAsked,
		segments:     len(segs),
		snapshots:    len(in.Series),
	})
	return r
}

func (a *Aggregator) speaker(segs []segment.Segment) SpeakerMetrics {
	user := a.cfg.User
	var m SpeakerMetrics
	var storySum, questionSum float64
	var jokeHits, storyN, questionN, words int
	var userTime, allTime time.Duration

	for i, s := range segs {
		allTime += s.Duration
		if s.Speaker != user {
			continue
		}
		m.TurnCount++
		userTime += s.Duration
		words += len(strings.Fields(s.Text))

		var next *segment.Segment
		if i+1 < len(segs) && segs[i+1].Speaker != user {
			next = &segs[i+1]
		}
		if s.Derived.JokeDetected {
			m.JokesTold++
			if next != nil && a.table.AnyAbove(emotion.Laughter, next.FacialEmotions, a.cfg.JokeReaction) {
				jokeHits++
			}
		}
		if s.Derived.StoryTelling {
			m.StoriesTold++
			if next != nil {
				storySum += next.Derived.EngagementLevel
				storyN++
			}
		}
		if s.Derived.QuestionAsked {
			m.QuestionsAsked++
			if next != nil {
				q := 0.5 * next.Derived.EngagementLevel
				if utf8.RuneCountInString(next.Text) > a.cfg.ResponseMinLength {
					q += 0.5
				}
				questionSum += q
				questionN++
			}
		}
	}

	m.JokeSuccessRate = ratio(float64(jokeHits), m.JokesTold)
	m.StoryEngagementScore = ratio(storySum, storyN)
	m.QuestionQuality = ratio(questionSum, questionN)
	m.WordsPerTurn = ratio(float64(words), m.TurnCount)
	if allTime > 0 {
		m.SpeakingTimeShare = float64(userTime) / float64(allTime)
	}

	mine := filter(segs, user)
	m.AverageEnergy = mean(mine, func(s segment.Segment) float64 { return s.Derived.EnergyLevel })
	m.AverageEngagement = mean(mine, func(s segment.Segment) float64 { return s.Derived.EngagementLevel })

	var lat time.Duration
	n := 0
	for _, s := range filter(segs, user.Other()) {
		if s.Derived.ResponseLatency != nil {
			lat += *s.Derived.ResponseLatency
			n++
		}
	}
	if n > 0 {
		m.AverageResponseLatency = lat / time.Duration(n)
	}
	return m
}

func (a *Aggregator) listener(segs []segment.Segment) ListenerMetrics {
	partner := filter(segs, a.cfg.User.Other())
	return ListenerMetrics{
		ActiveListeningScore: mean(partner, func(s segment.Segment) float64 {
			return ratio(float64(a.table.CountAbove(emotion.Listening, s.ListenerFacial, a.cfg.Listening)), len(s.ListenerFacial))
		}),
		ActiveListeningRatio: mean(partner, func(s segment.Segment) float64 {
			if s.Derived.ActiveListening {
				return 1
			}
			return 0
		}),
		PartnerEngagement: mean(partner, func(s segment.Segment) float64 { return s.Derived.EngagementLevel }),
	}
}

// conversationFlow is the share of adjacent pairs linked by a topic follow-up or by a
// question answered by the other speaker.
func conversationFlow(segs []segment.Segment) float64 {
	if len(segs) < 2 {
		return 0
	}
	linked := 0
	for i := 1; i < len(segs); i++ {
		a, b := segs[i-1], segs[i]
		if (a.Derived.QuestionAsked && a.Speaker != b.Speaker) || followsTopic(a.Text, b.Text) {
			linked++
		}
	}
	return float64(linked) / float64(len(segs)-1)
}

var stopWords = map[string]struct{}{
	"that": {}, "this": {}, "with": {}, "have": {}, "what": {}, "your": {}, "about": {}, "they": {},
	"there": {}, "their": {}, "would": {}, "could": {}, "just": {}, "like": {}, "really": {}, "yeah": {},
	"know": {}, "think": {}, "been": {}, "were": {}, "when": {}, "where": {}, "from": {}, "will": {},
	"well": {}, "much": {}, "very": {}, "some": {}, "also": {}, "then": {}, "than": {}, "them": {},
	"because": {}, "doing": {}, "pretty": {}, "thing": {}, "things": {},
}

func contentWords(text string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) }) {
		if utf8.RuneCountInString(w) < 4 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func followsTopic(prev, next string) bool {
	words := contentWords(prev)
	for w := range contentWords(next) {
		if _, ok := words[w]; ok {
			return true
		}
	}
	return false
}

func filter(segs []segment.Segment, p emotion.Participant) []segment.Segment {
	var out []segment.Segment
	for _, s := range segs {
		if s.Speaker == p {
			out = append(out, s)
		}
	}
	return out
}

func mean(segs []segment.Segment, f func(segment.Segment) float64) float64 {
	if len(segs) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range segs {
		sum += f(s)
	}
	return sum / float64(len(segs))
}

func ratio(num float64, den int) float64 {
	if den == 0 {
		return 0
	}
	return num / float64(den)
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

package report

import "github.com/maastricht-university/datecoach-analytics/chemistry"

// Bands split a score into strong / weak. Values in between produce no insight.
type Bands struct {
	Strong float64 `yaml:"strong" mapstructure:"strong"`
	Weak   float64 `yaml:"weak" mapstructure:"weak"`
}

func DefaultBands() Bands { return Bands{Strong: 0.7, Weak: 0.3} }

type facts struct {
	userTurns    int
	partnerTurns int
	userActs     int
	segments     int
	snapshots    int
}

// Rule maps one score to canned text. Measured gates the rule so that an
// unmeasured score never reads as a weakness.
type Rule struct {
	Name        string
	Score       func(Scores) float64
	Measured    func(facts) bool
	Strength    string
	Improvement string
	Tip         string
}

type Rules struct {
	bands Bands
	rules []Rule
}

func DefaultRules(b Bands) Rules {
	return Rules{bands: b, rules: []Rule{
		{
			Name:        "charisma",
			Score:       func(s Scores) float64 { return s.Charisma },
			Measured:    func(f facts) bool { return f.userActs > 0 },
			Strength:    "Your humor, stories and questions kept your partner engaged.",
			Improvement: "Your jokes, stories and questions did not land as well as they could.",
			Tip:         "Share a short personal story and end it with a question back to your partner.",
		},
		{
			Name:        "empathy",
			Score:       func(s Scores) float64 { return s.Empathy },
			Measured:    func(f facts) bool { return f.partnerTurns > 0 },
			Strength:    "You showed clear interest while your partner was talking.",
			Improvement: "You looked disengaged while your partner was speaking.",
			Tip:         "Nod, smile and react visibly when your partner shares something.",
		},
		{
			Name:        "authenticity",
			Score:       func(s Scores) float64 { return s.Authenticity },
			Measured:    func(f facts) bool { return f.userTurns > 0 },
			Strength:    "You expressed a genuine range of emotions.",
			Improvement: "Your emotional expression stayed flat.",
			Tip:         "Let your reactions show; it is fine to be openly excited or surprised.",
		},
		{
			Name:        "chemistry",
			Score:       func(s Scores) float64 { return s.Chemistry },
			Measured:    func(f facts) bool { return f.snapshots > 0 },
			Strength:    "You and your partner were often feeling the same positive emotions.",
			Improvement: "You and your partner rarely shared positive moments.",
			Tip:         "Look for common ground early and build on what makes both of you light up.",
		},
		{
			Name:        "conversationFlow",
			Score:       func(s Scores) float64 { return s.ConversationFlow },
			Measured:    func(f facts) bool { return f.segments > 1 },
			Strength:    "The conversation flowed naturally from one topic to the next.",
			Improvement: "The conversation jumped between topics without follow-up.",
			Tip:         "Pick up a detail from your partner's last answer before changing the subject.",
		},
	}}
}

// Evaluate returns non-nil lists in rule order.
func (r Rules) Evaluate(rep PerformanceReport, f facts) Insights {
	out := Insights{Strengths: []string{}, Improvements: []string{}, Tips: []string{}}
	for _, rule := range r.rules {
		if !rule.Measured(f) {
			continue
		}
		v := rule.Score(rep.Scores)
		switch {
		case v > r.bands.Strong:
			out.Strengths = append(out.Strengths, rule.Strength)
		case v < r.bands.Weak:
			out.Improvements = append(out.Improvements, rule.Improvement)
			out.Tips = append(out.Tips, rule.Tip)
		}
	}

	up, down := 0, 0
	for _, m := range rep.KeyMoments {
		if m.Impact == chemistry.ImpactPositive {
			up++
		} else {
			down++
		}
	}
	switch {
	case up > down:
		out.Strengths = append(out.Strengths, "You created several moments where the connection clearly rose.")
	case down > up:
		out.Tips = append(out.Tips, "Watch for moments where the energy drops and steer back to shared interests.")
	}
	return out
}

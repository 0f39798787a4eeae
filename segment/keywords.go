package segment

import (
	"strings"
	"unicode"
)

// Keywords are the replaceable English heuristics behind the text detectors.
type Keywords struct {
	Interrogatives   []string `yaml:"interrogatives" mapstructure:"interrogatives"`
	AmusementMarkers []string `yaml:"amusement_markers" mapstructure:"amusement_markers"`
	NarrativeMarkers []string `yaml:"narrative_markers" mapstructure:"narrative_markers"`
}

func DefaultKeywords() Keywords {
	return Keywords{
		Interrogatives: []string{
			"what", "how", "when", "where", "why", "who",
			"do you", "are you", "have you", "would you", "could you",
		},
		AmusementMarkers: []string{"haha", "hehe", "lol", "funny", "joke"},
		NarrativeMarkers: []string{"so", "then", "and then", "after that", "suddenly", "once", "yesterday", "last"},
	}
}

// WithDefaults fills empty tables from DefaultKeywords.
func (k Keywords) WithDefaults() Keywords {
	d := DefaultKeywords()
	if len(k.Interrogatives) == 0 {
		k.Interrogatives = d.Interrogatives
	}
	if len(k.AmusementMarkers) == 0 {
		k.AmusementMarkers = d.AmusementMarkers
	}
	if len(k.NarrativeMarkers) == 0 {
		k.NarrativeMarkers = d.NarrativeMarkers
	}
	return k
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

// hasWordPrefix matches w at the start of s when followed by a non-word rune or the end.
func hasWordPrefix(s, w string) bool {
	if w == "" || !strings.HasPrefix(s, w) {
		return false
	}
	rest := s[len(w):]
	if rest == "" {
		return true
	}
	return !isWordRune([]rune(rest)[0])
}

// containsWord finds phrase in s on word boundaries.
func containsWord(s, phrase string) bool {
	if phrase == "" {
		return false
	}
	for from := 0; from < len(s); {
		i := strings.Index(s[from:], phrase)
		if i < 0 {
			return false
		}
		i += from
		end := i + len(phrase)
		before := i == 0 || !isWordRune(lastRune(s[:i]))
		after := end == len(s) || !isWordRune([]rune(s[end:])[0])
		if before && after {
			return true
		}
		from = i + 1
	}
	return false
}

func lastRune(s string) rune {
	r := []rune(s)
	return r[len(r)-1]
}

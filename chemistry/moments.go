package chemistry

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DefaultThreshold is fixed so moment density does not depend on session length.
const DefaultThreshold = 0.2

type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
)

type KeyMoment struct {
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Impact      Impact    `json:"impact"`
	Delta       float64   `json:"delta"`
}

// DetectKeyMoments emits a moment at i when |score[i]-score[i-1]| > threshold.
// A non-positive threshold selects DefaultThreshold.
func DetectKeyMoments(series Series, threshold float64) []KeyMoment {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	out := []KeyMoment{}
	for i := 1; i < len(series); i++ {
		delta := series[i].Score - series[i-1].Score
		if math.Abs(delta) <= threshold {
			continue
		}
		m := KeyMoment{Timestamp: series[i].Timestamp, Delta: delta}
		if delta > 0 {
			m.Impact = ImpactPositive
			m.Description = fmt.Sprintf("Shared %s sparked a connection", strings.ToLower(series[i].Shared))
		} else {
			m.Impact = ImpactNegative
			m.Description = "Emotional mismatch: the connection dipped"
		}
		out = append(out, m)
	}
	return out
}

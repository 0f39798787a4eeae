package clients

import (
	"context"

	"github.com/maastricht-university/datecoach-analytics/chemistry"
	"github.com/maastricht-university/datecoach-analytics/report"
)

// --- Visualization ---
type TimelineReq struct {
	Timestamps []float64 `json:"timestamps"` // seconds since the first snapshot
	Scores     []float64 `json:"chemistry_scores"`
	Moments    []float64 `json:"key_moments,omitempty"`
	OutputDir  string    `json:"output_dir,omitempty"`
}

type TimelineResp struct {
	Status string `json:"status"`
	Path   string `json:"path"`
}

// TimelineFrom lays the chemistry series and key moments on one time axis.
func TimelineFrom(series chemistry.Series, moments []chemistry.KeyMoment, outDir string) TimelineReq {
	req := TimelineReq{
		Timestamps: make([]float64, 0, len(series)),
		Scores:     make([]float64, 0, len(series)),
		OutputDir:  outDir,
	}
	if len(series) == 0 {
		return req
	}
	origin := series[0].Timestamp
	for _, p := range series {
		req.Timestamps = append(req.Timestamps, p.Timestamp.Sub(origin).Seconds())
		req.Scores = append(req.Scores, p.Score)
	}
	for _, m := range moments {
		req.Moments = append(req.Moments, m.Timestamp.Sub(origin).Seconds())
	}
	return req
}

func (h *HTTP) GenerateTimeline(ctx context.Context, url string, req TimelineReq) (*TimelineResp, error) {
	var out TimelineResp
	if err := h.postJSON(ctx, "viz timeline", url, "/generate-timeline", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type RadarReq struct {
	Categories      []string  `json:"categories"`
	Values          []float64 `json:"values"`
	ParticipantName string    `json:"participant_name"`
	OutputDir       string    `json:"output_dir,omitempty"`
}

type RadarResp struct {
	Status string `json:"status"`
	Path   string `json:"path"`
}

// RadarFrom takes the five overall scores of a report in a fixed order.
func RadarFrom(rep report.PerformanceReport, outDir string) RadarReq {
	s := rep.Scores
	return RadarReq{
		Categories:      []string{"Charisma", "Empathy", "Authenticity", "Chemistry", "Conversation Flow"},
		Values:          []float64{s.Charisma, s.Empathy, s.Authenticity, s.Chemistry, s.ConversationFlow},
		ParticipantName: string(rep.User),
		OutputDir:       outDir,
	}
}

func (h *HTTP) GenerateRadar(ctx context.Context, url string, req RadarReq) (*RadarResp, error) {
	var out RadarResp
	if err := h.postJSON(ctx, "viz radar", url, "/generate-radar", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

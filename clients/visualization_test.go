package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/datecoach-analytics/chemistry"
	"github.com/maastricht-university/datecoach-analytics/emotion"
	"github.com/maastricht-university/datecoach-analytics/report"
)

func fastClient(retries int) *HTTP {
	h := NewHTTP(retries)
	h.interval = time.Millisecond
	return h
}

func TestTimelineFrom(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC)
	series := chemistry.Series{
		{Timestamp: t0, Score: 0.49},
		{Timestamp: t0.Add(5 * time.Second), Score: 0},
	}
	moments := []chemistry.KeyMoment{{Timestamp: t0.Add(5 * time.Second), Impact: chemistry.ImpactNegative}}

	req := TimelineFrom(series, moments, "out")
	assert.Equal(t, []float64{0, 5}, req.Timestamps)
	assert.Equal(t, []float64{0.49, 0}, req.Scores)
	assert.Equal(t, []float64{5}, req.Moments)

	empty := TimelineFrom(nil, nil, "")
	assert.NotNil(t, empty.Timestamps)
	assert.Empty(t, empty.Scores)
}

func TestGenerateRadarRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var got RadarReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate-radar", r.URL.Path)
		if calls.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(RadarResp{Status: "ok", Path: "/tmp/radar.png"})
	}))
	defer srv.Close()

	rep := report.PerformanceReport{User: emotion.Participant1, Scores: report.Scores{Charisma: 0.5, Chemistry: 0.25}}
	out, err := fastClient(3).GenerateRadar(context.Background(), srv.URL, RadarFrom(rep, ""))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/radar.png", out.Path)
	assert.EqualValues(t, 2, calls.Load())
	assert.Len(t, got.Categories, 5)
	assert.Equal(t, []float64{0.5, 0, 0, 0.25, 0}, got.Values)
	assert.Equal(t, "participant1", got.ParticipantName)
}

func TestGenerateTimelineClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad timeline", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := fastClient(3).GenerateTimeline(context.Background(), srv.URL, TimelineReq{})
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())

	var serr *statusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusBadRequest, serr.code)
	assert.Contains(t, err.Error(), "viz timeline")
}

func TestGenerateTimelineGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := fastClient(2).GenerateTimeline(context.Background(), srv.URL, TimelineReq{})
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load(), "first attempt plus two retries")
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/maastricht-university/datecoach-analytics/config"
	"github.com/maastricht-university/datecoach-analytics/emotion"
	"github.com/maastricht-university/datecoach-analytics/orchestrator"
	"github.com/maastricht-university/datecoach-analytics/report"
	"github.com/maastricht-university/datecoach-analytics/segment"
)

func newTestServer(t *testing.T) (*httptest.Server, *Registry) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	log := logrus.NewEntry(logger)
	reg := NewRegistry(context.Background(), func() orchestrator.Options {
		o := orchestrator.DefaultOptions()
		o.DisableTimer = true
		o.Logger = log
		return o
	})
	srv := httptest.NewServer(NewServer(cfg.Server{}, reg, log).Handler())
	t.Cleanup(func() {
		reg.EndAll()
		srv.Close()
	})
	return srv, reg
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createSession(t *testing.T, base string) string {
	t.Helper()
	resp := post(t, base+"/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.ID)
	return out.ID
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	srv, reg := newTestServer(t)
	id := createSession(t, srv.URL)
	base := srv.URL + "/api/v1/sessions/" + id
	assert.Equal(t, 1, reg.Len())

	resp := post(t, base+"/facial", `{"participantId":"participant1","emotions":[{"label":"Joy","score":80}]}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = post(t, base+"/vocal", `{"participantId":"participant2","emotions":[{"label":"Joy","score":70}]}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = post(t, base+"/transcript", `{"speaker":"participant1","text":"What kind of music do you like?"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = post(t, base+"/transcript", `{"speaker":"participant2","text":"Mostly jazz."}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var partial report.PerformanceReport
	require.Equal(t, http.StatusOK, get(t, base+"/report", &partial))
	assert.False(t, partial.Final)
	assert.Equal(t, 1, partial.SegmentCount)

	resp = post(t, base+"/end", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var final report.PerformanceReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&final))
	assert.True(t, final.Final)
	assert.Equal(t, 2, final.SegmentCount)

	resp = post(t, base+"/transcript", `{"speaker":"participant1","text":"too late"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var segs []segment.Segment
	require.Equal(t, http.StatusOK, get(t, base+"/segments", &segs))
	assert.Len(t, segs, 2)

	var moments []map[string]any
	require.Equal(t, http.StatusOK, get(t, base+"/moments", &moments))
	assert.Empty(t, moments)

	var history []map[string]any
	require.Equal(t, http.StatusOK, get(t, base+"/history", &history))
	assert.Empty(t, history)
}

func TestRequestErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv.URL)
	base := srv.URL + "/api/v1/sessions/" + id

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown session", "/api/v1/sessions/nope/facial", `{}`, http.StatusNotFound},
		{"malformed body", "/api/v1/sessions/" + id + "/facial", `{"participantId":`, http.StatusBadRequest},
		{"unknown participant", "/api/v1/sessions/" + id + "/vocal", `{"participantId":"participant9","emotions":[]}`, http.StatusBadRequest},
		{"unknown speaker", "/api/v1/sessions/" + id + "/transcript", `{"speaker":"host","text":"hi"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			var e errorResp
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
			assert.NotEmpty(t, e.Error)
		})
	}

	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/api/v1/sessions/nope/report", nil))
	assert.Equal(t, http.StatusOK, get(t, base+"/report", nil))
}

func TestHealthAndCORS(t *testing.T) {
	srv, _ := newTestServer(t)
	createSession(t, srv.URL)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://coach.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.EqualValues(t, 1, body["sessions"])
}

func TestStream(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv.URL)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + id + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	send := func(msg streamMsg) streamAck {
		require.NoError(t, conn.WriteJSON(msg))
		var ack streamAck
		require.NoError(t, conn.ReadJSON(&ack))
		return ack
	}

	ack := send(streamMsg{Type: "facial", ParticipantID: "participant1", Emotions: emotion.Distribution{{Label: "Joy", Score: 90}}})
	assert.True(t, ack.OK)
	ack = send(streamMsg{Type: "tick"})
	assert.True(t, ack.OK)
	ack = send(streamMsg{Type: "transcript", Speaker: "participant3", Text: "hi"})
	assert.False(t, ack.OK)
	assert.Contains(t, ack.Error, "unknown participant")
	ack = send(streamMsg{Type: "wave"})
	assert.False(t, ack.OK)

	ack = send(streamMsg{Type: "end"})
	require.True(t, ack.OK)
	require.NotNil(t, ack.Report)
	assert.True(t, ack.Report.Final)
	assert.Equal(t, 1, ack.Report.SnapshotCount)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestStreamUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/missing/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/maastricht-university/datecoach-analytics/config"
	"github.com/maastricht-university/datecoach-analytics/orchestrator"
	"github.com/maastricht-university/datecoach-analytics/report"
)

const script = `
interval: 5s
events:
  - {at: 0s, type: facial, participant: participant1, emotions: [{label: Joy, score: 80}]}
  - {at: 0s, type: facial, participant: participant2, emotions: [{label: Joy, score: 75}]}
  - {at: 1s, type: transcript, speaker: participant1, text: "Do you cook?"}
  - {at: 2s, type: transcript, speaker: participant2, text: "Only pasta, but I take it very seriously."}
  - {at: 12s, type: end}
`

func TestSetupLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	require.NoError(t, setupLogging(cfg.Pipeline{LogLvl: "debug", LogFormat: "json"}))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	assert.Error(t, setupLogging(cfg.Pipeline{LogLvl: "chatty"}))
	assert.Error(t, setupLogging(cfg.Pipeline{LogLvl: "info", LogFormat: "xml"}))
}

func TestReplayCommand(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)
	dir := t.TempDir()
	outputs := filepath.Join(dir, "outputs")
	confPath := filepath.Join(dir, "config.yaml")
	scriptPath := filepath.Join(dir, "date.yaml")
	require.NoError(t, os.WriteFile(confPath, []byte("pipeline:\n  log_level: error\npaths:\n  outputs: "+outputs+"\n"), 0o644))
	require.NoError(t, os.WriteFile(scriptPath, []byte(script), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"replay", scriptPath, "--config", confPath})
	require.NoError(t, rootCmd.Execute())

	var rep report.PerformanceReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.True(t, rep.Final)
	assert.Equal(t, 2, rep.SegmentCount)
	assert.Equal(t, 2, rep.SnapshotCount)

	entries, err := os.ReadDir(outputs)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.FileExists(t, filepath.Join(outputs, entries[0].Name(), "report.json"))
}

func TestSinkForwardsToVisualization(t *testing.T) {
	var paths atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths.Add(1)
		_, _ = w.Write([]byte(`{"status":"ok","path":"` + r.URL.Path + `.png"}`))
	}))
	defer srv.Close()

	c := cfg.Defaults()
	c.Paths.Outputs = t.TempDir()
	c.Services.Visualization.URL = srv.URL
	sink := newSink(c, logrus.NewEntry(logrus.New()))

	sink(orchestrator.Bundle{SessionID: "s1"})
	assert.EqualValues(t, 2, paths.Load())
	assert.DirExists(t, filepath.Join(c.Paths.Outputs, "session_s1"))
}

func TestDetachedSinkDoesNotBlockEnd(t *testing.T) {
	release := make(chan struct{})
	var got atomic.Value
	var wg sync.WaitGroup
	sink := detach(func(b orchestrator.Bundle) {
		<-release
		got.Store(b.SessionID)
	}, &wg)

	returned := make(chan struct{})
	go func() {
		sink(orchestrator.Bundle{SessionID: "s1"})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("sink blocked the caller")
	}
	assert.Nil(t, got.Load())

	close(release)
	wg.Wait()
	assert.Equal(t, "s1", got.Load())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/datecoach-analytics/emotion"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Session.SnapshotInterval)
	assert.Equal(t, 0.2, cfg.Analysis.KeyMomentThreshold)
	assert.Equal(t, 0.7, cfg.Analysis.Weights.Positive)
	assert.Contains(t, cfg.Keywords.Interrogatives, "would you")
	assert.Equal(t, emotion.Participant1, cfg.Report().User)
	assert.Equal(t, 50, cfg.Thresholds().StoryMinLength)
}

func TestDefaultsMatchEmptyLoad(t *testing.T) {
	chdir(t, t.TempDir())

	loaded, err := Load("")
	require.NoError(t, err)
	d := Defaults()
	assert.Equal(t, loaded, d)
	assert.NoError(t, d.Validate())
	assert.Equal(t, ":8080", d.Server.Addr)
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  log_level: debug
session:
  snapshot_interval: 2s
  user: participant2
analysis:
  amusement_threshold: 70
keywords:
  amusement_markers: [jaja, jeje]
insights:
  strong: 0.8
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Pipeline.LogLvl)
	assert.Equal(t, 2*time.Second, cfg.Session.SnapshotInterval)
	assert.Equal(t, emotion.Participant2, cfg.Report().User)
	assert.Equal(t, 70.0, cfg.Thresholds().Amusement)
	assert.Equal(t, []string{"jaja", "jeje"}, cfg.Keywords.AmusementMarkers)
	assert.Equal(t, 0.8, cfg.Insights.Strong)
	assert.Equal(t, 0.3, cfg.Insights.Weak, "unset keys keep defaults")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DATECOACH_SESSION_SNAPSHOT_INTERVAL", "1s")
	cfg, err := Load(writeConfig(t, "pipeline:\n  name: test\n"))
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Session.SnapshotInterval)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "session:\n  user: participant9\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "insights:\n  strong: 0.2\n  weak: 0.5\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")
}

func TestWatchReloads(t *testing.T) {
	path := writeConfig(t, "session:\n  snapshot_interval: 5s\n")
	l, err := NewLoader(path)
	require.NoError(t, err)
	assert.Equal(t, path, l.File())

	l.Watch(nil, nil)

	require.NoError(t, os.WriteFile(path, []byte("session:\n  snapshot_interval: 3s\n"), 0o644))
	require.Eventually(t, func() bool {
		return l.Current().Session.SnapshotInterval == 3*time.Second
	}, 5*time.Second, 20*time.Millisecond)
}

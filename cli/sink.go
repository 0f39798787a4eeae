package cli

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/datecoach-analytics/clients"
	cfg "github.com/maastricht-university/datecoach-analytics/config"
	"github.com/maastricht-university/datecoach-analytics/orchestrator"
)

// newSink persists every ended session and, when a visualization service is
// configured, renders its timeline and radar next to the bundle.
func newSink(c *cfg.Root, log *logrus.Entry) func(orchestrator.Bundle) {
	url := c.Services.Visualization.URL
	var viz *clients.HTTP
	if url != "" {
		viz = clients.NewHTTP(c.Services.Visualization.Retries)
	}
	outputs := c.Paths.Outputs

	return func(b orchestrator.Bundle) {
		l := log.WithField("session_id", b.SessionID)
		dir, err := orchestrator.Persist(outputs, b)
		if err != nil {
			l.WithError(err).Error("persist session")
			return
		}
		l.WithField("dir", dir).Info("session persisted")
		if viz == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if out, err := viz.GenerateTimeline(ctx, url, clients.TimelineFrom(b.Series, b.Report.KeyMoments, dir)); err != nil {
			l.WithError(err).Warn("chemistry timeline")
		} else {
			l.WithField("path", out.Path).Info("chemistry timeline rendered")
		}
		if out, err := viz.GenerateRadar(ctx, url, clients.RadarFrom(b.Report, dir)); err != nil {
			l.WithError(err).Warn("score radar")
		} else {
			l.WithField("path", out.Path).Info("score radar rendered")
		}
	}
}

// detach runs sink off the ending goroutine so End and its HTTP or stream
// reply do not wait on disk and the visualization service. wg tracks
// in-flight runs for shutdown.
func detach(sink func(orchestrator.Bundle), wg *sync.WaitGroup) func(orchestrator.Bundle) {
	return func(b orchestrator.Bundle) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink(b)
		}()
	}
}

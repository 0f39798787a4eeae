package cli

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/datecoach-analytics/api"
	cfg "github.com/maastricht-university/datecoach-analytics/config"
	"github.com/maastricht-university/datecoach-analytics/orchestrator"
	"github.com/maastricht-university/datecoach-analytics/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the live analytics API",
	Long: `Start the HTTP and WebSocket API. Every session ended through the API (or
still open at shutdown) is written to paths.outputs.

Examples:
  datecoach serve
  datecoach serve --config config/prod/config.yaml
  DATECOACH_SERVER_ADDR=:9090 datecoach serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c := loader.Current()
	log := logrus.WithField("component", "serve")

	if c.Telemetry.Enabled {
		mp, err := telemetry.NewExporter(ctx, c.Telemetry, c.Pipeline.Version)
		if err != nil {
			log.WithError(err).Warn("telemetry exporter not started")
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := mp.Shutdown(sctx); err != nil {
					log.WithError(err).Warn("telemetry shutdown")
				}
			}()
		}
	}
	rec, err := telemetry.NewRecorder()
	if err != nil {
		return err
	}

	loader.Watch(func(r *cfg.Root) {
		if err := setupLogging(r.Pipeline); err != nil {
			log.WithError(err).Warn("logging config")
		}
		log.Info("config reloaded, new sessions use it")
	}, func(err error) {
		log.WithError(err).Warn("config reload rejected")
	})

	var sinks sync.WaitGroup
	reg := api.NewRegistry(ctx, func() orchestrator.Options {
		cur := loader.Current()
		o := orchestrator.OptionsFromConfig(cur)
		o.Logger = logrus.NewEntry(logrus.StandardLogger())
		o.Metrics = rec
		o.OnEnd = detach(newSink(cur, log), &sinks)
		return o
	})
	srv := api.NewServer(c.Server, reg, log)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
	if n := reg.EndAll(); n > 0 {
		log.WithField("sessions", n).Info("ended open sessions")
	}
	sinks.Wait()
	return nil
}

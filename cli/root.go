package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfg "github.com/maastricht-university/datecoach-analytics/config"
)

var (
	configPath string
	loader     *cfg.Loader
)

var rootCmd = &cobra.Command{
	Use:   "datecoach",
	Short: "Conversation performance analytics for dating coaching",
	Long: `datecoach turns live facial, vocal and transcript feeds of a two-person
conversation into a chemistry timeline, key moments and a coaching report.

Run "datecoach serve" for the live API or "datecoach replay" for a recorded script.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := cfg.NewLoader(configPath)
		if err != nil {
			return err
		}
		loader = l
		if err := setupLogging(l.Current().Pipeline); err != nil {
			return err
		}
		if f := l.File(); f != "" {
			logrus.WithField("file", f).Debug("config loaded")
		} else {
			logrus.Debug("no config file found, using defaults")
		}
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default config/$CONFIG_ENV/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
}

func setupLogging(p cfg.Pipeline) error {
	lvl, err := logrus.ParseLevel(p.LogLvl)
	if err != nil {
		return fmt.Errorf("pipeline.log_level: %w", err)
	}
	logrus.SetLevel(lvl)
	switch p.LogFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("pipeline.log_format %q is not text or json", p.LogFormat)
	}
	return nil
}

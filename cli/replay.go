package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/datecoach-analytics/orchestrator"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>",
	Short: "Replay a recorded session script and print the report",
	Long: `Feed a recorded session through the engine on a simulated clock, persist the
bundle and print the final performance report as JSON.

Examples:
  datecoach replay testdata/first_date.yaml
  datecoach replay --no-persist session.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

// Flags
var replayNoPersist bool

func init() {
	replayCmd.Flags().BoolVar(&replayNoPersist, "no-persist", false, "Only print the report")
}

func runReplay(cmd *cobra.Command, args []string) error {
	c := loader.Current()
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	sc, err := orchestrator.LoadScript(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	log := logrus.WithField("script", filepath.Base(args[0]))
	o := orchestrator.OptionsFromConfig(c)
	o.Logger = log
	if !replayNoPersist {
		o.OnEnd = newSink(c, log)
	}

	_, rep, err := orchestrator.Replay(cmd.Context(), sc, o)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

package cmd

import (
	"errors"
	"fmt"

	core "regen/core/rebuild"
	"regen/feature/rebuild"

	"github.com/spf13/cobra"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded rebuild runs",
	Long:  `Lists the rebuild runs stored in the history database, newest first. Requires DATABASE_ENABLED.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := historyFor(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := history.List(limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}
		fmt.Printf("%-36s  %-9s  %-19s  %6s  %6s  %6s  %6s\n", "ID", "STATUS", "STARTED", "TOTAL", "OK", "PART", "FAIL")
		for _, r := range runs {
			fmt.Printf("%-36s  %-9s  %-19s  %6d  %6d  %6d  %6d\n",
				r.ID, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"), r.Total, r.Success, r.Partial, r.Failed)
		}
		return nil
	},
}

var runShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one recorded run with its tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := historyFor(cmd)
		if err != nil {
			return err
		}
		run, err := history.Get(args[0])
		if errors.Is(err, rebuild.ErrRunNotFound) {
			return fmt.Errorf("run %s not found", args[0])
		}
		if err != nil {
			return err
		}
		return printJSON(run)
	},
}

var runSummaryCmd = &cobra.Command{
	Use:   "summary [path]",
	Short: "Print a run summary file",
	Long:  `Prints the summary written at the end of a run. Defaults to the summary inside the configured output directory.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logg, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logg.Sync()

		req := cfg.Rebuild.Request()
		path := req.SummaryPath()
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return errors.New("summary file is disabled (REBUILD_SUMMARY_FILE is empty)")
		}
		summary, err := core.ReadSummary(path)
		if err != nil {
			return fmt.Errorf("failed to read summary: %w", err)
		}
		printSummary(summary, core.Request{SummaryFile: path})
		return nil
	},
}

func init() {
	RootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runShowCmd, runSummaryCmd)
	runsCmd.Flags().Int("limit", 20, "Maximum number of runs to list")
}

func historyFor(cmd *cobra.Command) (*rebuild.History, error) {
	cfg, logg, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	if !cfg.Database.Enabled {
		return nil, errors.New("run history is disabled (set DATABASE_ENABLED=true)")
	}
	_, history := openHistory(cfg, logg)
	if history == nil {
		return nil, errors.New("run history database is unavailable")
	}
	return history, nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"regen/core/config"
	core "regen/core/rebuild"
	"regen/feature/monitor"
	"regen/feature/rebuild"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// rebuildCmd represents the rebuild command
var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild every token image of the collection",
	Long: `Reads every metadata record, resolves its traits against the layer
directory and writes one composited image per token. Flags override the
REBUILD_* environment settings.`,
	RunE: runRebuild,
}

func init() {
	RootCmd.AddCommand(rebuildCmd)

	f := rebuildCmd.Flags()
	f.String("metadata", "", "Directory of per-token metadata records")
	f.String("layers", "", "Root of the trait layer tree")
	f.String("output", "", "Directory receiving the rebuilt images")
	f.String("manifest", "", "TOML manifest mapping categories to directories")
	f.Int("width", 0, "Canvas width (0 with --height 0 uses the first layer size)")
	f.Int("height", 0, "Canvas height")
	f.String("fit", "", "Layer size policy: stretch, fit or center")
	f.String("background", "", "Canvas fill as #rrggbb")
	f.String("format", "", "Output format: png or jpeg")
	f.Int("workers", 0, "Tokens rendered in parallel (0 means one per CPU)")
	f.Bool("skip-existing", false, "Leave tokens whose image already exists")
	f.String("summary", "", "Summary file name inside the output directory")
	f.String("token", "", "Rebuild only this metadata file")
	f.Bool("tui", false, "Show the terminal progress monitor")
	f.Bool("watch", false, "Keep running and re-render records as they change")
}

// requestFromFlags returns the configured request with every flag the user
// set applied on top.
func requestFromFlags(cfg *config.Config, flags *pflag.FlagSet) core.Request {
	req := cfg.Rebuild.Request()

	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if flags.Changed(name) {
			*dst, _ = flags.GetInt(name)
		}
	}

	str("metadata", &req.MetadataDir)
	str("layers", &req.LayersDir)
	str("output", &req.OutputDir)
	str("manifest", &req.Manifest)
	str("fit", &req.Fit)
	str("background", &req.Background)
	str("format", &req.Format)
	str("summary", &req.SummaryFile)
	num("width", &req.Width)
	num("height", &req.Height)
	num("workers", &req.Workers)
	if flags.Changed("skip-existing") {
		req.SkipExisting, _ = flags.GetBool("skip-existing")
	}
	return req
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg, logg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := requestFromFlags(cfg, cmd.Flags())
	useTUI, _ := cmd.Flags().GetBool("tui")
	watch, _ := cmd.Flags().GetBool("watch")
	only, _ := cmd.Flags().GetString("token")

	_, history := openHistory(cfg, logg)
	store, err := openStorage(ctx, cfg, logg)
	if err != nil {
		return fmt.Errorf("failed to set up storage: %w", err)
	}
	opts := publisherOption(newPublisher(cfg, store))

	if only != "" {
		driver := core.NewDriver(logg, append(opts, core.WithObserver(core.LogObserver(logg)))...)
		res, err := driver.RebuildToken(ctx, req, only)
		printToken(res)
		return err
	}

	var summary *core.Summary
	if useTUI {
		// The monitor owns the terminal; logging would garble it.
		quiet := zap.NewNop()
		summary, err = monitor.Run(func(obs core.Observer, cancel *core.CancelToken) (*core.Summary, error) {
			driver := core.NewDriver(quiet, append(opts, core.WithObserver(obs))...)
			return driver.Run(ctx, req, cancel)
		})
	} else {
		driver := core.NewDriver(logg, append(opts, core.WithObserver(core.LogObserver(logg)))...)
		summary, err = driver.Run(ctx, req, nil)
	}

	if summary == nil {
		return err
	}
	if history != nil {
		if herr := history.Save(req, summary); herr != nil {
			logg.Warn("Failed to record run history", zap.Error(herr))
		}
	}
	printSummary(summary, req)
	if err != nil {
		return err
	}

	if watch && !summary.Cancelled && ctx.Err() == nil {
		return follow(ctx, req, logg, opts)
	}
	return nil
}

func follow(ctx context.Context, req core.Request, logg *zap.Logger, opts []core.Option) error {
	w, err := rebuild.NewWatcher(req.MetadataDir)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	driver := core.NewDriver(logg, append(opts, core.WithObserver(core.LogObserver(logg)))...)
	if err := rebuild.Follow(ctx, w, driver, req, logg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printSummary(s *core.Summary, req core.Request) {
	fmt.Println("\n=== Rebuild Summary ===")
	fmt.Printf("Run ID: %s\n", s.RunID)
	fmt.Printf("Total Tokens: %d\n", s.Total)
	fmt.Printf("Processed: %d\n", s.Processed)
	fmt.Printf("Success: %d\n", s.Success)
	fmt.Printf("Partial: %d\n", s.Partial)
	fmt.Printf("Failed: %d\n", s.Failed)
	fmt.Printf("Skipped: %d\n", s.Skipped)
	fmt.Printf("Execution Time: %s\n", s.Duration().String())
	if s.Cancelled {
		fmt.Println("Run was cancelled before every token was processed.")
	}
	if s.Aborted {
		fmt.Printf("Run aborted: %s\n", s.AbortReason)
	}
	if misses := s.Unresolved(); len(misses) > 0 {
		fmt.Printf("\nUnresolved traits (%d):\n", len(misses))
		for _, m := range misses {
			fmt.Printf("  %s: %s (%s)\n", m.Category, m.Value, m.Reason)
		}
	}
	if path := req.SummaryPath(); path != "" {
		fmt.Printf("\nSummary saved to: %s\n", path)
	}
}

func printToken(r core.Result) {
	if r.Status == "" {
		return
	}
	fmt.Printf("%s: %s", r.TokenID, r.Status)
	if r.Output != "" {
		fmt.Printf(" -> %s", r.Output)
	}
	if r.Reason != "" {
		fmt.Printf(" (%s)", r.Reason)
	}
	fmt.Println()
	for _, m := range r.Unresolved {
		fmt.Printf("  unresolved %s: %s (%s)\n", m.Category, m.Value, m.Reason)
	}
}

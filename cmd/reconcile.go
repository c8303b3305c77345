package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	core "regen/core/rebuild"
	"regen/core/reconcile"
	"regen/feature/rebuild"

	"github.com/spf13/cobra"
)

// reconcileCmd compares metadata, rebuilt images and published images.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile metadata, rebuilt images and published images",
	Long: `Reconcile the collection to detect tokens without an image, stale images,
unpublished images and images without a metadata record.

Examples:
  # Report only
  regen reconcile

  # Render missing or stale images (with interactive confirmation)
  regen reconcile --rebuild

  # Upload unpublished images and delete orphans without prompting
  regen reconcile --publish --purge --yes`,
	RunE: runReconcile,
}

func init() {
	f := reconcileCmd.Flags()
	f.Bool("rebuild", false, "Render tokens whose image is missing or older than the metadata")
	f.Bool("publish", false, "Upload images missing from the bucket")
	f.Bool("purge", false, "Delete images that have no metadata record")
	f.Bool("dry-run", false, "Force dry-run (no changes even with --yes)")
	f.Bool("yes", false, "Auto-confirm actions (non-interactive)")
	f.Bool("json", false, "Print the full plan as JSON")

	reconcileCmd.AddCommand(reconcileShowCmd)
	RootCmd.AddCommand(reconcileCmd)
}

var reconcileShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show where one token is present",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newReconciler(cmd)
		if err != nil {
			return err
		}
		res, err := r.Lookup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func newReconciler(cmd *cobra.Command) (*rebuild.Reconciler, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logg, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	store, err := openStorage(ctx, cfg, logg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up storage: %w", err)
	}
	publisher := newPublisher(cfg, store)
	driver := core.NewDriver(logg, append(publisherOption(publisher), core.WithObserver(core.LogObserver(logg)))...)
	return rebuild.NewReconciler(driver, cfg.Rebuild.Request(), publisher, logg)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	flags := cmd.Flags()
	doRebuild, _ := flags.GetBool("rebuild")
	doPublish, _ := flags.GetBool("publish")
	doPurge, _ := flags.GetBool("purge")
	dryRun, _ := flags.GetBool("dry-run")
	yes, _ := flags.GetBool("yes")
	asJSON, _ := flags.GetBool("json")

	r, err := newReconciler(cmd)
	if err != nil {
		return err
	}

	opts := reconcile.Options{DoRebuild: doRebuild, DoPublish: doPublish, DoPurge: doPurge, DryRun: true}
	plan, err := r.Plan(ctx, opts)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}

	if asJSON {
		if err := printJSON(plan); err != nil {
			return err
		}
	} else {
		printPlan(plan)
	}

	if len(plan.Actions) == 0 || dryRun {
		return nil
	}

	if !yes {
		fmt.Printf("\nExecute %d actions? [y/N]: ", len(plan.Actions))
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	opts.DryRun = false
	opts.Confirmed = true
	executed, err := r.Execute(ctx, plan, opts)
	fmt.Printf("Executed %d of %d actions.\n", executed, len(plan.Actions))
	return err
}

func printPlan(plan *reconcile.Plan) {
	s := plan.Summary
	fmt.Println("\n=== Reconcile Summary ===")
	fmt.Printf("Total Tokens: %d\n", s.TotalItems)
	fmt.Printf("Missing Output: %d\n", s.MissingOutput)
	fmt.Printf("Missing Bucket: %d\n", s.MissingBucket)
	fmt.Printf("Orphaned: %d\n", s.Orphaned)
	fmt.Printf("Stale: %d\n", s.Stale)
	fmt.Printf("Mismatches: %d\n", s.Mismatches)
	if len(plan.Actions) == 0 {
		return
	}
	fmt.Printf("\nPlanned actions (%d rebuild, %d publish, %d purge):\n", s.RebuildActions, s.PublishActions, s.PurgeActions)
	for _, a := range plan.Actions {
		fmt.Printf("  %-13s %s (%s)\n", a.Type, a.Key, a.Reason)
	}
}

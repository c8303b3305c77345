package cmd

import (
	"encoding/json"
	"fmt"

	"regen/core/storage"
	"regen/feature/integrity"
	"regen/feature/integrity/checks"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Check the collection inputs and publishing targets",
	Long: `Runs every integrity check (layers, metadata, output, bucket and history
schema) and prints the combined report as JSON. Use a subcommand to run a
single check.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return cmd.Help()
		}
		svc, logg, err := integrityService(cmd)
		if err != nil {
			return err
		}
		defer logg.Sync()
		logg.Info("Running all integrity checks (the metadata check may take a while)...")
		return printJSON(svc.Report(cmd.Context()))
	},
}

var layersCheckCmd = &cobra.Command{
	Use:   "layers",
	Short: "Check the layer directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logg, err := integrityService(cmd)
		if err != nil {
			return err
		}
		defer logg.Sync()

		report, err := svc.CheckLayers()
		if err != nil {
			return fmt.Errorf("layer check failed: %w", err)
		}
		if len(report.MissingDirs) > 0 {
			logg.Warn("Missing category directories detected", zap.Strings("missing", report.MissingDirs))
			if fix, _ := cmd.Flags().GetBool("fix"); fix {
				if err := svc.FixLayers(report.MissingDirs); err != nil {
					return fmt.Errorf("failed to fix layers: %w", err)
				}
				logg.Info("Category directories created.")
				return nil
			}
			logg.Info("Run with --fix to create missing category directories.")
		}
		return printJSON(report)
	},
}

var metadataCheckCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Resolve every metadata record without rendering",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logg, err := integrityService(cmd)
		if err != nil {
			return err
		}
		defer logg.Sync()

		report, err := svc.CheckMetadata()
		if err != nil {
			return fmt.Errorf("metadata check failed: %w", err)
		}
		logg.Info("Metadata check completed",
			zap.Int("files", report.Files),
			zap.Int("unresolved", len(report.Unresolved)))
		return printJSON(report)
	},
}

var outputCheckCmd = &cobra.Command{
	Use:   "output",
	Short: "Check the output directory is writable",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logg, err := integrityService(cmd)
		if err != nil {
			return err
		}
		defer logg.Sync()
		return printJSON(svc.CheckOutput())
	},
}

var bucketCheckCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Check the publish bucket and its folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logg, err := integrityService(cmd)
		if err != nil {
			return err
		}
		defer logg.Sync()
		fix, _ := cmd.Flags().GetBool("fix")

		missing, err := svc.CheckBucket(cmd.Context())
		if err != nil {
			if !fix {
				return fmt.Errorf("bucket check failed: %w", err)
			}
			logg.Warn("Bucket check failed, recreating bucket", zap.Error(err))
			missing = checks.RequiredFolderKeys(svc.StoragePrefix())
		}

		if len(missing) == 0 {
			logg.Info("Bucket structure is intact.")
			return nil
		}
		logg.Warn("Missing bucket folders detected", zap.Strings("missing", missing))
		if !fix {
			logg.Info("Run with --fix to create missing folders.")
			return nil
		}
		if err := svc.FixBucket(cmd.Context(), missing); err != nil {
			return fmt.Errorf("failed to fix bucket: %w", err)
		}
		logg.Info("Bucket fixed successfully.")
		return nil
	},
}

var schemaCheckCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check the run history tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logg, err := integrityService(cmd)
		if err != nil {
			return err
		}
		defer logg.Sync()

		report, err := svc.CheckSchema()
		if err != nil {
			return fmt.Errorf("schema check failed: %w", err)
		}
		if report.Matched {
			logg.Info("History schema matches expected definition.")
			return nil
		}
		for table, tbl := range report.Tables {
			if tbl.Status != "ok" {
				logg.Warn("Missing Columns", zap.String("table", table), zap.Strings("columns", tbl.MissingColumns))
			}
		}
		for _, e := range report.Errors {
			logg.Error("Inspection Error", zap.String("error", e))
		}
		if fix, _ := cmd.Flags().GetBool("fix"); fix {
			if err := svc.FixSchema(); err != nil {
				return fmt.Errorf("failed to migrate history tables: %w", err)
			}
			logg.Info("History tables migrated.")
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(layersCheckCmd, metadataCheckCmd, outputCheckCmd, bucketCheckCmd, schemaCheckCmd)

	layersCheckCmd.Flags().Bool("fix", false, "Create missing category directories")
	bucketCheckCmd.Flags().Bool("fix", false, "Create the bucket and missing folders")
	schemaCheckCmd.Flags().Bool("fix", false, "Migrate the history tables")
}

// integrityService wires an integrity service from the configuration.
// Storage and database failures disable the matching checks.
func integrityService(cmd *cobra.Command) (*integrity.Service, *zap.Logger, error) {
	cfg, logg, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}
	db := openDatabase(cfg, logg)

	var store storage.Client
	if cfg.Storage.Enabled {
		// The bucket check reports a missing bucket itself.
		if client, err := storage.NewClient(cfg.Storage); err != nil {
			logg.Warn("Storage client unavailable", zap.Error(err))
		} else {
			store = client
		}
	}
	return integrity.NewService(cfg.Rebuild.Request(), store, cfg.Storage, db, logg), logg, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

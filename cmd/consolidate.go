// =============================================================================
// PCA Consolidation - Consolidate Command
// =============================================================================
//
// This file defines the 'consolidate' command, the main command of the CLI.
// It builds the consolidated plan and writes the reports.
//
// COMMAND USAGE:
//   pca consolidate [flags]
//
// FLAGS:
//   --source   : "files" (exports in the input directory) or "db"
//                (approved DFDs in the document store)
//   --file     : Consolidate a single export instead of the input directory
//   --format   : Report formats, overriding output_formats
//   --dry-run  : Consolidate and print totals without writing anything
//   --watch    : Keep running and consolidate whenever exports arrive
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pca-consolidation/internal/config"
	"github.com/ginjaninja78/pca-consolidation/internal/converter"
	"github.com/ginjaninja78/pca-consolidation/internal/format"
	"github.com/ginjaninja78/pca-consolidation/internal/logging"
	"github.com/ginjaninja78/pca-consolidation/internal/validation"
	"github.com/ginjaninja78/pca-consolidation/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	consolidateSource  string
	consolidateFile    string
	consolidateFormats []string
	dryRun             bool
	watch              bool
)

// =============================================================================
// CONSOLIDATE COMMAND DEFINITION
// =============================================================================

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Consolidate demand into the annual procurement plan",
	Long: `The consolidate command loads every demand item, merges equal items per
document type and writes the plan in the configured formats.

Items are equal when description, unit and technical detail match after
trimming and lower-casing; the document type must match exactly.

On success:
  - Reports are placed in the output directory and copied to the output archive
  - Ingested exports are moved to the input archive
  - A processing summary is written

Exports that fail to load stay in the input directory and are listed in the
error log, together with every validation finding.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsolidate(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(consolidateCmd)

	consolidateCmd.Flags().StringVar(&consolidateSource, "source", converter.SourceFiles,
		"Demand source: files or db")
	consolidateCmd.Flags().StringVar(&consolidateFile, "file", "",
		"Consolidate a single export file")
	consolidateCmd.Flags().StringSliceVar(&consolidateFormats, "format", nil,
		"Report formats (xlsx, xml, yaml, json); defaults to output_formats")
	consolidateCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Consolidate without writing reports or moving files")
	consolidateCmd.Flags().BoolVar(&watch, "watch", false,
		"Watch the input directory and consolidate new exports as they arrive")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runConsolidate(ctx context.Context) error {
	cfg := mainConfig
	if len(consolidateFormats) > 0 {
		cfg.OutputFormats = consolidateFormats
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	fm := newFileManager(cfg)
	conv := converter.New(cfg, fm, converter.Options{DryRun: dryRun})

	fmt.Println("=== PCA Consolidation ===")

	switch consolidateSource {
	case converter.SourceDatabase:
		if watch || consolidateFile != "" {
			return fmt.Errorf("--watch and --file apply to --source files only")
		}
		return consolidateDatabase(ctx, cfg, conv)

	case converter.SourceFiles:
		sources, err := config.LoadSourceConfigs(cfg.SourcesDir)
		if err != nil {
			return fmt.Errorf("failed to load source profiles: %w", err)
		}
		fmt.Printf("Loaded %d source profile(s)\n", len(sources))

		if watch {
			return watchInput(ctx, cfg, conv, sources)
		}

		files := []string{consolidateFile}
		if consolidateFile == "" {
			files, err = fm.DiscoverInputFiles()
			if err != nil {
				return fmt.Errorf("failed to discover input files: %w", err)
			}
		}
		if len(files) == 0 {
			fmt.Println("No exports found in the input directory.")
			return nil
		}

		fmt.Printf("Found %d file(s) to consolidate\n", len(files))
		result, err := conv.RunFiles(ctx, files, sources)
		if err != nil {
			return err
		}
		printResult(result)
		return nil

	default:
		return fmt.Errorf("unknown source %q (expected files or db)", consolidateSource)
	}
}

func consolidateDatabase(ctx context.Context, cfg *config.MainConfig, conv *converter.Converter) error {
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	items, err := s.FetchApprovedItems(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Fetched %d item(s) from approved DFDs\n", len(items))

	result, err := conv.RunItems(ctx, converter.SourceDatabase, items)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

// watchInput consolidates each batch of exports the watcher reports until
// the context is cancelled.
func watchInput(ctx context.Context, cfg *config.MainConfig, conv *converter.Converter, sources map[string]*config.SourceConfig) error {
	logger := logging.FromContext(ctx)
	fmt.Printf("Watching %s (Ctrl+C to stop)\n", cfg.InputDir)

	return utils.WatchInputDir(ctx, cfg.InputDir, utils.DefaultDebounce, func(ctx context.Context, files []string) {
		result, err := conv.RunFiles(ctx, files, sources)
		if err != nil {
			logger.Error().Err(err).Int("files", len(files)).Msg("consolidation failed")
			return
		}
		printResult(result)
	})
}

// =============================================================================
// OUTPUT
// =============================================================================

func printResult(result *converter.Result) {
	if result.Ingest != nil {
		for _, f := range result.Ingest.Files {
			if f.Success() {
				fmt.Printf("  ✓ %s (%d items)\n", filepath.Base(f.FilePath), len(f.Items))
			} else {
				fmt.Printf("  ✗ %s: %v\n", filepath.Base(f.FilePath), f.Err)
			}
		}
	}

	fmt.Println("\n=== Consolidation Complete ===")
	fmt.Printf("Items:           %d\n", result.Stats.Items)
	fmt.Printf("Groups:          %d\n", result.Totals.Groups)
	fmt.Printf("Document types:  %s\n", strings.Join(result.TypeOrder, ", "))
	fmt.Printf("Total value:     %s\n", format.FormatCurrency(result.Totals.Value))
	fmt.Printf("Time elapsed:    %s\n", result.Stats.ProcessingTime)

	if len(result.Findings) > 0 {
		counts := validation.Count(result.Findings)
		fmt.Printf("Findings:        %d", len(result.Findings))
		for _, rule := range []string{
			validation.RuleQuantity,
			validation.RuleValue,
			validation.RuleDateMissing,
			validation.RuleDateFormat,
			validation.RulePriority,
			validation.RuleMixedDateFormats,
			validation.RuleSecretariatCollision,
		} {
			if n := counts[rule]; n > 0 {
				fmt.Printf(" %s=%d", rule, n)
			}
		}
		fmt.Println()
	}

	for _, report := range result.Reports {
		fmt.Printf("  -> %s\n", report)
	}
	for _, err := range result.ReportErrors {
		fmt.Printf("  ✗ %v\n", err)
	}
	if result.ErrorLog != "" {
		fmt.Printf("\nErrors and findings have been logged to %s\n", result.ErrorLog)
	}

	// Dry runs write no error log, so the findings go to the terminal.
	if dryRun {
		fmt.Println()
		fmt.Println(validation.FormatFindings(result.Findings))
	}
}

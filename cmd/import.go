// =============================================================================
// PCA Consolidation - Import Command
// =============================================================================
//
// This file defines the 'import' command, which registers demand exports in
// the document store as DFDs, so the plan can later be built with
// `pca consolidate --source db`.
//
// COMMAND USAGE:
//   pca import [files...] [--approve] [--archive]
//
// Without file arguments every export in the input directory is imported.
// Each file is stored in one transaction; a file that fails leaves nothing
// behind and the remaining files are still imported.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pca-consolidation/internal/config"
	"github.com/ginjaninja78/pca-consolidation/internal/ingest"
	"github.com/ginjaninja78/pca-consolidation/internal/logging"
	"github.com/ginjaninja78/pca-consolidation/internal/store"
	"github.com/ginjaninja78/pca-consolidation/internal/validation"
)

var (
	importApprove bool
	importArchive bool
)

var importCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import demand exports into the document store",
	Long: `The import command reads demand exports with the matching source profile
and stores them as DFDs. Rows sharing secretariat, document type, priority,
contracting date and document id become one DFD.

Imported DFDs are pending; --approve stores them as approved. Unparseable
amounts are kept and reported as findings.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), args)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&importApprove, "approve", false, "Approve the imported DFDs")
	importCmd.Flags().BoolVar(&importArchive, "archive", false, "Move imported exports to the input archive")
}

func runImport(ctx context.Context, files []string) error {
	logger := logging.FromContext(ctx)
	cfg := mainConfig
	if err := cfg.Validate(); err != nil {
		return err
	}

	fm := newFileManager(cfg)
	if len(files) == 0 {
		var err error
		files, err = fm.DiscoverInputFiles()
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}
	if len(files) == 0 {
		fmt.Println("No exports found in the input directory.")
		return nil
	}

	sources, err := config.LoadSourceConfigs(cfg.SourcesDir)
	if err != nil {
		return fmt.Errorf("failed to load source profiles: %w", err)
	}

	result, err := ingest.LoadAll(ctx, files, sources, ingest.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	status := store.StatusPending
	if importApprove {
		status = store.StatusApproved
	}

	var failed int
	for _, f := range result.Files {
		name := filepath.Base(f.FilePath)
		if !f.Success() {
			fmt.Printf("  ✗ %s: %v\n", name, f.Err)
			failed++
			continue
		}

		docs, err := s.CreateDocuments(ctx, store.DocumentsFromItems(f.Items, status))
		if err != nil {
			fmt.Printf("  ✗ %s: %v\n", name, err)
			failed++
			continue
		}
		fmt.Printf("  ✓ %s: %d DFD(s), %d item(s)\n", name, len(docs), len(f.Items))

		findings := validation.Check(f.Items)
		for _, finding := range findings {
			logger.Warn().Str("file", name).Str("rule", finding.Rule).Msg(finding.Error())
		}
		if len(findings) > 0 {
			fmt.Printf("    %d finding(s); run 'pca consolidate --source db --dry-run' for details\n", len(findings))
		}

		if importArchive {
			if _, err := fm.ArchiveInputFile(f.FilePath); err != nil {
				logger.Warn().Err(err).Str("file", f.FilePath).Msg("failed to archive input")
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) were not imported", failed, len(result.Files))
	}
	return nil
}

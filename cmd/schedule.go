// =============================================================================
// PCA Consolidation - Schedule Command
// =============================================================================
//
// This file defines the 'schedule' command: the licitação scheduling view.
// It consolidates the current demand (without writing or archiving
// anything) and prints one page of groups ordered by contracting date.
//
// COMMAND USAGE:
//   pca schedule [--source files|db] [--secretaria S] [--tipo T]
//                [--prioridade P] [--busca texto] [--page N] [--page-size N]
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pca-consolidation/internal/config"
	"github.com/ginjaninja78/pca-consolidation/internal/consolidator"
	"github.com/ginjaninja78/pca-consolidation/internal/converter"
	"github.com/ginjaninja78/pca-consolidation/internal/format"
	"github.com/ginjaninja78/pca-consolidation/internal/ingest"
	"github.com/ginjaninja78/pca-consolidation/internal/schedule"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

var (
	scheduleSource string
	scheduleQuery  schedule.Query
	schedulePrio   string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show the licitação schedule of the consolidated plan",
	Long: `The schedule command consolidates the current demand and lists the
groups by official contracting date. Filters combine: a group is listed when
it matches every filter given.

Nothing is written and no export is archived.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runSchedule(cmd.Context(), os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	flags := scheduleCmd.Flags()
	flags.StringVar(&scheduleSource, "source", converter.SourceFiles, "Demand source: files or db")
	flags.StringVar(&scheduleQuery.Secretariat, "secretaria", "", "Only groups this secretariat contributes to")
	flags.StringVar(&scheduleQuery.DocumentType, "tipo", "", "Only groups of this document type (exact)")
	flags.StringVar(&schedulePrio, "prioridade", "", "Only groups with this official priority (Alta, Média, Baixa)")
	flags.StringVar(&scheduleQuery.Search, "busca", "", "Text searched in the description")
	flags.IntVar(&scheduleQuery.Page, "page", 1, "Page number")
	flags.IntVar(&scheduleQuery.PageSize, "page-size", schedule.DefaultPageSize, "Rows per page")
}

func runSchedule(ctx context.Context, w io.Writer) error {
	items, err := loadDemand(ctx, mainConfig, scheduleSource)
	if err != nil {
		return err
	}

	scheduleQuery.Priority = types.Priority(schedulePrio)

	byType := consolidator.ConsolidateItemsByType(items)
	page := schedule.Build(byType, consolidator.DocumentTypeOrder(items), scheduleQuery)

	if err := renderSchedule(w, page); err != nil {
		return err
	}

	fmt.Fprintf(w, "Página %d de %d (%d grupo(s))\n", page.Page, page.TotalPages, page.TotalRows)
	return nil
}

// loadDemand reads demand items without side effects: exports are parsed
// but not archived.
func loadDemand(ctx context.Context, cfg *config.MainConfig, source string) ([]types.DemandItem, error) {
	switch source {
	case converter.SourceDatabase:
		s, err := openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		return s.FetchApprovedItems(ctx)

	case converter.SourceFiles:
		sources, err := config.LoadSourceConfigs(cfg.SourcesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load source profiles: %w", err)
		}
		files, err := newFileManager(cfg).DiscoverInputFiles()
		if err != nil {
			return nil, fmt.Errorf("failed to discover input files: %w", err)
		}
		result, err := ingest.LoadAll(ctx, files, sources, ingest.OptionsFromConfig(cfg))
		if err != nil {
			return nil, err
		}
		for _, f := range result.Failed() {
			fmt.Fprintf(os.Stderr, "skipped %s: %v\n", f.FilePath, f.Err)
		}
		return result.Items(), nil

	default:
		return nil, fmt.Errorf("unknown source %q (expected files or db)", source)
	}
}

// renderSchedule prints a page as a table.
func renderSchedule(w io.Writer, page schedule.Page) error {
	cfg := tablewriter.Config{}
	align := []tw.Align{
		tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft,
		tw.AlignRight, tw.AlignRight, tw.AlignLeft, tw.AlignLeft,
	}
	cfg.Row.Alignment = tw.CellAlignment{PerColumn: align}

	table := tablewriter.NewTable(w, tablewriter.WithConfig(cfg))
	table.Header("Data", "Descrição", "Unidade", "Tipo", "Quantidade", "Valor Total", "Prioridade", "Secretarias")

	for _, row := range page.Rows {
		date := ""
		if row.OfficialContractingDate != "" {
			date = format.FormatDate(row.OfficialContractingDate)
		}
		if err := table.Append(
			date,
			row.Description,
			row.Unit,
			row.DocumentType,
			strconv.FormatFloat(row.TotalQuantity, 'f', -1, 64),
			format.FormatCurrency(row.TotalValue),
			string(row.OfficialPriority),
			strings.Join(row.SecretariatNames, ", "),
		); err != nil {
			return err
		}
	}

	return table.Render()
}

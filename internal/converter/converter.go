// =============================================================================
// PCA Consolidation - Converter Module
// =============================================================================
//
// This module turns demand into a consolidated Plano de Contratações Anual
// (PCA). It orchestrates one consolidation run, from loading demand to the
// reports on disk.
//
// CONSOLIDATION PIPELINE:
//   1. Load demand items (exports through ingest, or approved DFDs from
//      the document store)
//   2. Check the items and their groups (advisory findings only)
//   3. Consolidate by document type and as a flat list
//   4. Write the reports (xlsx, xml, yaml, json)
//   5. Write the error log and the processing summary
//   6. Archive ingested exports and copy reports to the output archive
//
// A dry run stops after step 3: nothing is written or moved.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/pca-consolidation/internal/config"
	"github.com/ginjaninja78/pca-consolidation/internal/consolidator"
	"github.com/ginjaninja78/pca-consolidation/internal/format"
	"github.com/ginjaninja78/pca-consolidation/internal/ingest"
	"github.com/ginjaninja78/pca-consolidation/internal/logging"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
	"github.com/ginjaninja78/pca-consolidation/internal/validation"
	"github.com/ginjaninja78/pca-consolidation/pkg/utils"
)

// Source labels used in results and the processing summary.
const (
	SourceFiles    = "files"
	SourceDatabase = "db"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one consolidation run.
type Result struct {
	// Source is SourceFiles or SourceDatabase.
	Source string

	// Ingest holds the per-file results. Nil for database runs.
	Ingest *ingest.Result

	// Items are the demand items that were consolidated.
	Items []types.DemandItem

	// ByType is the consolidated plan keyed by document type.
	ByType map[string][]types.ConsolidatedGroup

	// TypeOrder lists document types in first-seen order.
	TypeOrder []string

	// List is the consolidation that ignores document types.
	List []types.ConsolidatedItem

	Totals consolidator.Totals

	Findings []*validation.Finding

	// Reports are the report files written. Empty for dry runs.
	Reports []string

	// ReportErrors holds reports that could not be written. Inputs are
	// not archived when this is non-empty.
	ReportErrors []error

	// ErrorLog and SummaryLog are the paths of the log files, if written.
	ErrorLog   string
	SummaryLog string

	Stats ProcessingStats
}

// ProcessingStats contains statistics about the run.
type ProcessingStats struct {
	Files          int
	FailedFiles    int
	Rows           int
	Items          int
	Groups         int
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options controls what a run writes.
type Options struct {
	// Formats overrides the configured output formats when non-empty.
	Formats []string

	// DryRun consolidates without writing or moving anything.
	DryRun bool
}

// Converter runs consolidations with one configuration.
type Converter struct {
	mainConfig *config.MainConfig
	files      *utils.FileManager
	opts       Options
}

// New creates a new Converter.
//
// PARAMETERS:
//   - mainConfig: The main application configuration.
//   - files: Owns the output and archive directories.
//   - opts: Formats and dry-run switch.
func New(mainConfig *config.MainConfig, files *utils.FileManager, opts Options) *Converter {
	return &Converter{
		mainConfig: mainConfig,
		files:      files,
		opts:       opts,
	}
}

// Formats returns the report formats the converter writes.
func (c *Converter) Formats() []string {
	if len(c.opts.Formats) > 0 {
		return c.opts.Formats
	}
	return c.mainConfig.OutputFormats
}

// =============================================================================
// MAIN PROCESSING FUNCTIONS
// =============================================================================

// RunFiles ingests the given exports and consolidates every item that
// loaded. Exports that fail stay in the input directory and are listed in
// the error log.
//
// RETURNS:
//   - The run result.
//   - An error when ingest stops (continue_on_error: false, or ctx done)
//     or when the logs cannot be written.
func (c *Converter) RunFiles(ctx context.Context, files []string, sources map[string]*config.SourceConfig) (*Result, error) {
	start := time.Now()

	ing, err := ingest.LoadAll(ctx, files, sources, ingest.OptionsFromConfig(c.mainConfig))
	if err != nil {
		return nil, fmt.Errorf("ingest failed: %w", err)
	}

	result := c.consolidate(ctx, SourceFiles, ing.Items())
	result.Ingest = ing
	result.Stats.Files = len(ing.Files)
	result.Stats.FailedFiles = len(ing.Failed())
	for _, f := range ing.Files {
		result.Stats.Rows += f.Rows
	}

	return result, c.finish(ctx, result, start)
}

// RunItems consolidates items that are already loaded, such as the
// approved documents of the store.
func (c *Converter) RunItems(ctx context.Context, source string, items []types.DemandItem) (*Result, error) {
	start := time.Now()

	result := c.consolidate(ctx, source, items)
	result.Stats.Rows = len(items)

	return result, c.finish(ctx, result, start)
}

// consolidate runs the pure part of the pipeline.
func (c *Converter) consolidate(ctx context.Context, source string, items []types.DemandItem) *Result {
	logger := logging.FromContext(ctx)

	byType := consolidator.ConsolidateItemsByType(items)
	result := &Result{
		Source:    source,
		Items:     items,
		ByType:    byType,
		TypeOrder: consolidator.OrderTypes(byType, consolidator.DocumentTypeOrder(items)),
		List:      consolidator.ConsolidateItems(items),
		Totals:    consolidator.Sum(byType),
		Findings:  validation.Check(items),
	}
	result.Stats.Items = len(items)
	result.Stats.Groups = result.Totals.Groups

	for _, f := range result.Findings {
		logger.Warn().
			Str("rule", f.Rule).
			Str("item", f.ItemID).
			Str("group", f.GroupKey).
			Msg(f.Message)
	}

	logger.Info().
		Str("source", source).
		Int("items", len(items)).
		Int("groups", result.Totals.Groups).
		Int("types", len(result.TypeOrder)).
		Str("value", format.FormatCurrency(result.Totals.Value)).
		Int("findings", len(result.Findings)).
		Msg("demand consolidated")

	return result
}

// finish writes the reports and logs and archives the inputs.
func (c *Converter) finish(ctx context.Context, result *Result, start time.Time) error {
	logger := logging.FromContext(ctx)

	if c.opts.DryRun {
		result.Stats.ProcessingTime = time.Since(start)
		logger.Info().Msg("dry run, nothing written")
		return nil
	}

	if err := c.files.EnsureDirectories(); err != nil {
		return err
	}

	// =========================================================================
	// REPORTS
	// =========================================================================

	base := c.files.GenerateOutputFileName(c.mainConfig.OutputNameFormat, "", map[string]string{"type": "pca"})
	for _, f := range c.Formats() {
		path, err := writeReport(filepath.Join(c.files.OutputDir, base), f, result)
		if err != nil {
			logger.Error().Err(err).Str("format", f).Msg("failed to write report")
			result.ReportErrors = append(result.ReportErrors, fmt.Errorf("%s report: %w", f, err))
			continue
		}
		logger.Info().Str("report", path).Msg("wrote report")
		result.Reports = append(result.Reports, path)
	}

	// =========================================================================
	// ARCHIVE
	// =========================================================================

	archived := make(map[string]string)
	if result.Ingest != nil && len(result.ReportErrors) == 0 {
		for _, path := range result.Ingest.Succeeded() {
			dst, err := c.files.ArchiveInputFile(path)
			if err != nil {
				// The run succeeded; a file left behind is only logged.
				logger.Warn().Err(err).Str("file", path).Msg("failed to archive input")
				continue
			}
			archived[path] = dst
		}
	}
	for _, path := range result.Reports {
		if _, err := c.files.ArchiveOutputFile(path); err != nil {
			logger.Warn().Err(err).Str("report", path).Msg("failed to archive report")
		}
	}

	// =========================================================================
	// LOGS
	// =========================================================================

	errorLog, err := c.files.WriteErrorLog(errorLogEntries(result))
	if err != nil {
		return err
	}
	result.ErrorLog = errorLog

	result.Stats.ProcessingTime = time.Since(start)

	summaryLog, err := c.files.WriteSummaryLog(summary(result, start, archived))
	if err != nil {
		return err
	}
	result.SummaryLog = summaryLog

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// errorLogEntries lists failed files, report failures and findings.
func errorLogEntries(result *Result) []utils.ErrorLogEntry {
	var entries []utils.ErrorLogEntry
	now := time.Now()

	if result.Ingest != nil {
		for _, f := range result.Ingest.Failed() {
			entries = append(entries, utils.ErrorLogEntry{
				Timestamp:    now,
				FileName:     filepath.Base(f.FilePath),
				Severity:     validation.SeverityError,
				ErrorType:    "ingest",
				ErrorMessage: f.Err.Error(),
			})
		}
	}

	for _, err := range result.ReportErrors {
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:    now,
			Severity:     validation.SeverityError,
			ErrorType:    "report",
			ErrorMessage: err.Error(),
		})
	}

	for _, f := range result.Findings {
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:    now,
			FileName:     fileOfItem(f.ItemID),
			Severity:     f.Severity,
			ErrorType:    f.Rule,
			ErrorMessage: f.Message,
			ItemID:       f.ItemID,
			GroupKey:     f.GroupKey,
			FieldName:    f.Field,
			FieldValue:   f.Value,
		})
	}

	return entries
}

// fileOfItem recovers the export name from a row-derived item id
// ("educacao.csv#12" -> "educacao.csv").
func fileOfItem(itemID string) string {
	if i := strings.LastIndex(itemID, "#"); i > 0 {
		return itemID[:i]
	}
	return ""
}

func summary(result *Result, start time.Time, archived map[string]string) utils.ProcessingSummary {
	s := utils.ProcessingSummary{
		StartTime:     start,
		EndTime:       start.Add(result.Stats.ProcessingTime),
		Source:        result.Source,
		TotalFiles:    result.Stats.Files,
		FailedFiles:   result.Stats.FailedFiles,
		TotalRows:     result.Stats.Rows,
		TotalItems:    result.Stats.Items,
		TotalGroups:   result.Totals.Groups,
		DocumentTypes: len(result.TypeOrder),
		TotalValue:    format.FormatCurrency(result.Totals.Value),
		Findings:      len(result.Findings),
		Reports:       result.Reports,
	}
	s.SuccessfulFiles = s.TotalFiles - s.FailedFiles

	if result.Ingest != nil {
		for _, f := range result.Ingest.Files {
			if !f.Success() {
				s.FailedFilesList = append(s.FailedFilesList, utils.FailedFileInfo{
					InputFile:    filepath.Base(f.FilePath),
					ErrorMessage: f.Err.Error(),
				})
				continue
			}
			s.ProcessedFiles = append(s.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   filepath.Base(f.FilePath),
				ArchivePath: archived[f.FilePath],
				Source:      f.Source,
				Rows:        f.Rows,
				Items:       len(f.Items),
				ProcessTime: f.Duration,
			})
		}
	}

	return s
}

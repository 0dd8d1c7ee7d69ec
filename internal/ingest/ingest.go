// =============================================================================
// PCA Consolidation - Ingest Pipeline
// =============================================================================
//
// This module turns secretariat demand exports into DemandItems. It
// orchestrates the pipeline for each file, from parsing to row mapping.
//
// INGEST PIPELINE (per file):
//   1. Match the file to a source profile (or fall back to the default)
//   2. Parse the export (CSV or XLSX)
//   3. Apply the profile's transformation rules to each row
//   4. Map each row to a DemandItem (numbers, defaults, row ids)
//
// CONCURRENCY:
//   Files are processed concurrently with at most MaxConcurrency workers.
//   Results are returned in the order the files were given, so the
//   consolidator sees items in a stable, reproducible order.
//
// =============================================================================

package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/pca-consolidation/internal/config"
	"github.com/ginjaninja78/pca-consolidation/internal/csvparser"
	"github.com/ginjaninja78/pca-consolidation/internal/logging"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
	"github.com/ginjaninja78/pca-consolidation/internal/xlsxparser"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// FileResult is the outcome of ingesting a single file.
type FileResult struct {
	// FilePath is the export that was read.
	FilePath string

	// Source is the code of the profile used.
	Source string

	// Items holds one DemandItem per non-empty data row.
	Items []types.DemandItem

	// Rows is the number of data rows read.
	Rows int

	// Err is set when the file could not be ingested. Items is empty then.
	Err error

	// Duration is the time taken to process the file.
	Duration time.Duration
}

// Success reports whether the file was ingested.
func (r FileResult) Success() bool {
	return r.Err == nil
}

// Result collects the per-file results of a run.
type Result struct {
	Files []FileResult
}

// Items returns the items of every successful file, in file order.
func (r *Result) Items() []types.DemandItem {
	var items []types.DemandItem
	for _, f := range r.Files {
		if f.Success() {
			items = append(items, f.Items...)
		}
	}
	return items
}

// Failed returns the results of files that could not be ingested.
func (r *Result) Failed() []FileResult {
	var failed []FileResult
	for _, f := range r.Files {
		if !f.Success() {
			failed = append(failed, f)
		}
	}
	return failed
}

// Succeeded returns the paths of files that were ingested.
func (r *Result) Succeeded() []string {
	var paths []string
	for _, f := range r.Files {
		if f.Success() {
			paths = append(paths, f.FilePath)
		}
	}
	return paths
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls a LoadAll run.
type Options struct {
	// MaxConcurrency bounds the number of files read at once. Default: 4
	MaxConcurrency int

	// ContinueOnError keeps processing other files after a failure. When
	// false the first failure cancels the run and is returned.
	ContinueOnError bool
}

// OptionsFromConfig builds Options from the main configuration.
func OptionsFromConfig(cfg *config.MainConfig) Options {
	return Options{
		MaxConcurrency:  cfg.MaxConcurrency,
		ContinueOnError: cfg.ShouldContinueOnError(),
	}
}

// =============================================================================
// PIPELINE
// =============================================================================

// LoadAll ingests files concurrently.
//
// PARAMETERS:
//   - ctx: Cancels pending files. The logger is taken from it.
//   - files: Export paths, in the order results are wanted.
//   - sources: Source profiles keyed by code; unmatched files use the
//     default profile.
//   - opts: Concurrency and error policy.
//
// RETURNS:
//   - The per-file results, in input order.
//   - The first file error when ContinueOnError is false, or ctx's error.
func LoadAll(ctx context.Context, files []string, sources map[string]*config.SourceConfig, opts Options) (*Result, error) {
	logger := logging.FromContext(ctx)

	limit := opts.MaxConcurrency
	if limit <= 0 {
		limit = 4
	}

	result := &Result{Files: make([]FileResult, len(files))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				result.Files[i] = FileResult{FilePath: file, Err: err}
				return err
			}

			source := config.MatchSource(file, sources)
			if source == nil {
				logger.Debug().Str("file", file).Msg("no source profile matched, using default")
				source = config.DefaultSource()
			}

			fr := LoadFile(gctx, file, source)
			result.Files[i] = fr

			if fr.Err != nil {
				logger.Error().Err(fr.Err).Str("file", file).Msg("failed to ingest file")
				if !opts.ContinueOnError {
					return fmt.Errorf("%s: %w", filepath.Base(file), fr.Err)
				}
				return nil
			}

			logger.Info().
				Str("file", file).
				Str("source", fr.Source).
				Int("items", len(fr.Items)).
				Dur("duration", fr.Duration).
				Msg("ingested file")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	return result, ctx.Err()
}

// LoadFile ingests one export with the given profile.
func LoadFile(ctx context.Context, filePath string, source *config.SourceConfig) FileResult {
	start := time.Now()
	result := FileResult{FilePath: filePath, Source: source.Code}

	table, err := parse(filePath, source)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	items, err := MapTable(ctx, table, source)
	result.Rows = len(table.Rows)
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		return result
	}

	result.Items = items
	return result
}

// MapTable transforms and maps every row of table.
func MapTable(ctx context.Context, table *types.Table, source *config.SourceConfig) ([]types.DemandItem, error) {
	transformer := NewTransformer(source.TransformationRules)
	items := make([]types.DemandItem, 0, len(table.Rows))

	for i, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rowNumber := i + 1
		if i < len(table.RowNumbers) {
			rowNumber = table.RowNumbers[i]
		}

		transformed, err := transformer.TransformRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNumber, err)
		}

		items = append(items, MapRow(transformed, rowNumber, table.SourceFile, source))
	}

	return items, nil
}

// parse dispatches on the file extension.
func parse(filePath string, source *config.SourceConfig) (*types.Table, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv", ".txt":
		table, err := csvparser.Parse(filePath, source.CSVSettings)
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		return table, nil
	case ".xlsx":
		table, err := xlsxparser.Parse(filePath, xlsxparser.Options{
			Sheet:        source.Sheet,
			HeaderRows:   source.CSVSettings.HeaderRows,
			DataStartRow: source.CSVSettings.DataStartRow,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to parse XLSX: %w", err)
		}
		return table, nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filePath))
	}
}

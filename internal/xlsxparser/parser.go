// =============================================================================
// PCA Consolidation - XLSX Export Parser
// =============================================================================
//
// This module reads demand exports that secretariats deliver as workbooks.
// A workbook export has the same shape as a CSV export: one or more header
// rows followed by one item per row. Only one worksheet is read.
//
// SHEET SELECTION:
//   - The sheet named in the source profile, when set
//   - Otherwise the first sheet that is not prefixed with "_"
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

// Options controls which part of the workbook is read.
type Options struct {
	// Sheet is the worksheet name. Empty selects the first visible sheet.
	Sheet string

	// HeaderRows is the number of header rows, merged column-wise.
	// Default: 1
	HeaderRows int

	// DataStartRow is the 1-based row where data begins.
	// Default: HeaderRows+1
	DataStartRow int
}

func applyOptionDefaults(opts *Options) {
	if opts.HeaderRows <= 0 {
		opts.HeaderRows = 1
	}
	if opts.DataStartRow <= opts.HeaderRows {
		opts.DataStartRow = opts.HeaderRows + 1
	}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads one worksheet of an XLSX export.
//
// PARAMETERS:
//   - filePath: The path to the workbook.
//   - opts: Sheet and header layout.
//
// RETURNS:
//   - The parsed table, with SourceFile set to filePath.
//   - An error if the file or sheet cannot be read.
func Parse(filePath string, opts Options) (*types.Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	table, err := ParseFile(f, opts)
	if err != nil {
		return nil, err
	}

	table.SourceFile = filePath
	return table, nil
}

// ParseFile reads one worksheet of an already open workbook.
func ParseFile(f *excelize.File, opts Options) (*types.Table, error) {
	applyOptionDefaults(&opts)

	sheetName, err := selectSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet '%s': %w", sheetName, err)
	}

	if len(rows) < opts.HeaderRows {
		return nil, fmt.Errorf("sheet '%s' has fewer rows than header_rows setting", sheetName)
	}

	headers := mergeHeaders(rows[:opts.HeaderRows])

	table := &types.Table{
		Headers:    headers,
		Rows:       []map[string]string{},
		RowNumbers: []int{},
	}

	for i := opts.DataStartRow - 1; i < len(rows); i++ {
		row := rows[i]

		if len(row) == 0 || isRowEmpty(row) {
			continue
		}

		rowMap := make(map[string]string, len(headers))
		for col, header := range headers {
			if col < len(row) {
				rowMap[header] = strings.TrimSpace(row[col])
			} else {
				rowMap[header] = ""
			}
		}

		table.Rows = append(table.Rows, rowMap)
		table.RowNumbers = append(table.RowNumbers, i+1)
	}

	return table, nil
}

// selectSheet resolves the worksheet to read.
func selectSheet(f *excelize.File, name string) (string, error) {
	sheets := f.GetSheetList()

	if name != "" {
		for _, sheet := range sheets {
			if strings.EqualFold(sheet, name) {
				return sheet, nil
			}
		}
		return "", fmt.Errorf("sheet '%s' not found", name)
	}

	for _, sheet := range sheets {
		if !strings.HasPrefix(sheet, "_") {
			return sheet, nil
		}
	}

	return "", fmt.Errorf("workbook has no sheets")
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// mergeHeaders joins the non-empty cells of each header column with a space
// and names blank columns "Column_N".
func mergeHeaders(headerRows [][]string) []string {
	maxCols := 0
	for _, row := range headerRows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for _, row := range headerRows {
			if col < len(row) {
				if value := strings.TrimSpace(row[col]); value != "" {
					parts = append(parts, value)
				}
			}
		}

		header := strings.Join(parts, " ")
		if header == "" {
			header = fmt.Sprintf("Column_%d", col+1)
		}
		headers[col] = header
	}

	return headers
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// PCA Consolidation - XLSX Report
// =============================================================================
//
// This module writes the consolidated plan as a workbook, the format the
// procurement team edits before publishing the PCA.
//
// WORKBOOK LAYOUT:
//   - One sheet per document type, in the order given, one row per
//     consolidated group and a TOTAL row at the bottom.
//   - A "Secretarias" sheet with one row per secretariat contribution,
//     taken from the list variant so no contribution is hidden.
//
// Values use a currency number format; dates are written dd/mm/yyyy.
//
// =============================================================================

package xlsxreport

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/pca-consolidation/internal/consolidator"
	"github.com/ginjaninja78/pca-consolidation/internal/format"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

// SecretariatsSheet is the name of the contribution detail sheet.
const SecretariatsSheet = "Secretarias"

// maxSheetName is Excel's limit on sheet name length.
const maxSheetName = 31

// currencyFormat renders values as "R$ 3.150,00" in a pt-BR Excel.
const currencyFormat = `"R$ "#,##0.00`

var groupHeaders = []any{
	"Descrição", "Unidade", "Detalhamento Técnico", "Quantidade Total",
	"Valor Total", "Data de Contratação", "Prioridade", "Secretarias",
}

var secretariatHeaders = []any{
	"Descrição", "Unidade", "Detalhamento Técnico", "Secretaria",
	"Quantidade", "Valor", "Prioridade", "Data de Contratação", "Documento",
}

// styles holds the style ids shared by every sheet.
type styles struct {
	header   int
	currency int
	total    int
}

// build creates the workbook. The caller closes the returned file.
//
// PARAMETERS:
//   - byType: The by-type consolidation.
//   - typeOrder: Document types in sheet order. Types missing from it are
//     appended in sorted order.
//   - items: The list consolidation, for the Secretarias sheet.
func build(byType map[string][]types.ConsolidatedGroup, typeOrder []string, items []types.ConsolidatedItem) (*excelize.File, error) {
	f := excelize.NewFile()

	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	used := make(map[string]bool)
	first := true

	for _, docType := range consolidator.OrderTypes(byType, typeOrder) {
		name := sheetName(docType, used)
		if err := addSheet(f, name, first); err != nil {
			f.Close()
			return nil, err
		}
		first = false

		if err := writeGroupSheet(f, name, byType[docType], st); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write sheet '%s': %w", name, err)
		}
	}

	if err := addSheet(f, SecretariatsSheet, first); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSecretariatSheet(f, items, st); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write sheet '%s': %w", SecretariatsSheet, err)
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Save builds the workbook and saves it to path.
func Save(path string, byType map[string][]types.ConsolidatedGroup, typeOrder []string, items []types.ConsolidatedItem) error {
	f, err := build(byType, typeOrder, items)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// =============================================================================
// SHEETS
// =============================================================================

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error

	fmtCurrency := currencyFormat

	st.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
	})
	if err != nil {
		return st, fmt.Errorf("failed to create header style: %w", err)
	}

	st.currency, err = f.NewStyle(&excelize.Style{CustomNumFmt: &fmtCurrency})
	if err != nil {
		return st, fmt.Errorf("failed to create currency style: %w", err)
	}

	st.total, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true},
		CustomNumFmt: &fmtCurrency,
	})
	if err != nil {
		return st, fmt.Errorf("failed to create total style: %w", err)
	}

	return st, nil
}

// addSheet renames the default sheet for the first sheet and creates the
// others.
func addSheet(f *excelize.File, name string, first bool) error {
	if first {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("failed to name sheet '%s': %w", name, err)
		}
		return nil
	}
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet '%s': %w", name, err)
	}
	return nil
}

func writeGroupSheet(f *excelize.File, sheet string, groups []types.ConsolidatedGroup, st styles) error {
	if err := writeHeader(f, sheet, groupHeaders, st); err != nil {
		return err
	}

	var totalQuantity, totalValue float64

	for i, g := range groups {
		row := []any{
			g.Description,
			g.Unit,
			g.TechnicalDetail,
			number(g.TotalQuantity),
			number(g.TotalValue),
			displayDate(g.OfficialContractingDate),
			string(g.OfficialPriority),
			secretariatNames(g.Secretariats),
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
		totalQuantity += g.TotalQuantity
		totalValue += g.TotalValue
	}

	last := len(groups) + 1
	if last > 1 {
		if err := f.SetCellStyle(sheet, "E2", fmt.Sprintf("E%d", last), st.currency); err != nil {
			return err
		}
	}

	totalRow := last + 1
	if err := setRow(f, sheet, totalRow, []any{"TOTAL", "", "", number(totalQuantity), number(totalValue)}); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("E%d", totalRow), st.total); err != nil {
		return err
	}

	return setWidths(f, sheet, []float64{40, 10, 30, 16, 18, 18, 12, 40})
}

func writeSecretariatSheet(f *excelize.File, items []types.ConsolidatedItem, st styles) error {
	if err := writeHeader(f, SecretariatsSheet, secretariatHeaders, st); err != nil {
		return err
	}

	rowNum := 2
	for _, item := range items {
		for _, s := range item.Secretariats {
			row := []any{
				item.Description,
				item.Unit,
				item.TechnicalDetail,
				s.Name,
				number(s.Quantity),
				number(s.Value),
				string(s.Priority),
				displayDate(s.ContractingDate),
				s.DocumentID,
			}
			if err := setRow(f, SecretariatsSheet, rowNum, row); err != nil {
				return err
			}
			rowNum++
		}
	}

	if rowNum > 2 {
		if err := f.SetCellStyle(SecretariatsSheet, "F2", fmt.Sprintf("F%d", rowNum-1), st.currency); err != nil {
			return err
		}
	}

	return setWidths(f, SecretariatsSheet, []float64{40, 10, 30, 24, 12, 18, 12, 18, 20})
}

func writeHeader(f *excelize.File, sheet string, headers []any, st styles) error {
	if err := setRow(f, sheet, 1, headers); err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", end, st.header)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func setWidths(f *excelize.File, sheet string, widths []float64) error {
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// number keeps NaN and infinities out of numeric cells.
func number(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprintf("%g", v)
	}
	return v
}

func displayDate(iso string) string {
	if iso == "" {
		return ""
	}
	return format.FormatDate(iso)
}

func secretariatNames(contributions map[string]types.Contribution) string {
	names := make([]string, 0, len(contributions))
	for name := range contributions {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// sheetName makes a valid, unique sheet name from a document type.
func sheetName(docType string, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.TrimSpace(docType))
	name = strings.Trim(name, "'")

	if name == "" {
		name = "Sem tipo"
	}
	if strings.EqualFold(name, SecretariatsSheet) {
		name += " (tipo)"
	}

	base := truncate(name, maxSheetName)
	name = base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncate(base, maxSheetName-len([]rune(suffix))) + suffix
	}

	used[strings.ToLower(name)] = true
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

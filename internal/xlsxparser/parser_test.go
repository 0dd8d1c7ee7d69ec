package xlsxparser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writeWorkbook saves a workbook whose sheets hold the given rows.
func writeWorkbook(t *testing.T, sheets map[string][][]any, order []string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}

		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	path := filepath.Join(t.TempDir(), "demandas.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParse_FirstVisibleSheet(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		"_meta": {{"ignored"}},
		"Itens": {
			{"descricao", "quantidade", "unidade"},
			{"Arroz tipo 1", 500, "kg"},
			{"", "", ""},
			{"Caneta azul", 40},
		},
	}, []string{"_meta", "Itens"})

	table, err := Parse(path, Options{})
	require.NoError(t, err)

	assert.Equal(t, path, table.SourceFile)
	assert.Equal(t, []string{"descricao", "quantidade", "unidade"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "500", table.Rows[0]["quantidade"])
	assert.Equal(t, "", table.Rows[1]["unidade"])
	assert.Equal(t, []int{2, 4}, table.RowNumbers)
}

func TestParse_NamedSheetAndMultiLineHeaders(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		"Resumo": {{"x"}},
		"Demandas": {
			{"Item", "", "Valor"},
			{"Descrição", "Unidade", "Unitário"},
			{"Papel A4", "resma", "22,90"},
		},
	}, []string{"Resumo", "Demandas"})

	table, err := Parse(path, Options{Sheet: "demandas", HeaderRows: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"Item Descrição", "Unidade", "Valor Unitário"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "22,90", table.Rows[0]["Valor Unitário"])
	assert.Equal(t, []int{3}, table.RowNumbers)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "missing.xlsx"), Options{})
	assert.ErrorContains(t, err, "failed to open workbook")

	path := writeWorkbook(t, map[string][][]any{"Itens": {{"descricao"}}}, []string{"Itens"})
	_, err = Parse(path, Options{Sheet: "Obras"})
	assert.ErrorContains(t, err, "not found")
}

func TestMergeHeaders(t *testing.T) {
	headers := mergeHeaders([][]string{{"a", ""}, {"", "", " c "}})
	assert.Equal(t, []string{"a", "Column_2", "c"}, headers)
}

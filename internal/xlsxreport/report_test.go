package xlsxreport

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/pca-consolidation/internal/consolidator"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

func demand() []types.DemandItem {
	return []types.DemandItem{
		{ID: "1", Description: "Arroz tipo 1", Quantity: 500, Value: 2250, Unit: "kg", Secretariat: "Saúde",
			Priority: types.PriorityMedium, ContractingDate: "2024-03-01", DocumentID: "D1", DocumentType: "MATERIAIS DE CONSUMO"},
		{ID: "2", Description: "Arroz tipo 1", Quantity: 200, Value: 900, Unit: "kg", Secretariat: "Educação",
			Priority: types.PriorityHigh, ContractingDate: "2024-01-10", DocumentID: "D2", DocumentType: "MATERIAIS DE CONSUMO"},
		{ID: "3", Description: "Manutenção predial", Quantity: 12, Value: 60000, Unit: "mês", Secretariat: "Obras",
			Priority: types.PriorityLow, ContractingDate: "2024-06-01", DocumentID: "D3", DocumentType: "SERVIÇOS/OBRAS"},
	}
}

func rawRows(t *testing.T, f *excelize.File, sheet string) [][]string {
	t.Helper()
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return rows
}

func TestSave(t *testing.T) {
	items := demand()
	byType := consolidator.ConsolidateItemsByType(items)
	list := consolidator.ConsolidateItems(items)

	path := filepath.Join(t.TempDir(), "pca.xlsx")
	require.NoError(t, Save(path, byType, consolidator.DocumentTypeOrder(items), list))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"MATERIAIS DE CONSUMO", "SERVIÇOS-OBRAS", SecretariatsSheet}, f.GetSheetList())

	rows := rawRows(t, f, "MATERIAIS DE CONSUMO")
	require.Len(t, rows, 3)
	assert.Equal(t, "Descrição", rows[0][0])
	assert.Equal(t, []string{"Arroz tipo 1", "kg", "", "700", "3150", "10/01/2024", "Alta", "Educação, Saúde"}, rows[1])
	assert.Equal(t, []string{"TOTAL", "", "", "700", "3150"}, rows[2])

	detail := rawRows(t, f, SecretariatsSheet)
	require.Len(t, detail, 4)
	assert.Equal(t, "Saúde", detail[1][3])
	assert.Equal(t, "Educação", detail[2][3])
	assert.Equal(t, "D3", detail[3][8])
}

func TestSave_EmptyPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vazio.xlsx")
	require.NoError(t, Save(path, map[string][]types.ConsolidatedGroup{}, nil, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SecretariatsSheet}, f.GetSheetList())
	assert.Len(t, rawRows(t, f, SecretariatsSheet), 1)
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}

	assert.Equal(t, "A-B", sheetName("A/B", used))
	assert.Equal(t, "a-b (2)", sheetName("a:b", used))
	assert.Equal(t, "Sem tipo", sheetName("  ", used))
	assert.Equal(t, "secretarias (tipo)", sheetName("secretarias", used))

	long := sheetName("MATERIAIS PERMANENTES E EQUIPAMENTOS DE TI", used)
	assert.Len(t, []rune(long), 31)
	again := sheetName("MATERIAIS PERMANENTES E EQUIPAMENTOS DE INFORMÁTICA", used)
	assert.Len(t, []rune(again), 31)
	assert.NotEqual(t, long, again)
}

func TestNumber(t *testing.T) {
	assert.Equal(t, 4.5, number(4.5))
	assert.Equal(t, "NaN", number(math.NaN()))
	assert.Equal(t, "+Inf", number(math.Inf(1)))
}

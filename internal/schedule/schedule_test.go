package schedule

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/pca-consolidation/internal/consolidator"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

func plan() (map[string][]types.ConsolidatedGroup, []string) {
	items := []types.DemandItem{
		{ID: "1", Description: "Arroz tipo 1", Quantity: 500, Value: 2250, Unit: "kg", Secretariat: "Saúde",
			Priority: types.PriorityMedium, ContractingDate: "2024-03-01", DocumentType: "MATERIAIS DE CONSUMO"},
		{ID: "2", Description: "Arroz tipo 1", Quantity: 200, Value: 900, Unit: "kg", Secretariat: "Educação",
			Priority: types.PriorityHigh, ContractingDate: "2024-01-10", DocumentType: "MATERIAIS DE CONSUMO"},
		{ID: "3", Description: "Manutenção predial", Quantity: 12, Value: 60000, Unit: "mês", Secretariat: "Obras",
			Priority: types.PriorityLow, ContractingDate: "2024-06-01", DocumentType: "SERVIÇOS"},
		{ID: "4", Description: "Café torrado", Quantity: 50, Value: 1500, Unit: "kg", Secretariat: "Educação",
			Priority: types.PriorityLow, ContractingDate: "2024-01-10", DocumentType: "MATERIAIS DE CONSUMO"},
		{ID: "5", Description: "Papel A4", Quantity: 100, Value: 2500, Unit: "resma", Secretariat: "Obras",
			Priority: types.PriorityLow, DocumentType: "MATERIAIS DE CONSUMO"},
	}
	return consolidator.ConsolidateItemsByType(items), consolidator.DocumentTypeOrder(items)
}

func descriptions(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Description
	}
	return out
}

func TestBuild_SortsByDateThenDescription(t *testing.T) {
	byType, order := plan()

	page := Build(byType, order, Query{})
	assert.Equal(t, []string{"Arroz tipo 1", "Café torrado", "Manutenção predial", "Papel A4"}, descriptions(page.Rows))
	assert.Equal(t, []string{"Educação", "Saúde"}, page.Rows[0].SecretariatNames)
	assert.Equal(t, 4, page.TotalRows)
	assert.Equal(t, 1, page.TotalPages)
}

func TestBuild_Filters(t *testing.T) {
	byType, order := plan()

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"secretariat", Query{Secretariat: "educação"}, []string{"Arroz tipo 1", "Café torrado"}},
		{"document type", Query{DocumentType: "SERVIÇOS"}, []string{"Manutenção predial"}},
		{"document type is case sensitive", Query{DocumentType: "serviços"}, []string{}},
		{"priority", Query{Priority: types.PriorityLow}, []string{"Café torrado", "Manutenção predial", "Papel A4"}},
		{"search", Query{Search: " ARROZ "}, []string{"Arroz tipo 1"}},
		{"combined", Query{Secretariat: "Obras", Priority: types.PriorityLow, Search: "papel"}, []string{"Papel A4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Build(byType, order, tt.query)
			assert.Equal(t, tt.want, descriptions(page.Rows))
		})
	}
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	byType, order := plan()
	before := fmt.Sprint(byType)

	Build(byType, order, Query{Search: "arroz", Page: 3, PageSize: 1})
	assert.Equal(t, before, fmt.Sprint(byType))
}

func TestPaginate(t *testing.T) {
	rows := make([]Row, 23)
	for i := range rows {
		rows[i].Description = fmt.Sprintf("item %02d", i+1)
	}

	tests := []struct {
		name      string
		page      int
		size      int
		wantPage  int
		wantLen   int
		wantFirst string
		wantPages int
	}{
		{"first page", 1, 10, 1, 10, "item 01", 3},
		{"last partial page", 3, 10, 3, 3, "item 21", 3},
		{"clamped high", 9, 10, 3, 3, "item 21", 3},
		{"clamped low", 0, 10, 1, 10, "item 01", 3},
		{"default size", 2, 0, 2, 10, "item 11", 3},
		{"single page", 1, 50, 1, 23, "item 01", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(rows, tt.page, tt.size)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, 23, p.TotalRows)
			require.Len(t, p.Rows, tt.wantLen)
			assert.Equal(t, tt.wantFirst, p.Rows[0].Description)
		})
	}
}

func TestPaginate_Empty(t *testing.T) {
	p := Paginate(nil, 4, 10)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.TotalPages)
	assert.Equal(t, 0, p.TotalRows)
	assert.Empty(t, p.Rows)
}

package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/pca-consolidation/internal/consolidator"
	"github.com/ginjaninja78/pca-consolidation/internal/schedule"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

func TestRenderSchedule(t *testing.T) {
	items := []types.DemandItem{
		{ID: "1", Description: "Arroz tipo 1", Quantity: 500, Value: 2250, Unit: "kg", Secretariat: "Saúde",
			Priority: types.PriorityMedium, ContractingDate: "2024-03-01", DocumentType: "MATERIAIS DE CONSUMO"},
		{ID: "2", Description: "Arroz tipo 1", Quantity: 200, Value: 900, Unit: "kg", Secretariat: "Educação",
			Priority: types.PriorityHigh, ContractingDate: "2024-01-10", DocumentType: "MATERIAIS DE CONSUMO"},
	}
	byType := consolidator.ConsolidateItemsByType(items)
	page := schedule.Build(byType, consolidator.DocumentTypeOrder(items), schedule.Query{})

	var buf bytes.Buffer
	require.NoError(t, renderSchedule(&buf, page))

	out := buf.String()
	assert.Contains(t, out, "10/01/2024")
	assert.Contains(t, out, "Arroz tipo 1")
	assert.Contains(t, out, "R$ 3.150,00")
	assert.Contains(t, out, "Educação, Saúde")
}

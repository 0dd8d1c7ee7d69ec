package xmlwriter

import (
	"encoding/xml"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/pca-consolidation/internal/consolidator"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

func sampleItems() []types.DemandItem {
	return []types.DemandItem{
		{ID: "1", Description: "Arroz tipo 1", Quantity: 500, Value: 2250, Unit: "kg", Secretariat: "Saúde",
			Priority: types.PriorityMedium, ContractingDate: "2024-03-01", DocumentID: "D1", DocumentType: "MATERIAIS DE CONSUMO"},
		{ID: "2", Description: "arroz tipo 1 ", Quantity: 200, Value: 900, Unit: "KG", Secretariat: "Educação",
			Priority: types.PriorityHigh, ContractingDate: "2024-02-15", DocumentID: "D2", DocumentType: "MATERIAIS DE CONSUMO"},
		{ID: "3", Description: "Limpeza & conservação", Quantity: 1, Value: 12000, Unit: "mês", Secretariat: "Obras",
			Priority: types.PriorityLow, ContractingDate: "2024-05-01", DocumentID: "D3", DocumentType: "SERVIÇOS"},
	}
}

func TestGenerate_Structure(t *testing.T) {
	items := sampleItems()
	byType := consolidator.ConsolidateItemsByType(items)

	opts := DefaultGenerateOptions()
	opts.GeneratedAt = time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)

	out, err := GenerateWithOptions(byType, consolidator.DocumentTypeOrder(items), opts)
	require.NoError(t, err)

	doc := string(out)
	assert.True(t, strings.HasPrefix(doc, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<pca gerado=\"2024-05-02T10:00:00Z\">\n"))
	assert.Contains(t, doc, `  <totais grupos="2" quantidade="701" valor="15150.00"/>`)
	assert.Contains(t, doc, "<quantidadeTotal>700</quantidadeTotal>")
	assert.Contains(t, doc, "<valorTotal>3150.00</valorTotal>")
	assert.Contains(t, doc, "<dataContratacaoOficial>2024-02-15</dataContratacaoOficial>")
	assert.Contains(t, doc, "<prioridadeOficial>Alta</prioridadeOficial>")
	assert.Contains(t, doc, "<detalhamentoTecnico/>")
	assert.Contains(t, doc, "Limpeza &amp; conservação")

	// document types in first-seen order, secretariats sorted by name
	assert.Less(t, strings.Index(doc, `nome="MATERIAIS DE CONSUMO"`), strings.Index(doc, `nome="SERVIÇOS"`))
	assert.Less(t, strings.Index(doc, `nome="Educação"`), strings.Index(doc, `nome="Saúde"`))
}

func TestGenerate_WellFormed(t *testing.T) {
	byType := consolidator.ConsolidateItemsByType(sampleItems())

	out, err := Generate(byType, nil)
	require.NoError(t, err)

	var parsed struct {
		XMLName xml.Name `xml:"pca"`
		Tipos   []struct {
			Nome  string `xml:"nome,attr"`
			Itens []struct {
				N         int     `xml:"n,attr"`
				Descricao string  `xml:"descricao"`
				Valor     float64 `xml:"valorTotal"`
			} `xml:"item"`
		} `xml:"tipo"`
	}
	require.NoError(t, xml.Unmarshal(out, &parsed))

	require.Len(t, parsed.Tipos, 2)
	assert.Equal(t, "MATERIAIS DE CONSUMO", parsed.Tipos[0].Nome, "types missing from the order are sorted")
	assert.Equal(t, 1, parsed.Tipos[0].Itens[0].N)
	assert.Equal(t, "Arroz tipo 1", parsed.Tipos[0].Itens[0].Descricao)
	assert.Equal(t, 3150.0, parsed.Tipos[0].Itens[0].Valor)
}

func TestGenerate_EmptyAndErrors(t *testing.T) {
	out, err := Generate(map[string][]types.ConsolidatedGroup{}, nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<totais grupos="0" quantidade="0" valor="0.00"/>`)

	opts := DefaultGenerateOptions()
	opts.RootElement = ""
	_, err = GenerateWithOptions(nil, nil, opts)
	assert.Error(t, err)
}

func TestFormatNumbers(t *testing.T) {
	assert.Equal(t, "2.5", formatQuantity(2.5))
	assert.Equal(t, "NaN", formatQuantity(math.NaN()))
	assert.Equal(t, "4.50", formatMoney(4.5))
	assert.Equal(t, "NaN", formatMoney(math.NaN()))
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; &quot;c&quot; &apos;d&apos;", escapeXML(`a <b> & "c" 'd'`))
}

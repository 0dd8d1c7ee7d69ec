package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/pca-consolidation/internal/config"
)

func TestApplyTransformation(t *testing.T) {
	priorities := map[string]string{"ALTA": "Alta", "MEDIA": "Média", "BAIXA": "Baixa"}

	tests := []struct {
		name   string
		value  string
		action config.TransformationAction
		fields map[string]string
		want   string
	}{
		{"trim", "  Arroz ", config.TransformationAction{Type: "trim"}, nil, "Arroz"},
		{"uppercase", "kg", config.TransformationAction{Type: "uppercase"}, nil, "KG"},
		{"lowercase", "KG", config.TransformationAction{Type: "lowercase"}, nil, "kg"},
		{"normalize whitespace", " Arroz   tipo\t1 ", config.TransformationAction{Type: "normalize_whitespace"}, nil, "Arroz tipo 1"},
		{"replace", "SEC-EDU", config.TransformationAction{Type: "replace", Find: "-", Value: " "}, nil, "SEC EDU"},
		{"replace without find", "abc", config.TransformationAction{Type: "replace", Value: "x"}, nil, "abc"},
		{"regex replace", "1 - Alta", config.TransformationAction{Type: "regex_replace", Find: `^\d+\s*-\s*`}, nil, "Alta"},
		{"extract digits", "DFD-2024/0012", config.TransformationAction{Type: "extract_digits"}, nil, "20240012"},
		{"lookup hit", "ALTA", config.TransformationAction{Type: "lookup", LookupTable: priorities}, nil, "Alta"},
		{"lookup miss keeps value", "URGENTE", config.TransformationAction{Type: "lookup", LookupTable: priorities}, nil, "URGENTE"},
		{"lookup with default", "URGENTE", config.TransformationAction{Type: "lookup_with_default", Value: "Baixa", LookupTable: priorities}, nil, "Baixa"},
		{"format date", "15/03/2024", config.TransformationAction{Type: "format_date", Value: "02/01/2006|2006-01-02"}, nil, "2024-03-15"},
		{"format date mismatch passes through", "março", config.TransformationAction{Type: "format_date", Value: "02/01/2006|2006-01-02"}, nil, "março"},
		{"format date empty", "", config.TransformationAction{Type: "format_date", Value: "02/01/2006|2006-01-02"}, nil, ""},
		{"default when empty", " ", config.TransformationAction{Type: "if_empty_use_default", Value: "un"}, nil, "un"},
		{"default keeps value", "kg", config.TransformationAction{Type: "if_empty_use_default", Value: "un"}, nil, "kg"},
		{"other field when empty", "", config.TransformationAction{Type: "if_empty_use_field", Value: "Item"}, map[string]string{"Item": "Arroz"}, "Arroz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyTransformation(tt.value, tt.action, tt.fields)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyTransformation_Errors(t *testing.T) {
	_, err := ApplyTransformation("x", config.TransformationAction{Type: "shout"}, nil)
	assert.ErrorContains(t, err, "unknown transformation type")

	_, err = ApplyTransformation("x", config.TransformationAction{Type: "regex_replace", Find: "("}, nil)
	assert.ErrorContains(t, err, "invalid regex")

	_, err = ApplyTransformation("x", config.TransformationAction{Type: "format_date", Value: "2006"}, nil)
	assert.Error(t, err)
}

func TestTransformRow(t *testing.T) {
	tr := NewTransformer([]config.TransformationRule{
		{Field: "prioridade", Actions: []config.TransformationAction{
			{Type: "trim"},
			{Type: "uppercase"},
		}},
		{Field: "unidade", Actions: []config.TransformationAction{
			{Type: "if_empty_use_default", Value: "un"},
		}},
		{Field: "prioridade", Actions: []config.TransformationAction{
			{Type: "lookup_with_default", Value: "Baixa", LookupTable: map[string]string{"ALTA": "Alta"}},
		}},
		{Field: "ausente", Actions: []config.TransformationAction{{Type: "uppercase"}}},
	})

	row := map[string]string{"prioridade": " alta ", "descricao": "Arroz"}
	out, err := tr.TransformRow(row)
	require.NoError(t, err)

	assert.Equal(t, "Alta", out["prioridade"])
	assert.Equal(t, "un", out["unidade"], "fallback actions fill missing columns")
	assert.NotContains(t, out, "ausente")
	assert.Equal(t, " alta ", row["prioridade"], "input row is not mutated")
}

func TestTransformRow_ErrorNamesField(t *testing.T) {
	tr := NewTransformer([]config.TransformationRule{
		{Field: "codigo", Actions: []config.TransformationAction{{Type: "bogus"}}},
	})

	_, err := tr.TransformRow(map[string]string{"codigo": "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "codigo")
	assert.Contains(t, err.Error(), "bogus")
}

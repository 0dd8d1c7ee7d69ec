package converter

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/pca-consolidation/internal/config"
	"github.com/ginjaninja78/pca-consolidation/internal/logging"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
	"github.com/ginjaninja78/pca-consolidation/internal/validation"
	"github.com/ginjaninja78/pca-consolidation/pkg/utils"
)

const educacaoCSV = "descricao;quantidade;valor;unidade;secretaria;prioridade;data_contratacao;tipo_documento\n" +
	"Arroz tipo 1;200;900,00;kg;Educação;Alta;2024-01-10;MATERIAIS DE CONSUMO\n" +
	"Café torrado;50;1.500,00;kg;Educação;Baixa;2024-02-01;MATERIAIS DE CONSUMO\n"

const saudeCSV = "descricao;quantidade;valor;unidade;secretaria;prioridade;data_contratacao;tipo_documento\n" +
	"arroz tipo 1 ;500;2.250,00;KG;Saúde;Média;2024-03-01;MATERIAIS DE CONSUMO\n"

type fixture struct {
	cfg   *config.MainConfig
	files *utils.FileManager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()

	cfg, err := config.LoadMainConfig(filepath.Join(root, "missing.yaml"))
	require.NoError(t, err)
	cfg.InputDir = filepath.Join(root, "input")
	cfg.OutputDir = filepath.Join(root, "output")
	cfg.InputArchiveDir = filepath.Join(root, "input_archive")
	cfg.OutputArchiveDir = filepath.Join(root, "output_archive")
	cfg.SourcesDir = filepath.Join(root, "sources")
	cfg.DatabasePath = filepath.Join(root, "data", "pca.db")
	require.NoError(t, cfg.Validate())

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	fm.Now = func() time.Time { return time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC) }

	return fixture{cfg: cfg, files: fm}
}

func (f fixture) writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.cfg.InputDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	files := []string{
		f.writeInput(t, "educacao.csv", educacaoCSV),
		f.writeInput(t, "saude.csv", saudeCSV),
		f.writeInput(t, "obras.pdf", "%PDF"),
	}

	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	conv := New(f.cfg, f.files, Options{Formats: []string{"xlsx", "xml", "yaml", "json"}})
	result, err := conv.RunFiles(ctx, files, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Stats.Files)
	assert.Equal(t, 1, result.Stats.FailedFiles)
	assert.Equal(t, 3, result.Stats.Rows)
	assert.Equal(t, 3, result.Stats.Items)
	assert.Equal(t, 2, result.Totals.Groups)
	assert.Equal(t, 4650.0, result.Totals.Value)
	assert.Equal(t, []string{"MATERIAIS DE CONSUMO"}, result.TypeOrder)

	groups := result.ByType["MATERIAIS DE CONSUMO"]
	require.Len(t, groups, 2)
	assert.Equal(t, 700.0, groups[0].TotalQuantity)
	assert.Equal(t, "2024-01-10", groups[0].OfficialContractingDate)
	assert.Equal(t, types.PriorityHigh, groups[0].OfficialPriority)

	require.Len(t, result.Reports, 4)
	for _, report := range result.Reports {
		assert.FileExists(t, report)
		assert.FileExists(t, filepath.Join(f.cfg.OutputArchiveDir, filepath.Base(report)))
	}
	assert.Equal(t, filepath.Join(f.cfg.OutputDir, "pca_20240115_143022.xlsx"), result.Reports[0])

	// Ingested exports move to the archive; the failed one stays.
	assert.NoFileExists(t, files[0])
	assert.FileExists(t, filepath.Join(f.cfg.InputArchiveDir, "educacao.csv"))
	assert.FileExists(t, files[2])

	require.NotEmpty(t, result.ErrorLog)
	errorLog, err := os.ReadFile(result.ErrorLog)
	require.NoError(t, err)
	assert.Contains(t, string(errorLog), "obras.pdf")
	assert.Contains(t, string(errorLog), "unsupported file type")

	summary, err := os.ReadFile(result.SummaryLog)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "R$ 4.650,00")

	assert.True(t, tl.Contains("demand consolidated"))
}

func TestRunFiles_YAMLPlan(t *testing.T) {
	f := newFixture(t)
	files := []string{f.writeInput(t, "educacao.csv", educacaoCSV)}

	result, err := New(f.cfg, f.files, Options{Formats: []string{"yaml"}}).RunFiles(context.Background(), files, nil)
	require.NoError(t, err)
	require.Len(t, result.Reports, 1)

	data, err := os.ReadFile(result.Reports[0])
	require.NoError(t, err)

	var plan Plan
	require.NoError(t, yaml.Unmarshal(data, &plan))
	assert.Equal(t, []string{"MATERIAIS DE CONSUMO"}, plan.DocumentTypes)
	assert.Equal(t, 2, plan.Totals.Groups)
	assert.Equal(t, 2400.0, plan.Totals.Value)
	require.Len(t, plan.Groups["MATERIAIS DE CONSUMO"], 2)
	assert.Equal(t, "Café torrado", plan.Groups["MATERIAIS DE CONSUMO"][1].Description)
}

func TestRunFiles_DryRun(t *testing.T) {
	f := newFixture(t)
	files := []string{f.writeInput(t, "educacao.csv", educacaoCSV)}

	result, err := New(f.cfg, f.files, Options{DryRun: true}).RunFiles(context.Background(), files, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Totals.Groups)
	assert.Empty(t, result.Reports)
	assert.Empty(t, result.SummaryLog)
	assert.FileExists(t, files[0])

	entries, err := os.ReadDir(f.cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunFiles_StopOnError(t *testing.T) {
	f := newFixture(t)
	stop := false
	f.cfg.ContinueOnError = &stop

	files := []string{
		f.writeInput(t, "educacao.csv", educacaoCSV),
		f.writeInput(t, "obras.pdf", "%PDF"),
	}

	_, err := New(f.cfg, f.files, Options{}).RunFiles(context.Background(), files, nil)
	assert.ErrorContains(t, err, "obras.pdf")
	assert.FileExists(t, files[0], "nothing is archived when the run stops")
}

func TestRunItems_NaNBreaksOnlyJSON(t *testing.T) {
	f := newFixture(t)
	items := []types.DemandItem{
		{ID: "D1-1", Description: "Papel A4", Quantity: math.NaN(), Value: 250, Unit: "resma",
			Secretariat: "Obras", Priority: types.PriorityLow, ContractingDate: "2024-05-01", DocumentType: "MATERIAIS DE CONSUMO"},
	}

	result, err := New(f.cfg, f.files, Options{Formats: []string{"json", "yaml"}}).RunItems(context.Background(), SourceDatabase, items)
	require.NoError(t, err)

	require.Len(t, result.ReportErrors, 1)
	assert.ErrorContains(t, result.ReportErrors[0], "json report")
	require.Len(t, result.Reports, 1)
	assert.FileExists(t, result.Reports[0])

	require.NotEmpty(t, result.Findings)
	assert.Equal(t, validation.RuleQuantity, result.Findings[0].Rule)

	errorLog, err := os.ReadFile(result.ErrorLog)
	require.NoError(t, err)
	assert.Contains(t, string(errorLog), "Type:       report")
	assert.Contains(t, string(errorLog), "Type:       quantity")
}

func TestNewPlan_JSON(t *testing.T) {
	result := &Result{
		TypeOrder: []string{"SERVIÇOS"},
		ByType:    map[string][]types.ConsolidatedGroup{"SERVIÇOS": {{Key: "k", Description: "Limpeza", TotalValue: 10}}},
	}
	result.Totals.Groups = 1

	data, err := json.Marshal(NewPlan(result, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"geradoEm":"2024-01-15T00:00:00Z"`)
	assert.Contains(t, string(data), `"tiposDocumento":["SERVIÇOS"]`)
	assert.Contains(t, string(data), `"descricao":"Limpeza"`)
}

func TestFileOfItem(t *testing.T) {
	assert.Equal(t, "educacao.csv", fileOfItem("educacao.csv#12"))
	assert.Equal(t, "", fileOfItem("b7f0c2d4"))
}

package utils

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var fixedNow = time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(
		filepath.Join(root, "input"),
		filepath.Join(root, "output"),
		filepath.Join(root, "input_archive"),
		filepath.Join(root, "output_archive"),
	)
	fm.Now = func() time.Time { return fixedNow }
	require.NoError(t, fm.EnsureDirectories())
	return fm
}

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestIsInputFile(t *testing.T) {
	assert.True(t, IsInputFile("/in/educacao.csv"))
	assert.True(t, IsInputFile("SAUDE.XLSX"))
	assert.False(t, IsInputFile("~$saude.xlsx"))
	assert.False(t, IsInputFile(".educacao.csv"))
	assert.False(t, IsInputFile("notas.pdf"))
}

func TestDiscoverInputFiles(t *testing.T) {
	fm := newTestManager(t)
	touch(t, filepath.Join(fm.InputDir, "saude.xlsx"), "")
	touch(t, filepath.Join(fm.InputDir, "educacao.csv"), "")
	touch(t, filepath.Join(fm.InputDir, "leia-me.txt"), "")
	require.NoError(t, os.Mkdir(filepath.Join(fm.InputDir, "antigos.csv"), 0755))

	files, err := fm.DiscoverInputFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(fm.InputDir, "educacao.csv"),
		filepath.Join(fm.InputDir, "saude.xlsx"),
	}, files)

	fm.InputDir = filepath.Join(fm.InputDir, "missing")
	_, err = fm.DiscoverInputFiles()
	assert.Error(t, err)
}

func TestArchiveInputFile(t *testing.T) {
	fm := newTestManager(t)
	fm.UseTimestampSubdirs = true

	first := filepath.Join(fm.InputDir, "educacao.csv")
	touch(t, first, "v1")
	archived, err := fm.ArchiveInputFile(first)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "2024", "01", "15", "educacao.csv"), archived)
	assert.NoFileExists(t, first)

	touch(t, first, "v2")
	again, err := fm.ArchiveInputFile(first)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "2024", "01", "15", "educacao_2.csv"), again)

	data, err := os.ReadFile(archived)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestArchiveOutputFile(t *testing.T) {
	fm := newTestManager(t)
	report := filepath.Join(fm.OutputDir, "pca.xlsx")
	touch(t, report, "report")

	archived, err := fm.ArchiveOutputFile(report)
	require.NoError(t, err)
	assert.FileExists(t, report, "reports are copied")
	assert.FileExists(t, archived)

	fm.ArchiveOnSuccess = false
	same, err := fm.ArchiveOutputFile(report)
	require.NoError(t, err)
	assert.Equal(t, report, same)
}

func TestGenerateOutputFileName(t *testing.T) {
	fm := newTestManager(t)

	name := fm.GenerateOutputFileName("pca_{type}_{timestamp}", "xlsx", map[string]string{"type": "MATERIAIS DE CONSUMO"})
	assert.Equal(t, "pca_MATERIAIS_DE_CONSUMO_20240115_143022.xlsx", name)

	name = fm.GenerateOutputFileName("{date}_{uuid}.yaml", ".yaml", nil)
	assert.Regexp(t, regexp.MustCompile(`^20240115_[0-9a-f-]{36}\.yaml$`), name)
}

func TestWriteErrorLog(t *testing.T) {
	fm := newTestManager(t)

	path, err := fm.WriteErrorLog(nil)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = fm.WriteErrorLog([]ErrorLogEntry{
		{FileName: "obras.pdf", ErrorType: "ingest", ErrorMessage: "unsupported file type: .pdf"},
		{Severity: "warning", ErrorType: "secretariat_collision", ErrorMessage: "secretariat contributes more than once",
			ItemID: "2", GroupKey: "arroz_kg__MATERIAIS DE CONSUMO", FieldName: "secretaria", FieldValue: "Educação"},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputDir, "error_log_20240115_143022.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Total Entries: 2")
	assert.Contains(t, content, "  File:       obras.pdf")
	assert.Contains(t, content, "  Severity:   WARNING")
	assert.Contains(t, content, "  Value:      Educação")
}

func TestWriteSummaryLog(t *testing.T) {
	fm := newTestManager(t)

	path, err := fm.WriteSummaryLog(ProcessingSummary{
		StartTime:       fixedNow,
		EndTime:         fixedNow.Add(3 * time.Second),
		Source:          "files",
		TotalFiles:      2,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		TotalItems:      3,
		TotalGroups:     2,
		TotalValue:      "R$ 3.150,00",
		ProcessedFiles:  []ProcessedFileInfo{{InputFile: "educacao.csv", Source: "EDU", Rows: 3, Items: 3}},
		FailedFilesList: []FailedFileInfo{{InputFile: "obras.pdf", ErrorMessage: "unsupported"}},
		Reports:         []string{"pca.xlsx"},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Duration:       3s")
	assert.Contains(t, content, "Total Value:        R$ 3.150,00")
	assert.Contains(t, content, "Profile:      EDU")
	assert.Contains(t, content, "Error: unsupported")
	assert.Contains(t, content, "  pca.xlsx")

	second, err := fm.WriteSummaryLog(ProcessingSummary{})
	require.NoError(t, err)
	assert.NotEqual(t, path, second, "same-second runs do not overwrite each other")
}

func TestWatchInputDir(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []string, 1)
	done := make(chan error, 1)
	go func() {
		done <- WatchInputDir(ctx, dir, 50*time.Millisecond, func(_ context.Context, files []string) {
			select {
			case got <- files:
			default:
			}
		})
	}()

	// The watch is registered asynchronously; keep writing until it reports.
	target := filepath.Join(dir, "educacao.csv")
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var files []string
loop:
	for {
		select {
		case files = <-got:
			break loop
		case <-ticker.C:
			touch(t, target, "descricao\n")
			touch(t, filepath.Join(dir, "ignored.pdf"), "")
		case <-deadline:
			t.Fatal("watcher did not report the new export")
		}
	}

	assert.Equal(t, []string{target}, files)

	cancel()
	require.NoError(t, <-done)
}

func TestWatchInputDir_MissingDir(t *testing.T) {
	err := WatchInputDir(context.Background(), filepath.Join(t.TempDir(), "missing"), 0, func(context.Context, []string) {})
	assert.Error(t, err)
}

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataelevate/internal/core"
)

const salesCSV = "id,name,score\n1,a,10\n1,a,10\n2,b,\n3,c,30\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// execute runs the root command and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeWithLogs(t, "error", args...)
	return out, err
}

// executeWithLogs runs the root command at the given log level and returns
// stdout and stderr.
func executeWithLogs(t *testing.T, level string, args ...string) (string, string, error) {
	t.Helper()
	// Keep a developer's .env out of the run.
	t.Chdir(t.TempDir())

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--log-level", level))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sales.csv", salesCSV)

	out, err := execute(t, "inspect", path, "--dedupe")
	require.NoError(t, err)

	assert.Contains(t, out, "sales.csv: ok")
	assert.Contains(t, out, "Removed 1 duplicate rows")
	assert.Contains(t, out, "3 rows, 3 columns, 1 missing values")
	assert.Contains(t, out, "missing: score=1")
	assert.Contains(t, out, "score")
}

func TestInspect_LogsCarryCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sales.csv", salesCSV)

	_, logs, err := executeWithLogs(t, "info", "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, logs, "batch started")
	assert.Contains(t, logs, "command=inspect")
}

func TestInspect_ParseErrorDetail(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.xlsx", "not a workbook")

	out, err := execute(t, "inspect", path)
	require.Error(t, err)
	assert.Contains(t, out, "broken.xlsx: skipped: ")
	assert.Contains(t, out, "Error processing broken.xlsx: ")
	assert.Contains(t, out, "(Code: FILE003)")
}

func TestInspect_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sales.csv", salesCSV)

	out, err := execute(t, "inspect", path, "--json", "--fill-missing")
	require.NoError(t, err)

	var batch core.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	require.Len(t, batch.Files, 1)
	assert.Equal(t, core.StatusOK, batch.Files[0].Status)
	require.NotNil(t, batch.Files[0].Fill)
	assert.Equal(t, 1, batch.Files[0].Fill.Total())
}

func TestInspect_UnsupportedFile(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "sales.csv", salesCSV)
	bad := writeFile(t, dir, "notes.txt", "hello")

	out, err := execute(t, "inspect", bad, good)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files")
	assert.Contains(t, out, "notes.txt: skipped")
	assert.Contains(t, out, "FILE002")
	assert.Contains(t, out, "sales.csv: ok")
}

func TestInspect_MissingPath(t *testing.T) {
	_, err := execute(t, "inspect", filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sales.csv", salesCSV)
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "convert", path, "--to", "xlsx", "--dedupe", "--fill-missing",
		"--columns", "name,score", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 duplicates removed")

	data, err := os.ReadFile(filepath.Join(outDir, "sales.xlsx"))
	require.NoError(t, err)

	tbl, err := core.Load(core.NewUploadedFile("sales.xlsx", data))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "score"}, tbl.Columns())
	assert.Equal(t, 3, tbl.NumRows())

	scores, ok, err := tbl.Floats("score")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true}, ok)
	assert.InDeltaSlice(t, []float64{10, 20, 30}, scores, 1e-9)
}

func TestConvert_InvalidFormat(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sales.csv", salesCSV)
	_, err := execute(t, "convert", path, "--to", "json")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnsupportedExport)
}

func TestConvert_UnknownColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sales.csv", salesCSV)

	out, err := execute(t, "convert", path, "--columns", "price", "--out", dir)
	require.Error(t, err)
	assert.Contains(t, out, "COL001")
}

func TestConvert_RefusesToOverwriteInput(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sales.csv", salesCSV)

	_, err := execute(t, "convert", path, "--dedupe", "--out", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to overwrite")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, salesCSV, string(data))
}

// toXLSX converts a CSV fixture to dir/<name>.xlsx through the CLI.
func toXLSX(t *testing.T, dir, name, content string) string {
	t.Helper()
	src := writeFile(t, mkdir(t, t.TempDir(), "src"), name+".csv", content)
	_, err := execute(t, "convert", src, "--to", "xlsx", "--out", dir)
	require.NoError(t, err)
	return filepath.Join(dir, name+".xlsx")
}

func TestConvert_RefusesToOverwriteOtherInput(t *testing.T) {
	dir := t.TempDir()
	book := toXLSX(t, dir, "sales", salesCSV)
	csvPath := writeFile(t, dir, "sales.csv", "id\n7\n")

	_, err := execute(t, "convert", book, csvPath, "--to", "csv", "--out", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to overwrite input "+csvPath)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "id\n7\n", string(data))
}

func TestConvert_RefusesSharedOutput(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, mkdir(t, dir, "east"), "sales.csv", salesCSV)
	second := writeFile(t, mkdir(t, dir, "west"), "sales.csv", "id\n7\n")
	outDir := filepath.Join(dir, "out")

	_, err := execute(t, "convert", first, second, "--to", "xlsx", "--out", outDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "would both be written to")

	_, statErr := os.Stat(filepath.Join(outDir, "sales.xlsx"))
	assert.True(t, os.IsNotExist(statErr), "nothing may be written")
}

func TestConvert_XLSXToCSV(t *testing.T) {
	dir := t.TempDir()
	book := toXLSX(t, dir, "sales", salesCSV)
	outDir := filepath.Join(dir, "csv")

	_, err := execute(t, "convert", book, "--to", "csv", "--out", outDir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "sales.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "id,name,score")
}

func mkdir(t *testing.T, parent, name string) string {
	t.Helper()
	dir := filepath.Join(parent, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}

func TestChart(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sales.csv", salesCSV)

	out, err := execute(t, "chart", path, "--kind", "scatter")
	require.NoError(t, err)
	assert.Contains(t, out, "Scatter Plot: id vs score")

	svg, err := os.ReadFile(filepath.Join(dir, "sales.svg"))
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
}

func TestChart_NoNumericData(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "names.csv", "name\na\nb\n")

	_, err := execute(t, "chart", path, "--kind", "line", "-o", filepath.Join(dir, "out.png"), "--format", "png")
	assert.ErrorIs(t, err, core.ErrNoNumericData)
}

package core

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// mustLoadCSV loads inline CSV text as a file named data.csv.
func mustLoadCSV(t *testing.T, content string) *Table {
	t.Helper()
	table, err := Load(NewUploadedFile("data.csv", []byte(content)))
	require.NoError(t, err)
	return table
}

// xlsxFixture builds a workbook whose first sheet holds rows.
func xlsxFixture(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func columnStrings(t *testing.T, table *Table, name string) []string {
	t.Helper()
	values, _, err := table.Strings(name)
	require.NoError(t, err)
	return values
}

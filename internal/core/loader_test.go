package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CSV(t *testing.T) {
	table := mustLoadCSV(t, "id,name,score\n1,alice,9.5\n2,bob,\n3,carol,7\n")

	assert.Equal(t, []string{"id", "name", "score"}, table.Columns())
	assert.Equal(t, 3, table.NumRows())
	assert.Equal(t, KindNumber, table.Kind("id"))
	assert.Equal(t, KindText, table.Kind("name"))
	assert.Equal(t, KindNumber, table.Kind("score"))

	values, ok, err := table.Floats("score")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, ok)
	assert.InDelta(t, 9.5, values[0], 1e-9)
	assert.InDelta(t, 7.0, values[2], 1e-9)
}

func TestLoad_CSVEdgeCases(t *testing.T) {
	t.Run("strips byte order mark", func(t *testing.T) {
		table := mustLoadCSV(t, "\xEF\xBB\xBFid,name\n1,x\n")
		assert.Equal(t, []string{"id", "name"}, table.Columns())
	})

	t.Run("names blank and repeated headers", func(t *testing.T) {
		table := mustLoadCSV(t, ",a,a,a.1\n1,2,3,4\n")
		assert.Equal(t, []string{"Unnamed: 0", "a", "a.2", "a.1"}, table.Columns())
	})

	t.Run("pads short rows", func(t *testing.T) {
		table := mustLoadCSV(t, "a,b\n1\n2,x\n")
		values, missing, err := table.Strings("b")
		require.NoError(t, err)
		assert.Equal(t, []string{"", "x"}, values)
		assert.Equal(t, []bool{true, false}, missing)
	})

	t.Run("missing tokens", func(t *testing.T) {
		table := mustLoadCSV(t, "x\nNA\n5\nnull\n")
		assert.Equal(t, KindNumber, table.Kind("x"))
		_, ok, err := table.Floats("x")
		require.NoError(t, err)
		assert.Equal(t, []bool{false, true, false}, ok)
	})

	t.Run("booleans are normalized", func(t *testing.T) {
		table := mustLoadCSV(t, "flag\nTRUE\nfalse\nTrue\n")
		assert.Equal(t, KindBoolean, table.Kind("flag"))
		assert.Equal(t, []string{"true", "false", "true"}, columnStrings(t, table, "flag"))
	})

	t.Run("dates keep their text", func(t *testing.T) {
		table := mustLoadCSV(t, "d\n2024-01-02\n01/03/2024\n")
		assert.Equal(t, KindDate, table.Kind("d"))
		assert.Equal(t, []string{"2024-01-02", "01/03/2024"}, columnStrings(t, table, "d"))
	})

	t.Run("header only", func(t *testing.T) {
		table := mustLoadCSV(t, "a,b\n")
		assert.Equal(t, 0, table.NumRows())
		assert.Equal(t, 2, table.NumCols())
	})

	t.Run("extension is case insensitive", func(t *testing.T) {
		table, err := Load(NewUploadedFile("REPORT.CSV", []byte("a\n1\n")))
		require.NoError(t, err)
		assert.Equal(t, 1, table.NumRows())
	})
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     UploadedFile
		wantType string
	}{
		{name: "text file", file: NewUploadedFile("notes.txt", []byte("hello")), wantType: "unsupported"},
		{name: "no extension", file: NewUploadedFile("data", []byte("a\n1\n")), wantType: "unsupported"},
		{name: "legacy excel", file: NewUploadedFile("old.xls", []byte{0xD0, 0xCF}), wantType: "unsupported"},
		{name: "empty csv", file: NewUploadedFile("empty.csv", nil), wantType: "parse"},
		{name: "row longer than header", file: NewUploadedFile("wide.csv", []byte("a,b\n1,2,3\n")), wantType: "parse"},
		{name: "corrupt workbook", file: NewUploadedFile("broken.xlsx", []byte("not a zip")), wantType: "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Load(tt.file)
			require.Error(t, err)
			assert.Nil(t, table)

			switch tt.wantType {
			case "unsupported":
				var ufe *UnsupportedFormatError
				require.True(t, errors.As(err, &ufe), "want UnsupportedFormatError, got %T", err)
				assert.Equal(t, tt.file.Name, ufe.FileName)
				assert.Equal(t, "FILE002", MapError(err).Code)
			case "parse":
				var pe *ParseError
				require.True(t, errors.As(err, &pe), "want ParseError, got %T", err)
				assert.Equal(t, tt.file.Name, pe.FileName)
				assert.Contains(t, err.Error(), tt.file.Name)
				assert.Equal(t, "FILE003", MapError(err).Code)
			}
		})
	}
}

func TestLoad_XLSX(t *testing.T) {
	data := xlsxFixture(t, [][]interface{}{
		{"id", "name", "price", "active"},
		{1, "widget", 2.5, true},
		{2, "gadget", nil, false},
	})

	table, err := Load(NewUploadedFile("stock.xlsx", data))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "price", "active"}, table.Columns())
	assert.Equal(t, 2, table.NumRows())
	assert.Equal(t, KindNumber, table.Kind("id"))
	assert.Equal(t, KindText, table.Kind("name"))
	assert.Equal(t, KindNumber, table.Kind("price"))
	assert.Equal(t, KindBoolean, table.Kind("active"))

	_, ok, err := table.Floats("price")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, ok)
}

func TestLoad_XLSXFullPrecision(t *testing.T) {
	third := 10.0 / 3
	data := xlsxFixture(t, [][]interface{}{
		{"ratio", "label", "flag"},
		{third, "007", true},
		{0.1 + 0.2, "x", false},
	})

	table, err := Load(NewUploadedFile("ratios.xlsx", data))
	require.NoError(t, err)

	assert.Equal(t, []string{"3.3333333333333335", "0.30000000000000004"}, columnStrings(t, table, "ratio"))
	values, _, err := table.Floats("ratio")
	require.NoError(t, err)
	assert.Equal(t, []float64{third, 0.1 + 0.2}, values)

	assert.Equal(t, KindBoolean, table.Kind("flag"))
}

func TestMergeRawNumbers(t *testing.T) {
	rows := [][]string{{"3.33333333333333", "TRUE", "01-02-24", "abc"}, {"1"}}
	raw := [][]string{{"3.3333333333333335", "1", "45293", "abc"}}

	got := mergeRawNumbers(rows, raw)
	assert.Equal(t, [][]string{{"3.3333333333333335", "TRUE", "01-02-24", "abc"}, {"1"}}, got)
}

func TestUploadedFile(t *testing.T) {
	f := NewUploadedFile("Sales.XLSX", []byte("abc"))
	assert.Equal(t, int64(3), f.Size)
	assert.Equal(t, ".xlsx", f.Ext())
	assert.True(t, f.Supported())
	assert.False(t, NewUploadedFile("a.txt", nil).Supported())
}

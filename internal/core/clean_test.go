package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveDuplicates(t *testing.T) {
	tests := []struct {
		name        string
		csv         string
		wantRemoved int
		wantRecords [][]string
	}{
		{
			name:        "drops exact repeats",
			csv:         "id,name\n1,a\n1,a\n2,b\n",
			wantRemoved: 1,
			wantRecords: [][]string{{"id", "name"}, {"1", "a"}, {"2", "b"}},
		},
		{
			name:        "keeps first occurrence in order",
			csv:         "k\n3\n1\n3\n2\n1\n",
			wantRemoved: 2,
			wantRecords: [][]string{{"k"}, {"3"}, {"1"}, {"2"}},
		},
		{
			name:        "missing equals missing",
			csv:         "a,b\n1,\n1,\n1,x\n",
			wantRemoved: 1,
			wantRecords: [][]string{{"a", "b"}, {"1", ""}, {"1", "x"}},
		},
		{
			name:        "partial match is not a duplicate",
			csv:         "a,b\n1,x\n1,y\n",
			wantRemoved: 0,
			wantRecords: [][]string{{"a", "b"}, {"1", "x"}, {"1", "y"}},
		},
		{
			name:        "separator inside values",
			csv:         "a,b\nx\x1f,y\nx,\x1fy\n",
			wantRemoved: 0,
			wantRecords: [][]string{{"a", "b"}, {"x\x1f", "y"}, {"x", "\x1fy"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := mustLoadCSV(t, tt.csv)
			before := table.NumRows()

			removed, err := table.RemoveDuplicates()
			require.NoError(t, err)
			assert.Equal(t, tt.wantRemoved, removed)
			assert.Equal(t, before-table.NumRows(), removed)
			assert.Equal(t, tt.wantRecords, table.Records())
		})
	}
}

func TestRemoveDuplicates_Idempotent(t *testing.T) {
	table := mustLoadCSV(t, "a,b\n1,x\n2,y\n1,x\n2,y\n3,z\n")

	removed, err := table.RemoveDuplicates()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	after := table.Records()

	removed, err = table.RemoveDuplicates()
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, after, table.Records())
}

func TestRemoveDuplicates_KeepsKinds(t *testing.T) {
	table := mustLoadCSV(t, "n,flag\n1,true\n1,true\n")

	_, err := table.RemoveDuplicates()
	require.NoError(t, err)
	assert.Equal(t, KindNumber, table.Kind("n"))
	assert.Equal(t, KindBoolean, table.Kind("flag"))
}

func TestFillMissingNumeric(t *testing.T) {
	table := mustLoadCSV(t, "v,name\n10,a\n,\n30,c\n")

	report, err := table.FillMissingNumeric(LeaveMissing)
	require.NoError(t, err)

	values, ok, err := table.Floats("v")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true}, ok)
	assert.InDeltaSlice(t, []float64{10, 20, 30}, values, 1e-9)

	_, missing, err := table.Strings("name")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false}, missing, "text columns are untouched")

	require.Len(t, report.Columns, 1)
	assert.Equal(t, "v", report.Columns[0].Column)
	assert.Equal(t, 1, report.Columns[0].Filled)
	assert.InDelta(t, 20.0, *report.Columns[0].Value, 1e-9)
	assert.Equal(t, 1, report.Total())
}

func TestFillMissingNumeric_MeanBeforeReplacement(t *testing.T) {
	table := mustLoadCSV(t, "v,k\n1,a\n,b\n,c\n4,d\n")
	require.Equal(t, 4, table.NumRows())

	report, err := table.FillMissingNumeric(LeaveMissing)
	require.NoError(t, err)

	values, _, err := table.Floats("v")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2.5, 2.5, 4}, values, 1e-9)
	assert.Equal(t, 2, report.Total())
}

func TestFillMissingNumeric_PresentValuesUnchanged(t *testing.T) {
	table := mustLoadCSV(t, "a,b\n1.5,7\n,8\n-2,\n")
	before, beforeOK, err := table.Floats("a")
	require.NoError(t, err)

	_, err = table.FillMissingNumeric(LeaveMissing)
	require.NoError(t, err)

	after, afterOK, err := table.Floats("a")
	require.NoError(t, err)
	for i := range before {
		assert.True(t, afterOK[i])
		if beforeOK[i] {
			assert.Equal(t, before[i], after[i])
		}
	}
	_, bOK, err := table.Floats("b")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true}, bOK)
}

func TestFillMissingNumeric_EmptyColumn(t *testing.T) {
	t.Run("left missing by default", func(t *testing.T) {
		table := mustLoadCSV(t, "a,empty\n1,\n2,\n")

		report, err := table.FillMissingNumeric(LeaveMissing)
		require.NoError(t, err)
		assert.Equal(t, []string{"empty"}, report.EmptyColumns())
		assert.Equal(t, 0, report.Total())

		_, ok, err := table.Floats("empty")
		require.NoError(t, err)
		assert.Equal(t, []bool{false, false}, ok)
	})

	t.Run("zero fill", func(t *testing.T) {
		table := mustLoadCSV(t, "a,empty\n1,\n2,\n")

		report, err := table.FillMissingNumeric(FillZero)
		require.NoError(t, err)
		assert.Equal(t, []string{"empty"}, report.EmptyColumns())
		assert.Equal(t, 2, report.Total())

		values, ok, err := table.Floats("empty")
		require.NoError(t, err)
		assert.Equal(t, []bool{true, true}, ok)
		assert.Equal(t, []float64{0, 0}, values)
	})
}

func TestFillMissingNumeric_NothingMissing(t *testing.T) {
	table := mustLoadCSV(t, "a\n1\n2\n")

	report, err := table.FillMissingNumeric(LeaveMissing)
	require.NoError(t, err)
	assert.Empty(t, report.Columns)
	assert.Equal(t, []string{"1", "2"}, columnStrings(t, table, "a"))
}

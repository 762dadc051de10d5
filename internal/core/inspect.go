package core

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultPreviewRows is the number of leading rows shown in an inspection.
const DefaultPreviewRows = 5

// NumericSummary holds the describe() figures of a Number column.
// Fields are nil when the column has no present values; Std is also nil
// with a single value.
type NumericSummary struct {
	Mean *float64 `json:"mean"`
	Std  *float64 `json:"std"`
	Min  *float64 `json:"min"`
	Q25  *float64 `json:"25%"`
	Q50  *float64 `json:"50%"`
	Q75  *float64 `json:"75%"`
	Max  *float64 `json:"max"`
}

// ColumnStats is one row of the transposed statistics report.
type ColumnStats struct {
	Column  string          `json:"column"`
	Kind    ColumnKind      `json:"kind"`
	Count   int             `json:"count"`
	Missing int             `json:"missing"`
	Unique  int             `json:"unique"`
	Top     string          `json:"top,omitempty"`
	Freq    int             `json:"freq,omitempty"`
	Numeric *NumericSummary `json:"numeric,omitempty"`
}

// Inspection is the read-only report produced for a table.
type Inspection struct {
	Rows        int           `json:"rows"`
	Columns     int           `json:"columns"`
	ColumnNames []string      `json:"column_names"`
	Preview     [][]string    `json:"preview"`
	Stats       []ColumnStats `json:"stats"`
}

// MissingCounts returns column name to missing cell count.
func (in *Inspection) MissingCounts() map[string]int {
	out := make(map[string]int, len(in.Stats))
	for _, s := range in.Stats {
		out[s.Column] = s.Missing
	}
	return out
}

// TotalMissing sums missing cells across every column.
func (in *Inspection) TotalMissing() int {
	total := 0
	for _, s := range in.Stats {
		total += s.Missing
	}
	return total
}

// Inspect computes shape, preview, statistics and missing counts.
// previewRows <= 0 uses DefaultPreviewRows. The table is not modified.
func Inspect(t *Table, previewRows int) *Inspection {
	if previewRows <= 0 {
		previewRows = DefaultPreviewRows
	}

	in := &Inspection{
		Rows:        t.NumRows(),
		Columns:     t.NumCols(),
		ColumnNames: t.Columns(),
	}

	records := t.Records()
	end := min(previewRows, in.Rows)
	in.Preview = records[1 : end+1]

	in.Stats = make([]ColumnStats, 0, in.Columns)
	for _, name := range in.ColumnNames {
		in.Stats = append(in.Stats, columnStats(t, name))
	}
	return in
}

func columnStats(t *Table, name string) ColumnStats {
	values, missing, _ := t.Strings(name)
	cs := ColumnStats{Column: name, Kind: t.Kind(name)}

	freq := make(map[string]int)
	var order []string
	for i, v := range values {
		if missing[i] {
			cs.Missing++
			continue
		}
		cs.Count++
		if freq[v] == 0 {
			order = append(order, v)
		}
		freq[v]++
	}
	cs.Unique = len(freq)

	if cs.Kind == KindNumber {
		floats, ok, _ := t.Floats(name)
		cs.Numeric = summarize(present(floats, ok))
		return cs
	}

	// Ties resolve to the value seen first.
	for _, v := range order {
		if freq[v] > cs.Freq {
			cs.Top, cs.Freq = v, freq[v]
		}
	}
	return cs
}

func present(values []float64, ok []bool) []float64 {
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if ok[i] {
			out = append(out, v)
		}
	}
	return out
}

func summarize(x []float64) *NumericSummary {
	s := &NumericSummary{}
	if len(x) == 0 {
		return s
	}

	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	mean := stat.Mean(x, nil)
	s.Mean = &mean
	if len(x) > 1 {
		_, std := stat.MeanStdDev(x, nil)
		s.Std = &std
	}
	s.Min = ptr(sorted[0])
	s.Q25 = ptr(quantile(sorted, 0.25))
	s.Q50 = ptr(quantile(sorted, 0.50))
	s.Q75 = ptr(quantile(sorted, 0.75))
	s.Max = ptr(sorted[len(sorted)-1])
	return s
}

// quantile interpolates linearly between closest ranks of sorted data,
// the definition spreadsheet tools and pandas use by default.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := p * float64(n-1)
	lo := math.Floor(h)
	i := int(lo)
	if i >= n-1 {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

func ptr(f float64) *float64 {
	return &f
}

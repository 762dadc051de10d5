package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"
)

// EmptyColumnPolicy decides what FillMissingNumeric does with a Number
// column that has no present values at all.
type EmptyColumnPolicy string

const (
	// LeaveMissing keeps an all-missing column as it is.
	LeaveMissing EmptyColumnPolicy = "leave"
	// FillZero replaces every cell of an all-missing column with 0.
	FillZero EmptyColumnPolicy = "zero"
)

// missingMarker stands for a missing cell in a duplicate-detection key.
// Present cells are length-prefixed, so no cell text can collide with it
// or spill into a neighbouring cell.
const missingMarker = "-"

// RemoveDuplicates drops every row equal in all columns to an earlier row,
// keeping the first occurrence and the original order of survivors. It
// returns the number of rows removed.
func (t *Table) RemoveDuplicates() (int, error) {
	n := t.NumRows()
	if n < 2 {
		return 0, nil
	}

	names := t.Columns()
	cols := make([][]string, len(names))
	gaps := make([][]bool, len(names))
	for c, name := range names {
		cols[c], gaps[c], _ = t.Strings(name)
	}

	seen := make(map[string]struct{}, n)
	keep := make([]int, 0, n)
	var b strings.Builder
	for r := 0; r < n; r++ {
		b.Reset()
		for c := range names {
			if gaps[c][r] {
				b.WriteString(missingMarker)
				continue
			}
			v := cols[c][r]
			b.WriteString(strconv.Itoa(len(v)))
			b.WriteByte(':')
			b.WriteString(v)
		}
		key := b.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, r)
	}

	removed := n - len(keep)
	if removed == 0 {
		return 0, nil
	}
	if err := t.replace(t.frame.Subset(keep)); err != nil {
		return 0, fmt.Errorf("remove duplicates: %w", err)
	}
	return removed, nil
}

// FilledColumn reports imputation for one Number column.
type FilledColumn struct {
	Column string   `json:"column"`
	Filled int      `json:"filled"`
	Value  *float64 `json:"value,omitempty"`
	// Empty is set when the column had no present values.
	Empty bool `json:"empty,omitempty"`
}

// FillReport lists every Number column that had missing cells.
type FillReport struct {
	Columns []FilledColumn `json:"columns"`
}

// Total returns the number of cells replaced.
func (r FillReport) Total() int {
	total := 0
	for _, c := range r.Columns {
		total += c.Filled
	}
	return total
}

// EmptyColumns returns the columns that had no present values.
func (r FillReport) EmptyColumns() []string {
	var out []string
	for _, c := range r.Columns {
		if c.Empty {
			out = append(out, c.Column)
		}
	}
	return out
}

// FillMissingNumeric replaces missing cells of every Number column with the
// mean of that column's present values, computed before any replacement.
// Non-numeric columns are untouched. Columns without any present value
// follow policy.
func (t *Table) FillMissingNumeric(policy EmptyColumnPolicy) (FillReport, error) {
	var report FillReport

	for _, name := range t.NumericColumns() {
		values, ok, err := t.Floats(name)
		if err != nil {
			return report, err
		}

		known := present(values, ok)
		gaps := len(values) - len(known)
		if gaps == 0 {
			continue
		}

		fc := FilledColumn{Column: name}
		var fill float64
		switch {
		case len(known) > 0:
			fill = stat.Mean(known, nil)
		case policy == FillZero:
			fc.Empty = true
		default:
			fc.Empty = true
			report.Columns = append(report.Columns, fc)
			continue
		}
		fc.Filled = gaps
		fc.Value = ptr(fill)

		out := make([]float64, len(values))
		for i, v := range values {
			if ok[i] {
				out[i] = v
			} else {
				out[i] = fill
			}
		}
		if err := t.replace(t.frame.Mutate(series.New(out, series.Float, name))); err != nil {
			return report, fmt.Errorf("fill %q: %w", name, err)
		}
		report.Columns = append(report.Columns, fc)
	}
	return report, nil
}

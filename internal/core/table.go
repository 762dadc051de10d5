package core

import (
	"fmt"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ColumnKind is the inferred kind shared by every cell of a column.
type ColumnKind string

const (
	KindNumber  ColumnKind = "number"
	KindText    ColumnKind = "text"
	KindBoolean ColumnKind = "boolean"
	KindDate    ColumnKind = "date"
)

// naValue is how gota series spell a missing element on input.
const naValue = "NaN"

// Table is an in-memory, column-typed dataset backed by a gota DataFrame.
//
// All columns have equal length. Cleaning and column selection mutate the
// Table in place; every other stage only reads it.
type Table struct {
	frame dataframe.DataFrame
	kinds map[string]ColumnKind
}

// NewTable builds a Table from a header and rows of raw cell text.
// Header names must already be unique; short rows are padded with missing
// cells and long rows are rejected.
func NewTable(header []string, rows [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}

	cols := make([]series.Series, len(header))
	kinds := make(map[string]ColumnKind, len(header))

	for c, name := range header {
		if _, dup := kinds[name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}

		values := make([]string, len(rows))
		cand := newKindCandidates()
		for r, row := range rows {
			if len(row) > len(header) {
				return nil, fmt.Errorf("row %d has %d fields, header has %d", r+1, len(row), len(header))
			}
			v := naValue
			if c < len(row) {
				cell := CleanCell(row[c])
				if !IsMissing(cell) {
					v = cell
					cand.observe(cell)
				}
			}
			values[r] = v
		}

		kind, integer := cand.result()
		cols[c] = newSeries(values, kind, integer, name)
		kinds[name] = kind
	}

	frame := dataframe.New(cols...)
	if frame.Err != nil {
		return nil, fmt.Errorf("build table: %w", frame.Err)
	}
	return &Table{frame: frame, kinds: kinds}, nil
}

func newSeries(values []string, kind ColumnKind, integer bool, name string) series.Series {
	switch kind {
	case KindNumber:
		if integer {
			return series.New(values, series.Int, name)
		}
		return series.New(values, series.Float, name)
	case KindBoolean:
		// gota only reads lower-case words reliably.
		for i, v := range values {
			if b, ok := ParseBool(v); ok {
				values[i] = strconv.FormatBool(b)
			}
		}
		return series.New(values, series.Bool, name)
	default:
		return series.New(values, series.String, name)
	}
}

// Frame returns the underlying DataFrame.
func (t *Table) Frame() dataframe.DataFrame {
	return t.frame
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return t.frame.Names()
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	if t.frame.Ncol() == 0 {
		return 0
	}
	return t.frame.Nrow()
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	return t.frame.Ncol()
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.kinds[name]
	return ok
}

// Kind returns the inferred kind of a column, or "" for an unknown name.
func (t *Table) Kind(name string) ColumnKind {
	return t.kinds[name]
}

// NumericColumns returns the Number columns in table order.
func (t *Table) NumericColumns() []string {
	var out []string
	for _, name := range t.frame.Names() {
		if t.kinds[name] == KindNumber {
			out = append(out, name)
		}
	}
	return out
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	kinds := make(map[string]ColumnKind, len(t.kinds))
	for k, v := range t.kinds {
		kinds[k] = v
	}
	return &Table{frame: t.frame.Copy(), kinds: kinds}
}

// Floats returns the values of a Number column; ok[i] is false where the
// cell is missing.
func (t *Table) Floats(name string) (values []float64, ok []bool, err error) {
	if !t.HasColumn(name) {
		return nil, nil, &UnknownColumnError{Column: name}
	}
	if t.kinds[name] != KindNumber {
		return nil, nil, fmt.Errorf("%w: %q", ErrColumnNotNumeric, name)
	}
	s := t.frame.Col(name)
	values = make([]float64, s.Len())
	ok = make([]bool, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		values[i] = e.Float()
		ok[i] = true
	}
	return values, ok, nil
}

// Strings returns a column rendered as text with missing cells as "".
// missing[i] reports whether cell i is missing.
func (t *Table) Strings(name string) (values []string, missing []bool, err error) {
	if !t.HasColumn(name) {
		return nil, nil, &UnknownColumnError{Column: name}
	}
	s := t.frame.Col(name)
	values = make([]string, s.Len())
	missing = make([]bool, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			missing[i] = true
			continue
		}
		values[i] = formatElement(e)
	}
	return values, missing, nil
}

// Records returns the header followed by every row as text.
// Missing cells are empty strings.
func (t *Table) Records() [][]string {
	names := t.frame.Names()
	nrows := t.NumRows()

	out := make([][]string, nrows+1)
	out[0] = append([]string(nil), names...)
	for r := 1; r <= nrows; r++ {
		out[r] = make([]string, len(names))
	}
	for c, name := range names {
		values, _, _ := t.Strings(name)
		for r, v := range values {
			out[r+1][c] = v
		}
	}
	return out
}

// formatElement renders an element in a form that loads back to the same value.
func formatElement(e series.Element) string {
	switch e.Type() {
	case series.Int:
		v, err := e.Int()
		if err != nil {
			return ""
		}
		return strconv.Itoa(v)
	case series.Float:
		return FormatNumber(e.Float())
	case series.Bool:
		v, err := e.Bool()
		if err != nil {
			return ""
		}
		return strconv.FormatBool(v)
	default:
		return e.String()
	}
}

// replace swaps the underlying frame after a mutation, keeping kinds for the
// surviving columns.
func (t *Table) replace(frame dataframe.DataFrame) error {
	if frame.Err != nil {
		return frame.Err
	}
	kinds := make(map[string]ColumnKind, frame.Ncol())
	for _, name := range frame.Names() {
		kinds[name] = t.kinds[name]
	}
	t.frame = frame
	t.kinds = kinds
	return nil
}

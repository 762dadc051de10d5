package core

import (
	"fmt"
	"strings"
)

// ChartKind selects the chart drawn over the numeric columns.
type ChartKind string

const (
	ChartBar     ChartKind = "bar"
	ChartLine    ChartKind = "line"
	ChartArea    ChartKind = "area"
	ChartScatter ChartKind = "scatter"
)

// ChartKinds lists the supported kinds in display order.
var ChartKinds = []ChartKind{ChartBar, ChartLine, ChartArea, ChartScatter}

// ParseChartKind accepts a kind name in any letter case.
func ParseChartKind(s string) (ChartKind, error) {
	k := ChartKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ChartKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedChart, s)
}

// Label returns the kind's display name.
func (k ChartKind) Label() string {
	switch k {
	case ChartBar:
		return "Bar Chart"
	case ChartLine:
		return "Line Chart"
	case ChartArea:
		return "Area Chart"
	case ChartScatter:
		return "Scatter Plot"
	}
	return string(k)
}

// ChartSpec describes a requested chart. X and Y only apply to scatter
// plots and default to the first two numeric columns.
type ChartSpec struct {
	Kind ChartKind `json:"kind" validate:"required,oneof=bar line area scatter"`
	X    string    `json:"x,omitempty"`
	Y    string    `json:"y,omitempty"`
}

// ChartPoint is one plotted value. Index is the source row, kept so that
// tooltips can point back at the data.
type ChartPoint struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// ChartSeries is one plotted column. Missing cells have no point.
type ChartSeries struct {
	Name   string       `json:"name"`
	Points []ChartPoint `json:"points"`
}

// Chart is the renderer-independent description of a chart.
type Chart struct {
	Kind   ChartKind     `json:"kind"`
	Title  string        `json:"title"`
	XLabel string        `json:"x_label"`
	YLabel string        `json:"y_label"`
	Rows   int           `json:"rows"`
	Series []ChartSeries `json:"series"`
}

// BuildChart derives chart data from the table's Number columns.
//
// A table without Number columns yields ErrNoNumericData; a scatter plot
// over fewer than two yields ErrScatterNeedsTwoColumns. Both are notices,
// see IsNotice.
func BuildChart(t *Table, spec ChartSpec) (*Chart, error) {
	kind, err := ParseChartKind(string(spec.Kind))
	if err != nil {
		return nil, err
	}

	numeric := t.NumericColumns()
	if len(numeric) == 0 {
		return nil, ErrNoNumericData
	}

	if kind == ChartScatter {
		return buildScatter(t, spec, numeric)
	}

	c := &Chart{
		Kind:   kind,
		Title:  kind.Label() + " of Numeric Columns",
		XLabel: "Row",
		YLabel: "Value",
		Rows:   t.NumRows(),
	}
	for _, name := range numeric {
		values, ok, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		s := ChartSeries{Name: name}
		for i, v := range values {
			if ok[i] {
				s.Points = append(s.Points, ChartPoint{Index: i, X: float64(i), Y: v})
			}
		}
		// Columns without a single value are left off the chart.
		if len(s.Points) > 0 {
			c.Series = append(c.Series, s)
		}
	}
	if len(c.Series) == 0 {
		return nil, ErrNoNumericData
	}
	return c, nil
}

func buildScatter(t *Table, spec ChartSpec, numeric []string) (*Chart, error) {
	if len(numeric) < 2 {
		return nil, ErrScatterNeedsTwoColumns
	}

	x, y := spec.X, spec.Y
	if x == "" {
		x = numeric[0]
	}
	if y == "" {
		y = numeric[1]
		if y == x {
			y = numeric[0]
		}
	}

	xs, xok, err := t.Floats(x)
	if err != nil {
		return nil, err
	}
	ys, yok, err := t.Floats(y)
	if err != nil {
		return nil, err
	}

	s := ChartSeries{Name: y}
	for i := range xs {
		if xok[i] && yok[i] {
			s.Points = append(s.Points, ChartPoint{Index: i, X: xs[i], Y: ys[i]})
		}
	}
	if len(s.Points) == 0 {
		return nil, ErrNoNumericData
	}
	return &Chart{
		Kind:   ChartScatter,
		Title:  fmt.Sprintf("Scatter Plot: %s vs %s", x, y),
		XLabel: x,
		YLabel: y,
		Rows:   t.NumRows(),
		Series: []ChartSeries{s},
	}, nil
}

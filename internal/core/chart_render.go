package core

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RenderFormat is the image encoding produced by RenderChart.
type RenderFormat string

const (
	RenderSVG RenderFormat = "svg"
	RenderPNG RenderFormat = "png"
)

// ParseRenderFormat accepts svg or png in any letter case.
func ParseRenderFormat(s string) (RenderFormat, error) {
	switch RenderFormat(strings.ToLower(strings.TrimSpace(s))) {
	case RenderSVG, "":
		return RenderSVG, nil
	case RenderPNG:
		return RenderPNG, nil
	}
	return "", fmt.Errorf("%w: unknown image format %q", ErrInvalidOption, s)
}

// ContentType returns the MIME type of the encoding.
func (f RenderFormat) ContentType() string {
	if f == RenderPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// RenderOptions sizes the rendered image.
type RenderOptions struct {
	Width  int
	Height int
	Format RenderFormat
}

const (
	defaultChartWidth  = 960
	defaultChartHeight = 480
)

var errNothingToPlot = errors.New("no points to plot")

// RenderChart draws c with go-chart and writes the encoded image to w.
// Bar charts stack the numeric columns per row. In SVG output every label
// is escaped and each scatter dot carries a <title> naming its source row.
func RenderChart(w io.Writer, c *Chart, opts RenderOptions) error {
	if c == nil {
		return fmt.Errorf("render chart: %w", errNothingToPlot)
	}
	if opts.Width <= 0 {
		opts.Width = defaultChartWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultChartHeight
	}
	if opts.Format != RenderPNG {
		// go-chart writes text into the SVG verbatim.
		c = escapeLabels(c)
	}

	var series []chart.Series
	if c.Kind == ChartBar {
		series = stackedBars(c)
	} else {
		series = pointSeries(c)
	}
	if len(series) == 0 {
		return fmt.Errorf("render chart: %w", errNothingToPlot)
	}

	xr, yr := bounds(c)
	ch := chart.Chart{
		Title:  c.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis:  chart.XAxis{Name: c.XLabel, Range: xr},
		YAxis:  chart.YAxis{Name: c.YLabel, Range: yr},
		Series: series,
	}
	if c.Kind != ChartScatter {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}

	if opts.Format == RenderPNG {
		if err := ch.Render(chart.PNG, w); err != nil {
			return fmt.Errorf("render chart: %w", err)
		}
		return nil
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.SVG, &buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	out := buf.Bytes()
	if c.Kind == ChartScatter {
		out = titleDots(out, c)
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// escapeLabels returns a copy of c whose title, axis names and series
// names are XML-escaped. Points are shared.
func escapeLabels(c *Chart) *Chart {
	out := *c
	out.Title = html.EscapeString(c.Title)
	out.XLabel = html.EscapeString(c.XLabel)
	out.YLabel = html.EscapeString(c.YLabel)
	out.Series = make([]ChartSeries, len(c.Series))
	for i, s := range c.Series {
		out.Series[i] = ChartSeries{Name: html.EscapeString(s.Name), Points: s.Points}
	}
	return &out
}

var (
	circleOpen  = []byte("<circle ")
	circleClose = []byte("/>")
)

// titleDots turns the scatter dots of svg into titled circles. go-chart
// draws one circle per point in point order and nothing else as a circle.
// c must already carry escaped labels.
func titleDots(svg []byte, c *Chart) []byte {
	if len(c.Series) == 0 {
		return svg
	}
	points := c.Series[0].Points

	var out bytes.Buffer
	out.Grow(len(svg) + len(points)*64)
	rest := svg
	for _, p := range points {
		start := bytes.Index(rest, circleOpen)
		if start < 0 {
			break
		}
		end := bytes.Index(rest[start:], circleClose)
		if end < 0 {
			break
		}
		end += start
		out.Write(rest[:end])
		fmt.Fprintf(&out, "><title>row %d: %s=%s, %s=%s</title></circle>",
			p.Index, c.XLabel, FormatNumber(p.X), c.YLabel, FormatNumber(p.Y))
		rest = rest[end+len(circleClose):]
	}
	out.Write(rest)
	return out.Bytes()
}

// RenderChartBytes is RenderChart into a buffer.
func RenderChartBytes(c *Chart, opts RenderOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderChart(&buf, c, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pointSeries(c *Chart) []chart.Series {
	var out []chart.Series
	for i, s := range c.Series {
		if len(s.Points) == 0 {
			continue
		}
		xs, ys := make([]float64, len(s.Points)), make([]float64, len(s.Points))
		for j, p := range s.Points {
			xs[j], ys[j] = p.X, p.Y
		}
		out = append(out, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style:   seriesStyle(c.Kind, chart.GetDefaultColor(i), len(s.Points)),
		})
	}
	return out
}

func seriesStyle(kind ChartKind, col drawing.Color, points int) chart.Style {
	switch kind {
	case ChartScatter:
		return chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    4,
			DotColor:    col,
		}
	case ChartArea:
		st := chart.Style{
			StrokeColor: col,
			StrokeWidth: 1.5,
			FillColor:   col.WithAlpha(64),
		}
		if points == 1 {
			st.DotWidth, st.DotColor = 4, col
		}
		return st
	default:
		st := chart.Style{StrokeColor: col, StrokeWidth: 2}
		if points == 1 {
			st.DotWidth, st.DotColor = 4, col
		}
		return st
	}
}

// stackedBars turns each column into a histogram of cumulative row totals.
// Positive values stack upward from zero and negative values downward.
// Each bar is drawn from zero to its stack edge and series are returned
// outermost first, so later bars paint over the inner segments.
func stackedBars(c *Chart) []chart.Series {
	if c.Rows == 0 {
		return nil
	}
	up := make([]float64, c.Rows)
	down := make([]float64, c.Rows)
	layers := make([][]float64, len(c.Series))
	plotted := false
	for i, s := range c.Series {
		values := make([]float64, c.Rows)
		for _, p := range s.Points {
			values[p.Index] = p.Y
			plotted = true
		}
		layer := make([]float64, c.Rows)
		for r, v := range values {
			if v < 0 {
				down[r] += v
				layer[r] = down[r]
			} else {
				up[r] += v
				layer[r] = up[r]
			}
		}
		layers[i] = layer
	}
	if !plotted {
		return nil
	}

	xs := make([]float64, c.Rows)
	for r := range xs {
		xs[r] = float64(r)
	}

	out := make([]chart.Series, 0, len(layers))
	for i := len(layers) - 1; i >= 0; i-- {
		col := chart.GetDefaultColor(i)
		out = append(out, chart.HistogramSeries{
			Name: c.Series[i].Name,
			Style: chart.Style{
				StrokeColor: col,
				FillColor:   col,
				StrokeWidth: 1,
			},
			InnerSeries: chart.ContinuousSeries{XValues: xs, YValues: layers[i]},
		})
	}
	return out
}

// bounds returns explicit axis ranges, widened when the data spans a
// single value so that the renderer has a non-empty domain.
func bounds(c *Chart) (x, y *chart.ContinuousRange) {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)

	if c.Kind == ChartBar {
		minX, maxX = -0.5, float64(c.Rows)-0.5
		up := make([]float64, c.Rows)
		down := make([]float64, c.Rows)
		minY, maxY = 0, 0
		for _, s := range c.Series {
			for _, p := range s.Points {
				if p.Y < 0 {
					down[p.Index] += p.Y
					minY = math.Min(minY, down[p.Index])
				} else {
					up[p.Index] += p.Y
					maxY = math.Max(maxY, up[p.Index])
				}
			}
		}
	} else {
		for _, s := range c.Series {
			for _, p := range s.Points {
				minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
				minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
			}
		}
	}

	return widen(minX, maxX), widen(minY, maxY)
}

func widen(lo, hi float64) *chart.ContinuousRange {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	if lo == hi {
		pad := math.Max(math.Abs(lo)*0.1, 1)
		return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

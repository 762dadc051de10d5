package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// ExportFormat is a target serialization.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// Content types of the export formats.
const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const exportSheet = "Sheet1"

// ParseExportFormat accepts csv, xlsx, or excel in any letter case.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return ExportCSV, nil
	case "xlsx", "excel":
		return ExportXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedExport, s)
}

// Ext returns the output file extension including the dot.
func (f ExportFormat) Ext() string {
	return "." + string(f)
}

// ContentType returns the MIME type of the format.
func (f ExportFormat) ContentType() string {
	if f == ExportXLSX {
		return ContentTypeXLSX
	}
	return ContentTypeCSV
}

// Label returns the format's display name.
func (f ExportFormat) Label() string {
	if f == ExportXLSX {
		return "Excel"
	}
	return "CSV"
}

// ExportSpec describes one export. Chart optionally embeds a native
// chart in Excel output and is ignored for CSV.
type ExportSpec struct {
	Format     ExportFormat
	SourceName string
	Chart      *ChartSpec
}

// FileName derives the download name from the source file name.
func (s ExportSpec) FileName() string {
	name := filepath.Base(s.SourceName)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" || stem == "." {
		stem = "export"
	}
	return stem + s.Format.Ext()
}

// Download is an in-memory exported file.
type Download struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ContentDisposition returns the attachment header value for the download.
func (d *Download) ContentDisposition() string {
	return fmt.Sprintf("attachment; filename=%q", d.FileName)
}

// Export serializes the table without an index column. The table is not
// modified.
func Export(t *Table, spec ExportSpec) (*Download, error) {
	var (
		data []byte
		err  error
	)
	switch spec.Format {
	case ExportCSV:
		data, err = exportCSV(t)
	case ExportXLSX:
		data, err = exportXLSX(t, spec.Chart)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExport, spec.Format)
	}
	if err != nil {
		return nil, err
	}
	return &Download{
		FileName:    spec.FileName(),
		ContentType: spec.Format.ContentType(),
		Data:        data,
	}, nil
}

func exportCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(t.Records()); err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}
	return buf.Bytes(), nil
}

func exportXLSX(t *Table, chartSpec *ChartSpec) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	names := t.Columns()
	header := make([]interface{}, len(names))
	for i, n := range names {
		header[i] = n
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("export xlsx header: %w", err)
	}

	// Build every row up front; gota's Col copies the column on each call.
	nrows := t.NumRows()
	rows := make([][]interface{}, nrows)
	for r := range rows {
		rows[r] = make([]interface{}, len(names))
	}
	for c, name := range names {
		s := t.frame.Col(name)
		for r := 0; r < nrows; r++ {
			rows[r][c] = cellValue(s.Elem(r))
		}
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, fmt.Errorf("export xlsx: %w", err)
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("export xlsx row %d: %w", r+1, err)
		}
	}

	if chartSpec != nil {
		if err := embedChart(f, t, *chartSpec); err != nil && !IsNotice(err) {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// cellValue maps an element to the value excelize writes: numbers as numbers,
// booleans as booleans, missing as an empty cell.
func cellValue(e series.Element) interface{} {
	if e.IsNA() {
		return nil
	}
	switch e.Type() {
	case series.Int:
		v, _ := e.Int()
		return v
	case series.Float:
		return e.Float()
	case series.Bool:
		v, _ := e.Bool()
		return v
	default:
		return e.String()
	}
}

// embedChart places a native Excel chart next to the data.
func embedChart(f *excelize.File, t *Table, spec ChartSpec) error {
	c, err := BuildChart(t, spec)
	if err != nil {
		return err
	}
	nrows := t.NumRows()
	if nrows == 0 {
		return nil
	}

	names := t.Columns()
	colOf := make(map[string]int, len(names))
	for i, n := range names {
		colOf[n] = i + 1
	}
	ref := func(name string) (string, error) {
		col, err := excelize.ColumnNumberToName(colOf[name])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s!$%s$2:$%s$%d", exportSheet, col, col, nrows+1), nil
	}

	xc := &excelize.Chart{
		Title: []excelize.RichTextRun{{Text: c.Title}},
	}
	switch c.Kind {
	case ChartBar:
		xc.Type = excelize.ColStacked
	case ChartLine:
		xc.Type = excelize.Line
	case ChartArea:
		xc.Type = excelize.Area
	case ChartScatter:
		xc.Type = excelize.Scatter
	}

	if c.Kind == ChartScatter {
		xs, err := ref(c.XLabel)
		if err != nil {
			return fmt.Errorf("export chart: %w", err)
		}
		ys, err := ref(c.YLabel)
		if err != nil {
			return fmt.Errorf("export chart: %w", err)
		}
		xc.Series = []excelize.ChartSeries{{Name: c.YLabel, Categories: xs, Values: ys}}
	} else {
		for _, s := range c.Series {
			vs, err := ref(s.Name)
			if err != nil {
				return fmt.Errorf("export chart: %w", err)
			}
			xc.Series = append(xc.Series, excelize.ChartSeries{Name: s.Name, Values: vs})
		}
	}

	anchor, err := excelize.CoordinatesToCellName(len(names)+2, 1)
	if err != nil {
		return fmt.Errorf("export chart: %w", err)
	}
	if err := f.AddChart(exportSheet, anchor, xc); err != nil {
		return fmt.Errorf("export chart: %w", err)
	}
	return nil
}

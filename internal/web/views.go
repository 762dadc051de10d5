package web

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/dataelevate/internal/core"
	"github.com/JonMunkholm/dataelevate/internal/web/templates"
)

var statsHeader = []string{"column", "kind", "count", "missing", "unique", "top", "freq", "mean", "std", "min", "25%", "50%", "75%", "max"}

// optionsView fills a form with the options of the previous submission.
func optionsView(f optionsForm) templates.OptionsView {
	v := templates.OptionsView{
		Dedupe:  f.Dedupe,
		Fill:    f.Fill,
		Embed:   f.Embed,
		Columns: strings.Join(f.Columns, ", "),
		X:       f.X,
		Y:       f.Y,
	}
	for _, k := range core.ChartKinds {
		v.Charts = append(v.Charts, templates.Choice{
			Value:    string(k),
			Label:    k.Label(),
			Selected: f.Chart == string(k),
		})
	}
	export, _ := core.ParseExportFormat(f.Export)
	if export == "" {
		export = core.ExportCSV
	}
	for _, e := range []core.ExportFormat{core.ExportCSV, core.ExportXLSX} {
		v.Exports = append(v.Exports, templates.Choice{
			Value:    string(e),
			Label:    e.Label(),
			Selected: e == export,
		})
	}
	return v
}

func (s *Server) uploadView() templates.UploadView {
	return templates.UploadView{
		MaxFiles:    s.cfg.Upload.MaxFiles,
		MaxFileSize: humanBytes(s.cfg.Upload.MaxFileSize),
		Options:     optionsView(optionsForm{}),
	}
}

// reportView builds the result page. Charts are rendered inline as SVG so
// that scatter dots keep their row tooltips; a render failure becomes a
// notice on that file.
func (s *Server) reportView(batch *core.BatchResult, files []core.UploadedFile, form optionsForm) templates.ReportView {
	v := templates.ReportView{
		BatchID:   batch.ID,
		Duration:  batch.Duration.Round(time.Millisecond).String(),
		Succeeded: batch.Succeeded(),
		Total:     len(batch.Files),
	}
	for i := range batch.Files {
		v.Files = append(v.Files, s.fileView(&batch.Files[i], files[i], form))
	}
	return v
}

func (s *Server) fileView(res *core.FileResult, src core.UploadedFile, form optionsForm) templates.FileView {
	fv := templates.FileView{
		Name:    res.File,
		Size:    humanBytes(res.Size),
		Status:  string(res.Status),
		Options: optionsView(form),
	}
	if res.Error != nil {
		alert := alertView(*res.Error)
		fv.Error = &alert
	}
	for _, n := range res.Notices {
		fv.Notices = append(fv.Notices, templates.NoticeView{Level: string(n.Level), Code: n.Code, Message: n.Message})
	}

	in := res.Result
	if in == nil {
		in = res.Source
	}
	if in == nil {
		return fv
	}

	fv.Loaded = true
	fv.Rows = in.Rows
	fv.Cols = in.Columns
	fv.TotalMissing = in.TotalMissing()
	fv.PreviewHeader = in.ColumnNames
	fv.Preview = in.Preview
	fv.StatsHeader = statsHeader
	fv.Stats = statsRows(in.Stats)
	fv.Payload = base64.StdEncoding.EncodeToString(src.Content)

	if res.Chart != nil {
		svg, err := core.RenderChartBytes(res.Chart, s.renderOptions(core.RenderSVG))
		if err != nil {
			msg := core.MapError(err)
			fv.Notices = append(fv.Notices, templates.NoticeView{
				Level:   string(core.NoticeError),
				Code:    msg.Code,
				Message: msg.Message,
			})
		} else {
			fv.ChartSVG = string(svg)
		}
	}
	return fv
}

func (s *Server) renderOptions(format core.RenderFormat) core.RenderOptions {
	return core.RenderOptions{
		Width:  s.cfg.Chart.Width,
		Height: s.cfg.Chart.Height,
		Format: format,
	}
}

func statsRows(stats []core.ColumnStats) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, cs := range stats {
		row := []string{
			cs.Column,
			string(cs.Kind),
			strconv.Itoa(cs.Count),
			strconv.Itoa(cs.Missing),
			strconv.Itoa(cs.Unique),
			cs.Top,
			"",
		}
		if cs.Freq > 0 {
			row[6] = strconv.Itoa(cs.Freq)
		}
		if n := cs.Numeric; n != nil {
			row = append(row, figure(n.Mean), figure(n.Std), figure(n.Min),
				figure(n.Q25), figure(n.Q50), figure(n.Q75), figure(n.Max))
		} else {
			row = append(row, "", "", "", "", "", "", "")
		}
		rows = append(rows, row)
	}
	return rows
}

func figure(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'g', 6, 64)
}

// humanBytes formats a byte count with a binary unit.
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.0f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

package web

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/dataelevate/internal/core"
	"github.com/JonMunkholm/dataelevate/internal/logging"
	"github.com/JonMunkholm/dataelevate/internal/web/templates"
)

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "DataElevate", templates.UploadPage(s.uploadView()))
}

// submission is a parsed and validated pipeline request.
type submission struct {
	files []core.UploadedFile
	form  optionsForm
	opts  core.Options
}

// readSubmission parses the form, its files and options.
func (s *Server) readSubmission(w http.ResponseWriter, r *http.Request) (*submission, error) {
	if err := s.parseForm(w, r); err != nil {
		return nil, err
	}
	form := parseOptions(r)
	if err := s.validateOptions(form); err != nil {
		return nil, err
	}
	files, err := s.readUploads(r)
	if err != nil {
		return nil, err
	}
	return &submission{files: files, form: form, opts: form.Options()}, nil
}

// run executes the pipeline while holding a limiter slot.
func (s *Server) run(r *http.Request, sub *submission) (*core.BatchResult, error) {
	if err := s.limiter.Acquire(r.Context()); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx := WithRequestMetadata(r.Context(), r)
	return s.pipeline.Run(ctx, sub.files, sub.opts), nil
}

// handleProcess runs the pipeline on uploaded files and renders one report
// per file. Each report carries a form that resubmits that file alone.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	sub, err := s.readSubmission(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	// The HTML report offers downloads through /api/convert instead.
	sub.opts.Export = ""

	batch, err := s.run(r, sub)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	report := templates.Report(s.reportView(batch, sub.files, sub.form))
	s.renderPage(w, r, "Results", report)
}

// inspectResponse is the JSON body of /api/inspect.
type inspectResponse struct {
	ID         string            `json:"id"`
	DurationMS int64             `json:"duration_ms"`
	Succeeded  int               `json:"succeeded"`
	Files      []core.FileResult `json:"files"`
}

// handleInspect runs the pipeline and returns the per-file outcomes as
// JSON. Failed files are part of a 200 response.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	sub, err := s.readSubmission(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sub.opts.Export = ""

	batch, err := s.run(r, sub)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	render.JSON(w, r, inspectResponse{
		ID:         batch.ID,
		DurationMS: batch.Duration.Milliseconds(),
		Succeeded:  batch.Succeeded(),
		Files:      batch.Files,
	})
}

// handleConvert returns the exported file. Several files are bundled into
// a zip archive; any file that cannot be exported fails the request.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	sub, err := s.readSubmission(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if sub.opts.Export == "" {
		sub.opts.Export = core.ExportCSV
	}
	if sub.opts.Export == core.ExportCSV {
		sub.opts.EmbedChart = false
	}

	batch, err := s.run(r, sub)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	downloads := make([]*core.Download, 0, len(batch.Files))
	for i := range batch.Files {
		res := &batch.Files[i]
		if res.Err != nil {
			s.respondError(w, r, res.Err)
			return
		}
		downloads = append(downloads, res.Export)
	}

	d := downloads[0]
	if len(downloads) > 1 {
		d, err = bundle(downloads)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	writeDownload(w, d)
}

// handleChart renders the chart of one file as an image.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	sub, err := s.readSubmission(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	format, err := core.ParseRenderFormat(sub.form.Format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	spec := core.ChartSpec{Kind: core.ChartBar}
	if sub.opts.Chart != nil {
		spec = *sub.opts.Chart
	}
	sub.files = sub.files[:1]
	sub.opts.Chart = nil
	sub.opts.Export = ""

	batch, err := s.run(r, sub)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	res := &batch.Files[0]
	if res.Err != nil {
		s.respondError(w, r, res.Err)
		return
	}

	c, err := core.BuildChart(res.Table, spec)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	img, err := core.RenderChartBytes(c, s.renderOptions(format))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(img); err != nil {
		logging.FromContext(r.Context()).Warn("chart write failed", "error", err)
	}
}

// healthResponse is the JSON body of /healthz.
type healthResponse struct {
	Status  string             `json:"status"`
	Limiter core.LimiterStatus `json:"limiter"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{Status: "ok", Limiter: s.limiter.Status()})
}

// renderPage renders body in the page layout, or alone for HTMX requests.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, title string, body templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := templates.Page(title, body)
	if isHTMX(r) {
		page = body
	}
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

func writeDownload(w http.ResponseWriter, d *core.Download) {
	w.Header().Set("Content-Type", d.ContentType)
	w.Header().Set("Content-Disposition", d.ContentDisposition())
	w.Header().Set("Content-Length", fmt.Sprint(len(d.Data)))
	_, _ = w.Write(d.Data)
}

// bundle zips several downloads, suffixing repeated names.
func bundle(downloads []*core.Download) (*core.Download, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	used := make(map[string]int, len(downloads))
	for _, d := range downloads {
		name := d.FileName
		if n := used[name]; n > 0 {
			name = fmt.Sprintf("%d-%s", n, name)
		}
		used[d.FileName]++

		f, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: time.Now()})
		if err != nil {
			return nil, fmt.Errorf("export bundle: %w", err)
		}
		if _, err := f.Write(d.Data); err != nil {
			return nil, fmt.Errorf("export bundle: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("export bundle: %w", err)
	}
	return &core.Download{FileName: "export.zip", ContentType: "application/zip", Data: buf.Bytes()}, nil
}

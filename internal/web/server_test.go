package web

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataelevate/internal/config"
	"github.com/JonMunkholm/dataelevate/internal/core"
)

const salesCSV = "id,name,score\n1,a,10\n1,a,10\n2,b,\n3,c,30\n"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: time.Second,
			RequestTimeout:  10 * time.Second,
		},
		Upload: config.UploadConfig{
			MaxFileSize:    1 << 20,
			MaxRequestSize: 4 << 20,
			MaxFiles:       3,
			MaxConcurrent:  2,
			MaxWaitTime:    time.Second,
		},
		Security: config.SecurityConfig{EnableCSP: true},
		Logging:  config.LoggingConfig{Level: "error", Format: "text"},
		Pipeline: config.PipelineConfig{PreviewRows: 5, EmptyNumericFill: "leave"},
		Chart:    config.ChartConfig{Width: 640, Height: 320},
	}
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *Server {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	reg := prometheus.NewRegistry()
	pipeline := core.NewPipeline(core.PipelineConfig{
		PreviewRows:      cfg.Pipeline.PreviewRows,
		EmptyNumericFill: core.EmptyColumnPolicy(cfg.Pipeline.EmptyNumericFill),
		MaxFileSize:      cfg.Upload.MaxFileSize,
	}, core.NewMetrics(reg))
	limiter := core.NewProcessLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	return NewServer(cfg, pipeline, limiter, reg)
}

type upload struct {
	name    string
	content string
}

// multipartRequest builds a POST with files under "files" and form fields.
func multipartRequest(t *testing.T, path string, files []upload, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestIndex(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, `name="files"`)
	assert.Contains(t, body, `<option value="scatter">Scatter Plot</option>`)
	assert.Contains(t, body, "up to 3 files of 1 MB each")
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
}

func TestStatic(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInspect(t *testing.T) {
	s := newTestServer(t)
	req := multipartRequest(t, "/api/inspect",
		[]upload{{"sales.csv", salesCSV}, {"notes.txt", "hello"}},
		map[string]string{"dedupe": "on", "fill_missing": "true"})
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		ID        string `json:"id"`
		Succeeded int    `json:"succeeded"`
		Files     []struct {
			File              string            `json:"file"`
			Status            string            `json:"status"`
			DuplicatesRemoved int               `json:"duplicates_removed"`
			Error             *core.UserMessage `json:"error"`
			Result            *core.Inspection  `json:"result"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, 1, resp.Succeeded)
	require.Len(t, resp.Files, 2)

	sales := resp.Files[0]
	assert.Equal(t, "ok", sales.Status)
	assert.Equal(t, 1, sales.DuplicatesRemoved)
	require.NotNil(t, sales.Result)
	assert.Equal(t, 3, sales.Result.Rows)
	assert.Equal(t, 0, sales.Result.TotalMissing())

	notes := resp.Files[1]
	assert.Equal(t, "skipped", notes.Status)
	require.NotNil(t, notes.Error)
	assert.Equal(t, "FILE002", notes.Error.Code)
}

func TestInspect_Errors(t *testing.T) {
	tests := []struct {
		name     string
		files    []upload
		fields   map[string]string
		wantCode int
		wantErr  string
	}{
		{"no file", nil, nil, http.StatusBadRequest, "FILE004"},
		{"bad chart", []upload{{"a.csv", salesCSV}}, map[string]string{"chart": "pie"}, http.StatusBadRequest, "UPL006"},
		{"bad export", []upload{{"a.csv", salesCSV}}, map[string]string{"export": "json"}, http.StatusBadRequest, "UPL006"},
		{"too many files", []upload{{"a.csv", salesCSV}, {"b.csv", salesCSV}, {"c.csv", salesCSV}, {"d.csv", salesCSV}}, nil, http.StatusBadRequest, "UPL006"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := serve(s, multipartRequest(t, "/api/inspect", tt.files, tt.fields))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, decodeError(t, rec).Code)
		})
	}
}

func TestConvert(t *testing.T) {
	s := newTestServer(t)
	req := multipartRequest(t, "/api/convert",
		[]upload{{"sales.csv", salesCSV}},
		map[string]string{"export": "xlsx", "dedupe": "true", "columns": "name, score"})
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, core.ContentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="sales.xlsx"`, rec.Header().Get("Content-Disposition"))

	tbl, err := core.Load(core.NewUploadedFile("sales.xlsx", rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "score"}, tbl.Columns())
	assert.Equal(t, 3, tbl.NumRows())
}

func TestConvert_DefaultsToCSV(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, multipartRequest(t, "/api/convert", []upload{{"sales.csv", salesCSV}}, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.ContentTypeCSV, rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "id,name,score\n"))
}

func TestConvert_Bundle(t *testing.T) {
	s := newTestServer(t)
	req := multipartRequest(t, "/api/convert",
		[]upload{{"a.csv", salesCSV}, {"b.csv", salesCSV}, {"a.csv", salesCSV}},
		map[string]string{"export": "csv"})
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a.csv", "b.csv", "1-a.csv"}, names)
}

func TestConvert_FailedFile(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, multipartRequest(t, "/api/convert",
		[]upload{{"sales.csv", salesCSV}},
		map[string]string{"columns": "missing"}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "COL001", decodeError(t, rec).Code)
}

func TestChart(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, multipartRequest(t, "/api/chart",
		[]upload{{"sales.csv", salesCSV}},
		map[string]string{"chart": "line"}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestChart_PNG(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, multipartRequest(t, "/api/chart",
		[]upload{{"sales.csv", salesCSV}},
		map[string]string{"chart": "scatter", "format": "png"}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestChart_Notices(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		chart   string
		wantErr string
	}{
		{"no numeric data", "name,city\na,x\nb,y\n", "bar", "VIS001"},
		{"scatter needs two columns", "name,score\na,1\nb,2\n", "scatter", "VIS002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := serve(s, multipartRequest(t, "/api/chart",
				[]upload{{"data.csv", tt.csv}},
				map[string]string{"chart": tt.chart}))

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, tt.wantErr, decodeError(t, rec).Code)
		})
	}
}

func TestProcess(t *testing.T) {
	s := newTestServer(t)
	req := multipartRequest(t, "/process",
		[]upload{{"sales.csv", salesCSV}, {"notes.txt", "hello"}},
		map[string]string{"chart": "bar", "dedupe": "on"})
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "1 of 2 files processed")
	assert.Contains(t, body, `data-status="ok"`)
	assert.Contains(t, body, `data-status="skipped"`)
	assert.Contains(t, body, "FILE002")
	assert.Contains(t, body, "Removed 1 duplicate rows")
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, base64.StdEncoding.EncodeToString([]byte(salesCSV)))
	assert.Contains(t, body, `<option value="bar" selected>`)
}

func TestProcess_Resubmit(t *testing.T) {
	s := newTestServer(t)
	form := url.Values{
		"payload_name": {"sales.csv"},
		"payload":      {base64.StdEncoding.EncodeToString([]byte(salesCSV))},
		"columns":      {"name"},
	}
	req := httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "1 of 1 files processed")
	assert.Contains(t, body, "4 rows, 1 columns")
}

func TestProcess_BadPayload(t *testing.T) {
	s := newTestServer(t)
	form := url.Values{"payload_name": {"x.csv"}, "payload": {"%%%"}}
	req := httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(s, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "UPL006")
}

func TestProcess_OversizedFileSkipped(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Upload.MaxFileSize = 16 })
	rec := serve(s, multipartRequest(t, "/api/inspect",
		[]upload{{"big.csv", salesCSV}}, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"FILE001"`)
}

func TestProcess_ChartLabelsEscaped(t *testing.T) {
	csv := "\"<a href=\"\"//evil\"\">pwn</a>\",y\n1,2\n3,4\n"

	for _, kind := range []string{"bar", "line", "area", "scatter"} {
		t.Run(kind, func(t *testing.T) {
			s := newTestServer(t)
			rec := serve(s, multipartRequest(t, "/process",
				[]upload{{"evil.csv", csv}}, map[string]string{"chart": kind}))

			require.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, "<svg")
			assert.NotContains(t, body, `<a href="//evil">`)
			assert.Contains(t, body, "&lt;a href=")
		})
	}
}

func TestProcess_ScatterTooltips(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, multipartRequest(t, "/process",
		[]upload{{"points.csv", "x,y\n1,10\n2,20\n"}}, map[string]string{"chart": "scatter"}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<title>row 0: x=1, y=10</title>")
	assert.Contains(t, body, "<title>row 1: x=2, y=20</title>")
}

func TestProcess_ParseErrorDetail(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, multipartRequest(t, "/process",
		[]upload{{"broken.xlsx", "not a workbook"}, {"sales.csv", salesCSV}}, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "FILE003")
	assert.Contains(t, body, `<span class="detail">Error processing broken.xlsx: `)
	assert.Contains(t, body, `<span class="size">14 B</span>`)
	assert.Contains(t, body, `<span class="size">40 B</span>`)
}

func TestInspect_ParseErrorDetail(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, multipartRequest(t, "/api/inspect",
		[]upload{{"broken.xlsx", "not a workbook"}}, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Files []struct {
			Error *core.UserMessage `json:"error"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Files, 1)
	require.NotNil(t, resp.Files[0].Error)
	assert.Equal(t, "FILE003", resp.Files[0].Error.Code)
	assert.True(t, strings.HasPrefix(resp.Files[0].Error.Detail, "Error processing broken.xlsx: "))
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, ProcessLimit: 1}
	})

	first := serve(s, multipartRequest(t, "/api/inspect", []upload{{"a.csv", salesCSV}}, nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := serve(s, multipartRequest(t, "/api/inspect", []upload{{"a.csv", salesCSV}}, nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "RATE001", decodeError(t, second).Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// Pages outside the pipeline group keep the general budget.
	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestBusy(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Upload.MaxConcurrent = 1
		c.Upload.MaxWaitTime = 10 * time.Millisecond
	})
	require.True(t, s.limiter.TryAcquire())
	defer s.limiter.Release()

	rec := serve(s, multipartRequest(t, "/api/inspect", []upload{{"a.csv", salesCSV}}, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "UPL002", decodeError(t, rec).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	serve(s, multipartRequest(t, "/api/inspect", []upload{{"a.csv", salesCSV}}, nil))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Limiter.MaxConcurrent)
	assert.Equal(t, 0, health.Limiter.Active)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dataelevate_files_processed_total{ext=".csv",outcome="ok"} 1`)
}

func TestShutdown_WithoutStart(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}

func TestShutdown_WaitsForRuns(t *testing.T) {
	s := newTestServer(t)
	require.True(t, s.limiter.TryAcquire())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Shutdown(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	s.limiter.Release()
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrNoFile, http.StatusBadRequest},
		{core.ErrTooManyRequests, http.StatusServiceUnavailable},
		{errRateLimited, http.StatusTooManyRequests},
		{&core.UnsupportedFormatError{FileName: "a.txt", Ext: ".txt"}, http.StatusUnsupportedMediaType},
		{&core.ParseError{FileName: "a.csv", Err: assert.AnError}, http.StatusUnprocessableEntity},
		{core.ErrNoNumericData, http.StatusUnprocessableEntity},
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", humanBytes(512))
	assert.Equal(t, "1 MB", humanBytes(1<<20))
	assert.Equal(t, "50 MB", humanBytes(50<<20))
}

package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataelevate/internal/logging"
)

// FileStatus is the outcome of one file in a batch.
type FileStatus string

const (
	StatusOK        FileStatus = "ok"
	StatusSkipped   FileStatus = "skipped"
	StatusFailed    FileStatus = "failed"
	StatusCancelled FileStatus = "cancelled"
)

// NoticeLevel grades a Notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a non-fatal message attached to a file result.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message"`
}

func noticeFor(level NoticeLevel, err error) Notice {
	msg := MapError(err)
	return Notice{Level: level, Code: msg.Code, Message: msg.Message}
}

// Options are the per-run choices of the user. The zero value only loads
// and inspects.
type Options struct {
	RemoveDuplicates bool         `json:"remove_duplicates"`
	FillMissing      bool         `json:"fill_missing"`
	Columns          []string     `json:"columns,omitempty"`
	Chart            *ChartSpec   `json:"chart,omitempty"`
	Export           ExportFormat `json:"export,omitempty"`
	// EmbedChart adds the chart to Excel exports.
	EmbedChart bool `json:"embed_chart,omitempty"`
}

// PipelineConfig holds settings that do not change between runs.
type PipelineConfig struct {
	PreviewRows      int
	EmptyNumericFill EmptyColumnPolicy
	MaxFileSize      int64
}

// FileResult is everything the pipeline produced for one file.
type FileResult struct {
	File   string     `json:"file"`
	Size   int64      `json:"size"`
	Status FileStatus `json:"status"`

	Err   error        `json:"-"`
	Error *UserMessage `json:"error,omitempty"`

	// Source describes the table as loaded; Result after cleaning and
	// column selection.
	Source *Inspection `json:"source,omitempty"`
	Result *Inspection `json:"result,omitempty"`

	DuplicatesRemoved int         `json:"duplicates_removed"`
	Fill              *FillReport `json:"fill,omitempty"`
	Chart             *Chart      `json:"chart,omitempty"`
	Notices           []Notice    `json:"notices,omitempty"`

	Export *Download `json:"-"`
	Table  *Table    `json:"-"`
}

// OK reports whether the file went through every requested stage.
func (r *FileResult) OK() bool {
	return r.Status == StatusOK
}

// BatchResult collects the file results of one run in input order.
type BatchResult struct {
	ID       string        `json:"id"`
	Files    []FileResult  `json:"files"`
	Duration time.Duration `json:"duration_ns"`
}

// Succeeded counts files with StatusOK.
func (b *BatchResult) Succeeded() int {
	n := 0
	for i := range b.Files {
		if b.Files[i].OK() {
			n++
		}
	}
	return n
}

// Pipeline runs the load, inspect, clean, select, visualize and export
// stages over uploaded files. It holds no per-run state and is safe for
// concurrent use.
type Pipeline struct {
	cfg     PipelineConfig
	metrics *Metrics
}

// NewPipeline creates a pipeline. metrics may be nil.
func NewPipeline(cfg PipelineConfig, metrics *Metrics) *Pipeline {
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = DefaultPreviewRows
	}
	if cfg.EmptyNumericFill == "" {
		cfg.EmptyNumericFill = LeaveMissing
	}
	return &Pipeline{cfg: cfg, metrics: metrics}
}

// Config returns the pipeline settings.
func (p *Pipeline) Config() PipelineConfig {
	return p.cfg
}

// Run processes files one after another. A failing file never stops the
// batch; once ctx ends the remaining files are reported as cancelled.
func (p *Pipeline) Run(ctx context.Context, files []UploadedFile, opts Options) *BatchResult {
	start := time.Now()
	batch := &BatchResult{
		ID:    uuid.NewString(),
		Files: make([]FileResult, 0, len(files)),
	}

	p.metrics.RunStarted()
	defer p.metrics.RunFinished()

	logger := logging.FromContext(ctx).With(
		"batch_id", batch.ID,
		"client_ip", ClientIPFromContext(ctx),
	)
	logger.Info("batch started", "files", len(files))

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			batch.Files = append(batch.Files, FileResult{
				File:   f.Name,
				Size:   f.Size,
				Status: StatusCancelled,
				Err:    err,
				Error:  userMessage(err),
			})
			p.metrics.fileDone(f.Ext(), string(StatusCancelled))
			continue
		}
		res := p.process(f, opts, logger.With("file", f.Name))
		p.metrics.fileDone(f.Ext(), string(res.Status))
		batch.Files = append(batch.Files, res)
	}

	batch.Duration = time.Since(start)
	logger.Info("batch finished",
		"succeeded", batch.Succeeded(),
		"files", len(files),
		"duration_ms", batch.Duration.Milliseconds(),
	)
	return batch
}

// ProcessFile runs a single file, the unit the per-file web forms resubmit.
func (p *Pipeline) ProcessFile(ctx context.Context, f UploadedFile, opts Options) FileResult {
	batch := p.Run(ctx, []UploadedFile{f}, opts)
	return batch.Files[0]
}

func (p *Pipeline) process(f UploadedFile, opts Options, logger *slog.Logger) FileResult {
	res := FileResult{File: f.Name, Size: f.Size, Status: StatusOK}

	fail := func(status FileStatus, err error) FileResult {
		res.Status = status
		res.Err = err
		res.Error = userMessage(err)
		log := logger.Warn
		if !IsUserFacing(err) {
			log = logger.Error
		}
		log("file not processed", "status", status, "error", err, "code", res.Error.Code)
		return res
	}

	if p.cfg.MaxFileSize > 0 && f.Size > p.cfg.MaxFileSize {
		return fail(StatusSkipped, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, f.Size, p.cfg.MaxFileSize))
	}

	// Load
	stageStart := time.Now()
	t, err := Load(f)
	p.metrics.observeStage("load", stageStart)
	if err != nil {
		return fail(StatusSkipped, err)
	}
	p.metrics.rowsLoaded(t.NumRows())
	logger.Debug("file loaded", "rows", t.NumRows(), "columns", t.NumCols())

	// Inspect
	stageStart = time.Now()
	res.Source = Inspect(t, p.cfg.PreviewRows)
	p.metrics.observeStage("inspect", stageStart)

	// Clean
	stageStart = time.Now()
	if opts.RemoveDuplicates {
		removed, err := t.RemoveDuplicates()
		if err != nil {
			return fail(StatusFailed, err)
		}
		res.DuplicatesRemoved = removed
		p.metrics.duplicatesRemoved(removed)
		res.Notices = append(res.Notices, Notice{
			Level:   NoticeInfo,
			Message: fmt.Sprintf("Removed %d duplicate rows", removed),
		})
	}
	if opts.FillMissing {
		report, err := t.FillMissingNumeric(p.cfg.EmptyNumericFill)
		if err != nil {
			return fail(StatusFailed, err)
		}
		res.Fill = &report
		p.metrics.cellsFilled(report.Total())
		res.Notices = append(res.Notices, Notice{
			Level:   NoticeInfo,
			Message: fmt.Sprintf("Filled %d missing numeric values with column means", report.Total()),
		})
		for _, col := range report.EmptyColumns() {
			msg := fmt.Sprintf("Column %q has no values to average and was left empty", col)
			if p.cfg.EmptyNumericFill == FillZero {
				msg = fmt.Sprintf("Column %q has no values to average and was filled with 0", col)
			}
			res.Notices = append(res.Notices, Notice{Level: NoticeWarning, Message: msg})
		}
	}
	p.metrics.observeStage("clean", stageStart)

	// Select
	if err := t.SelectColumns(opts.Columns); err != nil {
		return fail(StatusFailed, err)
	}
	res.Result = Inspect(t, p.cfg.PreviewRows)
	res.Table = t

	// Visualize
	if opts.Chart != nil {
		stageStart = time.Now()
		c, err := BuildChart(t, *opts.Chart)
		p.metrics.observeStage("chart", stageStart)
		switch {
		case err == nil:
			res.Chart = c
		case errors.Is(err, ErrScatterNeedsTwoColumns):
			res.Notices = append(res.Notices, noticeFor(NoticeWarning, err))
		case IsNotice(err):
			res.Notices = append(res.Notices, noticeFor(NoticeInfo, err))
		default:
			res.Notices = append(res.Notices, noticeFor(NoticeError, err))
			logger.Warn("chart not built", "error", err)
		}
	}

	// Export
	if opts.Export != "" {
		stageStart = time.Now()
		spec := ExportSpec{Format: opts.Export, SourceName: f.Name}
		if opts.EmbedChart {
			spec.Chart = opts.Chart
		}
		d, err := Export(t, spec)
		p.metrics.observeStage("export", stageStart)
		if err != nil {
			return fail(StatusFailed, err)
		}
		res.Export = d
		p.metrics.exported(opts.Export)
		logger.Debug("file exported", "format", opts.Export, "bytes", len(d.Data))
	}

	logger.Info("file processed",
		"rows", t.NumRows(),
		"columns", t.NumCols(),
		"duplicates_removed", res.DuplicatesRemoved,
	)
	return res
}

func userMessage(err error) *UserMessage {
	msg := MapError(err)
	return &msg
}

package web

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/dataelevate/internal/core"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// optionsForm is the set of pipeline options submitted by a form or query.
type optionsForm struct {
	Dedupe  bool
	Fill    bool
	Embed   bool
	Columns []string `validate:"dive,required"`
	Chart   string   `validate:"omitempty,oneof=bar line area scatter"`
	X       string
	Y       string
	Export  string   `validate:"omitempty,oneof=csv xlsx excel"`
	Format  string   `validate:"omitempty,oneof=svg png"`
}

// parseOptions reads options from r's parsed form values.
func parseOptions(r *http.Request) optionsForm {
	return optionsForm{
		Dedupe:  formBool(r, "dedupe"),
		Fill:    formBool(r, "fill_missing"),
		Embed:   formBool(r, "embed_chart"),
		Columns: splitList(r.Form["columns"]),
		Chart:   strings.ToLower(strings.TrimSpace(r.FormValue("chart"))),
		X:       strings.TrimSpace(r.FormValue("x")),
		Y:       strings.TrimSpace(r.FormValue("y")),
		Export:  strings.ToLower(strings.TrimSpace(r.FormValue("export"))),
		Format:  strings.ToLower(strings.TrimSpace(r.FormValue("format"))),
	}
}

// Options converts validated form values to pipeline options.
func (f optionsForm) Options() core.Options {
	opts := core.Options{
		RemoveDuplicates: f.Dedupe,
		FillMissing:      f.Fill,
		Columns:          f.Columns,
		EmbedChart:       f.Embed,
	}
	if f.Chart != "" {
		opts.Chart = &core.ChartSpec{Kind: core.ChartKind(f.Chart), X: f.X, Y: f.Y}
	}
	if f.Export != "" {
		// Validated above, so parsing cannot fail.
		opts.Export, _ = core.ParseExportFormat(f.Export)
	}
	return opts
}

// validateOptions checks f and reports every problem as one ErrInvalidOption.
func (s *Server) validateOptions(f optionsForm) error {
	err := s.validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", core.ErrInvalidOption, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatValidationError(fe))
	}
	return fmt.Errorf("%w: %s", core.ErrInvalidOption, strings.Join(msgs, "; "))
}

// formatValidationError formats validation error messages.
func formatValidationError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s must not contain empty names", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// formBool accepts the values browsers and scripts send for a checkbox.
func formBool(r *http.Request, key string) bool {
	switch strings.ToLower(r.FormValue(key)) {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}

// splitList flattens repeated and comma-separated values, dropping blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseForm parses a multipart or urlencoded body bounded by the request
// size limit.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxRequestSize)

	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return fmt.Errorf("%w: request exceeds %d bytes", core.ErrFileTooLarge, maxBytes.Limit)
		}
		return fmt.Errorf("%w: malformed form: %v", core.ErrInvalidOption, err)
	}
	return nil
}

// readUploads collects the uploaded files in form order: file parts named
// "files" (or "file"), then a resubmitted base64 "payload".
func (s *Server) readUploads(r *http.Request) ([]core.UploadedFile, error) {
	var files []core.UploadedFile

	if r.MultipartForm != nil {
		for _, key := range []string{"files", "file"} {
			for _, fh := range r.MultipartForm.File[key] {
				f, err := s.readPart(fh)
				if err != nil {
					return nil, err
				}
				files = append(files, f)
			}
		}
	}

	if payload := r.FormValue("payload"); payload != "" {
		content, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: file payload is not valid base64", core.ErrInvalidOption)
		}
		name := filepath.Base(r.FormValue("payload_name"))
		if name == "." || name == "/" {
			name = "upload.csv"
		}
		files = append(files, core.NewUploadedFile(name, content))
	}

	if len(files) == 0 {
		return nil, core.ErrNoFile
	}
	if limit := s.cfg.Upload.MaxFiles; len(files) > limit {
		return nil, fmt.Errorf("%w: %d files submitted, at most %d allowed", core.ErrInvalidOption, len(files), limit)
	}
	return files, nil
}

// readPart reads one file part. Oversized parts are returned with their
// declared size and no content so the pipeline reports them as skipped.
func (s *Server) readPart(fh *multipart.FileHeader) (core.UploadedFile, error) {
	name := filepath.Base(fh.Filename)
	if fh.Size > s.cfg.Upload.MaxFileSize {
		return core.UploadedFile{Name: name, Size: fh.Size}, nil
	}

	f, err := fh.Open()
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("read %s: %w", name, err)
	}
	return core.NewUploadedFile(name, content), nil
}

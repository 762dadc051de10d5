package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// UploadedFile is one user-supplied file. Content is never modified.
type UploadedFile struct {
	Name    string
	Size    int64
	Content []byte
}

// NewUploadedFile wraps raw bytes, deriving Size from the content.
func NewUploadedFile(name string, content []byte) UploadedFile {
	return UploadedFile{Name: name, Size: int64(len(content)), Content: content}
}

// Ext returns the lower-cased extension including the dot.
func (f UploadedFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// Supported reports whether Load can read this file's extension.
func (f UploadedFile) Supported() bool {
	switch f.Ext() {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// Load parses an uploaded file into a Table, dispatching on its extension.
//
// Unsupported extensions yield *UnsupportedFormatError; malformed content
// yields *ParseError naming the file.
func Load(f UploadedFile) (*Table, error) {
	var (
		records [][]string
		err     error
	)

	switch f.Ext() {
	case ".csv":
		records, err = readCSV(bytes.NewReader(f.Content))
	case ".xlsx":
		records, err = readXLSX(bytes.NewReader(f.Content))
	default:
		return nil, &UnsupportedFormatError{FileName: f.Name, Ext: f.Ext()}
	}
	if err != nil {
		return nil, &ParseError{FileName: f.Name, Err: err}
	}

	t, err := tableFromRecords(records)
	if err != nil {
		return nil, &ParseError{FileName: f.Name, Err: err}
	}
	return t, nil
}

// readCSV decodes comma-separated text. A UTF-8 BOM is dropped and invalid
// byte sequences become U+FFFD.
func readCSV(r io.Reader) ([][]string, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return records, nil
}

// readXLSX reads the first worksheet with formatted cell values.
func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	raw, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return mergeRawNumbers(rows, raw), nil
}

// mergeRawNumbers keeps full float precision for plain numeric cells, which
// the formatted read rounds to 15 significant digits. Cells whose formatted
// text is not a number (booleans, dates, percentages) stay formatted.
func mergeRawNumbers(rows, raw [][]string) [][]string {
	for i, row := range rows {
		if i >= len(raw) {
			break
		}
		for j, cell := range row {
			if j >= len(raw[i]) || cell == raw[i][j] {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				continue
			}
			if _, err := strconv.ParseFloat(raw[i][j], 64); err == nil {
				row[j] = raw[i][j]
			}
		}
	}
	return rows
}

// tableFromRecords treats the first record as the header.
func tableFromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, errors.New("file is empty, expected a header row")
	}

	header := normalizeHeader(records[0])
	rows := records[1:]
	for i, row := range rows {
		if len(row) > len(header) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", i+2, len(row), len(header))
		}
	}
	return NewTable(header, rows)
}

// normalizeHeader names blank cells "Unnamed: <i>" and suffixes repeated
// names with ".1", ".2", ...
func normalizeHeader(raw []string) []string {
	header := make([]string, len(raw))
	seen := make(map[string]int, len(raw))

	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		header[i] = h
		seen[h]++
	}

	counts := make(map[string]int, len(raw))
	for i, h := range header {
		if seen[h] < 2 {
			continue
		}
		n := counts[h]
		counts[h] = n + 1
		if n == 0 {
			continue
		}
		candidate := h + "." + strconv.Itoa(n)
		for seen[candidate] > 0 {
			n++
			counts[h] = n + 1
			candidate = h + "." + strconv.Itoa(n)
		}
		seen[candidate]++
		header[i] = candidate
	}
	return header
}

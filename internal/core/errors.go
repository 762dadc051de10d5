package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoNumericData means a chart was requested for a table without
	// Number columns. Non-fatal: nothing is rendered.
	ErrNoNumericData = errors.New("no numeric data available for visualization")

	// ErrScatterNeedsTwoColumns is the scatter warning for tables with fewer
	// than two Number columns.
	ErrScatterNeedsTwoColumns = errors.New("need at least 2 numeric columns for scatter plot")

	ErrColumnNotNumeric  = errors.New("column is not numeric")
	ErrUnsupportedExport = errors.New("unsupported export format")
	ErrUnsupportedChart  = errors.New("unsupported chart kind")
	ErrFileTooLarge      = errors.New("file too large")
	ErrNoFile            = errors.New("no file provided")

	// ErrInvalidOption wraps a malformed user option such as an unknown
	// image format or a bad form value.
	ErrInvalidOption = errors.New("invalid option")
)

// UnsupportedFormatError is returned by Load for extensions other than
// .csv and .xlsx.
type UnsupportedFormatError struct {
	FileName string
	Ext      string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("unsupported file type for %s: no extension", e.FileName)
	}
	return fmt.Sprintf("unsupported file type for %s: %s", e.FileName, e.Ext)
}

// ParseError wraps the cause of a malformed file.
type ParseError struct {
	FileName string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %v", e.FileName, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnknownColumnError names a requested column the table does not have.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("column not found: %q", e.Column)
}

// IsNotice reports whether err is a non-fatal visualization outcome that
// should be shown as a notice rather than failing the file.
func IsNotice(err error) bool {
	return errors.Is(err, ErrNoNumericData) || errors.Is(err, ErrScatterNeedsTwoColumns)
}

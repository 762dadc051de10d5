// Package core provides the data pipeline behind dataelevate.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
// Errors related to reading an uploaded file:
//
//	FILE001 - File too large: File exceeds maximum size limit
//	          Action: Split the file into smaller files
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Unsupported type: Only CSV and Excel files can be read
//	          Action: Upload a .csv or .xlsx file
//	          Patterns: "unsupported file type"
//
//	FILE003 - Unreadable file: The file could not be parsed
//	          Action: Check that every row has the same columns as the header
//	          Patterns: "parse error"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a CSV or Excel file to upload
//	          Patterns: "no file provided"
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Column not found: A selected column does not exist
//	         Action: Pick columns from the file's header
//	         Patterns: "column not found"
//
//	COL002 - Not numeric: The chosen column does not hold numbers
//	         Action: Pick a numeric column for the chart axes
//	         Patterns: "column is not numeric"
//
// # Visualization Notices (VIS001-VIS099)
//
//	VIS001 - No numeric data: Nothing to plot
//	VIS002 - Scatter needs two numeric columns
//	VIS003 - Unknown chart kind
//	VIS004 - Chart could not be drawn
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Unsupported export format
//	EXP002 - Export failed while writing the output
//
// # Request Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many files being processed
//	UPL004 - Request cancelled
//	UPL005 - Request timeout
//	UPL006 - Invalid option value
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches.
//
// # Matching
//
// Typed errors and sentinels are recognised first with errors.Is and
// errors.As, so file and column names inside a message never pick the
// code. Errors without a typed match fall back to case-insensitive
// strings.Contains over the message. In both passes the first entry wins.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`          // What happened (user-friendly)
	Action  string `json:"action"`           // What to do about it
	Code    string `json:"code"`             // Error code for support reference
	Detail  string `json:"detail,omitempty"` // Which file or column, and the parse cause
}

// errorPattern maps a typed error or a message pattern to a user message.
type errorPattern struct {
	match   func(error) bool
	pattern string
	msg     UserMessage
}

func matchIs(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

func matchAs[T error]() func(error) bool {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}

// errorPatterns maps errors to user messages. Order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors (FILE001-FILE004)
	// =========================================================================
	{
		match:   matchIs(ErrFileTooLarge),
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "Upload exceeds maximum request size",
			Action:  "Upload fewer or smaller files at once",
			Code:    "FILE001",
		},
	},
	{
		match:   matchAs[*UnsupportedFormatError](),
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Only CSV and Excel files can be read",
			Action:  "Upload a .csv or .xlsx file",
			Code:    "FILE002",
		},
	},
	{
		match:   matchAs[*ParseError](),
		pattern: "parse error",
		msg: UserMessage{
			Message: "The file could not be parsed",
			Action:  "Check that every row has the same columns as the header",
			Code:    "FILE003",
		},
	},
	{
		match:   matchIs(ErrNoFile),
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV or Excel file to upload",
			Code:    "FILE004",
		},
	},

	// =========================================================================
	// Column Errors (COL001-COL002)
	// =========================================================================
	{
		match:   matchAs[*UnknownColumnError](),
		pattern: "column not found",
		msg: UserMessage{
			Message: "A selected column does not exist",
			Action:  "Pick columns from the file's header",
			Code:    "COL001",
		},
	},
	{
		match:   matchIs(ErrColumnNotNumeric),
		pattern: "column is not numeric",
		msg: UserMessage{
			Message: "The chosen column does not hold numbers",
			Action:  "Pick a numeric column for the chart axes",
			Code:    "COL002",
		},
	},

	// =========================================================================
	// Visualization Notices (VIS001-VIS004)
	// These are shown next to the report, the file is still processed.
	// =========================================================================
	{
		match:   matchIs(ErrNoNumericData),
		pattern: "no numeric data",
		msg: UserMessage{
			Message: "No numeric data available for visualization",
			Action:  "Choose columns that contain numbers to draw a chart",
			Code:    "VIS001",
		},
	},
	{
		match:   matchIs(ErrScatterNeedsTwoColumns),
		pattern: "at least 2 numeric columns",
		msg: UserMessage{
			Message: "Need at least 2 numeric columns for scatter plot",
			Action:  "Pick another chart type or include a second numeric column",
			Code:    "VIS002",
		},
	},
	{
		match:   matchIs(ErrUnsupportedChart),
		pattern: "unsupported chart kind",
		msg: UserMessage{
			Message: "Unknown chart type",
			Action:  "Use bar, line, area or scatter",
			Code:    "VIS003",
		},
	},
	{
		match:   matchIs(errNothingToPlot),
		pattern: "render chart",
		msg: UserMessage{
			Message: "The chart could not be drawn",
			Action:  "Check that the plotted columns have more than one distinct value",
			Code:    "VIS004",
		},
	},

	// =========================================================================
	// Request Errors (UPL002-UPL006)
	// =========================================================================
	{
		match:   matchIs(ErrTooManyRequests),
		pattern: "too many concurrent",
		msg: UserMessage{
			Message: "System is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		match:   matchIs(context.Canceled),
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		match:   matchIs(context.DeadlineExceeded),
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		match:   matchIs(ErrInvalidOption),
		pattern: "invalid option",
		msg: UserMessage{
			Message: "An option has an invalid value",
			Action:  "Check the selected options and submit again",
			Code:    "UPL006",
		},
	},

	// =========================================================================
	// Export Errors (EXP001-EXP002)
	// =========================================================================
	{
		match:   matchIs(ErrUnsupportedExport),
		pattern: "unsupported export format",
		msg: UserMessage{
			Message: "Unsupported export format",
			Action:  "Export as CSV or Excel",
			Code:    "EXP001",
		},
	},
	{
		pattern: "export",
		msg: UserMessage{
			Message: "The export could not be written",
			Action:  "Please try again",
			Code:    "EXP002",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// Support staff should check application logs for the original technical
// error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed errors are matched first, then the message patterns
// (case-insensitive). If nothing matches, a generic fallback message with
// code ERR000 is returned. Errors naming a file or column carry it in
// Detail; a ParseError also carries its cause.
//
// Example:
//
//	err := &UnknownColumnError{Column: "price"}
//	msg := MapError(err)
//	// msg.Code == "COL001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	msg, ok := matchError(err)
	if !ok {
		return defaultMessage
	}
	msg.Detail = detailFor(err)
	return msg
}

func matchError(err error) (UserMessage, bool) {
	for _, ep := range errorPatterns {
		if ep.match != nil && ep.match(err) {
			return ep.msg, true
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if ep.pattern != "" && strings.Contains(errStr, ep.pattern) {
			return ep.msg, true
		}
	}
	return UserMessage{}, false
}

// detailFor returns the specifics of errors that are safe to show.
func detailFor(err error) string {
	var (
		parse       *ParseError
		unsupported *UnsupportedFormatError
		unknown     *UnknownColumnError
	)
	switch {
	case errors.As(err, &parse):
		return fmt.Sprintf("Error processing %s: %v", parse.FileName, parse.Err)
	case errors.As(err, &unsupported):
		return unsupported.Error()
	case errors.As(err, &unknown):
		return fmt.Sprintf("%q is not a column of this file", unknown.Column)
	}
	return ""
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message: Detail (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	text := msg.Message
	if msg.Detail != "" {
		text += ": " + msg.Detail
	}
	return fmt.Sprintf("%s (Code: %s). %s", text, msg.Code, msg.Action)
}

// IsUserFacing reports whether an error matches a known pattern rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	_, ok := matchError(err)
	return ok
}

package core

// convert.go classifies raw cell text into the column kinds a Table carries.
//
// User files arrive with the usual spreadsheet noise:
//   - Excel formula prefixes (="00123")
//   - Stray whitespace around values
//   - Several spellings of "missing" (NA, N/A, null, #N/A, ...)
//   - Dates in US, EU and ISO layouts
//
// The helpers here never alter a value beyond CleanCell; they only decide
// what a cell is, so loaded text round-trips unchanged through export.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a plain numeric literal.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// missingTokens are the cell values read as missing, matched after CleanCell.
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"#N/A": {},
	"None": {},
	"<NA>": {},
}

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"2006-01-02 15:04:05", "2006-01-02T15:04:05", time.RFC3339,
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006", "January 2, 2006",
	}
)

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return s
}

// IsMissing reports whether a cleaned cell value denotes a missing value.
func IsMissing(s string) bool {
	_, ok := missingTokens[s]
	return ok
}

// IsNumber reports whether s is a plain numeric literal.
func IsNumber(s string) bool {
	return numericRegex.MatchString(s)
}

// IsInteger reports whether s is a numeric literal that fits an int64.
func IsInteger(s string) bool {
	if !IsNumber(s) {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// ParseBool accepts true/false in any letter case.
func ParseBool(s string) (value bool, ok bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

// ParseDate parses s with the supported date layouts.
// Two-digit years beyond the pivot are placed in the previous century.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// kindCandidates tracks which kinds are still possible while scanning a column.
type kindCandidates struct {
	present int
	integer bool
	number  bool
	boolean bool
	date    bool
}

func newKindCandidates() kindCandidates {
	return kindCandidates{integer: true, number: true, boolean: true, date: true}
}

// observe narrows the candidates with one cleaned, non-missing value.
func (k *kindCandidates) observe(s string) {
	k.present++
	if k.number && !IsNumber(s) {
		k.number = false
		k.integer = false
	}
	if k.integer && !IsInteger(s) {
		k.integer = false
	}
	if k.boolean {
		if _, ok := ParseBool(s); !ok {
			k.boolean = false
		}
	}
	// Pure numbers such as 20240102 are never dates.
	if k.date && (k.number || !isDateLike(s)) {
		k.date = false
	}
}

func isDateLike(s string) bool {
	_, ok := ParseDate(s)
	return ok
}

// result resolves the narrowest kind consistent with every observed value.
// integer reports whether a Number column holds only integers. A column
// with no values at all is an all-missing Number column.
func (k kindCandidates) result() (kind ColumnKind, integer bool) {
	switch {
	case k.present == 0:
		return KindNumber, false
	case k.number:
		return KindNumber, k.integer
	case k.boolean:
		return KindBoolean, false
	case k.date:
		return KindDate, false
	default:
		return KindText, false
	}
}

// FormatNumber renders a float in the shortest form that parses back exactly.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

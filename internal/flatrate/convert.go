package flatrate

// convert.go turns staged text cells into PostgreSQL values. Import files
// come from spreadsheets and older ERP exports, so dates show up in many
// layouts and cells carry Excel artifacts.

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted. Years more
// than this many years in the future are moved to the previous century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "2.1.06", "02.01.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"02.01.2006", "2.1.2006",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
)

// HeaderIndex maps lowercased header names to their column position.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a HeaderIndex from a header row.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// Cell returns the cleaned value of the named column, or "" when the column
// is absent or the row is short.
func (h HeaderIndex) Cell(row []string, name string) string {
	pos, ok := h[strings.ToLower(name)]
	if !ok || pos >= len(row) {
		return ""
	}
	return CleanCell(row[pos])
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, the Excel formula prefix (="...") and surrounding
// quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(unquote(s))
}

// unquote removes one matching pair of surrounding quotes. Unpaired quote
// characters are part of the value.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// ToPgText converts a string to pgtype.Text. Blank strings become NULL.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgDate parses s with the supported layouts. Blank or unparsable input
// returns an invalid date.
func ToPgDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{}
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Date{Time: dateOnly(t), Valid: true}
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Date{Time: dateOnly(t), Valid: true}
		}
	}

	return pgtype.Date{}
}

// termEndDate returns the last day of a term of months starting at start.
func termEndDate(start pgtype.Date, months int32) pgtype.Date {
	if !start.Valid || months <= 0 {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: addMonths(start.Time, int(months)).AddDate(0, 0, -1), Valid: true}
}

// addMonths moves t by months, clamping the day to the end of the target
// month: Jan 31 + 1 month is the last day of February.
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

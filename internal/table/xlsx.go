package table

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// MaxRows caps the number of data rows accepted from a single sheet.
const MaxRows = 10000

// ParseXLSX reads the first sheet of an .xlsx workbook. The first row is the
// header. Cells are taken as raw values, without number formatting, except
// date-formatted cells which are rendered as dates.
func ParseXLSX(r io.Reader) (*Table, error) {
	if r == nil {
		return nil, errors.New("table: reader must not be nil")
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("table: open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("table: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("table: read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("table: sheet %q is empty", sheets[0])
	}
	if len(rows)-1 > MaxRows {
		return nil, fmt.Errorf("table: too many rows (> %d)", MaxRows)
	}
	if err := renderDates(f, sheets[0], rows); err != nil {
		return nil, err
	}
	return New(rows[0], rows[1:])
}

// renderDates replaces the serial numbers of date-formatted data cells with
// ISO dates, adding the time of day only when there is one.
func renderDates(f *excelize.File, sheet string, rows [][]string) error {
	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	isDate := map[int]bool{}
	for r := 1; r < len(rows); r++ {
		for c, v := range rows[r] {
			serial, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("table: cell name: %w", err)
			}
			idx, err := f.GetCellStyle(sheet, cell)
			if err != nil || idx == 0 {
				continue
			}
			dated, seen := isDate[idx]
			if !seen {
				dated = dateStyle(f, idx)
				isDate[idx] = dated
			}
			if !dated {
				continue
			}
			ts, err := excelize.ExcelDateToTime(serial, date1904)
			if err != nil {
				continue
			}
			if ts.Hour() == 0 && ts.Minute() == 0 && ts.Second() == 0 {
				rows[r][c] = ts.Format(time.DateOnly)
			} else {
				rows[r][c] = ts.Format(time.DateTime)
			}
		}
	}
	return nil
}

func dateStyle(f *excelize.File, idx int) bool {
	style, err := f.GetStyle(idx)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return dateFormat(*style.CustomNumFmt)
	}
	switch n := style.NumFmt; {
	case n >= 14 && n <= 22, n >= 27 && n <= 36, n >= 45 && n <= 47, n >= 50 && n <= 58:
		return true
	}
	return false
}

// dateFormat reports whether a custom number format contains date or time
// tokens outside quoted literals, escapes and bracketed sections.
func dateFormat(code string) bool {
	quoted, bracket, escaped := false, false, false
	for _, ch := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"':
			quoted = !quoted
		case quoted:
		case ch == '[':
			bracket = true
		case ch == ']':
			bracket = false
		case bracket:
		case ch == 'y', ch == 'd', ch == 'h':
			return true
		}
	}
	return false
}

// Package table holds the uploaded dataset in memory and answers column
// aggregation queries over it.
package table

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrMissingColumn is returned when a query names a column the table lacks.
	ErrMissingColumn = errors.New("table: missing column")
	// ErrNotNumeric is returned when a numeric query meets a non-numeric cell.
	ErrNotNumeric = errors.New("table: column is not numeric")
)

// Table is an immutable, column-named grid of scalar cells. Every row holds
// exactly one cell per column.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New builds a Table from a header row and data rows. Blank headers become
// Column_<n>, repeated headers get a ".1", ".2"... suffix and rows are padded
// with empty cells to the header width. Cells beyond the header width get
// generated column names.
func New(header []string, rows [][]string) (*Table, error) {
	width := len(header)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil, errors.New("table: no columns")
	}

	columns := normalizeHeader(header, width)
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}

	cells := make([][]string, len(rows))
	for i, row := range rows {
		padded := make([]string, width)
		copy(padded, row)
		cells[i] = padded
	}
	return &Table{columns: columns, index: index, rows: cells}, nil
}

func normalizeHeader(header []string, width int) []string {
	columns := make([]string, width)
	used := make(map[string]bool, width)
	suffix := make(map[string]int, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("Column_%d", i+1)
		}
		candidate := name
		for used[candidate] {
			suffix[name]++
			candidate = fmt.Sprintf("%s.%d", name, suffix[name])
		}
		used[candidate] = true
		columns[i] = candidate
	}
	return columns
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Rows returns a copy of the data rows.
func (t *Table) Rows() [][]string {
	out := make([][]string, len(t.rows))
	for i, row := range t.rows {
		cp := make([]string, len(row))
		copy(cp, row)
		out[i] = cp
	}
	return out
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Column returns the cells of the named column.
func (t *Table) Column(name string) ([]string, error) {
	idx, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Sum adds up the numeric cells of the named column. Empty cells are skipped.
func (t *Table) Sum(name string) (float64, error) {
	values, err := t.numbers(name)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, v := range values {
		if v.ok {
			total += v.n
		}
	}
	return total, nil
}

// Top returns up to n rows with the largest values in column by, in
// descending order, projected onto the given columns. Ties keep their original
// row order and rows with an empty value in by are skipped.
func (t *Table) Top(n int, by string, project ...string) ([]Record, error) {
	values, err := t.numbers(by)
	if err != nil {
		return nil, err
	}
	projected := make([]int, len(project))
	for i, name := range project {
		idx, ok := t.index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		projected[i] = idx
	}

	order := make([]int, 0, len(values))
	for i, v := range values {
		if v.ok {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]].n > values[order[b]].n
	})
	if n < 0 {
		n = 0
	}
	if len(order) > n {
		order = order[:n]
	}

	byIdx := t.index[by]
	records := make([]Record, 0, len(order))
	for _, row := range order {
		rec := make(Record, len(project))
		for i, col := range projected {
			value := t.rows[row][col]
			if col == byIdx {
				value = FormatNumber(values[row].n)
			}
			rec[i] = Field{Column: project[i], Value: value}
		}
		records = append(records, rec)
	}
	return records, nil
}

type number struct {
	n  float64
	ok bool
}

func (t *Table) numbers(name string) ([]number, error) {
	cells, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]number, len(cells))
	for i, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q row %d: %q", ErrNotNumeric, name, i+1, cell)
		}
		out[i] = number{n: v, ok: true}
	}
	return out, nil
}

// FormatNumber renders v with the fewest digits that represent it exactly.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Field is one projected cell of a Record.
type Field struct {
	Column string
	Value  string
}

// Record is an ordered projection of a single row.
type Record []Field

func (r Record) String() string {
	parts := make([]string, len(r))
	for i, f := range r {
		parts[i] = f.Column + ": " + f.Value
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

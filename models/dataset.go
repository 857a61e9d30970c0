package models

import (
	"fmt"
	"strconv"
	"time"
)

// CellKind tells which field of a Cell carries the value.
type CellKind int

const (
	KindNull CellKind = iota
	KindText
	KindNumber
	KindTime
)

// Cell is one nullable, typed value of a Dataset.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Time   time.Time
}

func NullCell() Cell            { return Cell{Kind: KindNull} }
func TextCell(s string) Cell    { return Cell{Kind: KindText, Text: s} }
func NumberCell(f float64) Cell { return Cell{Kind: KindNumber, Number: f} }
func TimeCell(t time.Time) Cell { return Cell{Kind: KindTime, Time: t} }

// IsNull reports whether the cell holds no value.
func (c Cell) IsNull() bool { return c.Kind == KindNull }

// String renders the cell for delimited output. Null renders as "".
func (c Cell) String() string {
	switch c.Kind {
	case KindText:
		return c.Text
	case KindNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case KindTime:
		return c.Time.Format(time.RFC3339)
	default:
		return ""
	}
}

// Key is a stable encoding of kind and value, used to compare whole rows.
func (c Cell) Key() string {
	switch c.Kind {
	case KindText:
		return "s:" + c.Text
	case KindNumber:
		return "n:" + strconv.FormatFloat(c.Number, 'g', -1, 64)
	case KindTime:
		return "t:" + c.Time.UTC().Format(time.RFC3339Nano)
	default:
		return "0"
	}
}

// Dataset is an in-memory table: ordered column names and rows of cells.
type Dataset struct {
	Columns []string
	Rows    [][]Cell
}

// NewDataset creates an empty Dataset with the given columns.
func NewDataset(columns []string) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{Columns: cols}
}

// Append adds a row, which must have one cell per column.
func (d *Dataset) Append(row []Cell) error {
	if len(row) != len(d.Columns) {
		return fmt.Errorf("dataset: row has %d cells, expected %d", len(row), len(d.Columns))
	}
	d.Rows = append(d.Rows, row)
	return nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// ColumnIndex returns the position of name, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// MissingCounts returns the number of null cells per column.
func (d *Dataset) MissingCounts() map[string]int {
	counts := make(map[string]int, len(d.Columns))
	for _, c := range d.Columns {
		counts[c] = 0
	}
	for _, row := range d.Rows {
		for i, cell := range row {
			if cell.IsNull() {
				counts[d.Columns[i]]++
			}
		}
	}
	return counts
}

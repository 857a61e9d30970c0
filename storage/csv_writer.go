package storage

import (
	"encoding/csv"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"ride-etl/models"
)

// CellFormatter renders one cell of the named column as a field.
type CellFormatter func(column string, cell models.Cell) string

// DefaultFormatter writes null as an empty field and everything else with
// Cell.String.
func DefaultFormatter(_ string, cell models.Cell) string {
	return cell.String()
}

// CSVWriter writes a dataset to a delimited file.
type CSVWriter struct {
	file    afero.File
	writer  *csv.Writer
	columns []string
	format  CellFormatter
}

// NewCSVWriter creates (or truncates) the file at path and writes the header
// row. Intermediate directories are created automatically.
func NewCSVWriter(fs afero.Fs, path string, columns []string, format CellFormatter) (*CSVWriter, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}

	if format == nil {
		format = DefaultFormatter
	}
	return &CSVWriter{file: f, writer: w, columns: columns, format: format}, nil
}

// WriteRows appends the rows of ds.
func (c *CSVWriter) WriteRows(ds *models.Dataset) error {
	record := make([]string, len(c.columns))
	for _, row := range ds.Rows {
		for i, cell := range row {
			record[i] = c.format(c.columns[i], cell)
		}
		if err := c.writer.Write(record); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		_ = c.file.Close()
		return err
	}
	return c.file.Close()
}

// WriteDataset writes ds to path in one go, overwriting any previous file.
func WriteDataset(fs afero.Fs, path string, ds *models.Dataset, format CellFormatter) error {
	w, err := NewCSVWriter(fs, path, ds.Columns, format)
	if err != nil {
		return err
	}
	if err := w.WriteRows(ds); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

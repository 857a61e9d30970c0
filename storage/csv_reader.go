package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"ride-etl/models"
)

// ErrHeaderMismatch is returned when a source file header does not list the
// expected columns in the expected order.
var ErrHeaderMismatch = errors.New("header does not match table columns")

// SourceReader streams the rows of a delimited source file. A leading byte
// order mark is honoured and dropped.
type SourceReader struct {
	file   afero.File
	reader *csv.Reader
	header []string
}

// OpenSource opens path on fs and reads its header row. When expected is
// non-nil the header must match it (case-insensitive, surrounding spaces
// ignored).
func OpenSource(fs afero.Fs, path string, expected []string) (*SourceReader, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %q: %w", path, err)
	}

	r := csv.NewReader(transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder())))

	header, err := r.Read()
	if err != nil {
		_ = f.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("source: %q is empty: no header row found", path)
		}
		return nil, fmt.Errorf("source: read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	if expected != nil {
		if err := matchHeader(header, expected); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("source: %q: %w", path, err)
		}
	}

	return &SourceReader{file: f, reader: r, header: header}, nil
}

func matchHeader(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: got %d columns, expected %d", ErrHeaderMismatch, len(got), len(want))
	}
	for i := range want {
		if !strings.EqualFold(got[i], want[i]) {
			return fmt.Errorf("%w: column %d is %q, expected %q", ErrHeaderMismatch, i+1, got[i], want[i])
		}
	}
	return nil
}

// Header returns the trimmed header row.
func (s *SourceReader) Header() []string {
	return s.header
}

// Next returns the next row with the literal "null" token mapped to nil.
// Rows with a different field count than the header are an error.
func (s *SourceReader) Next() ([]any, error) {
	record, err := s.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("source: %w", err)
	}

	row := make([]any, len(record))
	for i, v := range record {
		if v == models.NullToken {
			row[i] = nil
		} else {
			row[i] = v
		}
	}
	return row, nil
}

// Close releases the underlying file.
func (s *SourceReader) Close() error {
	return s.file.Close()
}

// ReadAll loads a whole delimited file as its header and raw string rows.
func ReadAll(fs afero.Fs, path string) ([]string, [][]string, error) {
	src, err := OpenSource(fs, path, nil)
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	var rows [][]string
	for {
		record, err := src.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("source: %w", err)
		}
		rows = append(rows, record)
	}
	return src.header, rows, nil
}

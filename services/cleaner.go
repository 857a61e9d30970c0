package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"ride-etl/config"
	"ride-etl/models"
	"ride-etl/utils"
)

var (
	// ErrMissingColumn is returned when a column the cleaning rules rely on
	// is absent from the dataset.
	ErrMissingColumn = errors.New("required column missing")
	// ErrEmptyNumericColumn is returned under the "fail" policy when a numeric
	// column has no parseable value to take a mean from.
	ErrEmptyNumericColumn = errors.New("numeric column has no values")
)

// Layouts tried for the time column before falling back to dateparse.
var clockLayouts = []string{"15:04:05", "15:04", "3:04:05 PM", "3:04 PM"}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// CleanReport summarises one Clean call.
type CleanReport struct {
	RowsIn       int
	Duplicates   int
	RowsOut      int
	DateFailures int
	TimeFailures int
	// Imputed holds the value used to fill each numeric column.
	Imputed map[string]float64
	// EmptyNumeric lists numeric columns that had no parseable value.
	EmptyNumeric []string
	// MissingAfter counts null cells per column once cleaning is done.
	MissingAfter map[string]int
}

// Cleaner turns an extracted trip dataset into the cleaned form written to
// the clean file.
type Cleaner struct {
	logger *utils.Logger
	policy string
}

// NewCleaner creates a Cleaner. policy is one of the config.EmptyNumeric*
// values; anything else behaves like config.EmptyNumericZero.
func NewCleaner(logger *utils.Logger, policy string) *Cleaner {
	return &Cleaner{logger: logger.Named("cleaner"), policy: policy}
}

// Clean applies the cleaning rules in order and returns a new dataset. The
// input is not modified.
func (c *Cleaner) Clean(in *models.Dataset) (*models.Dataset, *CleanReport, error) {
	report := &CleanReport{RowsIn: in.Len(), Imputed: make(map[string]float64)}

	// 1. exact duplicates
	ds := c.dropDuplicates(in)
	report.Duplicates = in.Len() - ds.Len()
	report.RowsOut = ds.Len()
	c.logger.Info("Rows after removing duplicates: %d (dropped %d)", ds.Len(), report.Duplicates)

	// 2. column names
	for i, name := range ds.Columns {
		ds.Columns[i] = NormalizeColumnName(name)
	}
	c.logger.Debug("Normalized columns: %v", ds.Columns)

	required := append([]string{models.DateColumn, models.TimeColumn}, models.NumericColumns...)
	for _, name := range required {
		if ds.ColumnIndex(name) < 0 {
			c.logger.Error("Column %q not found in %v", name, ds.Columns)
			return nil, nil, fmt.Errorf("cleaner: %q: %w", name, ErrMissingColumn)
		}
	}

	// 3. temporal columns
	report.DateFailures = c.parseColumn(ds, models.DateColumn, parseDate)
	report.TimeFailures = c.parseColumn(ds, models.TimeColumn, parseClock)

	// 4. null tokens
	for _, row := range ds.Rows {
		for i, cell := range row {
			if cell.Kind == models.KindText && cell.Text == models.NullToken {
				row[i] = models.NullCell()
			}
		}
	}

	// 5. numeric coercion and mean imputation
	numeric := make(map[string]bool, len(models.NumericColumns))
	for _, name := range models.NumericColumns {
		numeric[name] = true
		fill, ok, err := c.imputeNumeric(ds, name)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			report.EmptyNumeric = append(report.EmptyNumeric, name)
			continue
		}
		report.Imputed[name] = fill
	}

	// 6. free text
	for i, name := range ds.Columns {
		if numeric[name] || name == models.DateColumn || name == models.TimeColumn {
			continue
		}
		for _, row := range ds.Rows {
			cell := row[i]
			if cell.IsNull() || (cell.Kind == models.KindText && strings.TrimSpace(cell.Text) == "") {
				row[i] = models.TextCell(models.UnknownValue)
			}
		}
	}

	report.MissingAfter = ds.MissingCounts()
	counts := make([]string, len(ds.Columns))
	for i, name := range ds.Columns {
		counts[i] = name + "=" + strconv.Itoa(report.MissingAfter[name])
	}
	c.logger.Info("Missing values after cleaning: %s", strings.Join(counts, " "))
	return ds, report, nil
}

func (c *Cleaner) dropDuplicates(in *models.Dataset) *models.Dataset {
	out := models.NewDataset(in.Columns)
	seen := utils.NewKeySet()
	var b strings.Builder
	for _, row := range in.Rows {
		b.Reset()
		for _, cell := range row {
			b.WriteString(cell.Key())
			b.WriteByte(0x1f)
		}
		if !seen.Add(b.String()) {
			continue
		}
		cp := make([]models.Cell, len(row))
		copy(cp, row)
		out.Rows = append(out.Rows, cp)
	}
	return out
}

// parseColumn replaces the text cells of column with parsed timestamps and
// returns how many non-null values could not be parsed.
func (c *Cleaner) parseColumn(ds *models.Dataset, column string, parse func(string) (time.Time, error)) int {
	idx := ds.ColumnIndex(column)
	failures := 0
	for _, row := range ds.Rows {
		cell := row[idx]
		if cell.Kind != models.KindText {
			row[idx] = models.NullCell()
			continue
		}
		t, err := parse(strings.TrimSpace(cell.Text))
		if err != nil {
			if cell.Text != models.NullToken {
				failures++
				c.logger.Debug("Unparseable %s %q set to null", column, cell.Text)
			}
			row[idx] = models.NullCell()
			continue
		}
		row[idx] = models.TimeCell(t)
	}
	if failures > 0 {
		c.logger.Warn("%d %s values could not be parsed", failures, column)
	}
	return failures
}

func (c *Cleaner) imputeNumeric(ds *models.Dataset, column string) (float64, bool, error) {
	idx := ds.ColumnIndex(column)
	var sum float64
	var parsed, missing int

	for _, row := range ds.Rows {
		f, ok := toNumber(row[idx])
		if !ok {
			row[idx] = models.NullCell()
			missing++
			continue
		}
		row[idx] = models.NumberCell(f)
		sum += f
		parsed++
	}

	if parsed > 0 {
		mean := sum / float64(parsed)
		fillNulls(ds, idx, mean)
		if missing > 0 {
			c.logger.Debug("Filled %d missing %s values with mean %g", missing, column, mean)
		}
		return mean, true, nil
	}
	if missing == 0 {
		return 0, true, nil
	}

	switch c.policy {
	case config.EmptyNumericFail:
		c.logger.Error("Column %s has no numeric values to impute from", column)
		return 0, false, fmt.Errorf("cleaner: %q: %w", column, ErrEmptyNumericColumn)
	case config.EmptyNumericLeave:
		c.logger.Warn("Column %s has no numeric values, leaving %d missing", column, missing)
		return 0, false, nil
	default:
		c.logger.Warn("Column %s has no numeric values, filling %d with 0", column, missing)
		fillNulls(ds, idx, 0)
		return 0, false, nil
	}
}

func fillNulls(ds *models.Dataset, idx int, v float64) {
	for _, row := range ds.Rows {
		if row[idx].IsNull() {
			row[idx] = models.NumberCell(v)
		}
	}
}

func toNumber(cell models.Cell) (float64, bool) {
	switch cell.Kind {
	case models.KindNumber:
		return cell.Number, !math.IsNaN(cell.Number) && !math.IsInf(cell.Number, 0)
	case models.KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(cell.Text), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	return dateparse.ParseIn(s, time.UTC)
}

func parseClock(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty time")
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return dateparse.ParseIn(s, time.UTC)
}

// NormalizeColumnName lower-cases name, turns spaces into underscores and
// drops quote characters. Applying it twice gives the same result.
func NormalizeColumnName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, `"`, "")
	return strings.ReplaceAll(name, "'", "")
}

// CleanedFormatter renders the date and time columns in their cleaned
// layouts and everything else like the default formatter.
func CleanedFormatter(column string, cell models.Cell) string {
	if cell.Kind == models.KindTime {
		switch column {
		case models.DateColumn:
			return cell.Time.Format(dateLayout)
		case models.TimeColumn:
			return cell.Time.Format(timeLayout)
		}
	}
	return cell.String()
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lib/pq"

	"ride-etl/config"
	"ride-etl/models"
	"ride-etl/utils"
)

// ErrRowShape is returned when a row does not have one value per column.
var ErrRowShape = errors.New("row does not match table columns")

// TripTable persists raw trip records in a single all-text table.
type TripTable struct {
	db      *sql.DB
	dialect Dialect
	name    string
}

// OpenTripTable connects to the configured database and returns a handle on
// the trips table. Each stage opens its own and closes it when done.
func OpenTripTable(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*TripTable, error) {
	db, dialect, err := Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewTripTable(db, dialect, cfg.TableName), nil
}

// NewTripTable wraps an existing connection.
func NewTripTable(db *sql.DB, dialect Dialect, name string) *TripTable {
	return &TripTable{db: db, dialect: dialect, name: name}
}

func (t *TripTable) quotedName() string {
	return pq.QuoteIdentifier(t.name)
}

// Recreate drops the table if present and creates it empty.
func (t *TripTable) Recreate(ctx context.Context) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("trips: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+t.quotedName()); err != nil {
		return fmt.Errorf("trips: drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, t.createTableSQL()); err != nil {
		return fmt.Errorf("trips: create table: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("trips: commit ddl: %w", err)
	}
	return nil
}

func (t *TripTable) createTableSQL() string {
	defs := make([]string, len(models.TripColumns))
	for i, c := range models.TripColumns {
		defs[i] = fmt.Sprintf("\t%s VARCHAR(%d)", pq.QuoteIdentifier(c.Name), c.Width)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", t.quotedName(), strings.Join(defs, ",\n"))
}

func (t *TripTable) insertSQL() string {
	cols := make([]string, len(models.TripColumns))
	marks := make([]string, len(models.TripColumns))
	for i, c := range models.TripColumns {
		cols[i] = pq.QuoteIdentifier(c.Name)
		marks[i] = t.dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.quotedName(), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// Count returns the number of rows currently in the table.
func (t *TripTable) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := t.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.quotedName()).Scan(&n); err != nil {
		return 0, fmt.Errorf("trips: count: %w", err)
	}
	return n, nil
}

// InsertAll drains src into the table inside one transaction and commits once
// at the end. Any failing row rolls back everything inserted so far.
func (t *TripTable) InsertAll(ctx context.Context, src RowSource) (int, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("trips: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, t.insertSQL())
	if err != nil {
		return 0, fmt.Errorf("trips: prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("trips: row %d: %w", inserted+1, err)
		}
		if len(row) != len(models.TripColumns) {
			return 0, fmt.Errorf("trips: row %d has %d values, expected %d: %w",
				inserted+1, len(row), len(models.TripColumns), ErrRowShape)
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("trips: insert row %d: %w", inserted+1, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("trips: commit: %w", err)
	}
	return inserted, nil
}

// FetchAll reads every row and column with SELECT *, in the order the store
// returns them. SQL NULL becomes a null cell.
func (t *TripTable) FetchAll(ctx context.Context) (*models.Dataset, error) {
	rows, err := t.db.QueryContext(ctx, "SELECT * FROM "+t.quotedName())
	if err != nil {
		return nil, fmt.Errorf("trips: fetch all: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("trips: columns: %w", err)
	}

	ds := models.NewDataset(columns)
	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("trips: scan row: %w", err)
		}
		row := make([]models.Cell, len(columns))
		for i, v := range values {
			if v.Valid {
				row[i] = models.TextCell(v.String)
			} else {
				row[i] = models.NullCell()
			}
		}
		if err := ds.Append(row); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trips: iterate rows: %w", err)
	}
	return ds, nil
}

func (t *TripTable) Close() error {
	return t.db.Close()
}

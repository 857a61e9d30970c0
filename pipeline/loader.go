package pipeline

import (
	"context"

	"github.com/spf13/afero"

	"ride-etl/config"
	"ride-etl/models"
	"ride-etl/storage"
	"ride-etl/utils"
)

// LoadResult reports what the loader did.
type LoadResult struct {
	// Skipped is true when the table already held rows.
	Skipped  bool
	Inserted int
}

// Loader streams the source file into the trips table.
type Loader struct {
	cfg    *config.Config
	fs     afero.Fs
	logger *utils.Logger
}

func NewLoader(cfg *config.Config, fs afero.Fs, logger *utils.Logger) *Loader {
	return &Loader{cfg: cfg, fs: fs, logger: logger.Named("loader")}
}

// Run inserts every row of the source file in one transaction, unless the
// table is already populated.
func (l *Loader) Run(ctx context.Context) (_ *LoadResult, err error) {
	table, err := storage.OpenTripTable(ctx, l.cfg, l.logger)
	if err != nil {
		l.logger.Error("Failed to connect to database: %v", err)
		return nil, err
	}
	defer closeInto(&err, table, "database")

	existing, err := table.Count(ctx)
	if err != nil {
		l.logger.Error("Failed to count rows in %s: %v", l.cfg.TableName, err)
		return nil, err
	}
	if existing > 0 {
		l.logger.Info("Table %s already has %d rows, skipping insert", l.cfg.TableName, existing)
		return &LoadResult{Skipped: true}, nil
	}

	src, err := storage.OpenSource(l.fs, l.cfg.SourceCSVPath, models.TripColumnNames())
	if err != nil {
		l.logger.Error("Failed to open source file: %v", err)
		return nil, err
	}
	defer closeInto(&err, src, "source file")

	n, err := table.InsertAll(ctx, src)
	if err != nil {
		l.logger.Error("Failed to insert data, nothing was committed: %v", err)
		return nil, err
	}

	l.logger.Info("Inserted %d rows into %s", n, l.cfg.TableName)
	return &LoadResult{Inserted: n}, nil
}

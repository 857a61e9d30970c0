package pipeline

import (
	"context"

	"ride-etl/config"
	"ride-etl/storage"
	"ride-etl/utils"
)

// SchemaInitializer drops and recreates the trips table.
type SchemaInitializer struct {
	cfg    *config.Config
	logger *utils.Logger
}

func NewSchemaInitializer(cfg *config.Config, logger *utils.Logger) *SchemaInitializer {
	return &SchemaInitializer{cfg: cfg, logger: logger.Named("schema")}
}

// Run leaves an empty table with the fixed trip columns. Running it again
// gives the same result.
func (s *SchemaInitializer) Run(ctx context.Context) (err error) {
	table, err := storage.OpenTripTable(ctx, s.cfg, s.logger)
	if err != nil {
		s.logger.Error("Failed to connect to database: %v", err)
		return err
	}
	defer closeInto(&err, table, "database")
	s.logger.Debug("Connected to %s database", s.cfg.DBDriver)

	if err := table.Recreate(ctx); err != nil {
		s.logger.Error("Failed to create table %s: %v", s.cfg.TableName, err)
		return err
	}

	s.logger.Info("Table %s created", s.cfg.TableName)
	return nil
}

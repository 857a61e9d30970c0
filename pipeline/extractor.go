package pipeline

import (
	"context"

	"ride-etl/config"
	"ride-etl/models"
	"ride-etl/storage"
	"ride-etl/utils"
)

// Extractor reads the whole trips table into a payload.
type Extractor struct {
	cfg    *config.Config
	logger *utils.Logger
}

func NewExtractor(cfg *config.Config, logger *utils.Logger) *Extractor {
	return &Extractor{cfg: cfg, logger: logger.Named("extractor")}
}

// Extract returns every row and column of the table, unchanged.
func (e *Extractor) Extract(ctx context.Context) (_ models.Payload, err error) {
	table, err := storage.OpenTripTable(ctx, e.cfg, e.logger)
	if err != nil {
		e.logger.Error("Failed to connect to database: %v", err)
		return nil, err
	}
	defer closeInto(&err, table, "database")

	ds, err := table.FetchAll(ctx)
	if err != nil {
		e.logger.Error("Failed to fetch data from %s: %v", e.cfg.TableName, err)
		return nil, err
	}

	payload, err := models.EncodePayload(ds)
	if err != nil {
		e.logger.Error("Failed to encode payload: %v", err)
		return nil, err
	}

	e.logger.Info("Extracted %d rows (%d columns) from %s", ds.Len(), len(ds.Columns), e.cfg.TableName)
	return payload, nil
}

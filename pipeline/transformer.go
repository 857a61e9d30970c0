package pipeline

import (
	"context"

	"github.com/spf13/afero"

	"ride-etl/config"
	"ride-etl/models"
	"ride-etl/services"
	"ride-etl/storage"
	"ride-etl/utils"
)

// TransformResult reports the outcome of one cleaning pass.
type TransformResult struct {
	Path    string
	Clean   *services.CleanReport
	Quality *services.QualityReport
}

// Transformer cleans an extracted payload and writes the clean file.
type Transformer struct {
	cfg      *config.Config
	fs       afero.Fs
	logger   *utils.Logger
	cleaner  *services.Cleaner
	insights *services.InsightService
}

func NewTransformer(cfg *config.Config, fs afero.Fs, logger *utils.Logger) *Transformer {
	named := logger.Named("transformer")
	return &Transformer{
		cfg:      cfg,
		fs:       fs,
		logger:   named,
		cleaner:  services.NewCleaner(named, cfg.EmptyNumericPolicy),
		insights: services.NewInsightService(named),
	}
}

// Transform decodes payload, cleans it and overwrites the clean file.
func (t *Transformer) Transform(ctx context.Context, payload models.Payload) (*TransformResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := models.DecodePayload(payload)
	if err != nil {
		t.logger.Error("Failed to decode payload: %v", err)
		return nil, err
	}

	cleaned, report, err := t.cleaner.Clean(ds)
	if err != nil {
		t.logger.Error("Cleaning failed: %v", err)
		return nil, err
	}

	if err := storage.WriteDataset(t.fs, t.cfg.CleanCSVPath, cleaned, services.CleanedFormatter); err != nil {
		t.logger.Error("Failed to write clean file: %v", err)
		return nil, err
	}
	t.logger.Info("Clean data saved to %s (%d rows)", t.cfg.CleanCSVPath, cleaned.Len())

	quality := t.insights.Generate(cleaned)
	t.insights.Log(quality)

	return &TransformResult{Path: t.cfg.CleanCSVPath, Clean: report, Quality: quality}, nil
}

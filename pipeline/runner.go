package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"ride-etl/config"
	"ride-etl/models"
	"ride-etl/utils"
)

// RunResult collects the outputs of every stage of one run.
type RunResult struct {
	ID        string
	Load      *LoadResult
	Transform *TransformResult
	Publish   *PublishResult
	Duration  time.Duration
}

// Runner executes the five stages strictly in order. The first failing
// stage stops the run.
type Runner struct {
	logger      *utils.Logger
	schema      *SchemaInitializer
	loader      *Loader
	extractor   *Extractor
	transformer *Transformer
	publisher   *Publisher
}

func NewRunner(cfg *config.Config, fs afero.Fs, logger *utils.Logger) *Runner {
	return &Runner{
		logger:      logger.Named("runner"),
		schema:      NewSchemaInitializer(cfg, logger),
		loader:      NewLoader(cfg, fs, logger),
		extractor:   NewExtractor(cfg, logger),
		transformer: NewTransformer(cfg, fs, logger),
		publisher:   NewPublisher(cfg, fs, logger),
	}
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// Run performs one complete pipeline run.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{ID: uuid.NewString()}
	start := time.Now()
	r.logger.Info("Starting run %s", result.ID)

	var payload models.Payload
	steps := []step{
		{StageInitSchema, r.schema.Run},
		{StageLoad, func(ctx context.Context) (err error) {
			result.Load, err = r.loader.Run(ctx)
			return err
		}},
		{StageExtract, func(ctx context.Context) (err error) {
			payload, err = r.extractor.Extract(ctx)
			return err
		}},
		{StageTransform, func(ctx context.Context) (err error) {
			result.Transform, err = r.transformer.Transform(ctx, payload)
			return err
		}},
		{StagePublish, func(ctx context.Context) (err error) {
			result.Publish, err = r.publisher.Publish(ctx)
			return err
		}},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("Run %s cancelled before stage %s", result.ID, s.name)
			return result, fmt.Errorf("pipeline cancelled before stage %s: %w", s.name, err)
		}

		stepStart := time.Now()
		err := s.run(ctx)
		elapsed := time.Since(stepStart)

		if err != nil {
			r.logger.Error("Run %s failed at stage %s after %v: %v", result.ID, s.name, elapsed, err)
			result.Duration = time.Since(start)
			return result, fmt.Errorf("pipeline failed at stage %s: %w", s.name, err)
		}
		r.logger.Debug("Stage %s finished in %v", s.name, elapsed)
	}

	result.Duration = time.Since(start)
	r.logger.Info("Run %s completed in %v", result.ID, result.Duration)
	return result, nil
}

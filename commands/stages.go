package commands

import (
	"fmt"
	"io"

	"github.com/spf13/afero"

	"ride-etl/models"
	"ride-etl/pipeline"
	"ride-etl/services"
)

type InitSchemaCommand struct {
	*baseCommand
}

func (c *InitSchemaCommand) Synopsis() string {
	return "Drop and recreate the trips table"
}

func (c *InitSchemaCommand) Help() string {
	return `Usage: ride-etl init-schema

  Drops the configured trips table if it exists and creates it empty.`
}

func (c *InitSchemaCommand) Run(args []string) int {
	if !c.prepare(c.flagSet(), args) {
		return 1
	}
	ctx, stop := signalContext()
	defer stop()

	if err := pipeline.NewSchemaInitializer(c.cfg, c.logger).Run(ctx); err != nil {
		c.ui.Error(fmt.Sprintf("init-schema failed: %v", err))
		return 1
	}
	return 0
}

type LoadCommand struct {
	*baseCommand
}

func (c *LoadCommand) Synopsis() string {
	return "Load the source file into the trips table"
}

func (c *LoadCommand) Help() string {
	return `Usage: ride-etl load

  Inserts every row of SOURCE_CSV_PATH into the trips table in a single
  transaction. Does nothing if the table already contains rows.`
}

func (c *LoadCommand) Run(args []string) int {
	if !c.prepare(c.flagSet(), args) {
		return 1
	}
	ctx, stop := signalContext()
	defer stop()

	res, err := pipeline.NewLoader(c.cfg, c.fs, c.logger).Run(ctx)
	if err != nil {
		c.ui.Error(fmt.Sprintf("load failed: %v", err))
		return 1
	}
	if res.Skipped {
		c.ui.Output("table already populated, nothing loaded")
	} else {
		c.ui.Output(fmt.Sprintf("loaded %d rows", res.Inserted))
	}
	return 0
}

type ExtractCommand struct {
	*baseCommand

	flagOut string
}

func (c *ExtractCommand) Synopsis() string {
	return "Write the trips table as a JSON payload"
}

func (c *ExtractCommand) Help() string {
	return `Usage: ride-etl extract [-out=path]

  Reads every row of the trips table and writes it as a JSON payload to
  the given path, or to stdout when -out is "-".`
}

func (c *ExtractCommand) Run(args []string) int {
	f := c.flagSet()
	f.StringVar(&c.flagOut, "out", "-", "Payload destination, - for stdout.")
	if !c.prepare(f, args) {
		return 1
	}
	ctx, stop := signalContext()
	defer stop()

	payload, err := pipeline.NewExtractor(c.cfg, c.logger).Extract(ctx)
	if err != nil {
		c.ui.Error(fmt.Sprintf("extract failed: %v", err))
		return 1
	}

	if c.flagOut == "-" {
		_, err = c.out.Write(payload)
	} else {
		err = afero.WriteFile(c.fs, c.flagOut, payload, 0o644)
	}
	if err != nil {
		c.ui.Error(fmt.Sprintf("error writing payload: %v", err))
		return 1
	}
	return 0
}

type CleanCommand struct {
	*baseCommand

	flagIn     string
	flagReport bool
}

func (c *CleanCommand) Synopsis() string {
	return "Clean a JSON payload into the clean file"
}

func (c *CleanCommand) Help() string {
	return `Usage: ride-etl clean [-in=path] [-report]

  Reads a payload produced by extract (from stdin when -in is "-"),
  applies the cleaning rules and writes CLEAN_CSV_PATH.`
}

func (c *CleanCommand) Run(args []string) int {
	f := c.flagSet()
	f.StringVar(&c.flagIn, "in", "-", "Payload source, - for stdin.")
	f.BoolVar(&c.flagReport, "report", false, "Print a data quality report.")
	if !c.prepare(f, args) {
		return 1
	}
	ctx, stop := signalContext()
	defer stop()

	var payload []byte
	var err error
	if c.flagIn == "-" {
		payload, err = io.ReadAll(c.in)
	} else {
		payload, err = afero.ReadFile(c.fs, c.flagIn)
	}
	if err != nil {
		c.ui.Error(fmt.Sprintf("error reading payload: %v", err))
		return 1
	}

	res, err := pipeline.NewTransformer(c.cfg, c.fs, c.logger).Transform(ctx, models.Payload(payload))
	if err != nil {
		c.ui.Error(fmt.Sprintf("clean failed: %v", err))
		return 1
	}

	c.ui.Output(fmt.Sprintf("wrote %d rows to %s (%d duplicates removed)",
		res.Clean.RowsOut, res.Path, res.Clean.Duplicates))
	if c.flagReport {
		services.NewInsightService(c.logger).Print(c.out, res.Quality)
	}
	return 0
}

type PublishCommand struct {
	*baseCommand
}

func (c *PublishCommand) Synopsis() string {
	return "Replace the search index with the clean file"
}

func (c *PublishCommand) Help() string {
	return `Usage: ride-etl publish

  Deletes and recreates INDEX_NAME on the configured search backend and
  indexes one document per row of CLEAN_CSV_PATH.`
}

func (c *PublishCommand) Run(args []string) int {
	if !c.prepare(c.flagSet(), args) {
		return 1
	}
	ctx, stop := signalContext()
	defer stop()

	res, err := pipeline.NewPublisher(c.cfg, c.fs, c.logger).Publish(ctx)
	if err != nil {
		c.ui.Error(fmt.Sprintf("publish failed: %v", err))
		return 1
	}
	c.ui.Output(fmt.Sprintf("indexed %d documents into %s index %s", res.Indexed, res.Backend, res.Index))
	return 0
}

package commands

import (
	"fmt"
	"time"

	"ride-etl/pipeline"
)

type RunCommand struct {
	*baseCommand
}

func (c *RunCommand) Synopsis() string {
	return "Run every stage once, in order"
}

func (c *RunCommand) Help() string {
	return `Usage: ride-etl run

  Runs init-schema, load, extract, clean and publish in order, passing
  the extracted payload to the cleaning stage in memory. Stops at the
  first failing stage.`
}

func (c *RunCommand) Run(args []string) int {
	if !c.prepare(c.flagSet(), args) {
		return 1
	}
	ctx, stop := signalContext()
	defer stop()

	res, err := pipeline.NewRunner(c.cfg, c.fs, c.logger).Run(ctx)
	if err != nil {
		c.ui.Error(fmt.Sprintf("run %s failed: %v", res.ID, err))
		return 1
	}
	c.ui.Output(fmt.Sprintf("run %s completed in %v: %d documents indexed",
		res.ID, res.Duration.Round(time.Millisecond), res.Publish.Indexed))
	return 0
}

type ScheduleCommand struct {
	*baseCommand
}

func (c *ScheduleCommand) Synopsis() string {
	return "Run the pipeline on PIPELINE_SCHEDULE until interrupted"
}

func (c *ScheduleCommand) Help() string {
	return `Usage: ride-etl schedule

  Triggers a full run on the cron expression PIPELINE_SCHEDULE, evaluated
  in PIPELINE_TIMEZONE. A trigger is skipped while a run is in progress.`
}

func (c *ScheduleCommand) Run(args []string) int {
	if !c.prepare(c.flagSet(), args) {
		return 1
	}

	runner := pipeline.NewRunner(c.cfg, c.fs, c.logger)
	sched, err := pipeline.NewScheduler(c.cfg, runner, c.logger)
	if err != nil {
		c.ui.Error(err.Error())
		return 1
	}

	ctx, stop := signalContext()
	defer stop()
	if err := sched.Start(ctx); err != nil {
		c.ui.Error(err.Error())
		return 1
	}
	return 0
}

type VersionCommand struct {
	*baseCommand
}

func (c *VersionCommand) Synopsis() string {
	return "Print the version"
}

func (c *VersionCommand) Help() string {
	return "Usage: ride-etl version"
}

func (c *VersionCommand) Run(args []string) int {
	c.ui.Output("ride-etl v" + Version)
	return 0
}

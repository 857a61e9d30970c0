// Package commands wires the pipeline stages into a command line.
package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mitchellh/cli"
	"github.com/spf13/afero"

	"ride-etl/config"
	"ride-etl/utils"
)

// Version is the CLI version string.
var Version = "0.1.0"

// Main runs the CLI with the given arguments and returns the exit code.
func Main(args []string) int {
	cfg := config.Load()
	a := &app{
		cfg:    cfg,
		fs:     afero.NewOsFs(),
		logger: utils.NewLogger(cfg.LogLevel),
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	return a.run(args)
}

// app holds what every command shares.
type app struct {
	cfg    *config.Config
	fs     afero.Fs
	logger *utils.Logger
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func (a *app) run(args []string) int {
	cliName := args[0]

	if len(args) == 2 && (args[1] == "-version" || args[1] == "-v") {
		args = []string{cliName, "version"}
	}
	// No subcommand means one full run.
	if len(args) == 1 {
		args = append(args, "run")
	}

	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(a.in),
		Writer:      a.out,
		ErrorWriter: a.errOut,
	}

	c := &cli.CLI{
		Name:       cliName,
		Args:       args[1:],
		Version:    Version,
		Commands:   a.commands(ui),
		HelpWriter: a.errOut,
	}

	exitCode, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	return exitCode
}

func (a *app) commands(ui cli.Ui) map[string]cli.CommandFactory {
	base := func(name string) *baseCommand {
		return &baseCommand{app: a, ui: ui, name: name}
	}
	return map[string]cli.CommandFactory{
		"init-schema": func() (cli.Command, error) { return &InitSchemaCommand{baseCommand: base("init-schema")}, nil },
		"load":        func() (cli.Command, error) { return &LoadCommand{baseCommand: base("load")}, nil },
		"extract":     func() (cli.Command, error) { return &ExtractCommand{baseCommand: base("extract")}, nil },
		"clean":       func() (cli.Command, error) { return &CleanCommand{baseCommand: base("clean")}, nil },
		"publish":     func() (cli.Command, error) { return &PublishCommand{baseCommand: base("publish")}, nil },
		"run":         func() (cli.Command, error) { return &RunCommand{baseCommand: base("run")}, nil },
		"schedule":    func() (cli.Command, error) { return &ScheduleCommand{baseCommand: base("schedule")}, nil },
		"version":     func() (cli.Command, error) { return &VersionCommand{baseCommand: base("version")}, nil },
	}
}

// baseCommand carries the shared app state and flag handling.
type baseCommand struct {
	*app
	ui   cli.Ui
	name string
}

func (b *baseCommand) flagSet() *flag.FlagSet {
	f := flag.NewFlagSet(b.name, flag.ContinueOnError)
	f.SetOutput(b.errOut)
	return f
}

// prepare parses flags and validates the configuration. It returns false
// after reporting the problem to the user.
func (b *baseCommand) prepare(f *flag.FlagSet, args []string) bool {
	if err := f.Parse(args); err != nil {
		b.ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return false
	}
	if err := b.cfg.Validate(); err != nil {
		b.ui.Error(fmt.Sprintf("invalid configuration: %v", err))
		return false
	}
	return true
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Command compita parses and executes the tagged-word assembly language
// the compita virtual machine implements. It is the CLI front end the
// engine's own package explicitly treats as an external collaborator:
// argument parsing, file opening and diagnostic printing live here,
// modeled on the corpus's own use of github.com/urfave/cli/v2 for
// anything past a single positional argument and a couple of flags.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"compita/internal/debugconsole"
	"compita/internal/diag"
	"compita/vm"
)

const (
	exitOK           = 0
	exitParseError   = 1
	exitRuntimeError = 2
)

func main() {
	log := diag.NewLogger(os.Stderr)

	app := &cli.App{
		Name:  "compita",
		Usage: "run or debug a tagged-word assembly program",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "execute a program to completion",
				ArgsUsage: "<path-to-assembly>",
				Action: func(c *cli.Context) error {
					return runCommand(c, log)
				},
			},
			{
				Name:      "debug",
				Usage:     "launch the interactive step debugger",
				ArgsUsage: "<path-to-assembly>",
				Action: func(c *cli.Context) error {
					return debugCommand(c, log)
				},
			},
		},
		// A bare `compita <path>` is the common case: treat it as `run`.
		Action: func(c *cli.Context) error {
			return runCommand(c, log)
		},
	}

	if err := app.Run(os.Args); err != nil {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		log.Error(err.Error())
		os.Exit(exitRuntimeError)
	}
}

func openProgram(c *cli.Context) (*vm.Engine, error) {
	path := c.Args().First()
	if path == "" {
		return nil, cli.Exit("usage: compita run <path-to-assembly>", exitParseError)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("opening %s: %s", path, err), exitParseError)
	}
	defer f.Close()

	program, err := vm.Parse(f)
	if err != nil {
		var perr *vm.ParseError
		if errors.As(err, &perr) {
			return nil, cli.Exit(perr.Error(), exitParseError)
		}
		return nil, cli.Exit(err.Error(), exitParseError)
	}

	return vm.NewEngine(program), nil
}

func runCommand(c *cli.Context, log *slog.Logger) error {
	engine, err := openProgram(c)
	if err != nil {
		return err
	}

	if err := engine.Run(); err != nil {
		log.Error(err.Error())
		return cli.Exit("", exitRuntimeError)
	}
	return nil
}

func debugCommand(c *cli.Context, log *slog.Logger) error {
	engine, err := openProgram(c)
	if err != nil {
		return err
	}
	if err := debugconsole.Run(engine, log); err != nil {
		return cli.Exit(err.Error(), exitRuntimeError)
	}
	return nil
}

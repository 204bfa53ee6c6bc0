package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/guseggert/pipecmd"
	"github.com/guseggert/pipecmd/errdefs"
)

func main() {
	app := &cli.App{
		Name:      "pipecmd",
		Usage:     "run a command pipeline without a shell",
		ArgsUsage: "cmd [cmd ...]",
		Description: "Each argument is one pipeline stage; adjacent stages are connected by pipes,\n" +
			"so `pipecmd 'echo hello' 'tr a-z A-Z'` behaves like `echo hello | tr a-z A-Z`.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "stdin-file",
				Usage: "Feed the first stage's stdin from this file.",
			},
			&cli.StringFlag{
				Name:  "input",
				Usage: "Feed the first stage's stdin from this string.",
			},
			&cli.StringFlag{
				Name:  "stdout-file",
				Usage: "Write the last stage's stdout to this file.",
			},
			&cli.StringFlag{
				Name:  "stderr-file",
				Usage: "Write the last stage's stderr to this file.",
			},
			&cli.BoolFlag{
				Name:  "append",
				Usage: "Append to --stdout-file/--stderr-file instead of truncating.",
			},
			&cli.BoolFlag{
				Name:  "stderr-to-stdout",
				Usage: "Merge the last stage's stderr into its stdout.",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log pipeline activity to stderr.",
			},
		},
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() == 0 {
				return cli.Exit("at least one command is required", 2)
			}
			if ctx.String("stdin-file") != "" && ctx.String("input") != "" {
				return cli.Exit("--stdin-file and --input are mutually exclusive", 2)
			}

			var opts []pipecmd.Option
			if ctx.Bool("verbose") {
				cfg := zap.NewProductionConfig()
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
				logger, err := cfg.Build()
				if err != nil {
					return fmt.Errorf("building logger: %w", err)
				}
				defer logger.Sync()
				opts = append(opts, pipecmd.WithLogger(logger.Sugar()))
			}

			args := ctx.Args().Slice()
			cmd := pipecmd.New(args[0], opts...)
			for _, stage := range args[1:] {
				cmd = cmd.Pipe(stage)
			}

			if f := ctx.String("stdin-file"); f != "" {
				cmd = cmd.StdinFile(f)
			}
			if in := ctx.String("input"); in != "" {
				cmd = cmd.StdinString(in)
			}
			if f := ctx.String("stdout-file"); f != "" {
				if ctx.Bool("append") {
					cmd = cmd.StdoutFileAppend(f)
				} else {
					cmd = cmd.StdoutFile(f)
				}
			}
			if f := ctx.String("stderr-file"); f != "" {
				if ctx.Bool("append") {
					cmd = cmd.StderrFileAppend(f)
				} else {
					cmd = cmd.StderrFile(f)
				}
			}
			if ctx.Bool("stderr-to-stdout") {
				cmd = cmd.StderrToStdout()
			}

			err := cmd.Run()
			var exitErr *errdefs.ExitError
			if errors.As(err, &exitErr) {
				os.Exit(exitErr.Code)
			}
			return err
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

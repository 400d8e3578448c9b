package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Shutdowner fx.Shutdowner
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run creates and executes the main steward CLI application with the given
// version and command-line arguments. This function serves as the entry
// point for all CLI operations and handles global configuration.
//
// The application compares a declarative YAML specification of a PostgreSQL
// database against the live catalogs and generates the DDL reconciling
// them, or emits the live database as a specification.
//
// Global Flags:
//   - --level, -l: Log level (debug, info, warn, error)
func Run(p Params) {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)
	}

	app := &cli.Command{
		Name:  "steward",
		Usage: "A tool for declarative PostgreSQL schema management",
		Description: `steward keeps a PostgreSQL database in line with a YAML specification
of its schemas, types, functions and foreign data objects. It reads the
live system catalogs, compares them with the specification, and produces
the SQL statements that reconcile the two.`,
		Version: p.Version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "level",
				Aliases: []string{"l"},
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("STEWARD_LOG_LEVEL"),
				Value:   "info",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level, err := zerolog.ParseLevel(cmd.String("level"))
			if err != nil {
				return ctx, err
			}
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().
				Timestamp().
				Logger()
			return ctx, nil
		},
		Commands: p.Commands,
	}

	p.Lifecycle.Append(fx.StartHook(func() {
		if err := app.Run(p.Ctx, p.Args); err != nil {
			log.Error().Err(err).Msg("command failed")
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
			return
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}

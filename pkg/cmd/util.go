package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/stewarddb/steward/pkg/catalog"
	"github.com/stewarddb/steward/pkg/config"
	"github.com/stewarddb/steward/pkg/schema"
)

// connect opens the catalog client for a command, preferring the --dsn
// flag over the configured connection string.
func connect(ctx context.Context, cfg *config.Config, cmd *cli.Command) (*catalog.Client, error) {
	dsn := cmd.String("dsn")
	if dsn == "" {
		dsn = cfg.Postgres.DSN
	}
	if dsn == "" {
		return nil, errors.New("no database connection configured; set --dsn, PGDSN or postgres.dsn in steward.yaml")
	}

	client, err := catalog.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("server_version", client.Version()).Msg("connected")
	return client, nil
}

// specOptions combines configured emission settings with command flags.
func specOptions(cfg *config.Config, cmd *cli.Command) schema.SpecOptions {
	opts := schema.SpecOptions{
		ExcludeOwner:      cfg.Output.NoOwner,
		ExcludePrivileges: cfg.Output.NoPrivileges,
		ExcludedNames:     cfg.Output.Exclude,
	}
	if cmd.Bool("no-owner") {
		opts.ExcludeOwner = true
	}
	if cmd.Bool("no-privileges") {
		opts.ExcludePrivileges = true
	}
	opts.ExcludedNames = append(opts.ExcludedNames, cmd.StringSlice("exclude")...)
	return opts
}

// dsnFlag is shared by the commands that talk to a database.
func dsnFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "dsn",
		Usage:   "database connection string",
		Sources: cli.EnvVars("PGDSN"),
	}
}

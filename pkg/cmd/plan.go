package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/stewarddb/steward/pkg/catalog"
	"github.com/stewarddb/steward/pkg/config"
	"github.com/stewarddb/steward/pkg/consts"
	"github.com/stewarddb/steward/pkg/schema"
	"github.com/stewarddb/steward/pkg/spec"
)

// plan creates the CLI command that compares the specification with the
// live database and prints the reconciling DDL.
func plan(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Generate the SQL reconciling the database with the specification",
		Flags: []cli.Flag{
			dsnFlag(),
			&cli.StringFlag{
				Name:    "spec",
				Aliases: []string{"s"},
				Usage:   "specification file or directory",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write statements to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "suppress log output, print statements only",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("quiet") {
				log.Logger = log.Logger.Level(zerolog.ErrorLevel)
			}

			client, err := connect(ctx, cfg, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close(ctx) }()

			current, err := catalog.Introspect(ctx, client)
			if err != nil {
				return err
			}

			path := cmd.String("spec")
			if path == "" {
				path = cfg.Spec
			}
			doc, err := spec.LoadPath(path)
			if err != nil {
				return err
			}
			desired, err := schema.FromSpec(doc)
			if err != nil {
				return err
			}

			stmts, err := schema.GeneratePlan(current, desired)
			if errors.Is(err, schema.ErrNoDiff) {
				log.Info().Msg("database matches specification")
				return nil
			}
			if err != nil {
				return err
			}

			out := os.Stdout
			if name := cmd.String("output"); name != "" {
				f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, consts.ModeFile)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				out = f
			}
			for _, stmt := range stmts {
				fmt.Fprintf(out, "%s;\n\n", stmt)
			}
			log.Info().Int("statements", len(stmts)).Msg("plan generated")
			return nil
		},
	}
}

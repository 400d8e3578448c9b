package cmd

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/stewarddb/steward/pkg/catalog"
	"github.com/stewarddb/steward/pkg/config"
	"github.com/stewarddb/steward/pkg/spec"
)

// dump creates the CLI command that emits the live database as a YAML
// specification.
func dump(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "Emit the current database schema as a YAML specification",
		Flags: []cli.Flag{
			dsnFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write the specification to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "no-owner",
				Usage: "omit object owners",
			},
			&cli.BoolFlag{
				Name:  "no-privileges",
				Usage: "omit access privileges",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "object names to leave out",
			},
			&cli.BoolFlag{
				Name:  "multiple-files",
				Usage: "write one file per object into the output directory",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := connect(ctx, cfg, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close(ctx) }()

			cat, err := catalog.Introspect(ctx, client)
			if err != nil {
				return err
			}
			doc := cat.ToSpec(specOptions(cfg, cmd))

			name := cmd.String("output")
			if cmd.Bool("multiple-files") {
				if name == "" {
					return errors.New("--multiple-files needs --output naming a directory")
				}
				return spec.WriteDir(name, doc)
			}
			if name != "" {
				return spec.WriteFile(name, doc)
			}
			return spec.Write(os.Stdout, doc)
		},
	}
}

package main

import (
	"context"
	"os"

	"go.uber.org/fx"

	"github.com/stewarddb/steward/pkg/cmd"
	"github.com/stewarddb/steward/pkg/config"
)

// NB: These are set by GoReleaser during a build.
var (
	version = "dev"
	commit  string
	date    string
)

func main() {
	fx.New(
		fx.NopLogger,
		fx.Provide(
			func() context.Context { return context.Background() },
			func() []string { return os.Args },
			func() *cmd.Version {
				return &cmd.Version{Version: version, Commit: commit, Timestamp: date}
			},
		),
		config.Module,
		cmd.Module,
	).Run()
}

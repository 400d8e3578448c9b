package config

import (
	"os"

	"github.com/stewarddb/steward/pkg/consts"
	"go.uber.org/fx"
)

var Module = fx.Module("config", fx.Provide(
	// Attempts to load the configuration from steward.yaml if it exists.
	// Returns a default config otherwise so commands can still run from
	// flags and environment alone.
	func() (*Config, error) {
		if _, err := os.Stat(consts.ConfigFile); os.IsNotExist(err) {
			cfg := &Config{}
			cfg.applyDefaults()
			return cfg, nil
		}
		return LoadConfigFile(consts.ConfigFile)
	},
))

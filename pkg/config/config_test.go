package config_test

import (
	_ "embed"
	"os"
	"strings"
	"testing"

	. "github.com/stewarddb/steward/pkg/config"
	"github.com/stewarddb/steward/pkg/consts"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/steward.yaml
var testConfigYAML string

func TestLoadConfig(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		config, err := LoadConfig(strings.NewReader(testConfigYAML))
		require.NoError(t, err)
		validateTestConfig(t, config)
	})

	t.Run("defaults", func(t *testing.T) {
		config, err := LoadConfig(strings.NewReader("postgres:\n  dsn: postgres://localhost/db"))
		require.NoError(t, err)
		require.Equal(t, consts.DefaultSpecPath, config.Spec)
		require.False(t, config.Output.NoOwner)
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("PGDSN", "postgres://ci:5432/testdb")
		config, err := LoadConfig(strings.NewReader(testConfigYAML))
		require.NoError(t, err)
		require.Equal(t, "postgres://ci:5432/testdb", config.Postgres.DSN)
	})

	t.Run("error", func(t *testing.T) {
		config, err := LoadConfig(strings.NewReader("invalid: yaml: ["))
		require.Error(t, err)
		require.Nil(t, config)
		require.Contains(t, err.Error(), "failed to unmarshal project config")

		config, err = LoadConfig(strings.NewReader(""))
		require.Error(t, err)
		require.Nil(t, config)
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		tempFile, err := os.CreateTemp("", "steward_test_*.yaml")
		require.NoError(t, err)
		defer os.Remove(tempFile.Name())

		_, err = tempFile.WriteString(testConfigYAML)
		require.NoError(t, err)
		require.NoError(t, tempFile.Close())

		config, err := LoadConfigFile(tempFile.Name())
		require.NoError(t, err)
		validateTestConfig(t, config)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfigFile("does/not/exist.yaml")
		require.Error(t, err)
	})
}

func validateTestConfig(t *testing.T, config *Config) {
	t.Helper()
	require.Equal(t, "postgres://localhost:5432/appdb", config.Postgres.DSN)
	require.Equal(t, "db/schema", config.Spec)
	require.True(t, config.Output.NoOwner)
	require.False(t, config.Output.NoPrivileges)
	require.Equal(t, []string{"schema scratch"}, config.Output.Exclude)
}

package consts

import "os"

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// ConfigFile is the project configuration file steward looks for in
	// the working directory
	ConfigFile = "steward.yaml"

	// DefaultSpecPath is where the database specification lives unless
	// the configuration says otherwise
	DefaultSpecPath = "db/spec.yaml"
)

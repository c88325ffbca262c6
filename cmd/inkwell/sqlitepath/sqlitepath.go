// Package sqlitepath resolves which SQLite database a command should open.
package sqlitepath

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/papercomputeco/inkwell/pkg/config"
)

// ResolveSQLitePath returns the first non-empty of override and configured,
// falling back to ~/.inkwell/inkwell.db. The parent directory is created.
func ResolveSQLitePath(override, configured string) (string, error) {
	path := override
	if path == "" {
		path = configured
	}
	if path == "" {
		dir, err := config.Dir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, config.DBFileName)
	}

	if path == ":memory:" {
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("could not create database directory: %w", err)
	}
	return path, nil
}

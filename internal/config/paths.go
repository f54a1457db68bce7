package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}

// DefaultConfigPath is where the CLI looks for config when --config is
// not given.
func DefaultConfigPath() string {
	return ExpandHome("~/.tinystep/config.json5")
}

// ResolvedDataDir resolves the data directory, expanding "~".
func (c *Config) ResolvedDataDir() string {
	return ExpandHome(c.Store.DataDir)
}

package env

import (
	"os"
	"path/filepath"
	"strings"
)

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// ExpandHome resolves a leading "~" against the current user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = Get("HOME", ".")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

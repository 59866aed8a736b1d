package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves environment variables and a leading ~ in a
// configured path, such as the database location. Environment variables
// expand first, so a variable may itself hold a ~ path.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	path = os.ExpandEnv(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

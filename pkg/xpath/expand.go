// Package xpath resolves user-supplied file paths.
package xpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Expand resolves a leading "~/" to the home directory and substitutes
// $VAR references.
func Expand(rawPath string) (string, error) {
	p := os.ExpandEnv(rawPath)
	if p == "~" || strings.HasPrefix(p, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("unable to get user home dir: %w", err)
		}
		return filepath.Join(homeDir, p[1:]), nil
	}
	return p, nil
}

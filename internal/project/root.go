package project

import (
	"os"
	"path/filepath"
	"strings"
)

// rootMarkers are directories that mark a project root.
var rootMarkers = []string{".claude", ".agentgate"}

// RootFromEnv returns CLAUDE_PROJECT_DIR. Without it, the nearest ancestor
// of the working directory that holds a root marker, else the working
// directory itself.
func RootFromEnv() string {
	if dir := strings.TrimSpace(os.Getenv("CLAUDE_PROJECT_DIR")); dir != "" {
		return dir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	if root := FindRoot(cwd); root != "" {
		return root
	}
	return cwd
}

// FindRoot walks up from startDir to the first directory containing a
// .claude or .agentgate directory. The home directory is never a project
// root, since ~/.claude holds user settings. Returns "" if nothing is found.
func FindRoot(startDir string) string {
	if startDir == "" {
		return ""
	}
	home, _ := os.UserHomeDir()
	if home != "" {
		home = filepath.Clean(home)
	}

	dir := filepath.Clean(startDir)
	for {
		if dir == home {
			return ""
		}
		for _, m := range rootMarkers {
			if info, err := os.Stat(filepath.Join(dir, m)); err == nil && info.IsDir() {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

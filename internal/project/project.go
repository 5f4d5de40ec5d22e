// Package project detects the application stack of the project a task runs in.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/boshu2/agentgate/internal/types"
)

// Detect inspects marker files under root:
//   - pubspec.yaml with a lib/ directory: Flutter
//   - package.json depending on react: React
//   - package.json depending on vue: Vue
//   - requirements.txt, setup.py, or pyproject.toml: Python
//
// Anything else is types.DefaultProjectKind.
func Detect(root string) types.ProjectKind {
	if fileExists(filepath.Join(root, "pubspec.yaml")) && dirExists(filepath.Join(root, "lib")) {
		return types.ProjectFlutter
	}

	if data, err := os.ReadFile(filepath.Join(root, "package.json")); err == nil {
		if kind, ok := detectJS(data); ok {
			return kind
		}
	}

	for _, marker := range []string{"requirements.txt", "setup.py", "pyproject.toml"} {
		if fileExists(filepath.Join(root, marker)) {
			return types.ProjectPython
		}
	}

	return types.DefaultProjectKind
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func detectJS(data []byte) (types.ProjectKind, bool) {
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		// Unparseable manifests still get a best-effort text scan.
		text := string(data)
		switch {
		case strings.Contains(text, `"react"`):
			return types.ProjectReact, true
		case strings.Contains(text, `"vue"`):
			return types.ProjectVue, true
		}
		return "", false
	}

	has := func(name string) bool {
		_, dep := pkg.Dependencies[name]
		_, dev := pkg.DevDependencies[name]
		return dep || dev
	}
	switch {
	case has("react"):
		return types.ProjectReact, true
	case has("vue"):
		return types.ProjectVue, true
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Detector memoizes Detect for one root. The first Kind call does the
// filesystem work; later calls, from any goroutine, return the cached value.
type Detector struct {
	root string
	kind func() types.ProjectKind
}

// NewDetector returns a Detector for root.
func NewDetector(root string) *Detector {
	d := &Detector{root: root}
	d.kind = sync.OnceValue(func() types.ProjectKind {
		return Detect(d.root)
	})
	return d
}

// Fixed returns a Detector that always reports kind without touching disk.
func Fixed(kind types.ProjectKind) *Detector {
	return &Detector{kind: func() types.ProjectKind { return kind }}
}

// Kind returns the detected project kind.
func (d *Detector) Kind() types.ProjectKind {
	return d.kind()
}

package transpile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	rootSourceExecutable = "executable"
	rootSourceEnv        = "BABELWRAP_ROOT"
)

// Toolchain holds the resolved locations of the babel install this shim
// drives. Both the binary and the config file hang off the same root.
type Toolchain struct {
	Root       string
	BabelPath  string
	ConfigPath string
	RootSource string
}

// ResolveToolchain anchors the project root two directory levels above the
// running executable and derives the babel binary and config paths from it.
// BABELWRAP_ROOT overrides the executable-relative anchor.
func ResolveToolchain() (Toolchain, error) {
	root, source, err := resolveRoot()
	if err != nil {
		return Toolchain{}, err
	}

	return Toolchain{
		Root:       root,
		BabelPath:  filepath.Join(root, "node_modules", ".bin", "babel"),
		ConfigPath: filepath.Join(root, ".babelrc"),
		RootSource: source,
	}, nil
}

func resolveRoot() (string, string, error) {
	if v, ok := os.LookupEnv("BABELWRAP_ROOT"); ok && strings.TrimSpace(v) != "" {
		abs, err := filepath.Abs(strings.TrimSpace(v))
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve BABELWRAP_ROOT: %w", err)
		}
		return abs, rootSourceEnv, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	return filepath.Dir(filepath.Dir(exe)), rootSourceExecutable, nil
}

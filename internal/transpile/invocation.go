package transpile

import (
	"path/filepath"
	"strings"
)

// The electron build hands this shim output paths anchored two
// directories below the source tree. Babel must receive them relative
// to the tree instead, so that one known prefix is stripped. This is a
// literal, single-pass substring replacement for one specific build
// layout; anything else passes through untouched.
const (
	electronPathPrefix    = "../../electron/src/"
	electronPathRewritten = "electron/src/"
)

// RewriteOutputPath applies the electron output-path rewrite rule.
// Paths without the prefix come back byte-identical. The rule is
// idempotent since the replacement never reintroduces the prefix.
func RewriteOutputPath(outputPath string) string {
	return strings.ReplaceAll(outputPath, electronPathPrefix, electronPathRewritten)
}

// Invocation is the fully computed babel command line for one input file.
type Invocation struct {
	BabelPath string
	Args      []string
}

// NewInvocation builds the babel argv for one input/output pair. The
// input path is anchored to workDir by plain concatenation, and the
// flag set and ordering are fixed: the calling build system depends on
// this exact shape.
func NewInvocation(tc Toolchain, workDir, inputPath, outputPath string) Invocation {
	return Invocation{
		BabelPath: tc.BabelPath,
		Args: []string{
			workDir + string(filepath.Separator) + inputPath,
			"-o", RewriteOutputPath(outputPath),
			"--source-maps", "inline",
			"--config-file", tc.ConfigPath,
		},
	}
}

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"babelwrap/internal/transpile"
)

var defaultIncludedGlobs = []string{"**/*.js"}

var defaultExcludedPaths = []string{
	"node_modules/",
}

type batchResult struct {
	Command string   `json:"command"`
	Source  string   `json:"source"`
	OutDir  string   `json:"outDir"`
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
	Workers int      `json:"workers"`
	DryRun  bool     `json:"dryRun"`
	Summary struct {
		Planned   int `json:"planned"`
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	} `json:"summary"`
	Files    []transpile.Job     `json:"files"`
	Failures []transpile.Failure `json:"failures"`
}

func newBatchCommand(ctx *runContext) *cobra.Command {
	var src string
	var outDir string
	var include []string
	var exclude []string
	var workers int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Transpile a tree of files into a mirrored output directory",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if strings.TrimSpace(outDir) == "" {
				return usageError{Message: "missing required flag --out-dir"}
			}
			if workers < 1 {
				return usageError{Message: "invalid value for --workers: must be >= 1"}
			}

			sortedInclude := append([]string{}, include...)
			sortedExclude := append([]string{}, exclude...)
			slices.Sort(sortedInclude)
			slices.Sort(sortedExclude)
			if err := validateGlobPatterns(sortedInclude, "include"); err != nil {
				return err
			}
			if err := validateGlobPatterns(sortedExclude, "exclude"); err != nil {
				return err
			}

			resolvedSrc, err := resolveSourceRoot(src)
			if err != nil {
				return err
			}
			tc, err := transpile.ResolveToolchain()
			if err != nil {
				return err
			}
			workDir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to resolve working directory: %w", err)
			}

			jobs, err := transpile.Discover(transpile.BatchOptions{
				SourceRoot: resolvedSrc,
				OutputRoot: outDir,
				WorkDir:    workDir,
				Include:    sortedInclude,
				Exclude:    sortedExclude,
			})
			if err != nil {
				return err
			}

			result := batchResult{
				Command:  "batch",
				Source:   resolvedSrc,
				OutDir:   outDir,
				Include:  sortedInclude,
				Exclude:  sortedExclude,
				Workers:  workers,
				DryRun:   dryRun,
				Files:    jobs,
				Failures: []transpile.Failure{},
			}
			result.Summary.Planned = len(jobs)

			if dryRun {
				return renderBatchResult(ctx.stdout, ctx.output, result)
			}

			runner, err := transpile.NewRunner(ctx.logger, ctx.stdout, ctx.stderr)
			if err != nil {
				return err
			}
			batch, err := runner.RunBatch(tc, workDir, jobs, workers)
			if err != nil {
				return err
			}

			result.Summary.Succeeded = batch.Succeeded
			result.Summary.Failed = batch.Failed
			result.Failures = batch.Failures
			if err := renderBatchResult(ctx.stdout, ctx.output, result); err != nil {
				return err
			}
			if batch.Failed > 0 {
				return batchFailuresError{}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&src, "src", ".", "Source directory to discover input files under")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Output directory mirroring the source layout")
	cmd.Flags().StringSliceVar(&include, "include", append([]string{}, defaultIncludedGlobs...), "Include path globs (repeatable)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", append([]string{}, defaultExcludedPaths...), "Exclude path globs (repeatable)")
	cmd.Flags().IntVar(&workers, "workers", defaultWorkers(), "Worker count")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan without spawning babel")

	return cmd
}

func defaultWorkers() int {
	v, ok := os.LookupEnv("BABELWRAP_WORKERS")
	if ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n > 0 {
			return n
		}
	}

	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}

func resolveSourceRoot(path string) (string, error) {
	expandedPath, err := expandTildePath(path)
	if err != nil {
		return "", err
	}

	absolutePath, err := filepath.Abs(expandedPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", path, err)
	}

	info, err := os.Stat(absolutePath)
	if err != nil {
		return "", fmt.Errorf("path does not exist or is inaccessible: %s", absolutePath)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", absolutePath)
	}

	return absolutePath, nil
}

func expandTildePath(path string) (string, error) {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		return home, nil
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}

	return path, nil
}

func validateGlobPatterns(patterns []string, flagName string) error {
	for _, pattern := range patterns {
		p := filepath.ToSlash(strings.TrimSpace(pattern))
		if p == "" {
			continue
		}
		p = strings.TrimPrefix(p, "./")
		p = strings.TrimPrefix(p, "/")
		if strings.HasSuffix(p, "/") {
			// Trailing-slash patterns are path fragments, matched by substring.
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return usageError{Message: fmt.Sprintf("invalid value for --%s: %q (invalid glob pattern)", flagName, pattern)}
		}
	}

	return nil
}

func renderBatchResult(w io.Writer, output string, result batchResult) error {
	switch output {
	case outputJSON:
		return writeJSON(w, result)
	case outputTable:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		if _, err := fmt.Fprintln(tw, "Summary"); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(tw, "  Command:\t%s\n", result.Command); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(tw, "  Source:\t%s\n", result.Source); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(tw, "  Out Dir:\t%s\n", result.OutDir); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(tw, "  Workers:\t%d\n", result.Workers); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(tw, "  Dry Run:\t%t\n", result.DryRun); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(tw, "  Planned:\t%d\n", result.Summary.Planned); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(tw, "  Succeeded:\t%d\n", result.Summary.Succeeded); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(tw, "  Failed:\t%d\n", result.Summary.Failed); err != nil {
			return err
		}
		if len(result.Failures) > 0 {
			if _, err := fmt.Fprintln(tw, "\nFailures"); err != nil {
				return err
			}
			for _, failure := range result.Failures {
				if _, err := fmt.Fprintf(tw, "%s\n  -\t%s\n", failure.Input, failure.Message); err != nil {
					return err
				}
			}
		}
		return tw.Flush()
	case outputMarkdown:
		if _, err := fmt.Fprintf(w,
			"| command | source | out_dir | workers | dry_run | planned | succeeded | failed |\n|---|---|---|---:|---|---:|---:|---:|\n| %s | %s | %s | %d | %t | %d | %d | %d |\n",
			result.Command,
			result.Source,
			result.OutDir,
			result.Workers,
			result.DryRun,
			result.Summary.Planned,
			result.Summary.Succeeded,
			result.Summary.Failed,
		); err != nil {
			return err
		}
		if len(result.Failures) == 0 {
			return nil
		}
		if _, err := fmt.Fprintln(w, "\n| input | message |\n|---|---|"); err != nil {
			return err
		}
		for _, failure := range result.Failures {
			if _, err := fmt.Fprintf(w, "| %s | %s |\n", failure.Input, failure.Message); err != nil {
				return err
			}
		}
		return nil
	default:
		return usageError{Message: fmt.Sprintf("invalid value for --output: %q (allowed: json, table, markdown)", output)}
	}
}

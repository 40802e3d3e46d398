package transpile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// BatchOptions configures a flat fan-out of the single-file invocation
// over a discovered set of inputs. There is no dependency graph and no
// rebuild rule: every discovered file is transpiled unconditionally.
type BatchOptions struct {
	SourceRoot string
	OutputRoot string
	WorkDir    string
	Include    []string
	Exclude    []string
}

// Job pairs one discovered input with its mirrored output path.
type Job struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Failure records one input that babel could not transpile.
type Failure struct {
	Input   string `json:"input"`
	Message string `json:"message"`
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	Planned   int
	Succeeded int
	Failed    int
	Failures  []Failure
}

// Discover walks SourceRoot and returns the input/output pairs whose
// source-relative slash path matches an include pattern and no exclude
// pattern. Inputs are expressed relative to WorkDir so the invocation
// builder anchors them the same way the single-file surface does.
// Results are sorted by input path.
func Discover(opts BatchOptions) ([]Job, error) {
	jobs := make([]Job, 0, 64)

	err := filepath.WalkDir(opts.SourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(opts.SourceRoot, path)
		if relErr != nil {
			return relErr
		}
		if matchesAny(rel, opts.Exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if len(opts.Include) > 0 && !matchesAny(rel, opts.Include) {
			return nil
		}

		input := path
		if fromWork, workErr := filepath.Rel(opts.WorkDir, path); workErr == nil {
			input = fromWork
		}
		jobs = append(jobs, Job{
			Input:  input,
			Output: filepath.Join(opts.OutputRoot, rel),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(jobs, func(a, b Job) int {
		return strings.Compare(a.Input, b.Input)
	})
	return jobs, nil
}

// RunBatch transpiles every job on a fixed-size worker pool. Workers
// run children sequentially; child streams stay attached to the
// runner's writers, so output may interleave across workers. A failed
// job never stops the remaining ones.
func (r *Runner) RunBatch(tc Toolchain, workDir string, jobs []Job, workers int) (BatchResult, error) {
	if workers < 1 {
		workers = 1
	}

	jobCh := make(chan Job, workers*2)
	failures := make([]Failure, 0)
	var failuresMu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				if err := r.runJob(tc, workDir, job); err != nil {
					failuresMu.Lock()
					failures = append(failures, Failure{Input: job.Input, Message: err.Error()})
					failuresMu.Unlock()
				}
			}
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)
	wg.Wait()

	slices.SortFunc(failures, func(a, b Failure) int {
		return strings.Compare(a.Input, b.Input)
	})
	return BatchResult{
		Planned:   len(jobs),
		Succeeded: len(jobs) - len(failures),
		Failed:    len(failures),
		Failures:  failures,
	}, nil
}

func (r *Runner) runJob(tc Toolchain, workDir string, job Job) error {
	if err := os.MkdirAll(filepath.Dir(job.Output), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	r.logger.Debug("transpiling",
		zap.String("input", job.Input),
		zap.String("output", job.Output),
	)
	return r.Run(NewInvocation(tc, workDir, job.Input, job.Output))
}

func matchesAny(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	normalized := filepath.ToSlash(path)
	for _, pattern := range patterns {
		p := filepath.ToSlash(strings.TrimSpace(pattern))
		if p == "" {
			continue
		}
		ok, err := doublestar.Match(p, normalized)
		if err == nil && ok {
			return true
		}
		if strings.Contains(normalized, p) {
			return true
		}
	}
	return false
}

package transpile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// ExitError reports a babel process that ran and exited non-zero. The
// shim mirrors the code instead of wrapping it in a failure of its own.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("babel exited with status %d", e.Code)
}

// Runner spawns babel processes with the invoker's streams attached.
type Runner struct {
	logger *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

func NewRunner(logger *zap.Logger, stdout, stderr io.Writer) (*Runner, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Runner{
		logger: logger,
		stdout: stdout,
		stderr: stderr,
	}, nil
}

// Run executes the invocation and blocks until the child exits. Child
// output is never captured or redirected. A non-zero child exit comes
// back as *ExitError; launch failures and signal deaths come back as
// plain errors.
func (r *Runner) Run(inv Invocation) error {
	r.logger.Debug("spawning babel",
		zap.String("babel", inv.BabelPath),
		zap.Strings("args", inv.Args),
	)

	cmd := exec.Command(inv.BabelPath, inv.Args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return &ExitError{Code: code}
		}
		return fmt.Errorf("babel terminated abnormally: %w", err)
	}

	return fmt.Errorf("failed to launch babel: %w", err)
}

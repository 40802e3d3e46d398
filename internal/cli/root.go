package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"babelwrap/internal/transpile"
)

const (
	outputJSON     = "json"
	outputTable    = "table"
	outputMarkdown = "markdown"
)

type runContext struct {
	stdout io.Writer
	stderr io.Writer

	output  string
	verbose bool
	logger  *zap.Logger
}

func newRootCommand(stdout io.Writer, stderr io.Writer) *cobra.Command {
	ctx := &runContext{
		stdout: stdout,
		stderr: stderr,
		output: defaultOutput(),
		logger: zap.NewNop(),
	}

	cmd := &cobra.Command{
		Use:           "babelwrap <input> <output>",
		Short:         "Thin invocation shim around a project-local babel install",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, args []string) error {
			return runTranspile(ctx, args)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.PersistentFlags().StringVar(&ctx.output, "output", ctx.output, "Output format: json|table|markdown")
	cmd.PersistentFlags().BoolVar(&ctx.verbose, "verbose", false, "Log resolution and spawn diagnostics to stderr")
	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		if !isAllowedOutput(ctx.output) {
			return usageError{
				Message: fmt.Sprintf("invalid value for --output: %q (allowed: json, table, markdown)", ctx.output),
			}
		}
		if ctx.verbose {
			ctx.logger = newVerboseLogger(stderr)
		}
		return nil
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{Message: err.Error()}
	})

	cmd.AddCommand(newEnvCommand(ctx))
	cmd.AddCommand(newBatchCommand(ctx))

	return cmd
}

// runTranspile is the primary surface: two positional paths, one babel
// child process, exit status propagated. Argument validation happens
// before any toolchain resolution so nothing is ever spawned on a bad
// call.
func runTranspile(ctx *runContext, args []string) error {
	if len(args) != 2 {
		return usageError{
			Message: fmt.Sprintf("accepts 2 args (input path, output path), received %d", len(args)),
		}
	}
	for _, arg := range args {
		if strings.TrimSpace(arg) == "" {
			return usageError{Message: "input and output paths must be non-empty"}
		}
	}

	tc, err := transpile.ResolveToolchain()
	if err != nil {
		return err
	}
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	ctx.logger.Debug("resolved toolchain",
		zap.String("root", tc.Root),
		zap.String("rootSource", tc.RootSource),
		zap.String("babel", tc.BabelPath),
		zap.String("config", tc.ConfigPath),
	)

	runner, err := transpile.NewRunner(ctx.logger, ctx.stdout, ctx.stderr)
	if err != nil {
		return err
	}
	return runner.Run(transpile.NewInvocation(tc, workDir, args[0], args[1]))
}

func newVerboseLogger(w io.Writer) *zap.Logger {
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), zapcore.DebugLevel))
}

func defaultOutput() string {
	v, ok := os.LookupEnv("BABELWRAP_DEFAULT_OUTPUT")
	if !ok || strings.TrimSpace(v) == "" {
		return outputJSON
	}
	normalized := strings.ToLower(strings.TrimSpace(v))
	if !isAllowedOutput(normalized) {
		return outputJSON
	}
	return normalized
}

func isAllowedOutput(v string) bool {
	switch v {
	case outputJSON, outputTable, outputMarkdown:
		return true
	default:
		return false
	}
}

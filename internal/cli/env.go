package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"babelwrap/internal/transpile"
)

type envResult struct {
	Command     string `json:"command"`
	Root        string `json:"root"`
	RootSource  string `json:"rootSource"`
	BabelPath   string `json:"babelPath"`
	BabelFound  bool   `json:"babelFound"`
	ConfigPath  string `json:"configPath"`
	ConfigFound bool   `json:"configFound"`
	WorkDir     string `json:"workDir"`
}

func newEnvCommand(ctx *runContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Show the resolved babel toolchain",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			tc, err := transpile.ResolveToolchain()
			if err != nil {
				return err
			}
			workDir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to resolve working directory: %w", err)
			}

			result := envResult{
				Command:     "env",
				Root:        tc.Root,
				RootSource:  tc.RootSource,
				BabelPath:   tc.BabelPath,
				BabelFound:  fileExists(tc.BabelPath),
				ConfigPath:  tc.ConfigPath,
				ConfigFound: fileExists(tc.ConfigPath),
				WorkDir:     workDir,
			}
			return renderEnvResult(ctx.stdout, ctx.output, result)
		},
	}

	return cmd
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func renderEnvResult(w io.Writer, output string, result envResult) error {
	switch output {
	case outputJSON:
		return writeJSON(w, result)
	case outputTable:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		if _, err := fmt.Fprintln(tw, "command\troot\troot_source\tbabel\tbabel_found\tconfig\tconfig_found\twork_dir"); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(
			tw,
			"%s\t%s\t%s\t%s\t%t\t%s\t%t\t%s\n",
			result.Command,
			result.Root,
			result.RootSource,
			result.BabelPath,
			result.BabelFound,
			result.ConfigPath,
			result.ConfigFound,
			result.WorkDir,
		); err != nil {
			return err
		}
		return tw.Flush()
	case outputMarkdown:
		_, err := fmt.Fprintf(w,
			"| command | root | root_source | babel | babel_found | config | config_found | work_dir |\n|---|---|---|---|---|---|---|---|\n| %s | %s | %s | %s | %t | %s | %t | %s |\n",
			result.Command,
			result.Root,
			result.RootSource,
			result.BabelPath,
			result.BabelFound,
			result.ConfigPath,
			result.ConfigFound,
			result.WorkDir,
		)
		return err
	default:
		return usageError{Message: fmt.Sprintf("invalid value for --output: %q (allowed: json, table, markdown)", output)}
	}
}

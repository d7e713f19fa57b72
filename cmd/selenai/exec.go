package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/codefionn/selenai/internal/llm"
	"github.com/codefionn/selenai/internal/logger"
	"github.com/codefionn/selenai/internal/orchestrator"
	"github.com/codefionn/selenai/internal/sandbox"
)

func newExecCmd(opts *rootOptions) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "exec [--write] <file|->",
		Short: "Run one script against the workspace and print the result",
		Long: `Run a Go script once as a manual invocation and print the rendered result.

The script is read from the file argument, or from stdin when the argument
is "-". The exit status is 1 when the result has an error status.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if write {
				opts.allowWrites = true
				if err := cmd.Flags().Set("allow-writes", "true"); err != nil {
					return err
				}
			}
			return runExec(cmd, opts, args[0])
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "enable write helpers for this script")
	return cmd
}

func readScript(in io.Reader, arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("failed to read script from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("failed to read script: %w", err)
	}
	return string(data), nil
}

func runExec(cmd *cobra.Command, opts *rootOptions, arg string) error {
	source, err := readScript(cmd.InOrStdin(), arg)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	closeLog, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Debug("exec: workspace=%s writes=%v", cfg.WorkspaceRoot, cfg.AllowToolWrites)

	// Manual invocations never reach the model.
	orch, err := orchestrator.NewOrchestrator(cmd.Context(), orchestrator.Options{
		Config:   cfg,
		Client:   llm.NewStubClient(),
		SelfExec: selfExecutable(),
	})
	if err != nil {
		return err
	}
	defer orch.Close()

	res := orch.RunManual(cmd.Context(), source)
	fmt.Fprint(cmd.OutOrStdout(), res.Render())
	if !res.OK() {
		return errScriptFailed
	}
	return nil
}

// newSandboxExecCmd is the re-exec target used by the command runner: it
// applies the read-only Landlock ruleset and replaces itself with argv.
func newSandboxExecCmd() *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:    sandbox.ExecSubcommand + " --root <dir> -- <command> [args...]",
		Hidden: true,
		Args:   cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if root == "" {
				return fmt.Errorf("--root is required")
			}
			return sandbox.ExecRestricted(root, args)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "workspace root")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/codefionn/selenai/internal/config"
	"github.com/codefionn/selenai/internal/logger"
	"github.com/codefionn/selenai/internal/orchestrator"
	"github.com/codefionn/selenai/internal/tui"
)

// errScriptFailed makes exec exit with status 1 without printing twice.
var errScriptFailed = errors.New("script finished with error status")

type rootOptions struct {
	configPath  string
	workspace   string
	provider    string
	model       string
	allowWrites bool
	noRecord    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errScriptFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "selenai",
		Short: "Terminal pair programmer that acts through sandboxed Go scripts",
		Long: `SelenAI talks to a language model that can only act on your workspace by
running Go scripts in a persistent, sandboxed interpreter.

Writes are disabled unless allow_tool_writes is set; when enabled, every
write-capable script the model issues waits for /tool approve.

Examples:
  # Start the interactive session in the current directory
  selenai

  # Run a script once without a model
  echo 'host.ListDir(".")' | selenai exec -`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInteractive(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default: $SELENAI_CONFIG, ./selenai.toml, then the user config)")
	flags.StringVarP(&opts.workspace, "workspace", "w", "", "workspace root (default: current directory)")
	flags.StringVar(&opts.provider, "provider", "", "model provider: openai, anthropic, google or stub")
	flags.StringVar(&opts.model, "model", "", "model name")
	flags.BoolVar(&opts.allowWrites, "allow-writes", false, "enable write helpers (model writes still need approval)")
	flags.BoolVar(&opts.noRecord, "no-record", false, "do not write a session transcript")

	root.AddCommand(newExecCmd(opts), newSandboxExecCmd())
	return root
}

// loadConfig resolves the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	workspace := opts.workspace
	if workspace == "" {
		workspace = "."
	}
	workspace, err := filepath.Abs(workspace)
	if err != nil {
		return nil, err
	}

	path := opts.configPath
	if path == "" {
		path = config.ResolvePath(workspace)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if opts.workspace != "" || cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = workspace
	}
	if opts.provider != "" {
		cfg.Provider = opts.provider
	}
	if opts.model != "" {
		cfg.Model = opts.model
	}
	if cmd.Flags().Changed("allow-writes") {
		cfg.AllowToolWrites = opts.allowWrites
	}
	return cfg, nil
}

func initLogger(cfg *config.Config) (func(), error) {
	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return func() {
		if err := logger.Global().Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", err)
		}
	}, nil
}

func runInteractive(cmd *cobra.Command, opts *rootOptions) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal; use `selenai exec` for scripts")
	}

	ctx := cmd.Context()
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	closeLog, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("selenai starting")
	logger.Debug("Configuration loaded: workspace=%s provider=%s model=%s writes=%v",
		cfg.WorkspaceRoot, cfg.Provider, cfg.Model, cfg.AllowToolWrites)

	orchOpts := orchestrator.Options{Config: cfg, SelfExec: selfExecutable()}
	if !opts.noRecord {
		orchOpts.RecordDir = cfg.ResolveLogDir(cfg.WorkspaceRoot)
	}
	orch, err := orchestrator.NewOrchestrator(ctx, orchOpts)
	if err != nil {
		return err
	}
	defer orch.Close()

	return tui.Run(ctx, orch, "auto")
}

func selfExecutable() string {
	exe, err := os.Executable()
	if err != nil {
		logger.Warn("restricted commands run without sandbox: %v", err)
		return ""
	}
	return exe
}

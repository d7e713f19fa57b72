package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/codefionn/selenai/internal/approval"
	"github.com/codefionn/selenai/internal/config"
	"github.com/codefionn/selenai/internal/orchestrator"
)

// ErrQuitRequested is returned by /quit.
var ErrQuitRequested = errors.New("quit requested")

type commandHelpEntry struct {
	Usage       string
	Description string
}

type commandDefinition struct {
	Name        string
	Description string
	HelpEntries []commandHelpEntry
	Handler     func(*CommandHandler, context.Context, string) (string, error)
}

func getDefaultCommandDefinitions() []commandDefinition {
	return []commandDefinition{
		{
			Name:        "/help",
			Description: "Show this help message",
			Handler:     (*CommandHandler).handleHelp,
		},
		{
			Name:        "/run",
			Description: "Run a script in the persistent runtime",
			HelpEntries: []commandHelpEntry{
				{Usage: "/run <source>", Description: "Run Go source immediately (never queued)"},
				{Usage: "/run reset", Description: "Discard every global defined by earlier scripts"},
			},
			Handler: (*CommandHandler).handleRun,
		},
		{
			Name:        "/tool",
			Description: "Manage tool calls waiting for approval",
			HelpEntries: []commandHelpEntry{
				{Usage: "/tool list", Description: "List pending tool calls"},
				{Usage: "/tool approve [id]", Description: "Run the oldest (or named) pending call; alias: run"},
				{Usage: "/tool skip [id]", Description: "Discard the oldest (or named) pending call; alias: cancel"},
			},
			Handler: (*CommandHandler).handleTool,
		},
		{
			Name:        "/config",
			Description: "Show or change configuration",
			HelpEntries: []commandHelpEntry{
				{Usage: "/config show", Description: "Show the active configuration"},
				{Usage: "/config set allow_tool_writes true|false", Description: "Toggle the write gate"},
				{Usage: "/config set streaming true|false", Description: "Toggle streamed responses"},
				{Usage: "/config save [path]", Description: "Write the configuration (default: the resolved config file)"},
			},
			Handler: (*CommandHandler).handleConfig,
		},
		{
			Name:        "/quit",
			Description: "Quit the application",
			Handler:     (*CommandHandler).handleQuit,
		},
	}
}

// CommandHandler handles slash commands against the orchestrator.
type CommandHandler struct {
	orch     *orchestrator.Orchestrator
	commands map[string]commandDefinition
}

// NewCommandHandler creates a handler for orch.
func NewCommandHandler(orch *orchestrator.Orchestrator) *CommandHandler {
	definitions := getDefaultCommandDefinitions()
	ch := &CommandHandler{orch: orch, commands: make(map[string]commandDefinition, len(definitions))}
	for _, def := range definitions {
		ch.commands[def.Name] = def
	}
	return ch
}

// IsCommand reports whether input is a slash command rather than a prompt.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// splitCommand separates the command word from the raw remainder, which
// keeps its inner newlines so multi-line scripts survive.
func splitCommand(input string) (string, string) {
	input = strings.TrimSpace(input)
	idx := strings.IndexAny(input, " \t\n")
	if idx < 0 {
		return input, ""
	}
	return input[:idx], strings.TrimSpace(input[idx+1:])
}

// HandleCommand runs one slash command and returns text to show.
func (ch *CommandHandler) HandleCommand(ctx context.Context, input string) (string, error) {
	if !IsCommand(input) {
		return "", fmt.Errorf("commands must start with /")
	}
	name, rest := splitCommand(input)
	def, ok := ch.commands[name]
	if !ok {
		return "", fmt.Errorf("unknown command: %s. Type /help for available commands", name)
	}
	return def.Handler(ch, ctx, rest)
}

func (ch *CommandHandler) handleHelp(_ context.Context, _ string) (string, error) {
	return buildHelpMessage(), nil
}

func (ch *CommandHandler) handleQuit(_ context.Context, _ string) (string, error) {
	return "", ErrQuitRequested
}

func (ch *CommandHandler) handleRun(ctx context.Context, rest string) (string, error) {
	switch rest {
	case "":
		return "", fmt.Errorf("usage: /run <source> or /run reset")
	case "reset":
		return "", ch.orch.Reset(ctx)
	}
	ch.orch.RunManual(ctx, rest)
	return "", nil
}

func (ch *CommandHandler) handleTool(ctx context.Context, rest string) (string, error) {
	action, id := splitCommand(rest)
	switch action {
	case "", "list":
		return formatPending(ch.orch.Pending()), nil
	case "approve", "run":
		_, err := ch.orch.Approve(ctx, id)
		return "", err
	case "skip", "cancel":
		_, err := ch.orch.Skip(ctx, id)
		return "", err
	}
	return "", fmt.Errorf("unknown /tool action %q (expected list, approve or skip)", action)
}

func (ch *CommandHandler) handleConfig(ctx context.Context, rest string) (string, error) {
	action, args := splitCommand(rest)
	switch action {
	case "", "show":
		return "```toml\n" + ch.orch.Config().Display() + "```", nil
	case "set":
		fields := strings.Fields(args)
		if len(fields) != 2 {
			return "", fmt.Errorf("usage: /config set <key> <value>")
		}
		return ch.setConfig(ctx, fields[0], fields[1])
	case "save":
		path := strings.TrimSpace(args)
		if path == "" {
			path = config.ResolvePath(ch.orch.WorkspaceRoot())
		}
		if err := ch.orch.Config().Save(path); err != nil {
			return "", err
		}
		return "Configuration saved to " + path, nil
	}
	return "", fmt.Errorf("unknown /config action %q (expected show, set or save)", action)
}

func (ch *CommandHandler) setConfig(ctx context.Context, key, value string) (string, error) {
	switch key {
	case "allow_tool_writes":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("invalid value %q for %s (expected true or false)", value, key)
		}
		return "", ch.orch.SetWritesEnabled(ctx, enabled)
	case "streaming":
		if err := ch.orch.Config().Set(key, value); err != nil {
			return "", err
		}
		return fmt.Sprintf("streaming = %v", ch.orch.Config().Streaming), nil
	}
	return "", fmt.Errorf("%s can only be changed in the config file", key)
}

func formatPending(entries []*approval.Entry) string {
	if len(entries) == 0 {
		return "No pending tool calls."
	}
	var sb strings.Builder
	sb.WriteString("Pending tool calls:\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "\n%s %s (call %s)\n", e.Handle(), e.Invocation.Title(), e.Invocation.Origin.CallID)
		for _, line := range strings.Split(e.Preview, "\n") {
			sb.WriteString("    ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

const helpFooter = `
Keyboard Shortcuts:

Enter             - Submit prompt or command
Alt+Enter         - Insert newline
ESC               - Stop the current request
Ctrl+C            - Quit
`

func buildHelpMessage() string {
	entries := commandHelpEntries()
	maxWidth := 0
	for _, entry := range entries {
		maxWidth = max(maxWidth, len(entry.Usage))
	}

	var sb strings.Builder
	sb.WriteString("Available Commands:\n\n")
	for _, entry := range entries {
		fmt.Fprintf(&sb, "%-*s - %s\n", maxWidth, entry.Usage, entry.Description)
	}
	sb.WriteString(helpFooter)
	return sb.String()
}

func commandHelpEntries() []commandHelpEntry {
	definitions := getDefaultCommandDefinitions()
	entries := make([]commandHelpEntry, 0, len(definitions))
	for _, def := range definitions {
		if len(def.HelpEntries) > 0 {
			entries = append(entries, def.HelpEntries...)
			continue
		}
		entries = append(entries, commandHelpEntry{Usage: def.Name, Description: def.Description})
	}
	return entries
}

// availableCommandSuggestions feeds tab completion.
func availableCommandSuggestions() []string {
	var out []string
	for _, entry := range commandHelpEntries() {
		usage := entry.Usage
		if i := strings.IndexAny(usage, "<["); i > 0 {
			usage = strings.TrimSpace(usage[:i])
		}
		if i := strings.Index(usage, " true|false"); i > 0 {
			usage = usage[:i]
		}
		out = append(out, usage)
	}
	return out
}

package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour/styles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/selenai/internal/config"
	"github.com/codefionn/selenai/internal/llm"
	"github.com/codefionn/selenai/internal/orchestrator"
	"github.com/codefionn/selenai/internal/tools"
)

func newTestOrchestrator(t *testing.T, writes bool) *orchestrator.Orchestrator {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.WorkspaceRoot = t.TempDir()
	cfg.AllowToolWrites = writes
	cfg.Streaming = false

	orch, err := orchestrator.NewOrchestrator(context.Background(), orchestrator.Options{
		Config: cfg,
		Client: llm.NewStubClient(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { orch.Close() })
	return orch
}

func TestSplitCommandKeepsScriptNewlines(t *testing.T) {
	name, rest := splitCommand("/run x := 1\nx + 1")
	assert.Equal(t, "/run", name)
	assert.Equal(t, "x := 1\nx + 1", rest)

	name, rest = splitCommand("  /help  ")
	assert.Equal(t, "/help", name)
	assert.Empty(t, rest)
}

func TestUnknownCommand(t *testing.T) {
	ch := NewCommandHandler(newTestOrchestrator(t, false))
	_, err := ch.HandleCommand(context.Background(), "/frobnicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")

	_, err = ch.HandleCommand(context.Background(), "hello")
	assert.Error(t, err)
}

func TestHelpListsEveryCommand(t *testing.T) {
	ch := NewCommandHandler(newTestOrchestrator(t, false))
	out, err := ch.HandleCommand(context.Background(), "/help")
	require.NoError(t, err)
	for _, usage := range []string{"/run <source>", "/run reset", "/tool approve [id]", "/tool skip [id]", "/tool list", "/config show", "/config set allow_tool_writes true|false", "/quit"} {
		assert.Contains(t, out, usage)
	}
}

func TestQuitCommand(t *testing.T) {
	ch := NewCommandHandler(newTestOrchestrator(t, false))
	_, err := ch.HandleCommand(context.Background(), "/quit")
	assert.ErrorIs(t, err, ErrQuitRequested)
}

func TestRunAndResetCommands(t *testing.T) {
	orch := newTestOrchestrator(t, false)
	var results []*tools.Result
	orch.SetSink(func(ev orchestrator.Event) {
		if ev.Kind == orchestrator.EventToolResult {
			results = append(results, ev.Result)
		}
	})
	ch := NewCommandHandler(orch)
	ctx := context.Background()

	_, err := ch.HandleCommand(ctx, "/run value := 7")
	require.NoError(t, err)
	_, err = ch.HandleCommand(ctx, "/run value * 6")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "42", results[1].Value)

	_, err = ch.HandleCommand(ctx, "/run reset")
	require.NoError(t, err)
	_, err = ch.HandleCommand(ctx, "/run value")
	require.NoError(t, err)
	assert.False(t, results[2].OK())

	_, err = ch.HandleCommand(ctx, "/run")
	assert.Error(t, err)
}

func TestToolCommandsApproveAndSkip(t *testing.T) {
	orch := newTestOrchestrator(t, true)
	ch := NewCommandHandler(orch)
	ctx := context.Background()

	out, err := ch.HandleCommand(ctx, "/tool list")
	require.NoError(t, err)
	assert.Equal(t, "No pending tool calls.", out)

	orch.Submit(ctx, tools.NewInvocation(`host.WriteFile("a.txt", "a")`, "first write", tools.ModelIssued("call_a")))
	orch.Submit(ctx, tools.NewInvocation(`host.WriteFile("b.txt", "b")`, "second write", tools.ModelIssued("call_b")))

	out, err = ch.HandleCommand(ctx, "/tool list")
	require.NoError(t, err)
	assert.Contains(t, out, "#1 LLM run_script: first write")
	assert.Contains(t, out, "#2 LLM run_script: second write")
	assert.Contains(t, out, "Would write to `a.txt`")

	_, err = ch.HandleCommand(ctx, "/tool skip #2")
	require.NoError(t, err)
	_, err = ch.HandleCommand(ctx, "/tool run")
	require.NoError(t, err)
	_, err = ch.HandleCommand(ctx, "/tool approve")
	assert.ErrorIs(t, err, tools.ErrNotFound)

	root := orch.WorkspaceRoot()
	_, err = os.Stat(filepath.Join(root, "a.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "b.txt"))
	assert.True(t, os.IsNotExist(err))

	_, err = ch.HandleCommand(ctx, "/tool frob")
	assert.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	orch := newTestOrchestrator(t, false)
	ch := NewCommandHandler(orch)
	ctx := context.Background()

	out, err := ch.HandleCommand(ctx, "/config show")
	require.NoError(t, err)
	assert.Contains(t, out, "allow_tool_writes = false")

	_, err = ch.HandleCommand(ctx, "/config set allow_tool_writes true")
	require.NoError(t, err)
	assert.True(t, orch.WritesEnabled())

	_, err = ch.HandleCommand(ctx, "/config set allow_tool_writes maybe")
	assert.Error(t, err)

	out, err = ch.HandleCommand(ctx, "/config set streaming true")
	require.NoError(t, err)
	assert.Equal(t, "streaming = true", out)

	_, err = ch.HandleCommand(ctx, "/config set model gpt-5")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "selenai.toml")
	out, err = ch.HandleCommand(ctx, "/config save "+path)
	require.NoError(t, err)
	assert.Equal(t, "Configuration saved to "+path, out)
	saved, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, saved.AllowToolWrites)
	assert.True(t, saved.Streaming)
}

func newTestModel(t *testing.T, writes bool) *Model {
	t.Helper()
	m := NewModel(newTestOrchestrator(t, writes), styles.NoTTYStyle)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func TestModelStreamsAssistantText(t *testing.T) {
	m := newTestModel(t, false)
	start := len(m.messages)

	m.Update(eventMsg{event: orchestrator.Event{Kind: orchestrator.EventAssistantDelta, Text: "Hel"}})
	m.Update(eventMsg{event: orchestrator.Event{Kind: orchestrator.EventAssistantDelta, Text: "lo"}})
	m.Update(eventMsg{event: orchestrator.Event{Kind: orchestrator.EventAssistantDone, Text: "Hello"}})

	require.Len(t, m.messages, start+1)
	assert.Equal(t, roleAssistant, m.messages[start].role)
	assert.Equal(t, "Hello", m.messages[start].content)
	assert.Equal(t, -1, m.streaming)
	assert.Contains(t, m.View(), "Hello")
}

func TestModelShowsToolLifecycle(t *testing.T) {
	m := newTestModel(t, true)
	ctx := context.Background()

	var events []orchestrator.Event
	m.orch.SetSink(func(ev orchestrator.Event) { events = append(events, ev) })
	m.orch.Submit(ctx, tools.NewInvocation(`"queued"`, "check", tools.ModelIssued("call_1")))
	m.orch.RunManual(ctx, `"manual"`)
	for _, ev := range events {
		m.Update(eventMsg{event: ev})
	}

	last := m.messages[len(m.messages)-2:]
	assert.Equal(t, ToolStatePending, last[0].state)
	assert.Contains(t, last[0].content, "/tool approve #1")
	assert.Equal(t, ToolStateCompleted, last[1].state)
	assert.Contains(t, last[1].content, "manual")
	assert.Contains(t, m.statusLine(), "1 pending")
}

func TestModelCommandResult(t *testing.T) {
	m := newTestModel(t, false)

	_, cmd := m.Update(commandDoneMsg{err: ErrQuitRequested})
	require.NotNil(t, cmd)

	m.Update(commandDoneMsg{output: "No pending tool calls."})
	assert.Equal(t, roleSystem, m.messages[len(m.messages)-1].role)
	assert.False(t, m.busy)
}

func TestCommandSuggestions(t *testing.T) {
	suggestions := availableCommandSuggestions()
	assert.Contains(t, suggestions, "/tool approve")
	assert.Contains(t, suggestions, "/config set allow_tool_writes")
	for _, s := range suggestions {
		assert.False(t, strings.ContainsAny(s, "<["), s)
	}
}

// Package tui is the interactive terminal front end: a scrolling
// conversation view, a prompt and slash commands for the approval queue.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/codefionn/selenai/internal/logger"
	"github.com/codefionn/selenai/internal/orchestrator"
)

const (
	defaultInputPlaceholder = "Ask something, or /help for commands (Alt+Enter for newline)"
	inputHeight             = 3
	chromeHeight            = 4 // title, status and spacing around the input
)

// eventMsg carries an orchestrator event into the update loop.
type eventMsg struct {
	event orchestrator.Event
}

type commandDoneMsg struct {
	output string
	err    error
}

type promptDoneMsg struct {
	err error
}

// Model is the bubbletea model of the interactive session.
type Model struct {
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	renderer *MessageRenderer

	orch     *orchestrator.Orchestrator
	commands *CommandHandler

	messages  []message
	streaming int // index of the assistant message being streamed, -1 if none
	busy      bool
	cancel    context.CancelFunc
	err       error
	ready     bool
	width     int
	height    int
}

// NewModel creates the view for orch. glamourStyle is "auto" or a glamour
// standard style name.
func NewModel(orch *orchestrator.Orchestrator, glamourStyle string) *Model {
	ta := textarea.New()
	ta.Placeholder = defaultInputPlaceholder
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New(spinner.WithSpinner(spinner.Line), spinner.WithStyle(statusStyle.MarginLeft(0)))

	m := &Model{
		textarea:  ta,
		spinner:   sp,
		renderer:  NewMessageRenderer(glamourStyle, 80),
		orch:      orch,
		commands:  NewCommandHandler(orch),
		streaming: -1,
		viewport:  viewport.New(80, 20),
	}
	m.messages = append(m.messages, newMessage(roleSystem, m.greeting()))
	return m
}

func (m *Model) greeting() string {
	mode := "read-only"
	if m.orch.WritesEnabled() {
		mode = "writes need approval"
	}
	text := fmt.Sprintf("Workspace %s, model %s, %s.", m.orch.WorkspaceRoot(), m.orch.ModelName(), mode)
	if dir := m.orch.SessionDir(); dir != "" {
		text += "\nRecording to " + dir
	}
	return text
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, orch *orchestrator.Orchestrator, glamourStyle string) error {
	m := NewModel(orch, glamourStyle)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	orch.SetSink(func(ev orchestrator.Event) {
		p.Send(eventMsg{event: ev})
	})
	defer orch.SetSink(nil)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.stop()
			return m, tea.Quit
		case "esc":
			m.stop()
			return m, nil
		case "alt+enter", "ctrl+j":
			m.textarea.InsertString("\n")
			return m, nil
		case "tab":
			m.complete()
			return m, nil
		case "enter":
			return m, m.submit()
		}

	case eventMsg:
		m.handleEvent(msg.event)

	case commandDoneMsg:
		m.busy = false
		m.cancel = nil
		if errors.Is(msg.err, ErrQuitRequested) {
			return m, tea.Quit
		}
		if msg.err != nil {
			m.appendMessage(newMessage(roleError, msg.err.Error()))
		} else if msg.output != "" {
			m.appendMessage(newMessage(roleSystem, msg.output))
		}

	case promptDoneMsg:
		m.busy = false
		m.cancel = nil
		if msg.err != nil && errors.Is(msg.err, orchestrator.ErrAwaitingApproval) {
			m.appendMessage(newMessage(roleError, msg.err.Error()))
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

// submit sends the input as a command or a prompt. Both run off the
// update loop; their events arrive as eventMsg.
func (m *Model) submit() tea.Cmd {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return nil
	}
	if m.busy {
		m.err = fmt.Errorf("still working; press ESC to stop")
		return nil
	}
	m.textarea.Reset()
	m.err = nil

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.busy = true

	if IsCommand(input) {
		m.appendMessage(newMessage(roleUser, input))
		return func() tea.Msg {
			defer cancel()
			out, err := m.commands.HandleCommand(ctx, input)
			return commandDoneMsg{output: out, err: err}
		}
	}

	m.appendMessage(newMessage(roleUser, input))
	return func() tea.Msg {
		defer cancel()
		err := m.orch.Send(ctx, input)
		if err != nil {
			logger.Debug("prompt finished with error: %v", err)
		}
		return promptDoneMsg{err: err}
	}
}

func (m *Model) complete() {
	input := m.textarea.Value()
	if !IsCommand(input) {
		return
	}
	for _, suggestion := range availableCommandSuggestions() {
		if strings.HasPrefix(suggestion, input) && suggestion != input {
			m.textarea.SetValue(suggestion + " ")
			return
		}
	}
}

func (m *Model) handleEvent(ev orchestrator.Event) {
	switch ev.Kind {
	case orchestrator.EventAssistantDelta:
		if m.streaming < 0 {
			m.messages = append(m.messages, newMessage(roleAssistant, ""))
			m.streaming = len(m.messages) - 1
		}
		m.messages[m.streaming].content += ev.Text
	case orchestrator.EventAssistantDone:
		if m.streaming < 0 && ev.Text != "" {
			m.messages = append(m.messages, newMessage(roleAssistant, ev.Text))
		}
		m.streaming = -1
	case orchestrator.EventToolQueued:
		m.messages = append(m.messages, toolQueuedMessage(ev.Entry))
	case orchestrator.EventToolResult:
		m.messages = append(m.messages, toolResultMessage(ev.Invocation, ev.Result))
	case orchestrator.EventToolSkipped:
		m.messages = append(m.messages, toolSkippedMessage(ev.Entry))
	case orchestrator.EventNotice:
		m.messages = append(m.messages, newMessage(roleSystem, ev.Text))
	case orchestrator.EventError:
		m.streaming = -1
		m.messages = append(m.messages, newMessage(roleError, ev.Err.Error()))
	case orchestrator.EventTurnDone:
		m.streaming = -1
	}
	m.refreshViewport()
}

func (m *Model) appendMessage(msg message) {
	m.messages = append(m.messages, msg)
	m.refreshViewport()
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.textarea.SetWidth(width - 2)
	m.viewport.Width = width
	m.viewport.Height = max(height-inputHeight-chromeHeight, 3)
	m.renderer.SetWidth(width)
	m.ready = true
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	blocks := make([]string, len(m.messages))
	for i, msg := range m.messages {
		blocks[i] = m.renderer.Render(msg)
	}
	m.viewport.SetContent(strings.Join(blocks, "\n\n"))
	m.viewport.GotoBottom()
}

func (m *Model) statusLine() string {
	mode := readModeStyle.Render("read-only")
	if m.orch.WritesEnabled() {
		mode = writeModeStyle.Render("writes: approval")
	}
	parts := []string{mode}
	if n := len(m.orch.Pending()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d pending (/tool list)", n))
	}
	if m.busy {
		parts = append(parts, m.spinner.View()+" working (ESC to stop)")
	}
	return statusStyle.Render(strings.Join(parts, " · "))
}

func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("SelenAI"))
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	if m.err != nil {
		sb.WriteString(errorStyle.Render(m.err.Error()))
	} else {
		sb.WriteString(m.statusLine())
	}
	sb.WriteString("\n")
	sb.WriteString(m.textarea.View())
	return sb.String()
}

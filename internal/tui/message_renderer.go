package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/codefionn/selenai/internal/approval"
	"github.com/codefionn/selenai/internal/logger"
	"github.com/codefionn/selenai/internal/tools"
)

const (
	roleUser      = "You"
	roleAssistant = "Assistant"
	roleTool      = "Tool"
	roleSystem    = "System"
	roleError     = "Error"
)

// message is one entry of the conversation view
type message struct {
	role      string
	content   string // raw markdown content
	timestamp string
	title     string // tool log title
	state     ToolState
}

func newMessage(role, content string) message {
	return message{role: role, content: content, timestamp: time.Now().Format("15:04:05")}
}

func toolResultMessage(inv *tools.Invocation, res *tools.Result) message {
	msg := newMessage(roleTool, fence(res.Render()))
	msg.title = inv.Title()
	msg.state = ToolStateCompleted
	if !res.OK() {
		msg.state = ToolStateFailed
	}
	return msg
}

func toolQueuedMessage(entry *approval.Entry) message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Waiting for approval as **%s**.\n\n", entry.Handle())
	sb.WriteString(fence(entry.Invocation.Source))
	sb.WriteString("\nPreview:\n\n")
	sb.WriteString(fence(entry.Preview))
	fmt.Fprintf(&sb, "\nUse `/tool approve %s` or `/tool skip %s`.", entry.Handle(), entry.Handle())

	msg := newMessage(roleTool, sb.String())
	msg.title = entry.Invocation.Title()
	msg.state = ToolStatePending
	return msg
}

func toolSkippedMessage(entry *approval.Entry) message {
	msg := newMessage(roleTool, fmt.Sprintf("%s canceled before execution.", entry.Handle()))
	msg.title = entry.Invocation.Title()
	msg.state = ToolStateSkipped
	return msg
}

func fence(text string) string {
	return "```\n" + strings.TrimRight(text, "\n") + "\n```\n"
}

// MessageRenderer renders messages with glamour, caching one renderer per
// wrap width.
type MessageRenderer struct {
	style     string
	width     int
	renderers map[int]*glamour.TermRenderer
}

// NewMessageRenderer creates a renderer. style is a glamour standard style
// name or "auto".
func NewMessageRenderer(style string, width int) *MessageRenderer {
	return &MessageRenderer{style: style, width: width, renderers: make(map[int]*glamour.TermRenderer)}
}

// SetWidth updates the wrap width.
func (mr *MessageRenderer) SetWidth(width int) {
	mr.width = width
}

func (mr *MessageRenderer) renderer() *glamour.TermRenderer {
	wrap := max(mr.width-4, 20)
	if r, ok := mr.renderers[wrap]; ok {
		return r
	}

	styleOpt := glamour.WithAutoStyle()
	if mr.style != "" && mr.style != "auto" {
		styleOpt = glamour.WithStandardStyle(mr.style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wrap), glamour.WithPreservedNewLines())
	if err != nil {
		logger.Warn("markdown renderer unavailable: %v", err)
		r = nil
	}
	mr.renderers[wrap] = r
	return r
}

// RenderMarkdown renders content, falling back to wrapped plain text.
func (mr *MessageRenderer) RenderMarkdown(content string) string {
	if r := mr.renderer(); r != nil {
		if out, err := r.Render(content); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return wordwrap.String(content, max(mr.width-4, 20))
}

// RenderHeader creates the role line with a right-aligned timestamp.
func (mr *MessageRenderer) RenderHeader(msg message) string {
	var roleText string
	switch msg.role {
	case roleUser:
		roleText = userRoleStyle.Render(msg.role)
	case roleAssistant:
		roleText = assistantRoleStyle.Render(msg.role)
	case roleTool:
		parts := []string{
			stateStyle(msg.state).Render(msg.state.Indicator()),
			toolNameStyle.Render(tools.ScriptToolName),
		}
		if msg.title != "" {
			parts = append(parts, summaryStyle.Render(msg.title))
		}
		roleText = strings.Join(parts, " ")
	case roleError:
		roleText = errorStyle.MarginLeft(0).Render(msg.role)
	default:
		roleText = systemRoleStyle.Render(msg.role)
	}

	stamp := timestampStyle.Render(msg.timestamp)
	padding := max(mr.width-4-lipgloss.Width(roleText)-lipgloss.Width(stamp), 1)
	return roleText + strings.Repeat(" ", padding) + stamp
}

// Render produces the full block for one message.
func (mr *MessageRenderer) Render(msg message) string {
	body := msg.content
	switch msg.role {
	case roleUser, roleSystem, roleError:
		body = wordwrap.String(body, max(mr.width-4, 20))
	default:
		body = mr.RenderMarkdown(body)
	}
	return mr.RenderHeader(msg) + "\n" + body
}

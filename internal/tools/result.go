package tools

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/codefionn/selenai/internal/consts"
)

// Status is the terminal state of an executed invocation.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// LogEntry is one structured log line produced by a script.
type LogEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.Level, e.Message)
}

// Result is the outcome of one executed invocation. It is created once and
// not modified afterwards.
type Result struct {
	InvocationID string        `json:"invocation_id"`
	CallID       string        `json:"call_id,omitempty"`
	Value        string        `json:"value"`
	Stdout       []string      `json:"stdout,omitempty"`
	Stderr       []string      `json:"stderr,omitempty"`
	Logs         []LogEntry    `json:"logs,omitempty"`
	Status       Status        `json:"status"`
	Message      string        `json:"error,omitempty"`
	Kind         Kind          `json:"kind,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
}

// OK reports whether the invocation succeeded.
func (r *Result) OK() bool {
	return r.Status == StatusOK
}

// Err rebuilds an error carrying the failure kind, or nil on success.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Kind: r.Kind, Err: fmt.Errorf("%s", r.Message)}
}

// LogLines renders the log buffer as "[level] message" lines.
func (r *Result) LogLines() []string {
	lines := make([]string, len(r.Logs))
	for i, entry := range r.Logs {
		lines[i] = entry.String()
	}
	return lines
}

// Render formats the result for the conversation view and the tool message
// sent back to the model.
func (r *Result) Render() string {
	var sb strings.Builder
	sb.WriteString("value:\n")
	if r.Value == "" {
		sb.WriteString("<empty>\n")
	} else {
		sb.WriteString(r.Value)
		sb.WriteString("\n")
	}

	appendSection(&sb, "Stdout", r.Stdout)
	appendSection(&sb, "Stderr", r.Stderr)
	appendSection(&sb, "Logs", r.LogLines())

	sb.WriteString("\nstatus: ")
	if r.OK() {
		sb.WriteString("ok")
	} else {
		sb.WriteString("error: ")
		sb.WriteString(r.Message)
	}
	sb.WriteString("\n")
	return sb.String()
}

func appendSection(sb *strings.Builder, label string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s:\n", label)
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
}

// TruncateSummary shortens text for one-line labels.
func TruncateSummary(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "unspecified"
	}
	if utf8.RuneCountInString(trimmed) <= consts.SummaryWidth {
		return trimmed
	}
	return string([]rune(trimmed)[:consts.SummaryWidth]) + "..."
}

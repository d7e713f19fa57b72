package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/codefionn/selenai/internal/logger"
	"github.com/codefionn/selenai/internal/secretdetect"
	"github.com/codefionn/selenai/internal/tools"
)

// Storage format version for forward compatibility
const RecorderVersion = 1

const (
	metadataFile   = "metadata.json"
	transcriptFile = "transcript.jsonl"
	toolLogFile    = "tool_logs.jsonl"
)

// ToolStatus is the terminal state written for an invocation.
type ToolStatus string

const (
	ToolStatusPending ToolStatus = "pending"
	ToolStatusOK      ToolStatus = "ok"
	ToolStatusError   ToolStatus = "error"
	ToolStatusSkipped ToolStatus = "skipped"
)

// Metadata is written once when the session directory is created.
type Metadata struct {
	Version         int    `json:"version"`
	SessionID       string `json:"session_id"`
	StartedUnixMS   int64  `json:"started_unix_ms"`
	AllowToolWrites bool   `json:"allow_tool_writes"`
}

// ToolRecord is one line of tool_logs.jsonl.
type ToolRecord struct {
	Title        string            `json:"title"`
	Status       ToolStatus        `json:"status"`
	Invocation   *tools.Invocation `json:"invocation"`
	Result       *tools.Result     `json:"result,omitempty"`
	SourceDigest string            `json:"source_digest"`
	RecordedAt   time.Time         `json:"recorded_at"`
}

// Recorder appends transcript and tool log lines to a session directory.
// Secrets are elided from every string before it is written.
type Recorder struct {
	mu       sync.Mutex
	dir      string
	detector *secretdetect.Detector
	log      *logger.Logger
}

// NewRecorder creates session-<unix>-<pid>[-n] under root and writes its
// metadata.
func NewRecorder(root, sessionID string, allowToolWrites bool) (*Recorder, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", root, err)
	}
	dir, err := createUniqueSessionDir(root)
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		dir:      dir,
		detector: secretdetect.NewDetector(),
		log:      logger.Global().WithPrefix("session"),
	}
	meta := Metadata{
		Version:         RecorderVersion,
		SessionID:       sessionID,
		StartedUnixMS:   time.Now().UnixMilli(),
		AllowToolWrites: allowToolWrites,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}
	r.log.Info("recording session %s to %s", sessionID, dir)
	return r, nil
}

// Dir is the session directory.
func (r *Recorder) Dir() string {
	return r.dir
}

func createUniqueSessionDir(root string) (string, error) {
	base := fmt.Sprintf("session-%d-%d", time.Now().Unix(), os.Getpid())
	candidate := filepath.Join(root, base)
	for n := 2; ; n++ {
		err := os.Mkdir(candidate, 0o755)
		if err == nil {
			return candidate, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("failed to create session directory %s: %w", candidate, err)
		}
		candidate = filepath.Join(root, base+"-"+strconv.Itoa(n))
	}
}

// RecordMessage appends one conversation message to transcript.jsonl.
func (r *Recorder) RecordMessage(msg *Message) error {
	clean := *msg
	clean.Content = r.detector.Redact(msg.Content)
	return r.appendLine(transcriptFile, &clean)
}

// RecordTool appends one invocation with its status. result is nil for
// pending and skipped invocations.
func (r *Recorder) RecordTool(inv *tools.Invocation, result *tools.Result, status ToolStatus) error {
	rec := ToolRecord{
		Title:        r.detector.Redact(inv.Title()),
		Status:       status,
		Invocation:   r.redactInvocation(inv),
		Result:       r.redactResult(result),
		SourceDigest: Digest(inv.Source),
		RecordedAt:   time.Now(),
	}
	return r.appendLine(toolLogFile, &rec)
}

// Digest is the xxhash of a script source, used to correlate records.
func Digest(source string) string {
	return strconv.FormatUint(xxhash.Sum64String(source), 16)
}

func (r *Recorder) redactInvocation(inv *tools.Invocation) *tools.Invocation {
	clean := *inv
	clean.Source = r.detector.Redact(inv.Source)
	clean.Reason = r.detector.Redact(inv.Reason)
	return &clean
}

func (r *Recorder) redactResult(res *tools.Result) *tools.Result {
	if res == nil {
		return nil
	}
	clean := *res
	clean.Value = r.detector.Redact(res.Value)
	clean.Message = r.detector.Redact(res.Message)
	clean.Stdout = r.redactLines(res.Stdout)
	clean.Stderr = r.redactLines(res.Stderr)
	if len(res.Logs) > 0 {
		clean.Logs = make([]tools.LogEntry, len(res.Logs))
		for i, entry := range res.Logs {
			clean.Logs[i] = tools.LogEntry{Level: entry.Level, Message: r.detector.Redact(entry.Message)}
		}
	}
	return &clean
}

func (r *Recorder) redactLines(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = r.detector.Redact(line)
	}
	return out
}

func (r *Recorder) appendLine(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(r.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to %s: %w", name, err)
	}
	return f.Close()
}

package session

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codefionn/selenai/internal/tools"
)

func TestSessionMessages(t *testing.T) {
	s := NewSession("", "/repo")
	if s.ID == "" {
		t.Fatal("expected generated id")
	}

	s.AddMessage(&Message{Role: "user", Content: "hi"})
	s.AddMessage(&Message{Role: "assistant", Content: "hello"})
	s.AddMessage(&Message{Role: "user", Content: "again"})

	msgs := s.GetMessages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
	if got := s.UserMessageCount(); got != 2 {
		t.Errorf("UserMessageCount = %d, want 2", got)
	}

	s.Clear()
	if len(s.GetMessages()) != 0 {
		t.Error("expected empty history after Clear")
	}
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var line map[string]any
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			t.Fatalf("invalid json line %q: %v", sc.Text(), err)
		}
		out = append(out, line)
	}
	return out
}

func TestRecorderWritesMetadata(t *testing.T) {
	root := filepath.Join(t.TempDir(), "logs")
	r, err := NewRecorder(root, "sid", true)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(r.Dir()), "session-") {
		t.Errorf("unexpected dir name %s", r.Dir())
	}

	data, err := os.ReadFile(filepath.Join(r.Dir(), metadataFile))
	if err != nil {
		t.Fatal(err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatal(err)
	}
	if meta.Version != RecorderVersion || meta.SessionID != "sid" || !meta.AllowToolWrites {
		t.Errorf("unexpected metadata %+v", meta)
	}
}

func TestRecorderDirectoriesAreUnique(t *testing.T) {
	root := t.TempDir()
	a, err := NewRecorder(root, "a", false)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewRecorder(root, "b", false)
	if err != nil {
		t.Fatal(err)
	}
	if a.Dir() == b.Dir() {
		t.Fatalf("expected distinct dirs, both %s", a.Dir())
	}
}

func TestRecorderRedactsSecrets(t *testing.T) {
	r, err := NewRecorder(t.TempDir(), "sid", false)
	if err != nil {
		t.Fatal(err)
	}

	secret := "sk-abcdefghijklmnopqrstuvwxyz123456"
	if err := r.RecordMessage(&Message{Role: "user", Content: "my key is " + secret}); err != nil {
		t.Fatal(err)
	}

	inv := tools.NewInvocation(`key := "`+secret+`"`, "uses "+secret, tools.ModelIssued("call_1"))
	res := &tools.Result{
		InvocationID: inv.ID,
		Status:       tools.StatusOK,
		Value:        secret,
		Stdout:       []string{"printed " + secret},
		Logs:         []tools.LogEntry{{Level: "info", Message: secret}},
	}
	if err := r.RecordTool(inv, res, ToolStatusOK); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{transcriptFile, toolLogFile} {
		data, err := os.ReadFile(filepath.Join(r.Dir(), name))
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(string(data), secret) {
			t.Errorf("%s leaks the secret: %s", name, data)
		}
		if !strings.Contains(string(data), "[REDACTED]") {
			t.Errorf("%s has no redaction marker", name)
		}
	}

	// The caller's values stay untouched.
	if res.Value != secret || !strings.Contains(inv.Source, secret) {
		t.Error("redaction mutated the input")
	}
}

func TestRecorderToolStatuses(t *testing.T) {
	r, err := NewRecorder(t.TempDir(), "sid", true)
	if err != nil {
		t.Fatal(err)
	}

	inv := tools.NewInvocation("1 + 1", "math", tools.ModelIssued("call_2"))
	if err := r.RecordTool(inv, nil, ToolStatusPending); err != nil {
		t.Fatal(err)
	}
	if err := r.RecordTool(inv, nil, ToolStatusSkipped); err != nil {
		t.Fatal(err)
	}

	lines := readLines(t, filepath.Join(r.Dir(), toolLogFile))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["status"] != "pending" || lines[1]["status"] != "skipped" {
		t.Errorf("unexpected statuses %v / %v", lines[0]["status"], lines[1]["status"])
	}
	if _, ok := lines[1]["result"]; ok {
		t.Error("skipped record should have no result")
	}
	if lines[0]["source_digest"] != Digest("1 + 1") {
		t.Errorf("unexpected digest %v", lines[0]["source_digest"])
	}
}

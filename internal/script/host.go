package script

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"net/http"
	"path"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/traefik/yaegi/interp"

	"github.com/codefionn/selenai/internal/fs"
	"github.com/codefionn/selenai/internal/sandbox"
	"github.com/codefionn/selenai/internal/tools"
)

// hostPackage is the import path scripts use for capabilities.
const hostPackage = "host"

// serversDir holds tool sources grouped by server name.
const serversDir = "servers"

// Entry is one directory listing entry.
type Entry struct {
	Name  string
	IsDir bool
	Size  int64
}

// Request is the typed form of an HTTPRequest spec.
type Request struct {
	URL      string
	Method   string
	Headers  map[string]string
	Body     string
	Markdown bool
}

// Response is what HTTPRequest returns to the script.
type Response struct {
	Status  int
	Headers map[string]string
	Body    string
}

// Tool is a tool source loaded from servers/<server>/<tool>.
type Tool struct {
	Server  string
	Name    string
	Path    string
	Content string
}

// call is the context borrowed by host functions for one invocation.
type call struct {
	ctx   context.Context
	frame *frame
}

// host implements the capability functions bound into one interpreter.
// dryRun hosts record write intents in the frame instead of performing
// them.
type host struct {
	fs          fs.FileSystem
	runner      *sandbox.Runner
	ignore      *fs.IgnoreCache
	client      *http.Client
	httpTimeout time.Duration
	writes      *atomic.Bool
	dryRun      bool

	active  atomic.Pointer[call]
	retired atomic.Bool
}

var orphan = &call{ctx: context.Background(), frame: &frame{sealed: true}}

func (h *host) begin(ctx context.Context, f *frame) *call {
	c := &call{ctx: ctx, frame: f}
	h.active.Store(c)
	return c
}

func (h *host) end(c *call) {
	h.active.CompareAndSwap(c, nil)
}

// retire detaches h from its interpreter for good. A script still running
// on that interpreter can no longer reach the capabilities or the buffers.
func (h *host) retire() {
	h.retired.Store(true)
	h.active.Store(nil)
}

// current returns the active call. Outside an invocation, or once h is
// retired, writes land in a sealed frame and are dropped.
func (h *host) current() *call {
	if h.retired.Load() {
		return orphan
	}
	if c := h.active.Load(); c != nil {
		return c
	}
	return orphan
}

// enter returns the call a capability runs under. It fails when no
// invocation is running or the running one has timed out or been canceled.
func (h *host) enter(op string) (*call, error) {
	c := h.current()
	if c == orphan {
		return nil, tools.Errorf(tools.KindScriptRuntime, op, "no invocation is running")
	}
	if err := c.ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, tools.Errorf(tools.KindTimeout, op, "invocation timed out")
		}
		return nil, tools.Errorf(tools.KindScriptRuntime, op, "invocation canceled")
	}
	return c, nil
}

// streamWriter is the interpreter's stdout/stderr.
type streamWriter struct {
	h      *host
	stream stream
}

func (w streamWriter) Write(p []byte) (int, error) {
	w.h.current().frame.write(w.stream, p)
	return len(p), nil
}

func (h *host) exports() interp.Exports {
	return interp.Exports{
		hostPackage + "/" + hostPackage: {
			"ReadFile":    reflect.ValueOf(h.ReadFile),
			"ReadLines":   reflect.ValueOf(h.ReadLines),
			"ListDir":     reflect.ValueOf(h.ListDir),
			"WriteFile":   reflect.ValueOf(h.WriteFile),
			"PatchFile":   reflect.ValueOf(h.PatchFile),
			"HTTPRequest": reflect.ValueOf(h.HTTPRequest),
			"Log":         reflect.ValueOf(h.Log),
			"Eprint":      reflect.ValueOf(h.Eprint),
			"GitStatus":   reflect.ValueOf(h.GitStatus),
			"GitDiff":     reflect.ValueOf(h.GitDiff),
			"RunCommand":  reflect.ValueOf(h.RunCommand),
			"Search":      reflect.ValueOf(h.Search),
			"ListServers": reflect.ValueOf(h.ListServers),
			"ListTools":   reflect.ValueOf(h.ListTools),
			"LoadTool":    reflect.ValueOf(h.LoadTool),
			"Repr":        reflect.ValueOf(Repr),

			"Entry":         reflect.ValueOf((*Entry)(nil)),
			"Request":       reflect.ValueOf((*Request)(nil)),
			"Response":      reflect.ValueOf((*Response)(nil)),
			"Tool":          reflect.ValueOf((*Tool)(nil)),
			"CommandResult": reflect.ValueOf((*sandbox.CommandResult)(nil)),
			"Match":         reflect.ValueOf((*fs.Match)(nil)),

			"ErrPathTraversal":    reflect.ValueOf(&tools.ErrPathTraversal).Elem(),
			"ErrWritesDisabled":   reflect.ValueOf(&tools.ErrWritesDisabled).Elem(),
			"ErrCapabilityDenied": reflect.ValueOf(&tools.ErrCapabilityDenied).Elem(),
			"ErrIO":               reflect.ValueOf(&tools.ErrIO).Elem(),
			"ErrNetwork":          reflect.ValueOf(&tools.ErrNetwork).Elem(),
			"ErrArgumentParse":    reflect.ValueOf(&tools.ErrArgumentParse).Elem(),
			"ErrNotFound":         reflect.ValueOf(&tools.ErrNotFound).Elem(),
		},
	}
}

// Repr renders any value the way results are rendered.
func Repr(v interface{}) string {
	return FromAny(v).Repr()
}

func (h *host) ReadFile(p string) (string, error) {
	c, err := h.enter("read_file")
	if err != nil {
		return "", err
	}
	return fs.ReadText(c.ctx, h.fs, p)
}

func (h *host) ReadLines(p string) ([]string, error) {
	text, err := h.ReadFile(p)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{}, nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines, nil
}

func (h *host) ListDir(p string) ([]Entry, error) {
	c, err := h.enter("list_dir")
	if err != nil {
		return nil, err
	}
	infos, err := h.fs.ListDir(c.ctx, p)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{Name: info.Name, IsDir: info.IsDir, Size: info.Size})
	}
	return entries, nil
}

// checkWrite applies the write gate. It runs before path resolution so a
// closed gate reports WritesDisabled for every path.
func (h *host) checkWrite(op, p string) error {
	if !h.writes.Load() {
		return tools.NewError(tools.KindWritesDisabled, op, p, nil)
	}
	return nil
}

// checkTarget validates a write target without writing, for dry runs.
func (h *host) checkTarget(p string) error {
	return fs.CheckWritable(h.fs, p)
}

func (h *host) WriteFile(p, contents string) error {
	c, err := h.enter("write_file")
	if err != nil {
		return err
	}
	if err := h.checkWrite("write_file", p); err != nil {
		return err
	}
	if h.dryRun {
		if err := h.checkTarget(p); err != nil {
			return err
		}
		c.frame.record(fmt.Sprintf("Would write to `%s` (%d bytes)", p, len(contents)))
		return nil
	}
	return h.fs.WriteFile(c.ctx, p, []byte(contents))
}

func (h *host) PatchFile(p, unifiedDiff string) error {
	c, err := h.enter("patch_file")
	if err != nil {
		return err
	}
	if err := h.checkWrite("patch_file", p); err != nil {
		return err
	}
	if h.dryRun {
		if err := h.checkTarget(p); err != nil {
			return err
		}
	}
	original, err := fs.ReadText(c.ctx, h.fs, p)
	if err != nil {
		if !errors.Is(err, iofs.ErrNotExist) {
			return err
		}
		original = ""
	}

	patched, err := applyPatch(original, unifiedDiff)
	if h.dryRun {
		if err != nil {
			c.frame.record(fmt.Sprintf("Patch CONFLICT for `%s`: %v", p, err))
		} else {
			c.frame.record(fmt.Sprintf("Patch applies cleanly to `%s`", p))
		}
		return nil
	}
	if err != nil {
		return tools.NewError(tools.KindIO, "patch_file", p, err)
	}
	return h.fs.WriteFile(c.ctx, p, []byte(patched))
}

func (h *host) Eprint(args ...interface{}) {
	h.current().frame.write(streamStderr, []byte(fmt.Sprintln(args...)))
}

// Log records a string as an info entry, or a mapping {level?, message}.
// Anything else is logged by its representation.
func (h *host) Log(entry interface{}) {
	h.current().frame.log(logEntryFrom(FromAny(entry)))
}

func logEntryFrom(v Value) tools.LogEntry {
	entry := tools.LogEntry{Level: "info"}
	switch v.Kind {
	case KindText:
		entry.Message = v.Text
	case KindMapping:
		msg, ok := v.Field("message")
		if !ok {
			entry.Message = v.Repr()
			break
		}
		entry.Message = msg.String()
		if level, ok := v.Field("level"); ok {
			if s, err := level.AsText(); err == nil && strings.TrimSpace(s) != "" {
				entry.Level = strings.ToLower(strings.TrimSpace(s))
			}
		}
	default:
		entry.Message = v.Repr()
	}
	return entry
}

func (h *host) GitStatus() (sandbox.CommandResult, error) {
	return h.run("git", "status", "--porcelain")
}

func (h *host) GitDiff(args ...string) (sandbox.CommandResult, error) {
	return h.run("git", append([]string{"diff"}, args...)...)
}

func (h *host) RunCommand(name string, args ...string) (sandbox.CommandResult, error) {
	return h.run(name, args...)
}

func (h *host) run(name string, args ...string) (sandbox.CommandResult, error) {
	c, err := h.enter("run_command")
	if err != nil {
		return sandbox.CommandResult{}, err
	}
	if h.runner == nil {
		return sandbox.CommandResult{}, tools.Errorf(tools.KindCapabilityDenied, "run_command", "command execution is not available")
	}
	if h.dryRun {
		if err := h.runner.Policy().Check(name, args, h.fs); err != nil {
			return sandbox.CommandResult{}, err
		}
		c.frame.record("Would run command: " + strings.Join(append([]string{name}, args...), " "))
		return sandbox.CommandResult{}, nil
	}
	res, err := h.runner.Run(c.ctx, name, args...)
	if err != nil {
		return sandbox.CommandResult{}, err
	}
	return *res, nil
}

func (h *host) Search(pattern, dir string) ([]fs.Match, error) {
	c, err := h.enter("search")
	if err != nil {
		return nil, err
	}
	return fs.Search(c.ctx, h.fs, h.ignore, pattern, dir)
}

func (h *host) ListServers() ([]string, error) {
	c, err := h.enter("list_servers")
	if err != nil {
		return nil, err
	}
	infos, err := h.fs.ListDir(c.ctx, serversDir)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	names := []string{}
	for _, info := range infos {
		if info.IsDir {
			names = append(names, info.Name)
		}
	}
	return names, nil
}

func (h *host) ListTools(server string) ([]string, error) {
	c, err := h.enter("list_tools")
	if err != nil {
		return nil, err
	}
	if err := fs.EnsureSingleComponent(server, "server"); err != nil {
		return nil, err
	}
	infos, err := h.fs.ListDir(c.ctx, path.Join(serversDir, server))
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, info := range infos {
		if !info.IsDir {
			names = append(names, info.Name)
		}
	}
	return names, nil
}

func (h *host) LoadTool(server, tool string) (Tool, error) {
	c, err := h.enter("load_tool")
	if err != nil {
		return Tool{}, err
	}
	if err := fs.EnsureSingleComponent(server, "server"); err != nil {
		return Tool{}, err
	}
	if err := fs.EnsureSingleComponent(tool, "tool"); err != nil {
		return Tool{}, err
	}
	p := path.Join(serversDir, server, tool)
	content, err := fs.ReadText(c.ctx, h.fs, p)
	if err != nil {
		return Tool{}, err
	}
	return Tool{Server: server, Name: tool, Path: p, Content: content}, nil
}

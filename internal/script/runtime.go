// Package script hosts the persistent Go interpreter that runs tool
// scripts against the confined capability surface.
package script

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/traefik/yaegi/interp"

	"github.com/codefionn/selenai/internal/consts"
	"github.com/codefionn/selenai/internal/fs"
	"github.com/codefionn/selenai/internal/logger"
	"github.com/codefionn/selenai/internal/sandbox"
	"github.com/codefionn/selenai/internal/tools"
)

// Options configures a Runtime.
type Options struct {
	FS            fs.FileSystem
	Runner        *sandbox.Runner
	Ignore        *fs.IgnoreCache
	HTTPClient    *http.Client
	Timeout       time.Duration
	HTTPTimeout   time.Duration
	WritesEnabled bool
}

// Runtime owns one long-lived interpreter. Globals defined by one
// invocation stay visible to the next until Reset. Execute, Reset and
// SetWritesEnabled are serialized. An invocation that times out or is
// canceled may leave its script running, so the interpreter is replaced
// and its globals are lost.
type Runtime struct {
	mu     sync.Mutex
	opts   Options
	writes atomic.Bool
	host   *host
	interp *interp.Interpreter
	log    *logger.Logger
}

// New creates a runtime and loads the prelude.
func New(opts Options) (*Runtime, error) {
	if opts.FS == nil {
		return nil, errors.New("script runtime requires a filesystem")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = consts.DefaultScriptTimeout
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = consts.DefaultHTTPTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	r := &Runtime{opts: opts, log: logger.Global().WithPrefix("script")}
	r.writes.Store(opts.WritesEnabled)
	r.host = r.newHost(false, &r.writes)

	i, err := newInterpreter(r.host)
	if err != nil {
		return nil, err
	}
	r.interp = i
	return r, nil
}

func (r *Runtime) newHost(dryRun bool, writes *atomic.Bool) *host {
	return &host{
		fs:          r.opts.FS,
		runner:      r.opts.Runner,
		ignore:      r.opts.Ignore,
		client:      r.opts.HTTPClient,
		httpTimeout: r.opts.HTTPTimeout,
		writes:      writes,
		dryRun:      dryRun,
	}
}

func newInterpreter(h *host) (*interp.Interpreter, error) {
	i := interp.New(interp.Options{
		Stdin:  strings.NewReader(""),
		Stdout: streamWriter{h: h, stream: streamStdout},
		Stderr: streamWriter{h: h, stream: streamStderr},
		Env:    []string{},
	})
	if err := i.Use(allowedSymbols()); err != nil {
		return nil, fmt.Errorf("failed to load stdlib symbols: %w", err)
	}
	if err := i.Use(h.exports()); err != nil {
		return nil, fmt.Errorf("failed to load host package: %w", err)
	}
	i.ImportUsed()

	if _, err := i.Eval(prelude); err != nil {
		return nil, fmt.Errorf("failed to load prelude: %w", err)
	}
	return i, nil
}

// WritesEnabled reports the write gate.
func (r *Runtime) WritesEnabled() bool {
	return r.writes.Load()
}

// SetWritesEnabled changes the write gate. It waits for a running
// invocation to finish.
func (r *Runtime) SetWritesEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes.Store(enabled)
	r.log.Info("tool writes %s", map[bool]string{true: "enabled", false: "disabled"}[enabled])
}

// Timeout returns the per-invocation wall-time bound.
func (r *Runtime) Timeout() time.Duration {
	return r.opts.Timeout
}

// Reset discards every global defined by earlier invocations.
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.restart(); err != nil {
		return err
	}
	r.log.Info("runtime reset")
	return nil
}

// restart retires the current host and starts a fresh interpreter. Host
// functions bound into the old interpreter fail from then on.
func (r *Runtime) restart() error {
	r.host.retire()

	h := r.newHost(false, &r.writes)
	i, err := newInterpreter(h)
	if err != nil {
		r.interp = nil
		return err
	}
	r.host, r.interp = h, i
	return nil
}

// Execute evaluates inv.Source against the shared interpreter. It never
// returns nil and never panics; failures are reported in the result.
func (r *Runtime) Execute(ctx context.Context, inv *tools.Invocation) *tools.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	res := &tools.Result{InvocationID: inv.ID, CallID: inv.Origin.CallID, Status: tools.StatusOK}

	if err := validateSource(inv.Source); err != nil {
		setFailure(res, err)
		res.Duration = time.Since(start)
		return res
	}
	if r.interp == nil {
		if err := r.restart(); err != nil {
			setFailure(res, tools.NewError(tools.KindScriptRuntime, "", "", err))
			res.Duration = time.Since(start)
			return res
		}
	}

	v, out, err := r.evaluate(ctx, r.interp, r.host, inv.Source)
	res.Stdout = out.stdout
	res.Stderr = out.stderr
	res.Logs = out.logs
	res.Duration = time.Since(start)

	switch {
	case err != nil:
		setFailure(res, err)
	case finalError(v) != nil:
		setFailure(res, finalError(v))
	default:
		res.Value = renderValue(v)
	}

	if r.host.retired.Load() {
		if err := r.restart(); err != nil {
			r.log.Error("failed to restart interpreter: %v", err)
		}
		res.Message += " (interpreter restarted, globals discarded)"
		r.log.Warn("invocation %s abandoned; interpreter restarted", inv.ID)
	}

	r.log.Debug("invocation %s finished: %s in %v", inv.ID, res.Status, res.Duration)
	return res
}

// evaluate runs source with a fresh frame borrowed by h for the duration
// of the call. When the deadline or the caller ends the evaluation, the
// script may still be running on i, so h is retired.
func (r *Runtime) evaluate(ctx context.Context, i *interp.Interpreter, h *host, source string) (v reflect.Value, out drained, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	f := &frame{}
	c := h.begin(ctx, f)
	defer h.end(c)

	v, err = evalSafely(ctx, i, source)
	if err != nil && ctx.Err() != nil {
		h.retire()
	}
	out = f.drain()

	if err != nil {
		err = r.classify(ctx, err)
	}
	return v, out, err
}

func evalSafely(ctx context.Context, i *interp.Interpreter, source string) (v reflect.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = tools.Errorf(tools.KindScriptRuntime, "", "panic: %v", p)
		}
	}()
	return i.EvalWithContext(ctx, source)
}

func (r *Runtime) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return tools.Errorf(tools.KindTimeout, "", "script exceeded %v", r.opts.Timeout)
	}
	if errors.Is(err, context.Canceled) {
		return tools.Errorf(tools.KindScriptRuntime, "", "script canceled")
	}

	var p interp.Panic
	if errors.As(err, &p) {
		if perr, ok := p.Value.(error); ok && tools.KindOf(perr) != tools.KindUnknown {
			return perr
		}
		return tools.Errorf(tools.KindScriptRuntime, "", "panic: %v", p.Value)
	}
	if tools.KindOf(err) != tools.KindUnknown {
		return err
	}
	return tools.NewError(tools.KindScriptRuntime, "", "", err)
}

func setFailure(res *tools.Result, err error) {
	res.Status = tools.StatusError
	res.Kind = tools.KindOf(err)
	if res.Kind == tools.KindUnknown {
		res.Kind = tools.KindScriptRuntime
	}
	res.Message = err.Error()
}

// finalError returns the script's last value when it is a non-nil error.
func finalError(v reflect.Value) error {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr) {
		if v.IsNil() {
			return nil
		}
		if v.CanInterface() {
			if err, ok := v.Interface().(error); ok {
				return err
			}
		}
		if v.Kind() == reflect.Ptr {
			return nil
		}
		v = v.Elem()
	}
	return nil
}

func renderValue(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	return FromReflect(v).String()
}

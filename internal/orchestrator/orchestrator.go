// Package orchestrator ties the conversation with the model to the script
// runtime, the write gate and the approval queue.
package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/codefionn/selenai/internal/actor"
	"github.com/codefionn/selenai/internal/approval"
	"github.com/codefionn/selenai/internal/config"
	"github.com/codefionn/selenai/internal/fs"
	"github.com/codefionn/selenai/internal/llm"
	"github.com/codefionn/selenai/internal/logger"
	"github.com/codefionn/selenai/internal/sandbox"
	"github.com/codefionn/selenai/internal/script"
	"github.com/codefionn/selenai/internal/session"
	"github.com/codefionn/selenai/internal/tools"
	"github.com/codefionn/selenai/internal/vcs"
)

const runtimeActorID = "runtime"

// Options configures an Orchestrator.
type Options struct {
	Config *config.Config
	// Client overrides the provider client built from Config.
	Client llm.Client
	Sink   Sink
	// RecordDir enables the session transcript under this directory.
	RecordDir string
	// SelfExec is the executable used to re-exec restricted commands under
	// the sandbox. Empty runs them directly.
	SelfExec   string
	HTTPClient *http.Client
	// VCS describes the repository in the system prompt. Defaults to git.
	VCS vcs.VCS
}

// Orchestrator manages the LLM interaction and every script invocation of
// a session. Public operations are serialized.
type Orchestrator struct {
	mu sync.Mutex

	config    *config.Config
	workspace *fs.Workspace
	ignore    *fs.IgnoreCache
	runtime   *script.Runtime

	actorSystem *actor.System
	actorCancel context.CancelFunc
	runner      *actor.RuntimeClient

	queue    *approval.Queue
	session  *session.Session
	recorder *session.Recorder
	client   llm.Client
	sink     Sink
	loops    *LoopDetector
	repo     string

	// call ids of the current turn still waiting for a result
	outstanding map[string]struct{}
	turnActive  bool
	rounds      int
}

// NewOrchestrator opens the workspace, starts the runtime actor and
// creates the provider client.
func NewOrchestrator(ctx context.Context, opts Options) (*Orchestrator, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	capCfg, err := cfg.ToCapabilityConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}
	logger.Debug("Creating orchestrator with workspace=%s writes=%v", capCfg.WorkspaceRoot, capCfg.WritesEnabled)

	ws, err := fs.OpenWorkspace(capCfg.WorkspaceRoot)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		config:      cfg,
		workspace:   ws,
		ignore:      fs.NewIgnoreCache(ws),
		actorSystem: actor.NewSystem(),
		queue:       approval.NewQueue(),
		session:     session.NewSession("", ws.Root()),
		client:      opts.Client,
		sink:        opts.Sink,
		loops:       NewLoopDetector(),
		outstanding: make(map[string]struct{}),
	}
	if o.sink == nil {
		o.sink = discard
	}

	repo := opts.VCS
	if repo == nil {
		repo = vcs.NewGit(ws.Root())
	}
	vcsCtx, vcsCancel := context.WithTimeout(ctx, 5*time.Second)
	o.repo = vcs.Describe(vcsCtx, repo, ws.Root())
	vcsCancel()

	runnerOpts := []sandbox.RunnerOption{sandbox.WithTimeout(cfg.CommandTimeout())}
	if cfg.SandboxCommands && opts.SelfExec != "" {
		runnerOpts = append(runnerOpts, sandbox.WithSelfExec(opts.SelfExec))
	}
	commands := sandbox.NewRunner(ws.Root(), sandbox.NewPolicy(cfg.AllowedCommands), ws, runnerOpts...)

	o.runtime, err = script.New(script.Options{
		FS:            ws,
		Runner:        commands,
		Ignore:        o.ignore,
		HTTPClient:    opts.HTTPClient,
		Timeout:       cfg.ScriptTimeout(),
		HTTPTimeout:   cfg.HTTPTimeout(),
		WritesEnabled: capCfg.WritesEnabled,
	})
	if err != nil {
		o.closeWorkspace()
		return nil, fmt.Errorf("failed to start script runtime: %w", err)
	}

	actorCtx, actorCancel := context.WithCancel(context.Background())
	ref, err := o.actorSystem.Spawn(actorCtx, runtimeActorID, actor.NewRuntimeActor(runtimeActorID, o.runtime), 16)
	if err != nil {
		actorCancel()
		o.closeWorkspace()
		logger.Error("Failed to start runtime actor: %v", err)
		return nil, fmt.Errorf("failed to start runtime actor: %w", err)
	}
	o.actorCancel = actorCancel
	o.runner = actor.NewRuntimeClient(ref)
	logger.Debug("Runtime actor spawned")

	if o.client == nil {
		o.client, err = llm.NewClient(ctx, llm.Options{
			Provider: cfg.Provider,
			Model:    cfg.Model,
			BaseURL:  cfg.BaseURL(),
		})
		if err != nil {
			o.Close()
			return nil, err
		}
	}

	if opts.RecordDir != "" {
		o.recorder, err = session.NewRecorder(opts.RecordDir, o.session.ID, capCfg.WritesEnabled)
		if err != nil {
			// The session still works without a transcript.
			logger.Warn("Session transcript disabled: %v", err)
			o.recorder = nil
		}
	}
	return o, nil
}

func (o *Orchestrator) closeWorkspace() {
	if err := o.ignore.Close(); err != nil {
		logger.Debug("ignore cache close: %v", err)
	}
	if err := o.workspace.Close(); err != nil {
		logger.Debug("workspace close: %v", err)
	}
}

// Close stops the runtime actor and releases the workspace.
func (o *Orchestrator) Close() error {
	err := o.actorSystem.StopAll(context.Background())
	if o.actorCancel != nil {
		o.actorCancel()
	}
	o.closeWorkspace()
	return err
}

// SetSink replaces the event sink.
func (o *Orchestrator) SetSink(sink Sink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if sink == nil {
		sink = discard
	}
	o.sink = sink
}

// Config returns the live configuration.
func (o *Orchestrator) Config() *config.Config {
	return o.config
}

// WorkspaceRoot is the canonical root all capability paths resolve in.
func (o *Orchestrator) WorkspaceRoot() string {
	return o.workspace.Root()
}

// ModelName reports the model of the provider client.
func (o *Orchestrator) ModelName() string {
	return o.client.GetModelName()
}

// SessionDir is the transcript directory, empty when not recording.
func (o *Orchestrator) SessionDir() string {
	if o.recorder == nil {
		return ""
	}
	return o.recorder.Dir()
}

// WritesEnabled reports the current write gate.
func (o *Orchestrator) WritesEnabled() bool {
	return o.runtime.WritesEnabled()
}

// SetWritesEnabled changes the write gate. The change is applied between
// invocations, never during one.
func (o *Orchestrator) SetWritesEnabled(ctx context.Context, enabled bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.runner.SetWritesEnabled(ctx, enabled); err != nil {
		return err
	}
	o.config.AllowToolWrites = enabled
	logger.Info("allow_tool_writes set to %v", enabled)
	o.emit(Event{Kind: EventNotice, Text: fmt.Sprintf("allow_tool_writes = %v", enabled)})
	return nil
}

// Reset discards the runtime's globals.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.runner.Reset(ctx); err != nil {
		return err
	}
	o.emit(Event{Kind: EventNotice, Text: "Script runtime reset."})
	return nil
}

// Pending lists invocations awaiting approval, oldest first.
func (o *Orchestrator) Pending() []*approval.Entry {
	return o.queue.List()
}

// Preview dry-runs source and describes the writes it would make.
func (o *Orchestrator) Preview(ctx context.Context, source string) string {
	return o.runtime.Preview(ctx, source)
}

// History returns the conversation so far.
func (o *Orchestrator) History() []*session.Message {
	return o.session.GetMessages()
}

func (o *Orchestrator) emit(ev Event) {
	o.sink(ev)
}

func (o *Orchestrator) addMessage(msg *session.Message) {
	o.session.AddMessage(msg)
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordMessage(msg); err != nil {
		logger.Warn("failed to record message: %v", err)
	}
}

func (o *Orchestrator) recordTool(inv *tools.Invocation, res *tools.Result, status session.ToolStatus) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordTool(inv, res, status); err != nil {
		logger.Warn("failed to record tool invocation %s: %v", inv.ID, err)
	}
}

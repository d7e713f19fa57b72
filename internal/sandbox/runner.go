package sandbox

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/codefionn/selenai/internal/consts"
	"github.com/codefionn/selenai/internal/logger"
	"github.com/codefionn/selenai/internal/tools"
)

// CommandResult is what a restricted command produced.
type CommandResult struct {
	Status int    `json:"status"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// Runner executes allow-listed commands inside the workspace.
type Runner struct {
	root     string
	policy   *Policy
	paths    PathResolver
	timeout  time.Duration
	selfExec string
	log      *logger.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTimeout bounds every command.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithSelfExec routes commands through "<exe> __sandbox-exec" so they run
// under the Landlock read-only ruleset.
func WithSelfExec(exe string) RunnerOption {
	return func(r *Runner) {
		r.selfExec = exe
	}
}

// NewRunner creates a runner rooted at root.
func NewRunner(root string, policy *Policy, paths PathResolver, opts ...RunnerOption) *Runner {
	if policy == nil {
		policy = NewPolicy(nil)
	}
	r := &Runner{
		root:    root,
		policy:  policy,
		paths:   paths,
		timeout: consts.DefaultCommandTimeout,
		log:     logger.Global().WithPrefix("sandbox"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the policy commands are checked against.
func (r *Runner) Policy() *Policy {
	return r.policy
}

// Run checks name/args against the policy and executes it with the
// workspace as working directory. A non-zero exit status is reported in
// the result, not as an error.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (*CommandResult, error) {
	if err := r.policy.Check(name, args, r.paths); err != nil {
		r.log.Debug("denied %s %v: %v", name, args, err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var cmd *exec.Cmd
	if r.selfExec != "" {
		argv := append([]string{ExecSubcommand, "--root", r.root, "--", name}, args...)
		cmd = exec.CommandContext(ctx, r.selfExec, argv...)
	} else {
		cmd = exec.CommandContext(ctx, name, args...)
	}
	cmd.Dir = r.root
	cmd.Env = append(os.Environ(), "GIT_PAGER=cat", "GIT_TERMINAL_PROMPT=0", "NO_COLOR=1")

	stdout := &limitedBuffer{limit: consts.MaxCommandOutput}
	stderr := &limitedBuffer{limit: consts.MaxCommandOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	r.log.Debug("ran %s %v in %v", name, args, time.Since(start))

	result := &CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return result, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, tools.Errorf(tools.KindIO, opRunCommand, "%s timed out after %v", name, r.timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.Status = exitErr.ExitCode()
		return result, nil
	}
	return nil, tools.NewError(tools.KindIO, opRunCommand, name, err)
}

// limitedBuffer keeps the first limit bytes and discards the rest.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + "\n[output truncated]"
	}
	return b.buf.String()
}

package vcs

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Git implements VCS with the git command line.
type Git struct {
	workingDir string

	repoRootOnce sync.Once
	repoRoot     string
	repoRootErr  error
}

// NewGit creates a Git VCS for workingDir.
func NewGit(workingDir string) *Git {
	return &Git{workingDir: workingDir}
}

func (g *Git) getRepoRoot(ctx context.Context) (string, error) {
	g.repoRootOnce.Do(func() {
		g.repoRoot, g.repoRootErr = g.RepositoryRoot(ctx, g.workingDir)
	})
	return g.repoRoot, g.repoRootErr
}

// RepositoryRoot returns the top level of the repository containing dir.
func (g *Git) RepositoryRoot(ctx context.Context, dir string) (string, error) {
	if dir == "" {
		dir = g.workingDir
	}
	output, err := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", fmt.Errorf("not in a git repository: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// CurrentBranch returns the branch name, or "" when detached or outside a
// repository.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	repoRoot, err := g.getRepoRoot(ctx)
	if err != nil {
		return "", nil
	}

	output, err := exec.CommandContext(ctx, "git", "-C", repoRoot, "rev-parse", "--abbrev-ref", "HEAD").Output()
	if err != nil {
		// Fresh repositories have no HEAD commit yet.
		output, err = exec.CommandContext(ctx, "git", "-C", repoRoot, "symbolic-ref", "--short", "HEAD").Output()
		if err != nil {
			return "", nil
		}
	}

	branch := strings.TrimSpace(string(output))
	if branch == "HEAD" {
		return "", nil
	}
	return branch, nil
}

// Package vcs reports which repository and branch the workspace is on, for
// the model's system prompt.
package vcs

import (
	"context"
	"fmt"
)

// VCS is a version control system the workspace may live in.
type VCS interface {
	// RepositoryRoot returns the root directory of the repository
	// containing dir. Returns an error if dir is not in a repository.
	RepositoryRoot(ctx context.Context, dir string) (string, error)

	// CurrentBranch returns the checked out branch, or "" on a detached
	// HEAD or outside a repository.
	CurrentBranch(ctx context.Context) (string, error)
}

// Describe summarizes the repository state in one line, or returns "" when
// the workspace is not under version control.
func Describe(ctx context.Context, v VCS, dir string) string {
	root, err := v.RepositoryRoot(ctx, dir)
	if err != nil || root == "" {
		return ""
	}
	branch, err := v.CurrentBranch(ctx)
	if err != nil || branch == "" {
		return fmt.Sprintf("git repository at %s (detached HEAD)", root)
	}
	return fmt.Sprintf("git repository at %s, branch %s", root, branch)
}

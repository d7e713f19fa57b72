package vcs

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func runGitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\nOutput: %s", args, err, output)
	}
}

func TestGitRepositoryRootAndBranch(t *testing.T) {
	requireGit(t)
	ctx := context.Background()

	dir := t.TempDir()
	runGitCmd(t, dir, "init", "-b", "trunk")

	g := NewGit(dir)
	root, err := g.RepositoryRoot(ctx, "")
	if err != nil {
		t.Fatalf("RepositoryRoot: %v", err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(root)
	if got != want {
		t.Errorf("RepositoryRoot = %s, want %s", got, want)
	}

	branch, err := g.CurrentBranch(ctx)
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "trunk" {
		t.Errorf("CurrentBranch = %q, want trunk", branch)
	}
}

func TestGitOutsideRepository(t *testing.T) {
	requireGit(t)
	ctx := context.Background()

	g := NewGit(t.TempDir())
	if _, err := g.RepositoryRoot(ctx, ""); err == nil {
		t.Skip("temp dir is inside a git repository")
	}
	branch, err := g.CurrentBranch(ctx)
	if err != nil || branch != "" {
		t.Errorf("CurrentBranch = %q, %v; want empty", branch, err)
	}
	if got := Describe(ctx, g, ""); got != "" {
		t.Errorf("Describe = %q, want empty", got)
	}
}

func TestDescribe(t *testing.T) {
	ctx := context.Background()

	m := &MockVCS{
		RepositoryRootFunc: func(context.Context, string) (string, error) { return "/repo", nil },
		CurrentBranchFunc:  func(context.Context) (string, error) { return "main", nil },
	}
	if got := Describe(ctx, m, "/repo"); got != "git repository at /repo, branch main" {
		t.Errorf("Describe = %q", got)
	}

	m.CurrentBranchFunc = nil
	if got := Describe(ctx, m, "/repo"); !strings.Contains(got, "detached") {
		t.Errorf("Describe = %q, want detached", got)
	}

	m.RepositoryRootFunc = func(context.Context, string) (string, error) { return "", errors.New("no repo") }
	if got := Describe(ctx, m, "/repo"); got != "" {
		t.Errorf("Describe = %q, want empty", got)
	}
}

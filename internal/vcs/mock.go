package vcs

import (
	"context"
)

// MockVCS is a VCS with injectable behavior for tests.
type MockVCS struct {
	RepositoryRootFunc func(ctx context.Context, dir string) (string, error)
	CurrentBranchFunc  func(ctx context.Context) (string, error)
}

// RepositoryRoot calls RepositoryRootFunc if set, otherwise returns "".
func (m *MockVCS) RepositoryRoot(ctx context.Context, dir string) (string, error) {
	if m.RepositoryRootFunc != nil {
		return m.RepositoryRootFunc(ctx, dir)
	}
	return "", nil
}

// CurrentBranch calls CurrentBranchFunc if set, otherwise returns "".
func (m *MockVCS) CurrentBranch(ctx context.Context) (string, error) {
	if m.CurrentBranchFunc != nil {
		return m.CurrentBranchFunc(ctx)
	}
	return "", nil
}

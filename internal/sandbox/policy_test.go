package sandbox

import (
	"path/filepath"
	"testing"

	"github.com/codefionn/selenai/internal/fs"
	"github.com/codefionn/selenai/internal/tools"
)

func TestPolicyCheck(t *testing.T) {
	guard, err := fs.NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	policy := NewPolicy([]string{"go version", "  ", "echo"})

	tests := []struct {
		name string
		cmd  string
		args []string
		kind tools.Kind // KindUnknown means allowed
	}{
		{"git status", "git", []string{"status"}, tools.KindUnknown},
		{"git status porcelain", "git", []string{"status", "--porcelain", "-b"}, tools.KindUnknown},
		{"git status path", "git", []string{"status", "src"}, tools.KindCapabilityDenied},
		{"git diff paths", "git", []string{"diff", "--stat", "src/main.go"}, tools.KindUnknown},
		{"git diff separator", "git", []string{"diff", "--", "-weird"}, tools.KindUnknown},
		{"git diff outside", "git", []string{"diff", "/etc/passwd"}, tools.KindPathTraversal},
		{"git diff parent", "git", []string{"diff", "../x"}, tools.KindPathTraversal},
		{"git diff output", "git", []string{"diff", "--output=/tmp/x"}, tools.KindCapabilityDenied},
		{"git diff ext", "git", []string{"diff", "--ext-diff"}, tools.KindCapabilityDenied},
		{"git log count", "git", []string{"log", "--oneline", "-n", "5"}, tools.KindUnknown},
		{"git log count eq", "git", []string{"log", "--max-count=3"}, tools.KindUnknown},
		{"git log bad count", "git", []string{"log", "-n", "x"}, tools.KindCapabilityDenied},
		{"git log missing count", "git", []string{"log", "-n"}, tools.KindCapabilityDenied},
		{"git config injection", "git", []string{"-c", "core.pager=sh", "status"}, tools.KindCapabilityDenied},
		{"git push", "git", []string{"push"}, tools.KindCapabilityDenied},
		{"bare git", "git", nil, tools.KindCapabilityDenied},
		{"configured prefix", "go", []string{"version"}, tools.KindUnknown},
		{"configured prefix mismatch", "go", []string{"build"}, tools.KindCapabilityDenied},
		{"configured bare", "echo", []string{"hi"}, tools.KindUnknown},
		{"configured exec flag", "echo", []string{"--exec=rm"}, tools.KindCapabilityDenied},
		{"unknown", "rm", []string{"-rf", "/"}, tools.KindCapabilityDenied},
		{"empty", "", nil, tools.KindCapabilityDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Check(tt.cmd, tt.args, guard)
			if tt.kind == tools.KindUnknown {
				if err != nil {
					t.Fatalf("expected allowed, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected %v, got nil", tt.kind)
			}
			if got := tools.KindOf(err); got != tt.kind {
				t.Errorf("expected %v, got %v (%v)", tt.kind, got, err)
			}
		})
	}
}

func TestPolicyPathsWithoutResolver(t *testing.T) {
	policy := NewPolicy(nil)
	err := policy.Check("git", []string{"diff", filepath.Join("a", "b")}, nil)
	if tools.KindOf(err) != tools.KindCapabilityDenied {
		t.Errorf("expected CapabilityDenied, got %v", err)
	}
}

func TestPolicyDescribe(t *testing.T) {
	policy := NewPolicy([]string{"cargo metadata --no-deps"})
	got := policy.Describe()
	want := []string{"git status", "git diff", "git log", "cargo metadata --no-deps"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

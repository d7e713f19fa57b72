//go:build linux

package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/codefionn/selenai/internal/logger"
	landlock "github.com/landlock-lsm/go-landlock/landlock"
)

// defaultAllowedPaths lists what a read-only inspection command such as git
// needs besides the workspace: binaries and libraries read-only, device
// files and temp directories read-write.
func defaultAllowedPaths() []DirectoryPermission {
	var paths []DirectoryPermission
	seen := make(map[string]bool)
	homeDir, _ := os.UserHomeDir()

	add := func(p string, access AccessLevel) {
		if p == "" {
			return
		}
		p = filepath.Clean(p)
		if seen[p] {
			return
		}
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, DirectoryPermission{Path: p, Access: access})
			seen[p] = true
		}
	}

	for _, p := range []string{
		"/usr", "/bin", "/lib", "/lib64", "/etc", "/sbin",
		"/usr/local/bin", "/usr/local/lib",
		"/run/current-system/sw", "/nix/store",
	} {
		add(p, AccessReadOnly)
	}
	if homeDir != "" {
		// ~/.gitconfig and friends
		add(homeDir, AccessReadOnly)
	}
	for _, p := range []string{"/dev/null", "/dev/zero", "/dev/urandom"} {
		add(p, AccessReadWrite)
	}
	for _, p := range []string{os.TempDir(), "/tmp"} {
		add(p, AccessReadWrite)
	}
	return paths
}

// RestrictReadOnly applies a Landlock ruleset to the current process that
// leaves workspace readable but not writable. Best effort: kernels without
// Landlock run unrestricted and a warning is logged.
func RestrictReadOnly(workspace string) error {
	perms := append([]DirectoryPermission{{Path: workspace, Access: AccessReadOnly}}, defaultAllowedPaths()...)

	rules := make([]landlock.Rule, 0, len(perms))
	for _, perm := range perms {
		info, err := os.Stat(perm.Path)
		isFile := err == nil && !info.IsDir()
		switch {
		case perm.Access == AccessReadOnly && isFile:
			rules = append(rules, landlock.ROFiles(perm.Path))
		case perm.Access == AccessReadOnly:
			rules = append(rules, landlock.RODirs(perm.Path))
		case isFile:
			rules = append(rules, landlock.RWFiles(perm.Path))
		default:
			rules = append(rules, landlock.RWDirs(perm.Path))
		}
	}

	if err := landlock.V6.BestEffort().RestrictPaths(rules...); err != nil {
		logger.Warn("Landlock restriction failed: %v", err)
		return fmt.Errorf("landlock restriction failed: %w", err)
	}
	logger.Debug("Landlock read-only ruleset applied for %s (%d rules)", workspace, len(rules))
	return nil
}

// ExecRestricted restricts the process and replaces it with argv.
func ExecRestricted(workspace string, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("no command given")
	}
	if err := RestrictReadOnly(workspace); err != nil {
		return err
	}
	bin, err := exec.LookPath(argv[0])
	if err != nil {
		return err
	}
	if err := os.Chdir(workspace); err != nil {
		return err
	}
	return syscall.Exec(bin, argv, os.Environ())
}

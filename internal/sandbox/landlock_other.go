//go:build !linux

package sandbox

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/codefionn/selenai/internal/logger"
)

// RestrictReadOnly is a no-op on non-Linux systems.
func RestrictReadOnly(workspace string) error {
	logger.Debug("Landlock sandboxing not available on this platform")
	return nil
}

// ExecRestricted runs argv unrestricted and forwards its exit status.
func ExecRestricted(workspace string, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("no command given")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = workspace
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		return err
	}
	os.Exit(0)
	return nil
}

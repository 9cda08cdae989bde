//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

func hideWindow(cmd *exec.Cmd) {}

func terminate(cmd *exec.Cmd) {
	if cmd.Process != nil {
		cmd.Process.Signal(syscall.SIGTERM)
	}
}

//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// setDetachAttr starts the child in its own session, away from the terminal
func setDetachAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

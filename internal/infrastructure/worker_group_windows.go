//go:build windows

package infrastructure

import "os/exec"

// setProcessGroup keeps the default kill of the direct child on Windows
func setProcessGroup(cmd *exec.Cmd) {}

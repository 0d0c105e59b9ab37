//go:build windows

package ocr

import (
	"os/exec"
	"syscall"
)

// hideWindow keeps the console window of a spawned tool from flashing up
func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}

//go:build unix

package daemon

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own session so terminal signals do not
// reach it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

//go:build !windows

package procexec

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setDetachAttr puts the child in its own process group so signals aimed at
// procwatch (Ctrl-C in the terminal) do not reach it.
func setDetachAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// setGroupAttr makes a supervised child lead a new process group so
// killGroup also reaches whatever it spawned in the background.
func setGroupAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killGroup sends SIGKILL to the child's whole process group.
func killGroup(cmd *exec.Cmd) error {
	err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}

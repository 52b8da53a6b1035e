//go:build !windows

package content

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// ownProcessGroup puts the tail command in its own group so a shell
// wrapper and everything it spawned can be killed together.
func ownProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(p *os.Process) error {
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}

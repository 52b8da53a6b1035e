//go:build windows

package daemon

import (
	"os"
	"syscall"
)

const createNewProcessGroup = 0x00000200

func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: createNewProcessGroup}
}

func terminate(p *os.Process) error {
	return p.Kill()
}

func processAlive(pid int) bool {
	// FindProcess opens a handle on Windows and fails for dead PIDs.
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	p.Release()
	return true
}

//go:build !windows

package daemon

import (
	"os"
	"syscall"
)

func detachedAttr() *syscall.SysProcAttr {
	// New session, so the child outlives the terminal.
	return &syscall.SysProcAttr{Setsid: true}
}

func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

// processAlive sends signal 0, which only checks that the process exists.
func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}

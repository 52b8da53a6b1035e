// Package daemon runs logport in the background: it forks a detached child,
// tracks it through a PID file and keeps a second instance out with a file
// lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
)

// ChildFlag marks the forked child process.
const ChildFlag = "--daemon-child"

// LockPath returns the lock file guarding the daemon owning pidFile.
func LockPath(pidFile string) string {
	return pidFile + ".lock"
}

// StartDaemon starts logport as a background daemon process.
// It re-executes the current binary with args plus ChildFlag, writes the
// child's PID to pidFile, and redirects its output to logFile.
func StartDaemon(pidFile, logFile string, args ...string) (int, error) {
	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		return 0, fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return 0, fmt.Errorf("daemon already running (PID file: %s)", pidFile)
	}

	logF, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer logF.Close()

	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := exec.Command(executable, append(args, ChildFlag)...)
	cmd.Stdout = logF
	cmd.Stderr = logF
	cmd.Stdin = nil
	cmd.SysProcAttr = detachedAttr()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon process: %w", err)
	}

	pid := cmd.Process.Pid
	if err := writePID(pidFile, pid); err != nil {
		cmd.Process.Kill()
		return 0, err
	}

	if err := cmd.Process.Release(); err != nil {
		return 0, fmt.Errorf("failed to release process: %w", err)
	}

	return pid, nil
}

// RunDaemon holds the daemon lock, records the current PID and calls run
// until SIGTERM or an interrupt cancels its context. The PID file is removed
// on the way out. It serves both the forked child and foreground runs.
func RunDaemon(ctx context.Context, pidFile string, run func(ctx context.Context) error) error {
	lock := flock.New(LockPath(pidFile))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another logport daemon is running (lock: %s)", LockPath(pidFile))
	}
	defer lock.Unlock()

	if err := writePID(pidFile, os.Getpid()); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, os.Interrupt)
	defer stop()

	runErr := run(ctx)

	if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
		return errors.Join(runErr, fmt.Errorf("failed to remove PID file: %w", err))
	}

	return runErr
}

// StopDaemon stops a running daemon by sending SIGTERM to the process.
func StopDaemon(pidFile string) error {
	pid, err := ReadPID(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("daemon not running (PID file not found)")
		}
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	if err := terminate(process); err != nil {
		return fmt.Errorf("failed to stop process %d: %w", pid, err)
	}

	return nil
}

// IsDaemonRunning checks if a daemon is running by checking the PID file.
// A PID file naming a dead process is removed.
func IsDaemonRunning(pidFile string) (bool, error) {
	pid, err := ReadPID(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			// Invalid PID file, consider daemon not running
			return false, nil
		}
		return false, err
	}

	if !processAlive(pid) {
		os.Remove(pidFile)
		return false, nil
	}

	return true, nil
}

// ReadPID returns the PID stored in pidFile.
func ReadPID(pidFile string) (int, error) {
	pidData, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	return pid, nil
}

func writePID(pidFile string, pid int) error {
	if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d\n", pid)), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

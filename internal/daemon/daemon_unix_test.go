//go:build !windows

package daemon

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestStopDaemon_WithTestProcess(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that creates subprocess in short mode")
	}

	pidFile := filepath.Join(t.TempDir(), "test.pid")

	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start sleep: %v", err)
	}
	defer cmd.Process.Kill()

	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(cmd.Process.Pid)+"\n"), 0644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}

	if err := StopDaemon(pidFile); err != nil {
		t.Fatalf("StopDaemon() error = %v, want nil", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		if err == nil {
			t.Error("process exited cleanly, want termination by signal")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("process still running after StopDaemon()")
	}
}

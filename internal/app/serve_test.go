package app

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/logport/internal/config"
)

func testEngineConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server.Bind = "127.0.0.1:0"
	cfg.Watch.Mode = "native"
	cfg.Paths.DBPath = filepath.Join(dir, "logport.db")
	cfg.Paths.PIDFile = filepath.Join(dir, "logport.pid")
	cfg.Paths.LogFile = filepath.Join(dir, "logport.log")
	cfg.Paths.AllowlistFile = filepath.Join(dir, "allowlist")
	return &cfg
}

func TestEngine_ServesStatusAndLogs(t *testing.T) {
	cfg := testEngineConfig(t)
	logPath := filepath.Join(t.TempDir(), "app.log")
	writeTestFile(t, logPath, "one\ntwo\n")
	writeTestFile(t, cfg.Paths.AllowlistFile, logPath+"\n")

	eng, err := newEngine(cfg, nil)
	if err != nil {
		t.Fatalf("newEngine() error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := eng.start(ctx); err != nil {
		t.Fatalf("start() error: %v", err)
	}
	defer eng.close()

	// Clients dial the address the listener actually got.
	cfg.Server.Bind = eng.server.Addr()

	status, err := fetchStatus(cfg)
	if err != nil {
		t.Fatalf("fetchStatus() error: %v", err)
	}
	if status.Mode != "native" {
		t.Errorf("Mode = %q, want native", status.Mode)
	}

	var buf bytes.Buffer
	if err := fetchLog(cfg, logPath, &buf); err != nil {
		t.Fatalf("fetchLog() error: %v", err)
	}
	if buf.String() != "one\ntwo\n" {
		t.Errorf("fetchLog() = %q", buf.String())
	}

	err = fetchLog(cfg, filepath.Join(t.TempDir(), "secret.log"), &buf)
	if err == nil || !strings.Contains(err.Error(), "not allow-listed") {
		t.Errorf("fetchLog() on a path not allowed: err = %v", err)
	}
}

func TestEngine_FollowLog(t *testing.T) {
	cfg := testEngineConfig(t)
	logPath := filepath.Join(t.TempDir(), "app.log")
	writeTestFile(t, logPath, "old\n")
	writeTestFile(t, cfg.Paths.AllowlistFile, logPath+"\n")

	eng, err := newEngine(cfg, nil)
	if err != nil {
		t.Fatalf("newEngine() error: %v", err)
	}
	if err := eng.start(context.Background()); err != nil {
		t.Fatalf("start() error: %v", err)
	}
	defer eng.close()
	cfg.Server.Bind = eng.server.Addr()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var buf bytes.Buffer
	if err := followLog(ctx, cfg, logPath, true, &buf); err != nil {
		t.Fatalf("followLog() error: %v", err)
	}
	if !strings.Contains(buf.String(), "old") {
		t.Errorf("followLog() output = %q, want the existing content", buf.String())
	}
}

func TestChildArgs(t *testing.T) {
	useTempConfig(t)
	cfg := testEngineConfig(t)

	args := childArgs(cfg)
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--db "+cfg.Paths.DBPath) {
		t.Errorf("childArgs() = %v, want the database path", args)
	}
}

func TestServeCommandFlags(t *testing.T) {
	for _, name := range []string{"daemon", "stop", "bind", "mode"} {
		if serveCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to be registered", name)
		}
	}
	if f := serveCmd.Flags().Lookup("daemon-child"); f == nil || !f.Hidden {
		t.Error("expected hidden --daemon-child flag")
	}
}

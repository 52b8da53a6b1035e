package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestAllowAddListRemove(t *testing.T) {
	useTempConfig(t)
	logPath := filepath.Join(t.TempDir(), "app.log")
	writeTestFile(t, logPath, "hello\n")

	allowNote = "web tier"
	defer func() { allowNote = "" }()

	if err := runAllowAdd(allowAddCmd, []string{logPath}); err != nil {
		t.Fatalf("runAllowAdd() error: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	st, err := openStore(cfg, nil)
	if err != nil {
		t.Fatalf("openStore() error: %v", err)
	}
	entry, err := st.GetAllowedLog(logPath)
	st.Close()
	if err != nil {
		t.Fatalf("GetAllowedLog() error: %v", err)
	}
	if entry.Note != "web tier" {
		t.Errorf("Note = %q, want %q", entry.Note, "web tier")
	}

	if err := runAllowList(allowListCmd, nil); err != nil {
		t.Errorf("runAllowList() error: %v", err)
	}

	if err := runAllowRemove(allowRemoveCmd, []string{logPath}); err != nil {
		t.Fatalf("runAllowRemove() error: %v", err)
	}
	if err := runAllowRemove(allowRemoveCmd, []string{logPath}); err == nil {
		t.Error("removing an unknown path should fail")
	}
}

func TestAllowImport(t *testing.T) {
	useTempConfig(t)
	listPath := filepath.Join(t.TempDir(), "team.allow")
	writeTestFile(t, listPath, "# shared logs\n/var/log/a.log\n\n/var/log/b.log\n")

	if err := runAllowImport(allowImportCmd, []string{listPath}); err != nil {
		t.Fatalf("runAllowImport() error: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	st, err := openStore(cfg, nil)
	if err != nil {
		t.Fatalf("openStore() error: %v", err)
	}
	defer st.Close()

	entries, err := st.ListAllowedLogs()
	if err != nil {
		t.Fatalf("ListAllowedLogs() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if !strings.Contains(entries[0].Note, "team.allow") {
		t.Errorf("Note = %q, want it to name the imported file", entries[0].Note)
	}
}

func TestAllowImport_RelativePathRejected(t *testing.T) {
	useTempConfig(t)
	listPath := filepath.Join(t.TempDir(), "bad.allow")
	writeTestFile(t, listPath, "logs/app.log\n")

	if err := runAllowImport(allowImportCmd, []string{listPath}); err == nil {
		t.Error("runAllowImport() should reject relative paths")
	}
}

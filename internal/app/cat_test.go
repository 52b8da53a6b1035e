package app

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/blackwell-systems/logport/internal/logfile"
)

func TestReadLocalLog(t *testing.T) {
	useTempConfig(t)
	logPath := filepath.Join(t.TempDir(), "app.log")
	writeTestFile(t, logPath, "first\nsecond\n")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	cfg.Watch.Mode = "native"

	var buf bytes.Buffer
	err = readLocalLog(cfg, logPath, &buf)
	if !errors.Is(err, logfile.ErrAccessDenied) {
		t.Fatalf("readLocalLog() on a path not allowed: err = %v, want ErrAccessDenied", err)
	}

	st, err := openStore(cfg, nil)
	if err != nil {
		t.Fatalf("openStore() error: %v", err)
	}
	if err := st.AddAllowedLog(logPath, ""); err != nil {
		t.Fatalf("AddAllowedLog() error: %v", err)
	}
	st.Close()

	buf.Reset()
	if err := readLocalLog(cfg, logPath, &buf); err != nil {
		t.Fatalf("readLocalLog() error: %v", err)
	}
	if buf.String() != "first\nsecond\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestCatCommandFlags(t *testing.T) {
	for _, name := range []string{"follow", "from-beginning"} {
		if catCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to be registered", name)
		}
	}
	if err := catCmd.Args(catCmd, nil); err == nil {
		t.Error("cat without a path should be rejected")
	}
}

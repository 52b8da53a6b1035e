package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestProgressBar_NonTTYPrintsOnlyFinalState(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgress(3, "Importing")
	pb.SetWriter(&buf)

	pb.Increment()
	pb.Increment()
	if buf.Len() != 0 {
		t.Errorf("non-TTY bar printed before completion: %q", buf.String())
	}

	pb.Increment()
	pb.Finish()

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Errorf("expected exactly one line, got %q", out)
	}
	if !strings.Contains(out, "3/3 Importing") {
		t.Errorf("output %q missing counter", out)
	}
}

func TestProgressBar_FinishEarly(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgress(10, "Importing")
	pb.SetWriter(&buf)

	pb.Increment()
	pb.Finish()

	if !strings.Contains(buf.String(), "10/10") {
		t.Errorf("Finish() should complete the bar, got %q", buf.String())
	}
}

func TestProgressBar_OverLimit(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgress(1, "x")
	pb.SetWriter(&buf)

	pb.Increment()
	pb.Increment()

	if strings.Contains(buf.String(), "2/1") {
		t.Errorf("counter exceeded total: %q", buf.String())
	}
}

func TestProgressBar_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgress(0, "nothing")
	pb.SetWriter(&buf)
	pb.Finish()

	if !strings.Contains(buf.String(), "0/0") {
		t.Errorf("got %q", buf.String())
	}
}

func TestSpinner_NonTTY(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner("Starting daemon...", &buf)
	s.Start()
	s.Start()
	s.StopWithMessage("✓ Daemon started")
	s.Stop()

	want := "Starting daemon...\n✓ Daemon started\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestSpinner_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner("work", &buf)
	s.Start()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()
}

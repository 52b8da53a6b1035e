package watcher

import (
	"errors"
	"os"
	"reflect"
	"sync"
	"testing"

	"github.com/blackwell-systems/logport/internal/content"
	"github.com/blackwell-systems/logport/internal/logfile"
	"github.com/blackwell-systems/logport/internal/message"
	"github.com/blackwell-systems/logport/internal/testsupport"
)

// recordingConn captures every message sent to a client.
type recordingConn struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (c *recordingConn) Send(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *recordingConn) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}

func newTestWatcher(t *testing.T) (*Watcher, *recordingConn) {
	t.Helper()
	conn := &recordingConn{}
	return New("w-1", conn, message.Default{}, nil), conn
}

func newTestLog(path, text string) (*logfile.LogFile, *testsupport.FakeContent) {
	c := testsupport.NewFakeContent(text)
	return logfile.New(path, c), c
}

func TestWatchLog_ForwardsLines(t *testing.T) {
	w, conn := newTestWatcher(t)
	lf, c := newTestLog("/var/log/app.log", "")

	if err := w.WatchLog(lf); err != nil {
		t.Fatalf("WatchLog() error = %v", err)
	}
	c.Emit("hello")
	c.Emit("world")

	want := []string{
		`{"type":"change","changes":["hello"]}`,
		`{"type":"change","changes":["world"]}`,
	}
	if got := conn.messages(); !reflect.DeepEqual(got, want) {
		t.Errorf("messages = %q, want %q", got, want)
	}
	if !w.IsWatching("/var/log/app.log") {
		t.Error("IsWatching() = false")
	}
}

func TestWatchLog_LegacyIncludesPath(t *testing.T) {
	conn := &recordingConn{}
	w := New("w-legacy", conn, message.Legacy{}, nil)
	lf, c := newTestLog("/var/log/app.log", "")

	if err := w.WatchLog(lf); err != nil {
		t.Fatalf("WatchLog() error = %v", err)
	}
	c.Emit("x")

	want := `{"type":"change","file":"/var/log/app.log","changes":["x"]}`
	if got := conn.messages(); len(got) != 1 || got[0] != want {
		t.Errorf("messages = %q, want [%s]", got, want)
	}
}

func TestWatchLog_Twice(t *testing.T) {
	w, conn := newTestWatcher(t)
	lf, c := newTestLog("/var/log/app.log", "")

	if err := w.WatchLog(lf); err != nil {
		t.Fatalf("first WatchLog() error = %v", err)
	}
	err := w.WatchLog(lf)

	var dupErr *CantWatchLogMultipleTimesError
	if !errors.As(err, &dupErr) {
		t.Fatalf("second WatchLog() error = %v, want *CantWatchLogMultipleTimesError", err)
	}
	if !errors.Is(err, ErrAlreadyWatching) || dupErr.Path != "/var/log/app.log" {
		t.Errorf("error = %+v", dupErr)
	}

	// The first subscription stays intact and is the only one.
	if c.ListenerCount() != 1 {
		t.Errorf("listener count = %d, want 1", c.ListenerCount())
	}
	c.Emit("still here")
	if got := conn.messages(); len(got) != 1 {
		t.Errorf("got %d messages, want 1", len(got))
	}
}

func TestWatchLog_TwiceWithEquivalentInstance(t *testing.T) {
	w, _ := newTestWatcher(t)
	first, _ := newTestLog("/var/log/app.log", "")
	second, _ := newTestLog("/var/log/app.log", "")

	if err := w.WatchLog(first); err != nil {
		t.Fatalf("WatchLog() error = %v", err)
	}
	if err := w.WatchLog(second); !errors.Is(err, ErrAlreadyWatching) {
		t.Errorf("WatchLog(equivalent) error = %v, want ErrAlreadyWatching", err)
	}
}

func TestStopWatchingLog_ThenRewatch(t *testing.T) {
	w, conn := newTestWatcher(t)
	lf, c := newTestLog("/var/log/app.log", "")

	if err := w.WatchLog(lf); err != nil {
		t.Fatalf("WatchLog() error = %v", err)
	}
	if err := w.StopWatchingLog(lf); err != nil {
		t.Fatalf("StopWatchingLog() error = %v", err)
	}
	if c.ListenerCount() != 0 {
		t.Fatalf("listener count = %d after stop, want 0", c.ListenerCount())
	}
	c.Emit("dropped")

	if err := w.WatchLog(lf); err != nil {
		t.Fatalf("re-WatchLog() error = %v", err)
	}
	if c.ListenerCount() != 1 {
		t.Errorf("listener count = %d after rewatch, want 1", c.ListenerCount())
	}
	c.Emit("kept")

	want := []string{`{"type":"change","changes":["kept"]}`}
	if got := conn.messages(); !reflect.DeepEqual(got, want) {
		t.Errorf("messages = %q, want %q", got, want)
	}
}

func TestStopWatchingLog_NotWatching(t *testing.T) {
	w, conn := newTestWatcher(t)
	lf, _ := newTestLog("/var/log/app.log", "")

	err := w.StopWatchingLog(lf)
	var notErr *NotWatchingLogFileError
	if !errors.As(err, &notErr) {
		t.Fatalf("StopWatchingLog() error = %v, want *NotWatchingLogFileError", err)
	}
	if !errors.Is(err, ErrNotWatching) {
		t.Error("error should match ErrNotWatching")
	}

	msgs := conn.messages()
	want := `{"type":"error","message":"watcher w-1 is not watching /var/log/app.log"}`
	if len(msgs) != 1 || msgs[0] != want {
		t.Errorf("messages = %q, want [%s]", msgs, want)
	}
}

func TestStopWatchingLog_ByEquivalentInstance(t *testing.T) {
	w, _ := newTestWatcher(t)
	lf, c := newTestLog("/var/log/app.log", "")
	if err := w.WatchLog(lf); err != nil {
		t.Fatalf("WatchLog() error = %v", err)
	}

	// Removal must detach the listener registered on the original instance.
	equivalent, _ := newTestLog("/var/log/app.log", "")
	if err := w.StopWatchingLog(equivalent); err != nil {
		t.Fatalf("StopWatchingLog() error = %v", err)
	}
	if c.ListenerCount() != 0 {
		t.Errorf("listener count = %d, want 0", c.ListenerCount())
	}
}

func TestStopWatchingLogs(t *testing.T) {
	w, _ := newTestWatcher(t)
	var contents []*testsupport.FakeContent
	paths := []string{"/var/log/a.log", "/var/log/b.log", "/var/log/c.log"}
	for _, p := range paths {
		lf, c := newTestLog(p, "")
		contents = append(contents, c)
		if err := w.WatchLog(lf); err != nil {
			t.Fatalf("WatchLog(%s) error = %v", p, err)
		}
	}

	stopped := w.StopWatchingLogs()
	if len(stopped) != len(paths) {
		t.Fatalf("StopWatchingLogs() returned %d log files, want %d", len(stopped), len(paths))
	}
	for i, lf := range stopped {
		if lf.Path() != paths[i] {
			t.Errorf("stopped[%d] = %s, want %s", i, lf.Path(), paths[i])
		}
		if contents[i].ListenerCount() != 0 {
			t.Errorf("%s still has listeners", paths[i])
		}
	}
	if len(w.WatchedLogs()) != 0 {
		t.Error("WatchedLogs() not empty after StopWatchingLogs")
	}
}

func TestReadFromTheBeginning(t *testing.T) {
	w, conn := newTestWatcher(t)
	lf, _ := newTestLog("/var/log/app.log", "one\ntwo\n")

	if err := w.ReadFromTheBeginning(lf); err != nil {
		t.Fatalf("ReadFromTheBeginning() error = %v", err)
	}
	want := []string{`{"type":"change","changes":["one","two"]}`}
	if got := conn.messages(); !reflect.DeepEqual(got, want) {
		t.Errorf("messages = %q, want %q", got, want)
	}
}

func TestReadFromTheBeginning_ReadError(t *testing.T) {
	w, conn := newTestWatcher(t)
	lf, c := newTestLog("/var/log/app.log", "")
	c.SetReadError(os.ErrPermission)

	err := w.ReadFromTheBeginning(lf)
	var readErr *content.ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("ReadFromTheBeginning() error = %v, want *content.ReadError", err)
	}

	msgs := conn.messages()
	if len(msgs) != 1 || msgs[0] != `{"type":"error","message":"failed to read content of fake: permission denied"}` {
		t.Errorf("messages = %q", msgs)
	}
}

func TestReadFromTheBeginning_NotifyFailureIsReturned(t *testing.T) {
	sendErr := errors.New("connection reset")
	conn := &recordingConn{err: sendErr}
	w := New("w-1", conn, message.Default{}, nil)
	lf, c := newTestLog("/var/log/app.log", "")
	c.SetReadError(os.ErrPermission)

	err := w.ReadFromTheBeginning(lf)
	if !errors.Is(err, os.ErrPermission) {
		t.Errorf("error %v should carry the read failure", err)
	}
	if !errors.Is(err, sendErr) {
		t.Errorf("error %v should carry the notification failure", err)
	}
}

func TestWatchFromTheBeginning_HoldsLiveLines(t *testing.T) {
	w, conn := newTestWatcher(t)
	lf, c := newTestLog("/var/log/app.log", "old\n")

	// A line appended while the snapshot is being read.
	c.BeforeRead = func() {
		c.BeforeRead = nil
		c.Emit("during")
	}

	if err := w.WatchFromTheBeginning(lf); err != nil {
		t.Fatalf("WatchFromTheBeginning() error = %v", err)
	}
	c.Emit("after")

	want := []string{
		`{"type":"change","changes":["old"]}`,
		`{"type":"change","changes":["during"]}`,
		`{"type":"change","changes":["after"]}`,
	}
	if got := conn.messages(); !reflect.DeepEqual(got, want) {
		t.Errorf("messages = %q, want %q", got, want)
	}
}

func TestWatchFromTheBeginning_AlreadyWatchingSkipsRead(t *testing.T) {
	w, conn := newTestWatcher(t)
	lf, c := newTestLog("/var/log/app.log", "old\n")
	if err := w.WatchLog(lf); err != nil {
		t.Fatalf("WatchLog() error = %v", err)
	}

	reads := 0
	c.BeforeRead = func() { reads++ }
	if err := w.WatchFromTheBeginning(lf); !errors.Is(err, ErrAlreadyWatching) {
		t.Fatalf("WatchFromTheBeginning() error = %v, want ErrAlreadyWatching", err)
	}
	if reads != 0 {
		t.Error("beginning read attempted after a failed watch")
	}
	if len(conn.messages()) != 0 {
		t.Errorf("unexpected messages %q", conn.messages())
	}
}

func TestWatchFromTheBeginning_ReadErrorReleasesHeldLines(t *testing.T) {
	w, conn := newTestWatcher(t)
	lf, c := newTestLog("/var/log/app.log", "")
	c.SetReadError(os.ErrNotExist)
	c.BeforeRead = func() {
		c.BeforeRead = nil
		c.Emit("during")
	}

	if err := w.WatchFromTheBeginning(lf); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("WatchFromTheBeginning() error = %v", err)
	}
	c.Emit("after")

	msgs := conn.messages()
	if len(msgs) != 3 {
		t.Fatalf("messages = %q, want error + 2 changes", msgs)
	}
	if msgs[1] != `{"type":"change","changes":["during"]}` || msgs[2] != `{"type":"change","changes":["after"]}` {
		t.Errorf("messages = %q", msgs)
	}
	if !w.IsWatching("/var/log/app.log") {
		t.Error("watch should survive a failed beginning read")
	}
}

func TestNotifyAboutError(t *testing.T) {
	w, conn := newTestWatcher(t)
	if err := w.NotifyAboutError(errors.New("boom")); err != nil {
		t.Fatalf("NotifyAboutError() error = %v", err)
	}
	if got := conn.messages(); len(got) != 1 || got[0] != `{"type":"error","message":"boom"}` {
		t.Errorf("messages = %q", got)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := New("a", &recordingConn{}, message.Default{}, nil)
	b := New("b", &recordingConn{}, message.Default{}, nil)

	if err := r.Register(a); err != nil {
		t.Fatalf("Register(a) error = %v", err)
	}
	if err := r.Register(b); err != nil {
		t.Fatalf("Register(b) error = %v", err)
	}
	if err := r.Register(New("a", &recordingConn{}, message.Default{}, nil)); err == nil {
		t.Error("registering a duplicate id should fail")
	}

	got, err := r.Find("b")
	if err != nil || got != b {
		t.Errorf("Find(b) = %v, %v", got, err)
	}
	if err := r.Unregister(a); err != nil {
		t.Fatalf("Unregister(a) error = %v", err)
	}
	if all := r.All(); len(all) != 1 || all[0] != b {
		t.Errorf("All() = %v, want [b]", all)
	}
}

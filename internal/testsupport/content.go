// Package testsupport holds fakes shared by package tests.
package testsupport

import (
	"sync"

	"github.com/blackwell-systems/logport/internal/content"
)

// FakeContent is an in-memory content.Content. Emit pushes a line to the
// registered listeners as if it had been appended to the file.
type FakeContent struct {
	mu        sync.Mutex
	text      string
	readErr   error
	sizeErr   error
	next      content.ListenerID
	order     []content.ListenerID
	listeners map[content.ListenerID]content.Listener
	closed    int
	closeErr  error

	// BeforeRead, when set, runs at the start of ReadText.
	BeforeRead func()
	// OnClose, when set, runs at the start of Close outside the lock.
	OnClose func()
}

// NewFakeContent returns content whose ReadText yields text.
func NewFakeContent(text string) *FakeContent {
	return &FakeContent{text: text, listeners: map[content.ListenerID]content.Listener{}}
}

func (f *FakeContent) SetText(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
}

func (f *FakeContent) SetReadError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

func (f *FakeContent) SetSizeError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sizeErr = err
}

// SetCloseError makes Close fail with err.
func (f *FakeContent) SetCloseError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeErr = err
}

func (f *FakeContent) AddChangesListener(fn content.Listener) content.ListenerID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.listeners[f.next] = fn
	f.order = append(f.order, f.next)
	return f.next
}

func (f *FakeContent) RemoveChangesListener(id content.ListenerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.listeners, id)
}

func (f *FakeContent) HasChangesListeners() bool {
	return f.ListenerCount() > 0
}

// ListenerCount returns the number of registered listeners.
func (f *FakeContent) ListenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *FakeContent) Size() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sizeErr != nil {
		return 0, &content.SizeError{Path: "fake", Err: f.sizeErr}
	}
	return int64(len(f.text)), nil
}

func (f *FakeContent) ReadText() (content.TextContent, error) {
	if f.BeforeRead != nil {
		f.BeforeRead()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return content.TextContent{}, &content.ReadError{Path: "fake", Err: f.readErr}
	}
	return content.TextContent{Raw: f.text, EOL: content.DefaultEOL}, nil
}

func (f *FakeContent) Close() error {
	if f.OnClose != nil {
		f.OnClose()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	f.listeners = map[content.ListenerID]content.Listener{}
	return f.closeErr
}

// Closed returns how many times Close was called.
func (f *FakeContent) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Emit delivers line to every listener in registration order.
func (f *FakeContent) Emit(line string) {
	f.mu.Lock()
	var fns []content.Listener
	for _, id := range f.order {
		if fn, ok := f.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(line)
	}
}

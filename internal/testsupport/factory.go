package testsupport

import (
	"sync"

	"github.com/blackwell-systems/logport/internal/logfile"
)

// FakeFactory creates log files backed by FakeContent and records calls.
type FakeFactory struct {
	mu       sync.Mutex
	contents map[string]*FakeContent
	calls    map[string]int
	reads    map[string]int
	texts    map[string]string
	Err      error

	// Created, when set, sees each content before Create returns it.
	Created func(path string, c *FakeContent)
}

func NewFakeFactory() *FakeFactory {
	return &FakeFactory{contents: map[string]*FakeContent{}, calls: map[string]int{}, reads: map[string]int{}, texts: map[string]string{}}
}

// SetText sets the initial text of content created for path from now on.
func (f *FakeFactory) SetText(path, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts[path] = text
}

func (f *FakeFactory) Create(path string) (*logfile.LogFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[path]++
	if f.Err != nil {
		return nil, f.Err
	}
	c := NewFakeContent(f.texts[path])
	if f.Created != nil {
		f.Created(path, c)
	}
	f.contents[path] = c
	return logfile.New(path, c), nil
}

// ReadContent returns the text set for path without creating content.
func (f *FakeFactory) ReadContent(path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[path]++
	if f.Err != nil {
		return "", f.Err
	}
	return f.texts[path], nil
}

// Reads returns how many times ReadContent ran for path.
func (f *FakeFactory) Reads(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[path]
}

// Calls returns how many times Create ran for path.
func (f *FakeFactory) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// Content returns the most recent content created for path.
func (f *FakeFactory) Content(path string) *FakeContent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contents[path]
}

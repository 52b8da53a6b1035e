// Package content turns a raw file into a stream of complete lines.
//
// Two interchangeable implementations exist. NativeContent delegates line
// demarcation and file following to github.com/nxadm/tail. ProcessContent
// spawns an external tail process and rebuilds lines from its stdout and
// stderr chunks itself, buffering partial lines per stream.
//
// Listeners are identified by the ListenerID returned at registration, so a
// caller can always remove exactly the callback it added.
package content

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/blackwell-systems/logport/internal/logging"
)

// DefaultEOL is the end-of-line token used when none is configured.
const DefaultEOL = "\n"

// Listener receives one complete line of text.
type Listener func(line string)

// ListenerID identifies a registered listener.
type ListenerID uint64

// Content is the line-emitting, sizeable, readable view of one file.
type Content interface {
	AddChangesListener(fn Listener) ListenerID
	RemoveChangesListener(id ListenerID)
	HasChangesListeners() bool
	Size() (int64, error)
	ReadText() (TextContent, error)
	Close() error
}

// FileSystem is the subset of file operations content needs.
type FileSystem interface {
	Stat(path string) (int64, error)
	ReadFile(path string) ([]byte, error)
}

// OSFileSystem reads from the local disk.
type OSFileSystem struct{}

func (OSFileSystem) Stat(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ReadError wraps a failure to read a file's content.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read content of %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// SizeError wraps a failure to stat a file.
type SizeError struct {
	Path string
	Err  error
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("failed to get size of %s: %v", e.Path, e.Err)
}

func (e *SizeError) Unwrap() error { return e.Err }

// TextContent is a raw payload together with the end-of-line token that
// separates its lines.
type TextContent struct {
	Raw string
	EOL string
}

// Lines splits the text on EOL. A single trailing empty segment produced by a
// terminal separator is dropped.
func (t TextContent) Lines() []string {
	if t.Raw == "" {
		return []string{}
	}
	eol := t.EOL
	if eol == "" {
		eol = DefaultEOL
	}
	lines := strings.Split(t.Raw, eol)
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func (t TextContent) String() string { return t.Raw }

// Options configures either content implementation.
type Options struct {
	FS     FileSystem
	EOL    string
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.FS == nil {
		o.FS = OSFileSystem{}
	}
	if o.EOL == "" {
		o.EOL = DefaultEOL
	}
	o.Logger = logging.OrNop(o.Logger)
	return o
}

// base holds what both implementations share: the file path, reads, and
// the listener registry.
type base struct {
	path      string
	fs        FileSystem
	eol       string
	listeners *emitter
}

func newBase(path string, opts Options) base {
	return base{
		path:      path,
		fs:        opts.FS,
		eol:       opts.EOL,
		listeners: newEmitter(),
	}
}

func (b *base) AddChangesListener(fn Listener) ListenerID {
	return b.listeners.add(fn)
}

func (b *base) RemoveChangesListener(id ListenerID) {
	b.listeners.remove(id)
}

func (b *base) HasChangesListeners() bool {
	return b.listeners.len() > 0
}

func (b *base) Size() (int64, error) {
	size, err := b.fs.Stat(b.path)
	if err != nil {
		return 0, &SizeError{Path: b.path, Err: err}
	}
	return size, nil
}

func (b *base) ReadText() (TextContent, error) {
	return readText(b.fs, b.path, b.eol)
}

// Snapshot reads path once through opts.FS without following it.
func Snapshot(path string, opts Options) (TextContent, error) {
	opts = opts.withDefaults()
	return readText(opts.FS, path, opts.EOL)
}

func readText(fs FileSystem, path, eol string) (TextContent, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return TextContent{}, &ReadError{Path: path, Err: err}
	}
	return TextContent{Raw: string(data), EOL: eol}, nil
}

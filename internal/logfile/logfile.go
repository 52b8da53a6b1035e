// Package logfile pairs a Content with the absolute path that identifies it.
package logfile

import (
	"github.com/blackwell-systems/logport/internal/content"
)

// LogFile is one watched file. Identity is the exact, case-sensitive path.
type LogFile struct {
	path    string
	content content.Content
}

// New wraps c under path.
func New(path string, c content.Content) *LogFile {
	return &LogFile{path: path, content: c}
}

// Path returns the absolute path the log file was created for.
func (l *LogFile) Path() string {
	return l.path
}

func (l *LogFile) AddContentChangesListener(fn content.Listener) content.ListenerID {
	return l.content.AddChangesListener(fn)
}

func (l *LogFile) RemoveContentChangesListener(id content.ListenerID) {
	l.content.RemoveChangesListener(id)
}

func (l *LogFile) HasContentChangesListeners() bool {
	return l.content.HasChangesListeners()
}

func (l *LogFile) Size() (int64, error) {
	return l.content.Size()
}

// ContentAsString returns the whole readable text.
func (l *LogFile) ContentAsString() (string, error) {
	text, err := l.content.ReadText()
	if err != nil {
		return "", err
	}
	return text.Raw, nil
}

// ContentLines returns the current text split into lines.
func (l *LogFile) ContentLines() ([]string, error) {
	text, err := l.content.ReadText()
	if err != nil {
		return nil, err
	}
	return text.Lines(), nil
}

// Close releases the underlying content.
func (l *LogFile) Close() error {
	return l.content.Close()
}

// Comparer keys log files by path for collection.Collection.
type Comparer struct{}

func (Comparer) Equal(a, b *LogFile) bool            { return a.path == b.path }
func (Comparer) HasID(l *LogFile, path string) bool { return l.path == path }
func (Comparer) ID(l *LogFile) string               { return l.path }

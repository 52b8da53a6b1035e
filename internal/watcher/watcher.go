package watcher

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blackwell-systems/logport/internal/collection"
	"github.com/blackwell-systems/logport/internal/content"
	"github.com/blackwell-systems/logport/internal/logfile"
	"github.com/blackwell-systems/logport/internal/logging"
	"github.com/blackwell-systems/logport/internal/message"
)

var (
	// ErrAlreadyWatching is matched by CantWatchLogMultipleTimesError.
	ErrAlreadyWatching = errors.New("log file is already watched")
	// ErrNotWatching is matched by NotWatchingLogFileError.
	ErrNotWatching = errors.New("log file is not watched")
)

// CantWatchLogMultipleTimesError reports a second watch of the same path
// by one watcher.
type CantWatchLogMultipleTimesError struct {
	WatcherID string
	Path      string
}

func (e *CantWatchLogMultipleTimesError) Error() string {
	return fmt.Sprintf("watcher %s is already watching %s", e.WatcherID, e.Path)
}

func (e *CantWatchLogMultipleTimesError) Is(target error) bool {
	return target == ErrAlreadyWatching
}

// NotWatchingLogFileError reports an unwatch of a path the watcher does not watch.
type NotWatchingLogFileError struct {
	WatcherID string
	Path      string
}

func (e *NotWatchingLogFileError) Error() string {
	return fmt.Sprintf("watcher %s is not watching %s", e.WatcherID, e.Path)
}

func (e *NotWatchingLogFileError) Is(target error) bool {
	return target == ErrNotWatching
}

// Connection is the client side of a watcher.
type Connection interface {
	Send(msg string) error
}

// subscription is one registered listener. While holding, live lines are
// queued instead of sent so a beginning-of-file snapshot can go out first.
type subscription struct {
	id      content.ListenerID
	mu      sync.Mutex
	holding bool
	held    []string
}

// Watcher is one client's set of watched log files.
type Watcher struct {
	id       string
	conn     Connection
	messages message.Factory
	logger   *slog.Logger

	mu   sync.Mutex
	logs *collection.Collection[*logfile.LogFile]
	subs map[string]*subscription

	sendMu sync.Mutex
}

// New creates a watcher sending through conn with the given encoding.
func New(id string, conn Connection, messages message.Factory, logger *slog.Logger) *Watcher {
	return &Watcher{
		id:       id,
		conn:     conn,
		messages: messages,
		logger:   logging.OrNop(logger).With(slog.String("watcher", id)),
		logs:     collection.New[*logfile.LogFile](logfile.Comparer{}),
		subs:     make(map[string]*subscription),
	}
}

// ID returns the watcher's session id.
func (w *Watcher) ID() string {
	return w.id
}

// WatchLog subscribes to new lines of lf.
func (w *Watcher) WatchLog(lf *logfile.LogFile) error {
	return w.watchLog(lf, false)
}

func (w *Watcher) watchLog(lf *logfile.LogFile, hold bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	path := lf.Path()
	if w.logs.Contains(path) {
		return &CantWatchLogMultipleTimesError{WatcherID: w.id, Path: path}
	}

	sub := &subscription{holding: hold}
	sub.id = lf.AddContentChangesListener(func(line string) {
		w.deliver(lf, sub, line)
	})
	if err := w.logs.Add(lf); err != nil {
		lf.RemoveContentChangesListener(sub.id)
		return err
	}
	w.subs[path] = sub

	w.logger.Debug("watching log", slog.String("path", path))
	return nil
}

func (w *Watcher) deliver(lf *logfile.LogFile, sub *subscription, line string) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.holding {
		sub.held = append(sub.held, line)
		return
	}
	if err := w.sendChange(lf, []string{line}); err != nil {
		w.logger.Warn("failed to forward log change",
			slog.String("path", lf.Path()),
			slog.String("error", err.Error()))
	}
}

// ReadFromTheBeginning sends every current line of lf as one change
// message. On a read failure the client is notified and the read error is
// returned. Lines held back by WatchFromTheBeginning are sent afterwards.
func (w *Watcher) ReadFromTheBeginning(lf *logfile.LogFile) error {
	lines, readErr := lf.ContentLines()

	sub := w.subscription(lf.Path())
	if sub != nil {
		sub.mu.Lock()
		defer sub.mu.Unlock()
	}

	var err error
	if readErr != nil {
		w.logger.Warn("failed to read log from the beginning",
			slog.String("path", lf.Path()),
			slog.String("error", readErr.Error()))
		err = readErr
		if notifyErr := w.NotifyAboutError(readErr); notifyErr != nil {
			err = errors.Join(readErr, notifyErr)
		}
	} else {
		err = w.sendChange(lf, lines)
	}

	if sub != nil && sub.holding {
		held := sub.held
		sub.held = nil
		sub.holding = false
		for _, line := range held {
			if sendErr := w.sendChange(lf, []string{line}); sendErr != nil {
				err = errors.Join(err, sendErr)
				break
			}
		}
	}
	return err
}

// WatchFromTheBeginning watches lf and then replays its current content.
// Lines appended while the content is read are delivered after it.
func (w *Watcher) WatchFromTheBeginning(lf *logfile.LogFile) error {
	if err := w.watchLog(lf, true); err != nil {
		return err
	}
	return w.ReadFromTheBeginning(lf)
}

// StopWatchingLog unsubscribes from lf. If lf is not watched the client is
// notified and *NotWatchingLogFileError is returned.
func (w *Watcher) StopWatchingLog(lf *logfile.LogFile) error {
	_, err := w.StopWatchingPath(lf.Path())
	return err
}

// StopWatchingPath unsubscribes from the log file watched under path and
// returns it.
func (w *Watcher) StopWatchingPath(path string) (*logfile.LogFile, error) {
	lf, ok := w.stop(path)
	if !ok {
		err := &NotWatchingLogFileError{WatcherID: w.id, Path: path}
		if notifyErr := w.NotifyAboutError(err); notifyErr != nil {
			return nil, errors.Join(err, notifyErr)
		}
		return nil, err
	}
	return lf, nil
}

func (w *Watcher) stop(path string) (*logfile.LogFile, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	stored, err := w.logs.FindByID(path)
	if err != nil {
		return nil, false
	}
	if sub, ok := w.subs[path]; ok {
		stored.RemoveContentChangesListener(sub.id)
		delete(w.subs, path)
	}
	if err := w.logs.Remove(stored); err != nil {
		return nil, false
	}

	w.logger.Debug("stopped watching log", slog.String("path", path))
	return stored, true
}

// StopWatchingLogs unsubscribes from everything and returns the log files
// that were watched, so the caller can dispose of them.
func (w *Watcher) StopWatchingLogs() []*logfile.LogFile {
	var stopped []*logfile.LogFile
	for _, lf := range w.logs.FindAll() {
		if released, ok := w.stop(lf.Path()); ok {
			stopped = append(stopped, released)
		}
	}
	return stopped
}

// IsWatching reports whether path is watched.
func (w *Watcher) IsWatching(path string) bool {
	return w.logs.Contains(path)
}

// WatchedLogs returns the watched log files in watch order.
func (w *Watcher) WatchedLogs() []*logfile.LogFile {
	return w.logs.FindAll()
}

// NotifyAboutError sends an error message to the client.
func (w *Watcher) NotifyAboutError(err error) error {
	msg, encErr := w.messages.CreateErrorMessage(err)
	if encErr != nil {
		return encErr
	}
	return w.send(msg)
}

func (w *Watcher) subscription(path string) *subscription {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.subs[path]
}

func (w *Watcher) sendChange(lf *logfile.LogFile, lines []string) error {
	msg, err := w.messages.CreateLogChangeMessage(lf, lines)
	if err != nil {
		return err
	}
	return w.send(msg)
}

func (w *Watcher) send(msg string) error {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()

	if err := w.conn.Send(msg); err != nil {
		return fmt.Errorf("failed to send to watcher %s: %w", w.id, err)
	}
	return nil
}

// Comparer keys watchers by id for collection.Collection.
type Comparer struct{}

func (Comparer) Equal(a, b *Watcher) bool         { return a.id == b.id }
func (Comparer) HasID(w *Watcher, id string) bool { return w.id == id }
func (Comparer) ID(w *Watcher) string             { return w.id }

// Package pool shares one LogFile per path across every watcher and closes
// it once nobody listens anymore.
//
// Watchers never close content themselves. They detach their listeners and
// hand the log files back to DisposeIfNecessary, which closes and forgets a
// log file only when its listener count has dropped to zero.
package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blackwell-systems/logport/internal/collection"
	"github.com/blackwell-systems/logport/internal/logfile"
	"github.com/blackwell-systems/logport/internal/logging"
)

// CantBeDisposedError reports a disposal of a log file the pool does not hold.
type CantBeDisposedError struct {
	Path string
	Err  error
}

func (e *CantBeDisposedError) Error() string {
	return fmt.Sprintf("log file %s can't be disposed: %v", e.Path, e.Err)
}

func (e *CantBeDisposedError) Unwrap() error { return e.Err }

// Pool deduplicates log files by path.
type Pool struct {
	mu      sync.Mutex
	factory logfile.Factory
	logs    *collection.Collection[*logfile.LogFile]
	logger  *slog.Logger
}

// New creates an empty pool creating log files through factory.
func New(factory logfile.Factory, logger *slog.Logger) *Pool {
	return &Pool{
		factory: factory,
		logs:    collection.New[*logfile.LogFile](logfile.Comparer{}),
		logger:  logging.OrNop(logger),
	}
}

// GetLog returns the live log file for path, creating it on first access.
func (p *Pool) GetLog(path string) (*logfile.LogFile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.getLog(path)
}

func (p *Pool) getLog(path string) (*logfile.LogFile, error) {
	lf, created, err := p.logs.AddIfAbsent(path, func() (*logfile.LogFile, error) {
		return p.factory.Create(path)
	})
	if err != nil {
		return nil, err
	}
	if created {
		p.logger.Debug("log file opened", slog.String("path", path), slog.Int("open", p.logs.Len()))
	}
	return lf, nil
}

// Use gets the log file for path and runs fn on it while no disposal can
// interleave. If fn fails and left no listener behind, the log file is
// disposed again before Use returns.
func (p *Pool) Use(path string, fn func(*logfile.LogFile) error) (*logfile.LogFile, error) {
	p.mu.Lock()
	lf, err := p.getLog(path)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	if err := fn(lf); err != nil {
		released, releaseErr := p.release(lf)
		p.mu.Unlock()
		if releaseErr == nil && released {
			releaseErr = p.closeReleased(lf)
		}
		if releaseErr != nil {
			return lf, errors.Join(err, releaseErr)
		}
		return lf, err
	}
	p.mu.Unlock()
	return lf, nil
}

// ReadContent returns the current text of path without starting a tail
// when nobody watches it. An open log file is read through its content;
// otherwise the factory reads the file directly if it is a logfile.Reader.
func (p *Pool) ReadContent(path string) (string, error) {
	p.mu.Lock()
	lf, err := p.logs.FindByID(path)
	p.mu.Unlock()
	if err == nil {
		return lf.ContentAsString()
	}

	if r, ok := p.factory.(logfile.Reader); ok {
		return r.ReadContent(path)
	}

	lf, err = p.GetLog(path)
	if err != nil {
		return "", err
	}
	text, readErr := lf.ContentAsString()
	if err := p.DisposeIfNecessary(lf); err != nil {
		p.logger.Debug("log file not disposed after read", slog.String("path", path), slog.String("error", err.Error()))
	}
	return text, readErr
}

// DisposeIfNecessary closes lf and forgets it when it has no listeners left.
// A log file that still has listeners is left untouched. Disposing a log
// file the pool does not hold fails with *CantBeDisposedError and closes
// nothing.
//
// The entry is removed under the pool lock and closed after it is
// released, so a content whose Close waits on a slow listener only delays
// its own caller. If Close fails the error is returned and the entry stays
// removed: content Close runs at most once, so a failed instance cannot be
// closed again by a later disposal.
func (p *Pool) DisposeIfNecessary(lf *logfile.LogFile) error {
	p.mu.Lock()
	released, err := p.release(lf)
	p.mu.Unlock()

	if err != nil || !released {
		return err
	}
	return p.closeReleased(lf)
}

// release removes lf from the collection when it has no listeners and
// reports whether it did. The caller closes a released log file once the
// pool lock is dropped. Must be called with p.mu held.
func (p *Pool) release(lf *logfile.LogFile) (bool, error) {
	if lf.HasContentChangesListeners() {
		return false, nil
	}

	stored, err := p.logs.FindByID(lf.Path())
	if err != nil {
		return false, &CantBeDisposedError{Path: lf.Path(), Err: err}
	}
	if stored != lf {
		return false, &CantBeDisposedError{Path: lf.Path(), Err: &collection.NotFoundError{ID: lf.Path()}}
	}
	if err := p.logs.Remove(stored); err != nil {
		return false, &CantBeDisposedError{Path: lf.Path(), Err: err}
	}
	return true, nil
}

func (p *Pool) closeReleased(lf *logfile.LogFile) error {
	if err := lf.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", lf.Path(), err)
	}
	p.logger.Debug("log file disposed", slog.String("path", lf.Path()), slog.Int("open", p.logs.Len()))
	return nil
}

// DisposeAllIfNecessary disposes every log file without listeners. Entries
// that still have listeners are skipped silently; failures are joined.
func (p *Pool) DisposeAllIfNecessary(lfs []*logfile.LogFile) error {
	var (
		errs     []error
		released []*logfile.LogFile
	)

	p.mu.Lock()
	for _, lf := range lfs {
		ok, err := p.release(lf)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			released = append(released, lf)
		}
	}
	p.mu.Unlock()

	for _, lf := range released {
		if err := p.closeReleased(lf); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Paths returns the paths of every open log file in opening order.
func (p *Pool) Paths() []string {
	all := p.logs.FindAll()
	paths := make([]string, len(all))
	for i, lf := range all {
		paths[i] = lf.Path()
	}
	return paths
}

// Len returns the number of open log files.
func (p *Pool) Len() int {
	return p.logs.Len()
}

// Close closes every open log file regardless of listeners. It is meant for
// process shutdown.
func (p *Pool) Close() error {
	p.mu.Lock()
	var (
		errs []error
		open []*logfile.LogFile
	)
	for _, lf := range p.logs.FindAll() {
		if err := p.logs.Remove(lf); err != nil {
			errs = append(errs, err)
			continue
		}
		open = append(open, lf)
	}
	p.mu.Unlock()

	for _, lf := range open {
		if err := lf.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", lf.Path(), err))
		}
	}
	return errors.Join(errs...)
}

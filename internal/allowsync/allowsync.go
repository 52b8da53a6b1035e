// Package allowsync keeps the allow-list store in step with a plain-text
// allow-list file.
//
// Paths listed in the file are added to the store with FileNote. When a
// path disappears from the file, its store entry is removed again, but only
// if it still carries FileNote: entries added by hand are never touched.
package allowsync

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blackwell-systems/logport/internal/config"
	"github.com/blackwell-systems/logport/internal/logging"
	"github.com/blackwell-systems/logport/internal/store"
)

// FileNote marks store entries owned by the allow-list file.
const FileNote = "allowlist file"

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 100 * time.Millisecond

// Target is the part of store.Store the syncer writes to.
type Target interface {
	AddAllowedLog(path, note string) error
	RemoveAllowedLog(path string) error
	ListAllowedLogs() ([]*store.AllowedLog, error)
}

// Result summarizes one sync.
type Result struct {
	Added   int
	Removed int
}

// Syncer watches one allow-list file.
type Syncer struct {
	path     string
	target   Target
	logger   *slog.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// New creates a syncer for the file at path.
func New(path string, target Target, logger *slog.Logger) *Syncer {
	return &Syncer{
		path:     filepath.Clean(path),
		target:   target,
		logger:   logging.OrNop(logger),
		debounce: DefaultDebounce,
	}
}

// Sync applies the current file content to the store once.
func (s *Syncer) Sync() (Result, error) {
	entries, err := config.LoadAllowlistFile(s.path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load allow-list file: %w", err)
	}

	existing, err := s.target.ListAllowedLogs()
	if err != nil {
		return Result{}, fmt.Errorf("failed to list allowed logs: %w", err)
	}
	known := make(map[string]*store.AllowedLog, len(existing))
	for _, e := range existing {
		known[e.Path] = e
	}

	var res Result
	listed := make(map[string]bool, len(entries))
	for _, e := range entries {
		listed[e.Path] = true
		// Present either from the file or by hand; keep its note.
		if _, ok := known[e.Path]; ok {
			continue
		}
		if err := s.target.AddAllowedLog(e.Path, FileNote); err != nil {
			return res, err
		}
		res.Added++
	}

	for _, e := range existing {
		if e.Note != FileNote || listed[e.Path] {
			continue
		}
		if err := s.target.RemoveAllowedLog(e.Path); err != nil {
			return res, err
		}
		res.Removed++
	}

	return res, nil
}

// Start performs an initial sync and then resyncs whenever the file is
// written, created, renamed or removed. The file's directory is watched so
// atomic-rename saves are seen.
func (s *Syncer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("allow-list syncer already running")
	}

	if res, err := s.Sync(); err != nil {
		s.logger.Warn("initial allow-list sync failed", slog.String("error", err.Error()))
	} else {
		s.logResult(res)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}

	s.watcher = watcher
	s.stopCh = make(chan struct{})
	s.running = true

	s.wg.Add(1)
	go s.run()

	s.logger.Info("watching allow-list file", slog.String("path", s.path))
	return nil
}

// Stop stops watching and waits for the event loop to exit.
func (s *Syncer) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return s.watcher.Close()
}

func (s *Syncer) run() {
	defer s.wg.Done()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-s.stopCh:
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			res, err := s.Sync()
			if err != nil {
				s.logger.Warn("allow-list sync failed", slog.String("error", err.Error()))
				continue
			}
			s.logResult(res)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("allow-list watcher error", slog.String("error", err.Error()))
		}
	}
}

func (s *Syncer) logResult(res Result) {
	if res.Added == 0 && res.Removed == 0 {
		return
	}
	s.logger.Info("allow-list synced",
		slog.String("path", s.path),
		slog.Int("added", res.Added),
		slog.Int("removed", res.Removed))
}

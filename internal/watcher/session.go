package watcher

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/blackwell-systems/logport/internal/logfile"
	"github.com/blackwell-systems/logport/internal/logging"
	"github.com/blackwell-systems/logport/internal/message"
)

// LogPool is the part of pool.Pool a session needs.
type LogPool interface {
	Use(path string, fn func(*logfile.LogFile) error) (*logfile.LogFile, error)
	DisposeIfNecessary(lf *logfile.LogFile) error
	DisposeAllIfNecessary(lfs []*logfile.LogFile) error
}

// Session ties a Watcher to one client connection. Closing the session
// stops every watch and lets the pool dispose of idle log files.
type Session struct {
	watcher  *Watcher
	pool     LogPool
	registry *Registry
	logger   *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewSession creates a watcher with a fresh id for conn and registers it.
func NewSession(conn Connection, messages message.Factory, p LogPool, registry *Registry, logger *slog.Logger) (*Session, error) {
	if conn == nil || messages == nil || p == nil || registry == nil {
		return nil, fmt.Errorf("session requires connection, message factory, pool and registry")
	}

	logger = logging.OrNop(logger)
	w := New(uuid.NewString(), conn, messages, logger)
	if err := registry.Register(w); err != nil {
		return nil, fmt.Errorf("failed to register watcher: %w", err)
	}

	logger.Info("watcher connected", slog.String("watcher", w.ID()), slog.Int("watchers", registry.Len()))
	return &Session{
		watcher:  w,
		pool:     p,
		registry: registry,
		logger:   logger.With(slog.String("watcher", w.ID())),
	}, nil
}

// Watcher returns the session's watcher.
func (s *Session) Watcher() *Watcher {
	return s.watcher
}

// Watch subscribes to path, optionally replaying its current content first.
// Failures are reported to the client and returned.
func (s *Session) Watch(path string, fromBeginning bool) error {
	lf, err := s.pool.Use(path, func(lf *logfile.LogFile) error {
		return s.watcher.watchLog(lf, fromBeginning)
	})
	if err != nil {
		s.logger.Warn("watch failed", slog.String("path", path), slog.String("error", err.Error()))
		return s.notify(err)
	}

	s.logger.Info("watch started", slog.String("path", path), slog.Bool("from_beginning", fromBeginning))
	if fromBeginning {
		return s.watcher.ReadFromTheBeginning(lf)
	}
	return nil
}

// Unwatch stops watching path and disposes of its log file if nobody else
// listens.
func (s *Session) Unwatch(path string) error {
	lf, err := s.watcher.StopWatchingPath(path)
	if err != nil {
		return err
	}

	s.logger.Info("watch stopped", slog.String("path", path))
	if err := s.pool.DisposeIfNecessary(lf); err != nil {
		return fmt.Errorf("failed to dispose %s: %w", path, err)
	}
	return nil
}

// Close stops every watch, disposes of idle log files and unregisters the
// watcher. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		released := s.watcher.StopWatchingLogs()

		var errs []error
		if err := s.pool.DisposeAllIfNecessary(released); err != nil {
			errs = append(errs, err)
		}
		if err := s.registry.Unregister(s.watcher); err != nil {
			errs = append(errs, err)
		}
		s.closeErr = errors.Join(errs...)

		s.logger.Info("watcher disconnected",
			slog.Int("released", len(released)),
			slog.Int("watchers", s.registry.Len()))
	})
	return s.closeErr
}

func (s *Session) notify(err error) error {
	if notifyErr := s.watcher.NotifyAboutError(err); notifyErr != nil {
		return errors.Join(err, notifyErr)
	}
	return err
}

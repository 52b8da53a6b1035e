package logfile

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/blackwell-systems/logport/internal/content"
	"github.com/blackwell-systems/logport/internal/logging"
)

// Content modes accepted by ContentFactory.
const (
	ModeNative  = "native"
	ModeProcess = "process"
)

// ErrAccessDenied is matched by AccessError via errors.Is.
var ErrAccessDenied = errors.New("log file is not allow-listed")

// AccessError reports a request for a path outside the allow-list.
type AccessError struct {
	Path string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("access to %s denied: path is not allow-listed", e.Path)
}

func (e *AccessError) Is(target error) bool {
	return target == ErrAccessDenied
}

// Factory creates a LogFile for a path.
type Factory interface {
	Create(path string) (*LogFile, error)
}

// Reader is implemented by factories that can read a file once without
// creating a LogFile for it.
type Reader interface {
	ReadContent(path string) (string, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(path string) (*LogFile, error)

func (f FactoryFunc) Create(path string) (*LogFile, error) { return f(path) }

// DefaultMode returns the content mode for the running platform.
func DefaultMode() string {
	if runtime.GOOS == "windows" {
		return ModeProcess
	}
	return ModeNative
}

// ContentFactory builds log files backed by native or process content.
type ContentFactory struct {
	mode        string
	opts        content.Options
	tailCommand []string
}

// NewContentFactory validates mode and returns a factory for it. An empty
// mode selects DefaultMode.
func NewContentFactory(mode string, opts content.Options, tailCommand []string) (*ContentFactory, error) {
	if mode == "" {
		mode = DefaultMode()
	}
	if mode != ModeNative && mode != ModeProcess {
		return nil, fmt.Errorf("unknown content mode %q (want %s or %s)", mode, ModeNative, ModeProcess)
	}
	return &ContentFactory{mode: mode, opts: opts, tailCommand: tailCommand}, nil
}

// Mode returns the selected content mode.
func (f *ContentFactory) Mode() string {
	return f.mode
}

func (f *ContentFactory) Create(path string) (*LogFile, error) {
	var (
		c   content.Content
		err error
	)
	switch f.mode {
	case ModeProcess:
		c, err = content.NewProcess(path, content.ProcessOptions{Options: f.opts, Command: f.tailCommand})
	default:
		c, err = content.NewNative(path, f.opts)
	}
	if err != nil {
		return nil, err
	}
	return New(path, c), nil
}

// ReadContent reads path once through the configured file system.
func (f *ContentFactory) ReadContent(path string) (string, error) {
	text, err := content.Snapshot(path, f.opts)
	if err != nil {
		return "", err
	}
	return text.Raw, nil
}

// AllowList reports whether a path may be watched.
type AllowList interface {
	Contains(path string) bool
}

// StaticAllowList is a fixed set of allowed paths.
type StaticAllowList map[string]struct{}

// NewStaticAllowList builds an allow-list from paths.
func NewStaticAllowList(paths ...string) StaticAllowList {
	s := make(StaticAllowList, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

func (s StaticAllowList) Contains(path string) bool {
	_, ok := s[path]
	return ok
}

// RestrictedFactory refuses paths that are not allow-listed and delegates
// the rest.
type RestrictedFactory struct {
	allowed AllowList
	next    Factory
	logger  *slog.Logger
}

// NewRestrictedFactory wraps next with an allow-list check.
func NewRestrictedFactory(allowed AllowList, next Factory, logger *slog.Logger) *RestrictedFactory {
	return &RestrictedFactory{allowed: allowed, next: next, logger: logging.OrNop(logger)}
}

func (f *RestrictedFactory) Create(path string) (*LogFile, error) {
	if !f.allowed.Contains(path) {
		f.logger.Warn("denied log file access", slog.String("path", path))
		return nil, &AccessError{Path: path}
	}
	return f.next.Create(path)
}

// ReadContent applies the allow-list check and reads path through next.
// When next cannot read directly, a LogFile is created and closed again.
func (f *RestrictedFactory) ReadContent(path string) (string, error) {
	if !f.allowed.Contains(path) {
		f.logger.Warn("denied log file access", slog.String("path", path))
		return "", &AccessError{Path: path}
	}
	if r, ok := f.next.(Reader); ok {
		return r.ReadContent(path)
	}

	lf, err := f.next.Create(path)
	if err != nil {
		return "", err
	}
	text, readErr := lf.ContentAsString()
	return text, errors.Join(readErr, lf.Close())
}

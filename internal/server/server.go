// Package server exposes the watcher engine over HTTP and websockets.
//
// Two websocket endpoints exist. The v1 endpoint watches exactly one file
// chosen by query parameters and uses the default message encoding. The
// legacy endpoint accepts watch and unwatch frames for any number of files
// and tags every change with its file path.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/blackwell-systems/logport/internal/logging"
	"github.com/blackwell-systems/logport/internal/pool"
	"github.com/blackwell-systems/logport/internal/store"
	"github.com/blackwell-systems/logport/internal/watcher"
)

// Endpoint paths.
const (
	WatchPath   = "/api/v1/logs/watch"
	LogsPath    = "/api/v1/logs"
	AllowedPath = "/api/v1/allowed"
	StatusPath  = "/api/v1/status"

	DefaultLegacyPath = "/ws"
)

// AllowedLister lists allow-listed paths.
type AllowedLister interface {
	ListAllowedLogs() ([]*store.AllowedLog, error)
}

// Options configures a Server.
type Options struct {
	Bind       string
	LegacyPath string
	Mode       string
	Pool       *pool.Pool
	Registry   *watcher.Registry
	Allowed    AllowedLister
	Logger     *slog.Logger
}

// Server serves the watch endpoints.
type Server struct {
	bind       string
	legacyPath string
	mode       string
	pool       *pool.Pool
	registry   *watcher.Registry
	allowed    AllowedLister
	logger     *slog.Logger

	listener net.Listener
	server   *http.Server

	connMu sync.Mutex
	conns  map[*websocket.Conn]struct{}
}

// New validates opts and builds the handler tree.
func New(opts Options) (*Server, error) {
	if opts.Pool == nil || opts.Registry == nil {
		return nil, errors.New("server requires a pool and a watcher registry")
	}
	legacy := strings.TrimSpace(opts.LegacyPath)
	if legacy == "" {
		legacy = DefaultLegacyPath
	}

	s := &Server{
		bind:       opts.Bind,
		legacyPath: legacy,
		mode:       opts.Mode,
		pool:       opts.Pool,
		registry:   opts.Registry,
		allowed:    opts.Allowed,
		logger:     logging.OrNop(opts.Logger),
		conns:      make(map[*websocket.Conn]struct{}),
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(WatchPath, s.websocketHandler(s.serveWatch))
	mux.Handle(s.legacyPath, s.websocketHandler(s.serveLegacy))
	mux.HandleFunc(LogsPath, s.handleLogs)
	mux.HandleFunc(AllowedPath, s.handleAllowed)
	mux.HandleFunc(StatusPath, s.handleStatus)
	return mux
}

func (s *Server) websocketHandler(fn func(*websocket.Conn)) websocket.Server {
	return websocket.Server{
		Handler: func(ws *websocket.Conn) {
			s.track(ws)
			defer s.untrack(ws)
			fn(ws)
		},
		// Clients are not browsers on a known origin.
		Handshake: func(*websocket.Config, *http.Request) error {
			return nil
		},
	}
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.bind, err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("server listening",
		slog.String("address", listener.Addr().String()),
		slog.String("legacy_path", s.legacyPath))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Stop shuts the HTTP server down and closes every open websocket, which
// ends their sessions.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.connMu.Lock()
	for ws := range s.conns {
		ws.Close()
	}
	s.connMu.Unlock()
}

func (s *Server) track(ws *websocket.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.conns[ws] = struct{}{}
}

func (s *Server) untrack(ws *websocket.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.conns, ws)
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/net/websocket"

	"github.com/blackwell-systems/logport/internal/message"
	"github.com/blackwell-systems/logport/internal/watcher"
)

// Client frame types on the legacy endpoint.
const (
	FrameWatch   = "watch"
	FrameUnwatch = "unwatch"
)

// ClientFrame is a request sent by a legacy client.
type ClientFrame struct {
	Type          string `json:"type"`
	Path          string `json:"path"`
	FromBeginning bool   `json:"fromBeginning,omitempty"`
}

// WriteTimeout bounds one websocket send. A client that stops reading
// fails its sends instead of stalling the tail that feeds it.
const WriteTimeout = 10 * time.Second

// wsConn sends watcher messages as websocket text frames.
type wsConn struct {
	ws      *websocket.Conn
	timeout time.Duration
}

func newWSConn(ws *websocket.Conn) wsConn {
	return wsConn{ws: ws, timeout: WriteTimeout}
}

func (c wsConn) Send(msg string) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	return websocket.Message.Send(c.ws, msg)
}

// serveWatch handles one v1 connection: a single file named by the path
// query parameter, replayed first when from=beginning.
func (s *Server) serveWatch(ws *websocket.Conn) {
	defer ws.Close()

	query := ws.Request().URL.Query()
	path := query.Get("path")
	fromBeginning := query.Get("from") == "beginning"

	sess, err := watcher.NewSession(newWSConn(ws), message.Default{}, s.pool, s.registry, s.logger)
	if err != nil {
		s.logger.Error("failed to open session", slog.String("error", err.Error()))
		return
	}
	defer sess.Close()

	if err := validatePath(path); err != nil {
		_ = sess.Watcher().NotifyAboutError(err)
		return
	}
	if err := sess.Watch(path, fromBeginning); err != nil && !sess.Watcher().IsWatching(path) {
		return
	}

	// Nothing is expected from v1 clients; reading detects the close.
	var discard string
	for {
		if err := websocket.Message.Receive(ws, &discard); err != nil {
			s.logReceiveErr(sess, err)
			return
		}
	}
}

// serveLegacy handles one legacy connection, which may watch many files.
func (s *Server) serveLegacy(ws *websocket.Conn) {
	defer ws.Close()

	sess, err := watcher.NewSession(newWSConn(ws), message.Legacy{}, s.pool, s.registry, s.logger)
	if err != nil {
		s.logger.Error("failed to open session", slog.String("error", err.Error()))
		return
	}
	defer sess.Close()

	for {
		var data string
		if err := websocket.Message.Receive(ws, &data); err != nil {
			s.logReceiveErr(sess, err)
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			_ = sess.Watcher().NotifyAboutError(fmt.Errorf("malformed frame: %w", err))
			continue
		}
		s.dispatch(sess, frame)
	}
}

// dispatch runs one legacy frame. Failures have already been reported to
// the client by the session.
func (s *Server) dispatch(sess *watcher.Session, frame ClientFrame) {
	if err := validatePath(frame.Path); err != nil {
		_ = sess.Watcher().NotifyAboutError(err)
		return
	}

	var err error
	switch frame.Type {
	case FrameWatch:
		err = sess.Watch(frame.Path, frame.FromBeginning)
	case FrameUnwatch:
		err = sess.Unwatch(frame.Path)
	default:
		_ = sess.Watcher().NotifyAboutError(fmt.Errorf("unknown frame type %q", frame.Type))
		return
	}
	if err != nil {
		s.logger.Debug("frame failed",
			slog.String("watcher", sess.Watcher().ID()),
			slog.String("type", frame.Type),
			slog.String("path", frame.Path),
			slog.String("error", err.Error()))
	}
}

func (s *Server) logReceiveErr(sess *watcher.Session, err error) {
	if errors.Is(err, io.EOF) {
		return
	}
	s.logger.Debug("websocket receive ended",
		slog.String("watcher", sess.Watcher().ID()),
		slog.String("error", err.Error()))
}

func validatePath(path string) error {
	if path == "" {
		return errors.New("path is required")
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path %q is not absolute", path)
	}
	return nil
}

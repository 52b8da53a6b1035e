package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/blackwell-systems/logport/internal/content"
	"github.com/blackwell-systems/logport/internal/logfile"
	"github.com/blackwell-systems/logport/internal/watcher"
)

// AllowedResponse is the body of GET /api/v1/allowed.
type AllowedResponse struct {
	Paths []AllowedEntry `json:"paths"`
}

// AllowedEntry is one allow-listed path.
type AllowedEntry struct {
	Path    string    `json:"path"`
	AddedAt time.Time `json:"addedAt"`
	Note    string    `json:"note,omitempty"`
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Mode     string   `json:"mode"`
	Watchers int      `json:"watchers"`
	OpenLogs []string `json:"openLogs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path := r.URL.Query().Get("path")
	if err := validatePath(path); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	text, err := s.pool.ReadContent(path)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func (s *Server) handleAllowed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	resp := AllowedResponse{Paths: []AllowedEntry{}}
	if s.allowed == nil {
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	entries, err := s.allowed.ListAllowedLogs()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, e := range entries {
		resp.Paths = append(resp.Paths, AllowedEntry{Path: e.Path, AddedAt: e.AddedAt, Note: e.Note})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Mode:     s.mode,
		Watchers: s.registry.Len(),
		OpenLogs: s.pool.Paths(),
	})
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var (
		accessErr *logfile.AccessError
		readErr   *content.ReadError
		sizeErr   *content.SizeError
		dupErr    *watcher.CantWatchLogMultipleTimesError
	)
	switch {
	case errors.As(err, &accessErr):
		return http.StatusForbidden
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.As(err, &readErr), errors.As(err, &sizeErr):
		return http.StatusInternalServerError
	case errors.As(err, &dupErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

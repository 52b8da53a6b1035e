// Package watcher tracks which log files one client is subscribed to and
// forwards their new lines to the client's connection.
//
// A Watcher holds non-owning references to pooled log files. It never closes
// content: stopping a watch only detaches the listener it registered, and the
// pool decides whether the file can be closed.
//
// Key features:
//   - One listener per watched path, removed by the token it was registered with
//   - Duplicate watches and unwatches of unknown paths are reported to the client
//   - Beginning-of-file replay that holds live lines until the snapshot is sent
//   - Session cleanup on disconnect: stop every watch, then dispose via the pool
//
// Example usage:
//
//	p := pool.New(factory, logger)
//	registry := watcher.NewRegistry()
//
//	s, err := watcher.NewSession(conn, message.Default{}, p, registry, logger)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	if err := s.Watch("/var/log/syslog", true); err != nil {
//		return err
//	}
package watcher

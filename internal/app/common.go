package app

import (
	"fmt"
	"log/slog"

	"github.com/blackwell-systems/logport/internal/config"
	"github.com/blackwell-systems/logport/internal/store"
)

// openStore opens the allow-list database, creating it and its schema when
// needed.
func openStore(cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	if err := ensureDir(cfg.Paths.DBPath); err != nil {
		return nil, err
	}

	st, err := store.New(cfg.Paths.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}
	st.SetLogger(logger)
	return st, nil
}

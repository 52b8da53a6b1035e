package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/logport/internal/config"
)

var (
	configPath string
	dbPath     string

	// RootCmd is the root command for logport
	RootCmd = &cobra.Command{
		Use:   "logport",
		Short: "Stream allow-listed log files to websocket clients",
		Long: `logport follows log files and pushes every new line to the clients
watching them over websockets.

Each file is opened once no matter how many clients watch it, and closed
again when the last client leaves. Only files on the allow-list can be
watched.

Endpoints:
  • /api/v1/logs/watch?path=<file>[&from=beginning]  one file per connection
  • /ws                                               legacy, many files per connection
  • /api/v1/logs?path=<file>                          current content
  • /api/v1/allowed, /api/v1/status

Examples:
  # Allow a log file
  logport allow add /var/log/app.log

  # Run in the background
  logport serve --daemon

  # Check what is being watched
  logport status`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.config/logport/config.toml)")
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "allow-list database path (overrides config)")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(allowCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(catCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		expanded, err := config.ExpandPath(dbPath)
		if err != nil {
			return nil, fmt.Errorf("invalid --db path: %w", err)
		}
		cfg.Paths.DBPath = expanded
	}
	return cfg, nil
}

// ensureDir creates the parent directory of path.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

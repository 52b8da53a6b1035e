package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/logport/internal/allowsync"
	"github.com/blackwell-systems/logport/internal/config"
	"github.com/blackwell-systems/logport/internal/content"
	"github.com/blackwell-systems/logport/internal/daemon"
	"github.com/blackwell-systems/logport/internal/logfile"
	"github.com/blackwell-systems/logport/internal/logging"
	"github.com/blackwell-systems/logport/internal/output"
	"github.com/blackwell-systems/logport/internal/pool"
	"github.com/blackwell-systems/logport/internal/server"
	"github.com/blackwell-systems/logport/internal/store"
	"github.com/blackwell-systems/logport/internal/watcher"
)

var (
	serveDaemon      bool
	serveDaemonChild bool
	serveStop        bool
	serveBind        string
	serveMode        string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve log streams to websocket clients",
		Long: `Start the log streaming server.

Serve modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as background process
  • Stop: Stop a running daemon

Content modes:
  • native: follow files in-process (default on Linux and macOS)
  • process: follow files through an external tail command (default on Windows)

The allow-list file named in the config is watched and mirrored into the
allow-list database while the server runs.`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  logport serve

  # Run as background daemon on another port
  logport serve --daemon --bind 0.0.0.0:7500

  # Stop running daemon
  logport serve --stop`,
		RunE: runServe,
	}
)

func init() {
	serveCmd.Flags().BoolVar(&serveDaemon, "daemon", false, "run as background daemon")
	serveCmd.Flags().BoolVar(&serveDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	serveCmd.Flags().BoolVar(&serveStop, "stop", false, "stop running daemon")
	serveCmd.Flags().StringVar(&serveBind, "bind", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveMode, "mode", "", "content mode: native or process (overrides config)")

	// Hide the internal daemon-child flag from help
	serveCmd.Flags().MarkHidden("daemon-child")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveBind != "" {
		cfg.Server.Bind = serveBind
	}
	if serveMode != "" {
		cfg.Watch.Mode = serveMode
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := ensureDir(cfg.Paths.PIDFile); err != nil {
		return err
	}

	if serveStop {
		return stopServeDaemon(cfg)
	}
	if serveDaemon {
		return startServeDaemon(cfg)
	}

	// The daemon child's stdout is already the log file.
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	if !serveDaemonChild {
		fmt.Printf("Serving logs on %s (press Ctrl+C to stop)...\n\n", cfg.Server.Bind)
	}

	return daemon.RunDaemon(cmd.Context(), cfg.Paths.PIDFile, func(ctx context.Context) error {
		eng, err := newEngine(cfg, logger)
		if err != nil {
			return err
		}
		defer eng.close()

		if err := eng.start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		logger.Info("shutting down")
		return nil
	})
}

func stopServeDaemon(cfg *config.Config) error {
	running, err := daemon.IsDaemonRunning(cfg.Paths.PIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon...")
	if err := daemon.StopDaemon(cfg.Paths.PIDFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")
	return nil
}

func startServeDaemon(cfg *config.Config) error {
	if err := ensureDir(cfg.Paths.LogFile); err != nil {
		return err
	}

	spinner := output.NewSpinner("Starting daemon...")
	pid, err := daemon.StartDaemon(cfg.Paths.PIDFile, cfg.Paths.LogFile, childArgs(cfg)...)
	if err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon started")

	fmt.Printf("\nLog server started (PID %d)\n", pid)
	fmt.Printf("  Address:  %s\n", cfg.Server.Bind)
	fmt.Printf("  PID file: %s\n", cfg.Paths.PIDFile)
	fmt.Printf("  Log file: %s\n", cfg.Paths.LogFile)
	fmt.Printf("\nTo stop: logport serve --stop\n")
	return nil
}

// childArgs repeats the flags the daemon child needs to resolve the same
// configuration.
func childArgs(cfg *config.Config) []string {
	args := []string{"serve", "--db", cfg.Paths.DBPath, "--bind", cfg.Server.Bind}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	if cfg.Watch.Mode != "" {
		args = append(args, "--mode", cfg.Watch.Mode)
	}
	return args
}

// engine is one running server with everything it owns.
type engine struct {
	logger *slog.Logger
	store  *store.Store
	syncer *allowsync.Syncer
	pool   *pool.Pool
	server *server.Server
}

func newEngine(cfg *config.Config, logger *slog.Logger) (*engine, error) {
	logger = logging.OrNop(logger)

	st, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	factory, err := logfile.NewContentFactory(cfg.Watch.Mode, content.Options{
		EOL:    cfg.Watch.EOL,
		Logger: logger,
	}, cfg.Watch.TailCommand)
	if err != nil {
		st.Close()
		return nil, err
	}

	p := pool.New(logfile.NewRestrictedFactory(st, factory, logger), logger)
	srv, err := server.New(server.Options{
		Bind:       cfg.Server.Bind,
		LegacyPath: cfg.Server.LegacyBindPath,
		Mode:       factory.Mode(),
		Pool:       p,
		Registry:   watcher.NewRegistry(),
		Allowed:    st,
		Logger:     logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	eng := &engine{logger: logger, store: st, pool: p, server: srv}
	if cfg.Paths.AllowlistFile != "" {
		eng.syncer = allowsync.New(cfg.Paths.AllowlistFile, st, logger)
	}
	return eng, nil
}

func (e *engine) start(ctx context.Context) error {
	if e.syncer != nil {
		if err := e.syncer.Start(); err != nil {
			// The server is still useful with the database allow-list alone.
			e.logger.Warn("allow-list file sync disabled", slog.String("error", err.Error()))
			e.syncer = nil
		}
	}
	return e.server.Start(ctx)
}

func (e *engine) close() error {
	e.server.Stop()

	var errs []error
	if e.syncer != nil {
		errs = append(errs, e.syncer.Stop())
	}
	errs = append(errs, e.pool.Close(), e.store.Close())
	return errors.Join(errs...)
}

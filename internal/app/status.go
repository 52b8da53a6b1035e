package app

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/logport/internal/config"
	"github.com/blackwell-systems/logport/internal/daemon"
	"github.com/blackwell-systems/logport/internal/output"
	"github.com/blackwell-systems/logport/internal/server"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and open log files",
	Long: `Display the state of the log server.

Shows:
  • Daemon running status and PID
  • Listen address and content mode
  • Number of allowed log files
  • Connected watchers and the log files they keep open`,
	Example: `  # Check status
  logport status`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	info := output.StatusInfo{DBPath: cfg.Paths.DBPath}

	running, err := daemon.IsDaemonRunning(cfg.Paths.PIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		info.Running = true
		info.PID, _ = daemon.ReadPID(cfg.Paths.PIDFile)
		info.Address = cfg.Server.Bind

		remote, err := fetchStatus(cfg)
		if err != nil {
			fmt.Printf("Warning: daemon is running but not answering: %v\n\n", err)
		} else {
			info.Mode = remote.Mode
			info.Watchers = remote.Watchers
			info.OpenLogs = remote.OpenLogs
		}
	}

	st, err := openStore(cfg, nil)
	if err == nil {
		defer st.Close()
		info.AllowedCount, _ = st.CountAllowedLogs()
	}

	fmt.Print(output.RenderStatus(info))
	if !info.Running {
		fmt.Println("\nStart it with 'logport serve --daemon'.")
	}
	return nil
}

func fetchStatus(cfg *config.Config) (*server.StatusResponse, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + dialAddr(cfg.Server.Bind) + server.StatusPath)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint returned %s", resp.Status)
	}
	var status server.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &status, nil
}

// dialAddr turns a listen address into one a local client can dial.
func dialAddr(bind string) string {
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return bind
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

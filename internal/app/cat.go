package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/websocket"

	"github.com/blackwell-systems/logport/internal/config"
	"github.com/blackwell-systems/logport/internal/content"
	"github.com/blackwell-systems/logport/internal/daemon"
	"github.com/blackwell-systems/logport/internal/logfile"
	"github.com/blackwell-systems/logport/internal/pool"
	"github.com/blackwell-systems/logport/internal/server"
)

var (
	catFollow        bool
	catFromBeginning bool

	catCmd = &cobra.Command{
		Use:   "cat <path>",
		Short: "Print an allowed log file, optionally following it",
		Long: `Print the current content of an allowed log file.

With --follow the file is watched through the running server and new lines
are printed as they arrive until Ctrl+C. --from-beginning replays the
current content first.`,
		Example: `  logport cat /var/log/app.log
  logport cat --follow --from-beginning /var/log/app.log`,
		Args: cobra.ExactArgs(1),
		RunE: runCat,
	}
)

func init() {
	catCmd.Flags().BoolVarP(&catFollow, "follow", "f", false, "stream new lines from the running server")
	catCmd.Flags().BoolVar(&catFromBeginning, "from-beginning", false, "with --follow, print the current content first")
}

func runCat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}

	running, err := daemon.IsDaemonRunning(cfg.Paths.PIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if catFollow {
		if !running {
			return errors.New("--follow needs a running server (start it with 'logport serve --daemon')")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return followLog(ctx, cfg, path, catFromBeginning, os.Stdout)
	}

	if running {
		return fetchLog(cfg, path, os.Stdout)
	}
	return readLocalLog(cfg, path, os.Stdout)
}

// fetchLog prints the content served by the running daemon.
func fetchLog(cfg *config.Config, path string, w io.Writer) error {
	client := &http.Client{Timeout: 30 * time.Second}
	u := "http://" + dialAddr(cfg.Server.Bind) + server.LogsPath + "?path=" + url.QueryEscape(path)
	resp, err := client.Get(u)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
			return fmt.Errorf("server returned %s", resp.Status)
		}
		return errors.New(body.Error)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// readLocalLog reads through a private pool so the allow-list is enforced
// the same way the server enforces it. No tail is started.
func readLocalLog(cfg *config.Config, path string, w io.Writer) error {
	st, err := openStore(cfg, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	factory, err := logfile.NewContentFactory(cfg.Watch.Mode, content.Options{EOL: cfg.Watch.EOL}, cfg.Watch.TailCommand)
	if err != nil {
		return err
	}
	p := pool.New(logfile.NewRestrictedFactory(st, factory, nil), nil)
	defer p.Close()

	text, err := p.ReadContent(path)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

// followLog streams change messages from the v1 watch endpoint.
func followLog(ctx context.Context, cfg *config.Config, path string, fromBeginning bool, w io.Writer) error {
	q := url.Values{"path": {path}}
	if fromBeginning {
		q.Set("from", "beginning")
	}
	addr := dialAddr(cfg.Server.Bind)
	ws, err := websocket.Dial("ws://"+addr+server.WatchPath+"?"+q.Encode(), "", "http://"+addr+"/")
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}

	go func() {
		<-ctx.Done()
		ws.Close()
	}()
	defer ws.Close()

	for {
		var msg struct {
			Type    string   `json:"type"`
			Changes []string `json:"changes"`
			Message string   `json:"message"`
		}
		if err := websocket.JSON.Receive(ws, &msg); err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}

		switch msg.Type {
		case "change":
			if len(msg.Changes) > 0 {
				fmt.Fprintln(w, strings.Join(msg.Changes, "\n"))
			}
		case "error":
			return errors.New(msg.Message)
		}
	}
}

package content

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

// PathPlaceholder in a tail command is replaced by the followed file's path.
const PathPlaceholder = "{path}"

// DefaultTailCommand returns the external follow command for the current OS.
func DefaultTailCommand() []string {
	if runtime.GOOS == "windows" {
		return []string{"powershell", "-NoProfile", "-Command",
			"Get-Content -LiteralPath '" + PathPlaceholder + "' -Wait -Tail 0"}
	}
	return []string{"tail", "-n", "0", "-F", PathPlaceholder}
}

// LineBuffer rebuilds complete lines from arbitrary chunks of one stream.
// A chunk that does not end on the separator leaves its trailing fragment
// pending until the next chunk completes it.
type LineBuffer struct {
	mu      sync.Mutex
	eol     string
	pending string
}

// NewLineBuffer returns an empty buffer splitting on eol.
func NewLineBuffer(eol string) *LineBuffer {
	if eol == "" {
		eol = DefaultEOL
	}
	return &LineBuffer{eol: eol}
}

// Feed appends chunk and returns every line it completes, in order.
func (b *LineBuffer) Feed(chunk string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := b.pending + chunk
	b.pending = ""

	parts := strings.Split(data, b.eol)
	if last := parts[len(parts)-1]; last != "" {
		b.pending = last
	}
	return parts[:len(parts)-1]
}

// Pending returns the buffered partial line.
func (b *LineBuffer) Pending() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// Reset drops the buffered partial line.
func (b *LineBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = ""
}

// ProcessOptions configures ProcessContent.
type ProcessOptions struct {
	Options
	// Command is the follow command; PathPlaceholder is substituted, or the
	// path is appended when no placeholder is present.
	Command []string
}

// ProcessContent follows a file by running an external tail process and
// splitting its stdout and stderr into lines independently. Lines from the
// two streams carry no ordering relative to each other.
type ProcessContent struct {
	base
	logger *slog.Logger
	cmd    *exec.Cmd
	stdout *LineBuffer
	stderr *LineBuffer
	pipes  []io.Closer
	wg     sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// NewProcess spawns the follow command for path.
func NewProcess(path string, opts ProcessOptions) (*ProcessContent, error) {
	opts.Options = opts.Options.withDefaults()
	args := expandCommand(opts.Command, path)

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdin = nil
	ownProcessGroup(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout of %s: %w", args[0], err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stderr of %s: %w", args[0], err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s for %s: %w", args[0], path, err)
	}

	c := &ProcessContent{
		base:   newBase(path, opts.Options),
		logger: opts.Logger.With(slog.String("path", path), slog.String("content", "process")),
		cmd:    cmd,
		stdout: NewLineBuffer(opts.EOL),
		stderr: NewLineBuffer(opts.EOL),
		pipes:  []io.Closer{stdout, stderr},
	}

	c.wg.Add(2)
	go c.pump(stdout, c.stdout)
	go c.pump(stderr, c.stderr)
	go func() {
		c.wg.Wait()
		if err := cmd.Wait(); err != nil {
			c.logger.Debug("tail process exited", slog.String("error", err.Error()))
		}
	}()

	c.logger.Debug("tail process started", slog.Int("pid", cmd.Process.Pid))
	return c, nil
}

func expandCommand(command []string, path string) []string {
	if len(command) == 0 {
		command = DefaultTailCommand()
	}
	out := make([]string, 0, len(command)+1)
	substituted := false
	for _, arg := range command {
		if strings.Contains(arg, PathPlaceholder) {
			arg = strings.ReplaceAll(arg, PathPlaceholder, path)
			substituted = true
		}
		out = append(out, arg)
	}
	if !substituted {
		out = append(out, path)
	}
	return out
}

// pump reads r until EOF, feeding buf and emitting the lines it completes.
func (c *ProcessContent) pump(r io.Reader, buf *LineBuffer) {
	defer c.wg.Done()

	chunk := make([]byte, 32*1024)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			for _, line := range buf.Feed(string(chunk[:n])) {
				c.listeners.emit(line)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				c.logger.Debug("tail stream closed", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// Close detaches listeners, kills the process together with anything it
// spawned, and waits for both readers to stop before clearing the pending
// buffers. Calling it more than once returns the first result.
func (c *ProcessContent) Close() error {
	c.closeOnce.Do(func() {
		c.listeners.clear()
		if err := killProcessGroup(c.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
			c.closeErr = fmt.Errorf("failed to kill tail process for %s: %w", c.path, err)
		}
		// Unblocks a reader whose pipe is still held open by an
		// unkillable descendant.
		for _, p := range c.pipes {
			p.Close()
		}
		c.wg.Wait()
		c.stdout.Reset()
		c.stderr.Reset()
		c.logger.Debug("content closed")
	})
	return c.closeErr
}

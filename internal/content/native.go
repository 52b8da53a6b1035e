package content

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/nxadm/tail"
)

// NativeContent follows a file through github.com/nxadm/tail, which already
// splits the stream into complete lines and reopens the file on rotation.
type NativeContent struct {
	base
	logger *slog.Logger
	tail   *tail.Tail
	done   chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewNative starts following path from its current end.
func NewNative(path string, opts Options) (*NativeContent, error) {
	opts = opts.withDefaults()

	t, err := tail.TailFile(path, tail.Config{
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to tail %s: %w", path, err)
	}

	c := &NativeContent{
		base:   newBase(path, opts),
		logger: opts.Logger.With(slog.String("path", path), slog.String("content", "native")),
		tail:   t,
		done:   make(chan struct{}),
	}
	go c.run()
	return c, nil
}

func (c *NativeContent) run() {
	defer close(c.done)

	for line := range c.tail.Lines {
		if line.Err != nil {
			c.logger.Warn("tail line error", slog.String("error", line.Err.Error()))
			continue
		}
		c.listeners.emit(line.Text)
	}
}

// Close detaches every listener and then stops the tail. Calling it more
// than once returns the first result.
func (c *NativeContent) Close() error {
	c.closeOnce.Do(func() {
		c.listeners.clear()
		if err := c.tail.Stop(); err != nil {
			c.closeErr = fmt.Errorf("failed to stop tail of %s: %w", c.path, err)
		}
		c.tail.Cleanup()
		<-c.done
		c.logger.Debug("content closed")
	})
	return c.closeErr
}

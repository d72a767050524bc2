package host

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// ErrClosed is returned by ReadEvent once the host side has gone away.
var ErrClosed = errors.New("host connection closed")

// SocketPath returns the default host socket path.
func SocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "sidecar", "host.sock")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sidecar", "host.sock")
}

// Client exchanges NDJSON with the host. One goroutine may read events while
// others send actions.
type Client struct {
	conn    io.ReadWriteCloser
	scanner *bufio.Scanner
	mu      sync.Mutex
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for skipped frames.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient wraps an established connection.
func NewClient(conn io.ReadWriteCloser, opts ...Option) *Client {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024) // history frames can be large

	c := &Client{conn: conn, scanner: scanner, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the host Unix socket.
func Connect(socketPath string, opts ...Option) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to host: %w", err)
	}
	return NewClient(conn, opts...), nil
}

// Spawn starts the host as a child process and talks to it over its stdin
// and stdout. Cancelling ctx kills the process.
func Spawn(ctx context.Context, command string, args []string, opts ...Option) (*Client, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("host stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("host stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start host %s: %w", command, err)
	}
	return NewClient(&procConn{cmd: cmd, stdin: stdin, stdout: stdout}, opts...), nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Send writes one action line. It does not wait for any reply.
func (c *Client) Send(a Action) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	data = append(data, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("write action %s: %w", a.Type, err)
	}
	return nil
}

// ReadEvent reads the next event. Blocks until data arrives. Lines that are
// not valid JSON objects or carry no type are skipped; they never end the
// stream.
func (c *Client) ReadEvent() (Event, error) {
	for c.scanner.Scan() {
		line := c.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			c.log.Debug("skipping malformed host frame", "error", err, "bytes", len(line))
			continue
		}
		if ev.Type == "" {
			c.log.Debug("skipping untyped host frame")
			continue
		}
		return ev, nil
	}
	if err := c.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("read event: %w", err)
	}
	return Event{}, ErrClosed
}

// procConn joins a child's stdio into one ReadWriteCloser.
type procConn struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	once   sync.Once
	err    error
}

func (p *procConn) Read(b []byte) (int, error)  { return p.stdout.Read(b) }
func (p *procConn) Write(b []byte) (int, error) { return p.stdin.Write(b) }

func (p *procConn) Close() error {
	p.once.Do(func() {
		p.err = p.stdin.Close()
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		_ = p.cmd.Wait()
	})
	return p.err
}

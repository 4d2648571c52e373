package scpi

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultTerminator = "\n"
)

type Options struct {
	// Applied to every exchange. The context deadline wins when it is earlier.
	Timeout time.Duration
	// Appended to every command and expected at the end of every response.
	Terminator string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}

	if o.Terminator == "" {
		o.Terminator = DefaultTerminator
	}

	return o
}

// Conn is a message-based connection to one instrument.
type Conn interface {
	Write(ctx context.Context, cmd string) error
	Query(ctx context.Context, cmd string) (string, error)
	Close() error
}

// ConnectionError reports a transport failure. The connection it came from must not be reused.
type ConnectionError struct {
	Op   string
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("scpi: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

type conn struct {
	mu sync.Mutex

	rw   io.ReadWriteCloser
	r    *bufio.Reader
	addr string
	opts Options
}

// NewConn wraps an already established byte stream. If rw has a SetDeadline method, every
// exchange is bounded by the configured timeout.
func NewConn(rw io.ReadWriteCloser, addr string, opts Options) Conn {
	return &conn{
		rw:   rw,
		r:    bufio.NewReader(rw),
		addr: addr,
		opts: opts.withDefaults(),
	}
}

func (c *conn) deadline(ctx context.Context) error {
	d, ok := c.rw.(deadliner)

	if !ok {
		return nil
	}

	t := time.Now().Add(c.opts.Timeout)

	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(t) {
		t = ctxDeadline
	}

	return d.SetDeadline(t)
}

func (c *conn) write(ctx context.Context, cmd string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.deadline(ctx); err != nil {
		return &ConnectionError{Op: "deadline", Addr: c.addr, Err: err}
	}

	log.Trace().Str("Addr", c.addr).Str("Command", cmd).Msg("scpi: >>")

	if _, err := io.WriteString(c.rw, cmd+c.opts.Terminator); err != nil {
		return &ConnectionError{Op: "write", Addr: c.addr, Err: err}
	}

	return nil
}

func (c *conn) Write(ctx context.Context, cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.write(ctx, cmd)
}

func (c *conn) Query(ctx context.Context, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(ctx, cmd); err != nil {
		return "", err
	}

	term := c.opts.Terminator
	delim := term[len(term)-1]

	line, err := c.r.ReadString(delim)

	if err != nil {
		return "", &ConnectionError{Op: "read", Addr: c.addr, Err: err}
	}

	resp := strings.TrimRight(line, "\r\n"+term)

	log.Trace().Str("Addr", c.addr).Str("Response", resp).Msg("scpi: <<")

	return resp, nil
}

func (c *conn) Close() error {
	return c.rw.Close()
}

package scpi

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

type DialFunc func(ctx context.Context, addr Address, opts Options) (Conn, error)

// Dial opens a raw SCPI connection: a TCP socket for network resources, a serial port otherwise.
func Dial(ctx context.Context, addr Address, opts Options) (Conn, error) {
	opts = opts.withDefaults()

	log.Debug().
		Stringer("Addr", addr).
		Stringer("Transport", addr.Transport).
		Dur("Timeout", opts.Timeout).
		Msg("scpi: dialing instrument")

	switch addr.Transport {
	case TransportTCP:
		dialer := net.Dialer{Timeout: opts.Timeout}

		c, err := dialer.DialContext(ctx, "tcp", addr.Host)

		if err != nil {
			return nil, &ConnectionError{Op: "dial", Addr: addr.String(), Err: err}
		}

		return NewConn(c, addr.String(), opts), nil
	case TransportSerial:
		baud := addr.BaudRate

		if baud <= 0 {
			baud = DefaultBaudRate
		}

		p, err := serial.Open(addr.Device, &serial.Mode{BaudRate: baud})

		if err != nil {
			return nil, &ConnectionError{Op: "open", Addr: addr.String(), Err: err}
		}

		return NewConn(&serialPort{Port: p}, addr.String(), opts), nil
	default:
		panic(fmt.Sprintf("unknown transport %d", addr.Transport))
	}
}

// serialPort maps deadlines onto the read timeout of go.bug.st/serial ports.
type serialPort struct {
	serial.Port
}

func (p *serialPort) SetDeadline(t time.Time) error {
	timeout := time.Until(t)

	if timeout <= 0 {
		timeout = time.Millisecond
	}

	return p.SetReadTimeout(timeout)
}

// go.bug.st/serial returns (0, nil) when the read timeout expires.
func (p *serialPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)

	if n == 0 && err == nil {
		return 0, errReadTimeout
	}

	return n, err
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "read timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var errReadTimeout net.Error = timeoutError{}

package scpi

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	successfulConnectionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pna_exporter_scpi_successful_connections_total",
	})
	failedConnectionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pna_exporter_scpi_failed_connections_total",
	})
	connectionsFromPoolCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pna_exporter_scpi_reused_connections_total",
	})
	disconnectsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pna_exporter_scpi_disconnections_total",
	})
)

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		successfulConnectionsCounter,
		failedConnectionsCounter,
		connectionsFromPoolCounter,
		disconnectsCounter,
	)
}

// Pool hands out instrument connections. With persistence enabled a connection is kept open
// between uses until a transport error or DisconnectAll; otherwise it is closed on Release.
type Pool struct {
	// Dial defaults to scpi.Dial.
	Dial DialFunc

	persist bool

	mu          sync.Mutex
	connections map[string]Conn
	// closed once the dial in flight for the key finishes.
	dialing map[string]chan struct{}
}

func NewPool(persist bool) *Pool {
	return &Pool{
		Dial:        Dial,
		persist:     persist,
		connections: make(map[string]Conn),
		dialing:     make(map[string]chan struct{}),
	}
}

func (p *Pool) Persistent() bool {
	return p.persist
}

func (p *Pool) dial(ctx context.Context, addr Address, opts Options) (Conn, error) {
	dial := p.Dial

	if dial == nil {
		dial = Dial
	}

	c, err := dial(ctx, addr, opts)

	if err != nil {
		failedConnectionsCounter.Inc()
		return nil, err
	}

	successfulConnectionsCounter.Inc()

	return c, nil
}

// Connect returns a connection to addr. Dials to different addresses run concurrently; a
// caller wanting an address that is already being dialed waits for that dial or for ctx.
func (p *Pool) Connect(ctx context.Context, addr Address, opts Options) (Conn, error) {
	if !p.persist {
		return p.dial(ctx, addr, opts)
	}

	key := addr.Key()

	for {
		p.mu.Lock()

		if conn := p.connections[key]; conn != nil {
			p.mu.Unlock()
			connectionsFromPoolCounter.Inc()
			log.Trace().Stringer("Addr", addr).Msg("scpi: reusing connection from connection pool")
			return conn, nil
		}

		inFlight, ok := p.dialing[key]

		if !ok {
			break
		}

		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, &ConnectionError{Op: "dial", Addr: addr.String(), Err: ctx.Err()}
		case <-inFlight:
		}
	}

	done := make(chan struct{})
	p.dialing[key] = done
	p.mu.Unlock()

	conn, err := p.dial(ctx, addr, opts)

	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.dialing, key)
	close(done)

	if err != nil {
		return nil, err
	}

	p.connections[key] = conn
	log.Debug().Stringer("Addr", addr).Msg("scpi: successfully opened new connection to instrument")

	return conn, nil
}

// Release hands a connection back after use. err is the outcome of the exchange: transport
// failures close the connection and drop it from the pool.
func (p *Pool) Release(addr Address, conn Conn, err error) {
	var connErr *ConnectionError

	broken := errors.As(err, &connErr)

	if !p.persist {
		p.close(addr, conn)
		return
	}

	if !broken {
		return
	}

	log.Debug().Stringer("Addr", addr).Err(err).Msg("scpi: connection with instrument broken, cleaning up")

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.connections[addr.Key()] == conn {
		delete(p.connections, addr.Key())
	}

	p.close(addr, conn)
}

// Disconnect closes the pooled connection to addr, if any.
func (p *Pool) Disconnect(addr Address) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn := p.connections[addr.Key()]; conn != nil {
		delete(p.connections, addr.Key())
		p.close(addr, conn)
	}
}

// Clear the connection pool and close all connections.
func (p *Pool) DisconnectAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, conn := range p.connections {
		if err := conn.Close(); err != nil {
			log.Debug().Str("Addr", key).Err(err).Msg("scpi: error while closing connection")
		}

		disconnectsCounter.Inc()
	}

	p.connections = make(map[string]Conn)
}

func (p *Pool) close(addr Address, conn Conn) {
	if err := conn.Close(); err != nil {
		log.Debug().Stringer("Addr", addr).Err(err).Msg("scpi: error while closing connection")
	}

	disconnectsCounter.Inc()
}

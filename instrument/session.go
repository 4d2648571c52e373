package instrument

import (
	"context"
	"strings"
	"sync"

	"github.com/fkatada/ms-Qcodes/scpi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Session owns every instrument opened during one run. Names and addresses are unique within a
// session: handles sharing an address would share one connection.
type Session struct {
	mu sync.Mutex

	handles map[string]Handle
	pending map[string]bool
	order   []string

	// address key -> instrument name, for open and pending instruments.
	addresses map[string]string
}

func NewSession() *Session {
	return &Session{
		handles:   make(map[string]Handle),
		pending:   make(map[string]bool),
		addresses: make(map[string]string),
	}
}

// addressKey identifies the instrument behind address, so that equivalent resource strings
// collide.
func addressKey(address string) string {
	if addr, err := scpi.ParseAddress(address); err == nil {
		return addr.Key()
	}

	return strings.TrimSpace(address)
}

func (s *Session) reserve(name, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handles[name]; ok || s.pending[name] {
		return errors.Wrapf(ErrDuplicateName, "%q", name)
	}

	if owner, ok := s.addresses[key]; ok {
		return errors.Wrapf(ErrConfiguration, "%q: address %s already used by %q", name, key, owner)
	}

	s.pending[name] = true
	s.addresses[key] = name

	return nil
}

// Open reserves cfg.Name and the address and runs open. Both are released again if open fails;
// a duplicate fails before open is called.
func (s *Session) Open(
	ctx context.Context,
	cfg Config,
	open func(context.Context, Config) (Handle, error),
) (Handle, error) {
	key := addressKey(cfg.Address)

	if err := s.reserve(cfg.Name, key); err != nil {
		return nil, err
	}

	h, err := open(ctx, cfg)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, cfg.Name)

	if err != nil {
		delete(s.addresses, key)
		return nil, err
	}

	s.handles[cfg.Name] = h
	s.order = append(s.order, cfg.Name)

	return h, nil
}

func (s *Session) Get(name string) (Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[name]

	return h, ok
}

// Handles returns the open handles in the order they were opened.
func (s *Session) Handles() []Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Handle, len(s.order))

	for i, name := range s.order {
		out[i] = s.handles[name]
	}

	return out
}

// Close closes every handle and ends the session. The first error is returned.
func (s *Session) Close() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range s.order {
		if closeErr := s.handles[name].Close(); closeErr != nil {
			log.Warn().Str("Instrument", name).Err(closeErr).Msg("Failed to close instrument")

			if err == nil {
				err = closeErr
			}
		}
	}

	s.handles = make(map[string]Handle)
	s.addresses = make(map[string]string)
	s.order = nil

	return err
}

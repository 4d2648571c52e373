package instrument

import (
  "context"
  "fmt"
  "strings"

  "github.com/pkg/errors"
  "github.com/rs/zerolog/log"
)

// Model describes one instrument model by its fixed capability bounds. It adds nothing to the
// instrument besides the bounds: construction is delegated to a base Constructor.
type Model struct {
  Name string
  Description string
  Bounds Bounds
}

// Configure validates the caller supplied identity and options and attaches the model's
// bounds. It never contacts the instrument.
func (m Model) Configure(name, address string, opts Options) (Config, error) {
  if strings.TrimSpace(name) == "" {
    return Config{}, errors.Wrapf(ErrConfiguration, "%s: instrument name must not be empty", m.Name)
  }

  if strings.TrimSpace(address) == "" {
    return Config{}, errors.Wrapf(ErrConfiguration, "%s %q: address must not be empty", m.Name, name)
  }

  if err := m.Bounds.Validate(); err != nil {
    // model tables are static, this is a programming error.
    panic(fmt.Sprintf("model %s has invalid bounds: %v", m.Name, err))
  }

  if err := opts.Validate(); err != nil {
    return Config{}, err
  }

  return Config{
    Name: name,
    Address: address,
    Model: m.Name,
    Bounds: m.Bounds,
    Options: opts,
  }, nil
}

func (m Model) FromSpec(spec Spec) (Config, error) {
  opts, err := ParseOptions(spec)

  if err != nil {
    return Config{}, errors.Wrapf(err, "%s %q", m.Name, spec.Name())
  }

  return m.Configure(spec.Name(), spec.Addr(), opts)
}

// Open delegates a configured instrument to base. Errors from base are returned unchanged.
func (m Model) Open(ctx context.Context, base Constructor, cfg Config) (Handle, error) {
  if cfg.Model != m.Name || cfg.Bounds != m.Bounds {
    panic(fmt.Sprintf("config %v was not produced by model %s", cfg, m.Name))
  }

  log.Debug().
    Stringer("Config", cfg).
    Stringer("Bounds", cfg.Bounds).
    Msg("Constructing instrument")

  return base.Construct(ctx, cfg)
}

// New configures and opens an instrument in one step.
func (m Model) New(ctx context.Context, base Constructor, name, address string, opts Options) (Handle, error) {
  cfg, err := m.Configure(name, address, opts)

  if err != nil {
    return nil, err
  }

  return m.Open(ctx, base, cfg)
}

func (m Model) Help() string {
  return fmt.Sprintf(`%s, %g Hz to %g Hz, %g dBm to %g dBm, %d ports.
Supported parameters:
name (string, required): Name of this instrument, unique within the exporter
addr (string, required): Resource address, e.g. TCPIP0::192.168.1.10::5025::SOCKET
%s`,
    m.Description, m.Bounds.MinFrequency, m.Bounds.MaxFrequency,
    m.Bounds.MinPower, m.Bounds.MaxPower, m.Bounds.Ports, OptionsHelp())
}

func (m Model) String() string {
  return m.Name
}

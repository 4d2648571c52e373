package pna

import (
  "context"
  "strings"

  "github.com/fkatada/ms-Qcodes/instrument"
  "github.com/fkatada/ms-Qcodes/scpi"
  "github.com/pkg/errors"
  "github.com/rs/zerolog/log"
)

// Base opens Keysight PNA family analyzers. Model specific bounds come in through the
// instrument.Config handed to Construct.
type Base struct {
  Pool *scpi.Pool
}

func NewBase(pool *scpi.Pool) *Base {
  return &Base{
    Pool: pool,
  }
}

func (b *Base) Construct(ctx context.Context, cfg instrument.Config) (instrument.Handle, error) {
  if err := cfg.Bounds.Validate(); err != nil {
    return nil, errors.Wrapf(err, "%v", cfg)
  }

  if err := cfg.Options.Validate(); err != nil {
    return nil, errors.Wrapf(err, "%v", cfg)
  }

  addr, err := scpi.ParseAddress(cfg.Address)

  if err != nil {
    return nil, err
  }

  if cfg.Options.BaudRate > 0 && addr.Transport == scpi.TransportSerial {
    addr.BaudRate = cfg.Options.BaudRate
  }

  label := cfg.Options.Label

  if label == "" {
    label = cfg.Name
  }

  inst := &Instrument{
    name: cfg.Name,
    label: label,
    model: cfg.Model,
    addr: addr,
    bounds: cfg.Bounds,
    autoSweep: cfg.Options.AutoSweep,
    pool: b.Pool,
    connOpts: scpi.Options{
      Timeout: cfg.Options.Timeout,
      Terminator: cfg.Options.Terminator,
    },
  }

  if err := inst.initialize(ctx, cfg.Options); err != nil {
    // no handle is returned, so nothing else would close the pooled connection.
    b.Pool.Disconnect(addr)
    return nil, err
  }

  if cfg.Model != "" && !strings.EqualFold(inst.identity.Model, cfg.Model) {
    log.Warn().
      Stringer("Instrument", inst).
      Str("Reported", inst.identity.Model).
      Str("Expected", cfg.Model).
      Msg("pna: instrument reports a different model, bounds of the configured model apply")
  }

  log.Info().
    Stringer("Instrument", inst).
    Stringer("Identity", inst.identity).
    Stringer("Bounds", inst.bounds).
    Msg("pna: instrument ready")

  return inst, nil
}

func (i *Instrument) initialize(ctx context.Context, opts instrument.Options) error {
  return i.do(ctx, func(c scpi.Conn) error {
    idn, err := c.Query(ctx, "*IDN?")

    if err != nil {
      return err
    }

    i.identity, err = scpi.ParseIdentity(idn)

    if err != nil {
      return err
    }

    if opts.Reset {
      log.Debug().Stringer("Instrument", i).Msg("pna: resetting instrument")

      if err := c.Write(ctx, "*RST"); err != nil {
        return err
      }
    }

    if opts.ClearStatus {
      if err := c.Write(ctx, "*CLS"); err != nil {
        return err
      }
    }

    // responses are parsed as ASCII everywhere.
    return c.Write(ctx, "FORM:DATA ASCII,0")
  })
}

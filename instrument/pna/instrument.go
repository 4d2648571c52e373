package pna

import (
  "context"
  "errors"
  "fmt"
  "sync"

  "github.com/fkatada/ms-Qcodes/instrument"
  "github.com/fkatada/ms-Qcodes/scpi"
  "github.com/rs/zerolog/log"
)

// maximum number of entries drained from the error queue in one go.
const maxErrorQueue = 100

// Instrument is an opened PNA. Every setter checks its argument against the model's bounds
// before anything is sent.
type Instrument struct {
  name string
  label string
  model string
  addr scpi.Address
  bounds instrument.Bounds
  identity scpi.Identity
  autoSweep bool

  pool *scpi.Pool
  connOpts scpi.Options

  // serializes multi-command sequences such as select-then-read.
  mu sync.Mutex
}

func (i *Instrument) Name() string {
  return i.name
}

func (i *Instrument) Address() string {
  return i.addr.String()
}

func (i *Instrument) Model() string {
  return i.model
}

func (i *Instrument) Bounds() instrument.Bounds {
  return i.bounds
}

func (i *Instrument) Identity() scpi.Identity {
  return i.identity
}

func (i *Instrument) Close() error {
  log.Debug().Stringer("Instrument", i).Msg("pna: closing instrument")
  i.pool.Disconnect(i.addr)
  return nil
}

func (i *Instrument) String() string {
  return fmt.Sprintf("%s[name=%q, addr=%v]", i.model, i.label, i.addr)
}

func (i *Instrument) do(ctx context.Context, fn func(c scpi.Conn) error) error {
  i.mu.Lock()
  defer i.mu.Unlock()

  conn, err := i.pool.Connect(ctx, i.addr, i.connOpts)

  if err != nil {
    return err
  }

  err = fn(conn)
  i.pool.Release(i.addr, conn, err)

  return err
}

func (i *Instrument) write(ctx context.Context, format string, args ...any) error {
  cmd := fmt.Sprintf(format, args...)

  return i.do(ctx, func(c scpi.Conn) error {
    return c.Write(ctx, cmd)
  })
}

func (i *Instrument) query(ctx context.Context, cmd string) (resp string, err error) {
  err = i.do(ctx, func(c scpi.Conn) error {
    resp, err = c.Query(ctx, cmd)
    return err
  })

  return resp, err
}

func (i *Instrument) queryFloat(ctx context.Context, cmd string) (float64, error) {
  resp, err := i.query(ctx, cmd)

  if err != nil {
    return 0, err
  }

  return scpi.ParseFloat(resp)
}

func (i *Instrument) queryInt(ctx context.Context, cmd string) (int, error) {
  resp, err := i.query(ctx, cmd)

  if err != nil {
    return 0, err
  }

  return scpi.ParseInt(resp)
}

func (i *Instrument) queryBool(ctx context.Context, cmd string) (bool, error) {
  resp, err := i.query(ctx, cmd)

  if err != nil {
    return false, err
  }

  return scpi.ParseBool(resp)
}

// Errors drains the instrument's error queue.
func (i *Instrument) Errors(ctx context.Context) (out []*scpi.InstrumentError, err error) {
  err = i.do(ctx, func(c scpi.Conn) error {
    for n := 0; n < maxErrorQueue; n += 1 {
      resp, err := c.Query(ctx, "SYST:ERR?")

      if err != nil {
        return err
      }

      instErr, err := scpi.ParseInstrumentError(resp)

      if err != nil {
        return err
      }

      if instErr == nil {
        return nil
      }

      out = append(out, instErr)
    }

    log.Warn().Stringer("Instrument", i).Msg("pna: error queue did not drain")

    return nil
  })

  return out, err
}

// CheckErrors drains the error queue and returns its entries joined into one error.
func (i *Instrument) CheckErrors(ctx context.Context) error {
  entries, err := i.Errors(ctx)

  if err != nil {
    return err
  }

  errs := make([]error, len(entries))

  for n, e := range entries {
    errs[n] = e
  }

  return errors.Join(errs...)
}

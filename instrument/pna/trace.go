package pna

import (
  "context"
  "fmt"
  "strconv"
  "strings"

  "github.com/fkatada/ms-Qcodes/instrument"
  "github.com/fkatada/ms-Qcodes/scpi"
  "github.com/pkg/errors"
  "github.com/rs/zerolog/log"
)

// SParameter is a scattering parameter S<Receive><Source>.
type SParameter struct {
  Receive int
  Source int
}

func ParseSParameter(s string) (SParameter, error) {
  s = strings.ToUpper(strings.TrimSpace(s))

  if len(s) != 3 || s[0] != 'S' {
    return SParameter{}, errors.Wrapf(instrument.ErrConfiguration, "bad S-parameter %q", s)
  }

  receive, err1 := strconv.Atoi(s[1:2])
  source, err2 := strconv.Atoi(s[2:3])

  if err1 != nil || err2 != nil || receive < 1 || source < 1 {
    return SParameter{}, errors.Wrapf(instrument.ErrConfiguration, "bad S-parameter %q", s)
  }

  return SParameter{Receive: receive, Source: source}, nil
}

func (p SParameter) String() string {
  return fmt.Sprintf("S%d%d", p.Receive, p.Source)
}

type Format string

const (
  FormatLogMagnitude Format = "MLOG"
  FormatLinearMagnitude Format = "MLIN"
  FormatPhase Format = "PHAS"
  FormatUnwrappedPhase Format = "UPH"
  FormatReal Format = "REAL"
  FormatImaginary Format = "IMAG"
  FormatSWR Format = "SWR"
  FormatGroupDelay Format = "GDEL"
)

var formats = []Format{
  FormatLogMagnitude,
  FormatLinearMagnitude,
  FormatPhase,
  FormatUnwrappedPhase,
  FormatReal,
  FormatImaginary,
  FormatSWR,
  FormatGroupDelay,
}

func (f Format) valid() bool {
  for _, known := range formats {
    if f == known {
      return true
    }
  }

  return false
}

// Measurement is a defined measurement of channel 1.
type Measurement struct {
  Name string
  Parameter string
}

// Trace is one sweep of a measurement.
type Trace struct {
  Measurement
  Format
  Frequencies []float64
  Values []float64
}

func (t Trace) String() string {
  return fmt.Sprintf("Trace[Name=%q,Parameter=%s,Format=%s,Points=%d]",
    t.Name, t.Parameter, t.Format, len(t.Values))
}

// DefineMeasurement creates a measurement of param on channel 1. Both ports of param must exist
// on the instrument.
func (i *Instrument) DefineMeasurement(ctx context.Context, name string, param SParameter) error {
  if name == "" {
    return errors.Wrapf(instrument.ErrConfiguration, "%v: empty measurement name", i)
  }

  for _, port := range []int{param.Receive, param.Source} {
    if err := i.bounds.CheckPort(port); err != nil {
      return errors.Wrapf(err, "%v: measurement %s", i, param)
    }
  }

  return i.do(ctx, func(c scpi.Conn) error {
    if err := c.Write(ctx, fmt.Sprintf("CALC:PAR:DEF:EXT %s,%s", scpi.Quote(name), param)); err != nil {
      return err
    }

    return c.Write(ctx, fmt.Sprintf("DISP:MEAS:FEED 1,%s", scpi.Quote(name)))
  })
}

func (i *Instrument) DeleteMeasurement(ctx context.Context, name string) error {
  return i.write(ctx, "CALC:PAR:DEL %s", scpi.Quote(name))
}

func (i *Instrument) SelectMeasurement(ctx context.Context, name string) error {
  return i.write(ctx, "CALC:PAR:SEL %s", scpi.Quote(name))
}

// Measurements lists the measurements defined on channel 1.
func (i *Instrument) Measurements(ctx context.Context) ([]Measurement, error) {
  resp, err := i.query(ctx, "CALC:PAR:CAT:EXT?")

  if err != nil {
    return nil, err
  }

  return parseCatalog(resp)
}

// parseCatalog parses `"CH1_S11_1,S11,CH1_S21_2,S21"`; "NO CATALOG" means none.
func parseCatalog(s string) ([]Measurement, error) {
  s = scpi.Unquote(s)

  if s == "" || strings.EqualFold(s, "NO CATALOG") {
    return nil, nil
  }

  fields := strings.Split(s, ",")

  if len(fields) % 2 != 0 {
    return nil, errors.Wrapf(scpi.ErrMalformedResponse, "measurement catalog %q", s)
  }

  out := make([]Measurement, 0, len(fields) / 2)

  for n := 0; n < len(fields); n += 2 {
    out = append(out, Measurement{
      Name: strings.TrimSpace(fields[n]),
      Parameter: strings.TrimSpace(fields[n+1]),
    })
  }

  return out, nil
}

// Sweep runs one single sweep and blocks until it is complete.
func (i *Instrument) Sweep(ctx context.Context) error {
  return i.do(ctx, func(c scpi.Conn) error {
    return i.sweep(ctx, c)
  })
}

func (i *Instrument) sweep(ctx context.Context, c scpi.Conn) error {
  if err := c.Write(ctx, "SENS:SWE:MODE SING"); err != nil {
    return err
  }

  resp, err := c.Query(ctx, "*OPC?")

  if err != nil {
    return err
  }

  if done, err := scpi.ParseBool(resp); err != nil || !done {
    return errors.Wrapf(scpi.ErrMalformedResponse, "*OPC? returned %q", resp)
  }

  return nil
}

// Frequencies returns the stimulus values of the current sweep.
func (i *Instrument) Frequencies(ctx context.Context) ([]float64, error) {
  resp, err := i.query(ctx, "SENS:X?")

  if err != nil {
    return nil, err
  }

  return scpi.ParseFloats(resp)
}

// ReadTrace selects the named measurement and reads its formatted data. With AutoSweep enabled
// a single sweep is run first.
func (i *Instrument) ReadTrace(ctx context.Context, name string, format Format) (trace Trace, err error) {
  if !format.valid() {
    return trace, errors.Wrapf(instrument.ErrConfiguration, "%v: unknown trace format %q", i, format)
  }

  measurements, err := i.Measurements(ctx)

  if err != nil {
    return trace, err
  }

  found := false

  for _, m := range measurements {
    if m.Name == name {
      trace.Measurement = m
      found = true
    }
  }

  if !found {
    return trace, errors.Wrapf(instrument.ErrConfiguration, "%v: no measurement named %q", i, name)
  }

  trace.Format = format

  err = i.do(ctx, func(c scpi.Conn) error {
    if err := c.Write(ctx, "CALC:PAR:SEL "+scpi.Quote(name)); err != nil {
      return err
    }

    if i.autoSweep {
      if err := i.sweep(ctx, c); err != nil {
        return err
      }
    }

    if err := c.Write(ctx, "CALC:FORM "+string(format)); err != nil {
      return err
    }

    data, err := c.Query(ctx, "CALC:DATA? FDATA")

    if err != nil {
      return err
    }

    if trace.Values, err = scpi.ParseFloats(data); err != nil {
      return err
    }

    stimulus, err := c.Query(ctx, "SENS:X?")

    if err != nil {
      return err
    }

    trace.Frequencies, err = scpi.ParseFloats(stimulus)

    return err
  })

  if err != nil {
    return trace, err
  }

  if len(trace.Frequencies) != len(trace.Values) {
    return trace, errors.Wrapf(scpi.ErrMalformedResponse, "%v: %d stimulus points for %d values",
      i, len(trace.Frequencies), len(trace.Values))
  }

  log.Debug().
    Stringer("Instrument", i).
    Stringer("Trace", trace).
    Msg("pna: read trace")

  return trace, nil
}

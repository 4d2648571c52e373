package pna

import (
  "context"
  "strings"

  "github.com/fkatada/ms-Qcodes/instrument"
  "github.com/fkatada/ms-Qcodes/scpi"
  "github.com/pkg/errors"
)

const (
  MinPoints = 1
  MaxPoints = 100001
  MinIFBandwidth = 1.0
  MaxIFBandwidth = 15e6
  MinAverages = 1
  MaxAverages = 65536
)

func (i *Instrument) StartFrequency(ctx context.Context) (float64, error) {
  return i.queryFloat(ctx, "SENS:FREQ:STAR?")
}

func (i *Instrument) SetStartFrequency(ctx context.Context, hz float64) error {
  if err := i.bounds.CheckFrequency(hz); err != nil {
    return errors.Wrapf(err, "%v: start frequency", i)
  }

  return i.write(ctx, "SENS:FREQ:STAR %s", scpi.FormatFloat(hz))
}

func (i *Instrument) StopFrequency(ctx context.Context) (float64, error) {
  return i.queryFloat(ctx, "SENS:FREQ:STOP?")
}

func (i *Instrument) SetStopFrequency(ctx context.Context, hz float64) error {
  if err := i.bounds.CheckFrequency(hz); err != nil {
    return errors.Wrapf(err, "%v: stop frequency", i)
  }

  return i.write(ctx, "SENS:FREQ:STOP %s", scpi.FormatFloat(hz))
}

// SetFrequencyRange sets start and stop in one go.
func (i *Instrument) SetFrequencyRange(ctx context.Context, start, stop float64) error {
  if start > stop {
    return errors.Wrapf(instrument.ErrOutOfRange, "%v: start %g Hz above stop %g Hz", i, start, stop)
  }

  for _, hz := range []float64{start, stop} {
    if err := i.bounds.CheckFrequency(hz); err != nil {
      return errors.Wrapf(err, "%v: frequency range", i)
    }
  }

  return i.do(ctx, func(c scpi.Conn) error {
    if err := c.Write(ctx, "SENS:FREQ:STAR "+scpi.FormatFloat(start)); err != nil {
      return err
    }

    return c.Write(ctx, "SENS:FREQ:STOP "+scpi.FormatFloat(stop))
  })
}

func (i *Instrument) CenterFrequency(ctx context.Context) (float64, error) {
  return i.queryFloat(ctx, "SENS:FREQ:CENT?")
}

func (i *Instrument) Span(ctx context.Context) (float64, error) {
  return i.queryFloat(ctx, "SENS:FREQ:SPAN?")
}

// SetCenterSpan sets the sweep by its center and span. The whole span must fit the bounds.
func (i *Instrument) SetCenterSpan(ctx context.Context, center, span float64) error {
  if err := i.bounds.CheckFrequencySpan(center, span); err != nil {
    return errors.Wrapf(err, "%v: center/span", i)
  }

  return i.do(ctx, func(c scpi.Conn) error {
    if err := c.Write(ctx, "SENS:FREQ:CENT "+scpi.FormatFloat(center)); err != nil {
      return err
    }

    return c.Write(ctx, "SENS:FREQ:SPAN "+scpi.FormatFloat(span))
  })
}

func (i *Instrument) CWFrequency(ctx context.Context) (float64, error) {
  return i.queryFloat(ctx, "SENS:FREQ:CW?")
}

func (i *Instrument) SetCWFrequency(ctx context.Context, hz float64) error {
  if err := i.bounds.CheckFrequency(hz); err != nil {
    return errors.Wrapf(err, "%v: CW frequency", i)
  }

  return i.write(ctx, "SENS:FREQ:CW %s", scpi.FormatFloat(hz))
}

func (i *Instrument) Power(ctx context.Context) (float64, error) {
  return i.queryFloat(ctx, "SOUR:POW?")
}

func (i *Instrument) SetPower(ctx context.Context, dbm float64) error {
  if err := i.bounds.CheckPower(dbm); err != nil {
    return errors.Wrapf(err, "%v: source power", i)
  }

  return i.write(ctx, "SOUR:POW %s", scpi.FormatFloat(dbm))
}

func (i *Instrument) Output(ctx context.Context) (bool, error) {
  return i.queryBool(ctx, "OUTP?")
}

func (i *Instrument) SetOutput(ctx context.Context, on bool) error {
  return i.write(ctx, "OUTP %s", scpi.FormatBool(on))
}

func (i *Instrument) Points(ctx context.Context) (int, error) {
  return i.queryInt(ctx, "SENS:SWE:POIN?")
}

func (i *Instrument) SetPoints(ctx context.Context, n int) error {
  if n < MinPoints || n > MaxPoints {
    return errors.Wrapf(instrument.ErrOutOfRange, "%v: %d sweep points outside [%d, %d]",
      i, n, MinPoints, MaxPoints)
  }

  return i.write(ctx, "SENS:SWE:POIN %d", n)
}

func (i *Instrument) IFBandwidth(ctx context.Context) (float64, error) {
  return i.queryFloat(ctx, "SENS:BAND?")
}

func (i *Instrument) SetIFBandwidth(ctx context.Context, hz float64) error {
  if hz < MinIFBandwidth || hz > MaxIFBandwidth {
    return errors.Wrapf(instrument.ErrOutOfRange, "%v: IF bandwidth %g Hz outside [%g, %g] Hz",
      i, hz, MinIFBandwidth, MaxIFBandwidth)
  }

  return i.write(ctx, "SENS:BAND %s", scpi.FormatFloat(hz))
}

func (i *Instrument) Averaging(ctx context.Context) (bool, error) {
  return i.queryBool(ctx, "SENS:AVER?")
}

func (i *Instrument) SetAveraging(ctx context.Context, on bool) error {
  return i.write(ctx, "SENS:AVER %s", scpi.FormatBool(on))
}

func (i *Instrument) Averages(ctx context.Context) (int, error) {
  return i.queryInt(ctx, "SENS:AVER:COUN?")
}

func (i *Instrument) SetAverages(ctx context.Context, n int) error {
  if n < MinAverages || n > MaxAverages {
    return errors.Wrapf(instrument.ErrOutOfRange, "%v: %d averages outside [%d, %d]",
      i, n, MinAverages, MaxAverages)
  }

  return i.write(ctx, "SENS:AVER:COUN %d", n)
}

func (i *Instrument) ClearAverages(ctx context.Context) error {
  return i.write(ctx, "SENS:AVER:CLE")
}

var sweepModes = map[instrument.SweepMode]string{
  instrument.SweepModeHold: "HOLD",
  instrument.SweepModeContinuous: "CONT",
  instrument.SweepModeGroups: "GRO",
  instrument.SweepModeSingle: "SING",
}

func parseSweepMode(s string) (instrument.SweepMode, error) {
  s = strings.ToUpper(scpi.Unquote(s))

  for mode, mnemonic := range sweepModes {
    // the instrument may answer with the long form, e.g. CONTINUOUS.
    if strings.HasPrefix(s, mnemonic) {
      return mode, nil
    }
  }

  return instrument.SweepModeUnspecified, errors.Wrapf(scpi.ErrMalformedResponse, "sweep mode %q", s)
}

func (i *Instrument) SweepMode(ctx context.Context) (instrument.SweepMode, error) {
  resp, err := i.query(ctx, "SENS:SWE:MODE?")

  if err != nil {
    return instrument.SweepModeUnspecified, err
  }

  return parseSweepMode(resp)
}

func (i *Instrument) SetSweepMode(ctx context.Context, mode instrument.SweepMode) error {
  mnemonic, ok := sweepModes[mode]

  if !ok {
    return errors.Wrapf(instrument.ErrOutOfRange, "%v: unsupported sweep mode %v", i, mode)
  }

  return i.write(ctx, "SENS:SWE:MODE %s", mnemonic)
}

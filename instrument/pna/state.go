package pna

import (
  "context"
  "fmt"

  "github.com/fkatada/ms-Qcodes/instrument"
  "github.com/fkatada/ms-Qcodes/scpi"
)

// ReadState queries the stimulus and receiver settings in a single connection checkout.
func (i *Instrument) ReadState(ctx context.Context) (s instrument.State, err error) {
  err = i.do(ctx, func(c scpi.Conn) error {
    query := func(cmd string, parse func(string) error) error {
      resp, err := c.Query(ctx, cmd)

      if err != nil {
        return err
      }

      if err := parse(resp); err != nil {
        return fmt.Errorf("%s: %w", cmd, err)
      }

      return nil
    }

    float := func(dst *float64) func(string) error {
      return func(resp string) (err error) {
        *dst, err = scpi.ParseFloat(resp)
        return err
      }
    }

    integer := func(dst *int) func(string) error {
      return func(resp string) (err error) {
        *dst, err = scpi.ParseInt(resp)
        return err
      }
    }

    boolean := func(dst *bool) func(string) error {
      return func(resp string) (err error) {
        *dst, err = scpi.ParseBool(resp)
        return err
      }
    }

    steps := []struct {
      cmd string
      parse func(string) error
    }{
      {"OUTP?", boolean(&s.Output)},
      {"SOUR:POW?", float(&s.Power)},
      {"SENS:FREQ:STAR?", float(&s.StartFrequency)},
      {"SENS:FREQ:STOP?", float(&s.StopFrequency)},
      {"SENS:SWE:POIN?", integer(&s.Points)},
      {"SENS:BAND?", float(&s.IFBandwidth)},
      {"SENS:AVER?", boolean(&s.Averaging)},
      {"SENS:AVER:COUN?", integer(&s.Averages)},
      {"SENS:SWE:MODE?", func(resp string) (err error) {
        s.SweepMode, err = parseSweepMode(resp)
        return err
      }},
    }

    for _, step := range steps {
      if err := query(step.cmd, step.parse); err != nil {
        return err
      }
    }

    return nil
  })

  if err != nil {
    return instrument.State{}, fmt.Errorf("failed to read state of %v: %w", i, err)
  }

  return s, nil
}

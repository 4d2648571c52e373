package instrument

import (
  "fmt"

  "github.com/pkg/errors"
)

// Bounds is the fixed capability record of one instrument model.
type Bounds struct {
  MinFrequency float64 // Hz
  MaxFrequency float64 // Hz
  MinPower float64 // dBm
  MaxPower float64 // dBm
  Ports int
}

func (b Bounds) Validate() error {
  if b.MinFrequency > b.MaxFrequency {
    return errors.Wrapf(ErrConfiguration, "min frequency %g Hz above max frequency %g Hz",
      b.MinFrequency, b.MaxFrequency)
  }

  if b.MinFrequency < 0 {
    return errors.Wrapf(ErrConfiguration, "negative min frequency %g Hz", b.MinFrequency)
  }

  if b.MinPower > b.MaxPower {
    return errors.Wrapf(ErrConfiguration, "min power %g dBm above max power %g dBm",
      b.MinPower, b.MaxPower)
  }

  if b.Ports < 1 {
    return errors.Wrapf(ErrConfiguration, "port count must be at least 1, got %d", b.Ports)
  }

  return nil
}

func (b Bounds) CheckFrequency(hz float64) error {
  if hz < b.MinFrequency || hz > b.MaxFrequency {
    return errors.Wrapf(ErrOutOfRange, "frequency %g Hz outside [%g, %g] Hz",
      hz, b.MinFrequency, b.MaxFrequency)
  }

  return nil
}

// CheckFrequencySpan checks that the whole span centered on center fits the frequency range.
func (b Bounds) CheckFrequencySpan(center, span float64) error {
  if span < 0 {
    return errors.Wrapf(ErrOutOfRange, "negative span %g Hz", span)
  }

  if err := b.CheckFrequency(center - span/2); err != nil {
    return err
  }

  return b.CheckFrequency(center + span/2)
}

func (b Bounds) CheckPower(dbm float64) error {
  if dbm < b.MinPower || dbm > b.MaxPower {
    return errors.Wrapf(ErrOutOfRange, "power %g dBm outside [%g, %g] dBm",
      dbm, b.MinPower, b.MaxPower)
  }

  return nil
}

func (b Bounds) CheckPort(port int) error {
  if port < 1 || port > b.Ports {
    return errors.Wrapf(ErrOutOfRange, "port %d outside [1, %d]", port, b.Ports)
  }

  return nil
}

func (b Bounds) String() string {
  return fmt.Sprintf("Bounds[Frequency=%g..%g Hz,Power=%g..%g dBm,Ports=%d]",
    b.MinFrequency, b.MaxFrequency, b.MinPower, b.MaxPower, b.Ports)
}

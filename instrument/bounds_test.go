package instrument_test

import (
  "errors"
  "testing"

  "github.com/fkatada/ms-Qcodes/instrument"
)

var testBounds = instrument.Bounds{
  MinFrequency: 10e6,
  MaxFrequency: 20e9,
  MinPower: -30,
  MaxPower: 10,
  Ports: 2,
}

func TestBounds_Validate(t *testing.T) {
  if err := testBounds.Validate(); err != nil {
    t.Fatalf("Validate(%v) got error: %v", testBounds, err)
  }

  invalid := []instrument.Bounds{
    {MinFrequency: 2, MaxFrequency: 1, MinPower: 0, MaxPower: 1, Ports: 1},
    {MinFrequency: -1, MaxFrequency: 1, MinPower: 0, MaxPower: 1, Ports: 1},
    {MinFrequency: 1, MaxFrequency: 2, MinPower: 5, MaxPower: 1, Ports: 1},
    {MinFrequency: 1, MaxFrequency: 2, MinPower: 0, MaxPower: 1, Ports: 0},
  }

  for _, b := range invalid {
    if err := b.Validate(); !errors.Is(err, instrument.ErrConfiguration) {
      t.Fatalf("Validate(%v): got %v, wanted ErrConfiguration", b, err)
    }
  }

  // degenerate ranges are allowed.
  point := instrument.Bounds{MinFrequency: 1e9, MaxFrequency: 1e9, MinPower: 0, MaxPower: 0, Ports: 1}

  if err := point.Validate(); err != nil {
    t.Fatalf("Validate(%v) got error: %v", point, err)
  }
}

func TestBounds_Checks(t *testing.T) {
  ok := []error{
    testBounds.CheckFrequency(10e6),
    testBounds.CheckFrequency(20e9),
    testBounds.CheckFrequencySpan(1e9, 1e9),
    testBounds.CheckPower(-30),
    testBounds.CheckPower(10),
    testBounds.CheckPort(1),
    testBounds.CheckPort(2),
  }

  for i, err := range ok {
    if err != nil {
      t.Fatalf("check %d: got error %v, wanted nil", i, err)
    }
  }

  outOfRange := []error{
    testBounds.CheckFrequency(9e6),
    testBounds.CheckFrequency(20.1e9),
    testBounds.CheckFrequencySpan(19.9e9, 1e9),
    testBounds.CheckFrequencySpan(1e9, -1),
    testBounds.CheckPower(-31),
    testBounds.CheckPower(10.5),
    testBounds.CheckPort(0),
    testBounds.CheckPort(3),
  }

  for i, err := range outOfRange {
    if !errors.Is(err, instrument.ErrOutOfRange) {
      t.Fatalf("check %d: got %v, wanted ErrOutOfRange", i, err)
    }
  }
}

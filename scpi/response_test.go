package scpi_test

import (
  "errors"
  "reflect"
  "testing"

  "github.com/fkatada/ms-Qcodes/scpi"
)

func TestParseIdentity(t *testing.T) {
  raw := "Keysight Technologies,N5222B,MY12345678,A.13.95.09\n"

  got, err := scpi.ParseIdentity(raw)

  if err != nil {
    t.Fatalf("ParseIdentity(%q) got error: %v", raw, err)
  }

  want := scpi.Identity{
    Manufacturer: "Keysight Technologies",
    Model: "N5222B",
    Serial: "MY12345678",
    Firmware: "A.13.95.09",
  }

  if !reflect.DeepEqual(got, want) {
    t.Fatalf("ParseIdentity(%q): got %+#v, wanted %+#v", raw, got, want)
  }

  if _, err := scpi.ParseIdentity("N5222B"); !errors.Is(err, scpi.ErrMalformedResponse) {
    t.Fatalf("ParseIdentity(%q): got %v, wanted ErrMalformedResponse", "N5222B", err)
  }
}

func TestParseInstrumentError(t *testing.T) {
  got, err := scpi.ParseInstrumentError(`-113,"Undefined header"`)

  if err != nil {
    t.Fatalf("ParseInstrumentError() got error: %v", err)
  }

  want := &scpi.InstrumentError{Code: -113, Message: "Undefined header"}

  if !reflect.DeepEqual(got, want) {
    t.Fatalf("ParseInstrumentError(): got %+#v, wanted %+#v", got, want)
  }

  got, err = scpi.ParseInstrumentError(`+0,"No error"`)

  if err != nil || got != nil {
    t.Fatalf("ParseInstrumentError(no error): got (%v, %v), wanted (nil, nil)", got, err)
  }

  if _, err := scpi.ParseInstrumentError("garbage"); !errors.Is(err, scpi.ErrMalformedResponse) {
    t.Fatalf("ParseInstrumentError(garbage): got %v, wanted ErrMalformedResponse", err)
  }
}

func TestParseFloats(t *testing.T) {
  got, err := scpi.ParseFloats("-1.5E+001,+2.25E+000, 3")

  if err != nil {
    t.Fatalf("ParseFloats() got error: %v", err)
  }

  if want := []float64{-15, 2.25, 3}; !reflect.DeepEqual(got, want) {
    t.Fatalf("ParseFloats(): got %v, wanted %v", got, want)
  }

  if _, err := scpi.ParseFloats("1,x,3"); !errors.Is(err, scpi.ErrMalformedResponse) {
    t.Fatalf("ParseFloats(1,x,3): got %v, wanted ErrMalformedResponse", err)
  }
}

func TestParseIntAndBool(t *testing.T) {
  if n, err := scpi.ParseInt("+2.01E+2"); err != nil || n != 201 {
    t.Fatalf("ParseInt(+2.01E+2): got (%d, %v), wanted 201", n, err)
  }

  if _, err := scpi.ParseInt("1.5"); !errors.Is(err, scpi.ErrMalformedResponse) {
    t.Fatalf("ParseInt(1.5): got %v, wanted ErrMalformedResponse", err)
  }

  for raw, want := range map[string]bool{"1": true, "+0": false, "ON": true, "off": false} {
    if got, err := scpi.ParseBool(raw); err != nil || got != want {
      t.Fatalf("ParseBool(%q): got (%v, %v), wanted %v", raw, got, err, want)
    }
  }
}

func TestFormatFloat(t *testing.T) {
  cases := map[float64]string{
    1e7: "1E+07",
    2.65e10: "2.65E+10",
    -90: "-90",
    13: "13",
  }

  for v, want := range cases {
    if got := scpi.FormatFloat(v); got != want {
      t.Fatalf("FormatFloat(%v): got %q, wanted %q", v, got, want)
    }
  }
}

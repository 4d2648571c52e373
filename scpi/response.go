package scpi

import (
  "errors"
  "fmt"
  "strconv"
  "strings"
)

var ErrMalformedResponse = errors.New("malformed instrument response")

// Identity is the parsed answer to *IDN?.
type Identity struct {
  Manufacturer string
  Model string
  Serial string
  Firmware string
}

func (i Identity) String() string {
  return fmt.Sprintf("%s %s (serial %s, firmware %s)", i.Manufacturer, i.Model, i.Serial, i.Firmware)
}

func ParseIdentity(s string) (Identity, error) {
  parts := strings.Split(strings.TrimSpace(s), ",")

  if len(parts) != 4 {
    return Identity{}, fmt.Errorf("%w: *IDN? returned %q", ErrMalformedResponse, s)
  }

  for i := range parts {
    parts[i] = strings.TrimSpace(parts[i])
  }

  return Identity{
    Manufacturer: parts[0],
    Model: parts[1],
    Serial: parts[2],
    Firmware: parts[3],
  }, nil
}

// InstrumentError is one entry of the SCPI error queue.
type InstrumentError struct {
  Code int
  Message string
}

func (e *InstrumentError) Error() string {
  return fmt.Sprintf("instrument error %d: %s", e.Code, e.Message)
}

// ParseInstrumentError parses a SYST:ERR? answer such as `-113,"Undefined header"`.
// It returns nil for the "no error" entry.
func ParseInstrumentError(s string) (*InstrumentError, error) {
  code, msg, ok := strings.Cut(strings.TrimSpace(s), ",")

  if !ok {
    return nil, fmt.Errorf("%w: SYST:ERR? returned %q", ErrMalformedResponse, s)
  }

  n, err := strconv.Atoi(strings.TrimSpace(code))

  if err != nil {
    return nil, fmt.Errorf("%w: SYST:ERR? returned %q", ErrMalformedResponse, s)
  }

  if n == 0 {
    return nil, nil
  }

  return &InstrumentError{
    Code: n,
    Message: Unquote(msg),
  }, nil
}

func ParseFloat(s string) (float64, error) {
  v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)

  if err != nil {
    return 0, fmt.Errorf("%w: not a number: %q", ErrMalformedResponse, s)
  }

  return v, nil
}

func ParseInt(s string) (int, error) {
  // numeric queries frequently come back as "+201" or "2.01E+2".
  v, err := ParseFloat(s)

  if err != nil {
    return 0, err
  }

  if v != float64(int(v)) {
    return 0, fmt.Errorf("%w: not an integer: %q", ErrMalformedResponse, s)
  }

  return int(v), nil
}

func ParseBool(s string) (bool, error) {
  switch strings.ToUpper(strings.TrimSpace(s)) {
  case "1", "+1", "ON":
    return true, nil
  case "0", "+0", "OFF":
    return false, nil
  default:
    return false, fmt.Errorf("%w: not a boolean: %q", ErrMalformedResponse, s)
  }
}

// ParseFloats parses a comma separated ASCII data block.
func ParseFloats(s string) ([]float64, error) {
  s = strings.TrimSpace(s)

  if s == "" {
    return nil, nil
  }

  fields := strings.Split(s, ",")
  out := make([]float64, len(fields))

  for i, f := range fields {
    v, err := ParseFloat(f)

    if err != nil {
      return nil, fmt.Errorf("value %d: %w", i, err)
    }

    out[i] = v
  }

  return out, nil
}

func FormatBool(b bool) string {
  if b {
    return "1"
  }

  return "0"
}

func FormatFloat(v float64) string {
  return strconv.FormatFloat(v, 'G', -1, 64)
}

func Quote(s string) string {
  return "'" + strings.ReplaceAll(s, "'", "") + "'"
}

func Unquote(s string) string {
  return strings.Trim(strings.TrimSpace(s), `"'`)
}

package instrument

import (
  "fmt"
  "slices"
  "strconv"
  "strings"
  "time"

  "github.com/pkg/errors"
  "golang.org/x/exp/maps"
)

// Options are the recognised pass-through settings of an instrument construction. The zero
// value is valid and selects the defaults of the transport.
type Options struct {
  // Timeout bounds every exchange with the instrument. Zero selects the transport default.
  Timeout time.Duration
  // Terminator appended to commands and expected after responses. Empty selects "\n".
  Terminator string
  // Reset sends *RST right after connecting.
  Reset bool
  // ClearStatus sends *CLS right after connecting, emptying the error queue.
  ClearStatus bool
  // BaudRate overrides the rate of serial resources. Zero keeps the rate of the address.
  BaudRate int
  // AutoSweep triggers a single sweep and waits for it before each trace read.
  AutoSweep bool
  // Label is a human readable name used in logs. Empty means the instrument name.
  Label string
}

const (
  OptionTimeout = "timeout"
  OptionTerminator = "terminator"
  OptionReset = "reset"
  OptionClearStatus = "clear"
  OptionBaudRate = "baud"
  OptionAutoSweep = "autosweep"
  OptionLabel = "label"
)

// Keys naming fixed hardware bounds. They can never be set by a caller.
const (
  BoundMinFrequency = "min_freq"
  BoundMaxFrequency = "max_freq"
  BoundMinPower = "min_power"
  BoundMaxPower = "max_power"
  BoundPorts = "nports"
)

var optionDocs = map[string]string{
  OptionTimeout: "(duration) Timeout of every exchange with the instrument, e.g. 5s.",
  OptionTerminator: "(lf|cr|crlf) Message terminator, defaults to lf.",
  OptionReset: "(bool) Send *RST after connecting.",
  OptionClearStatus: "(bool) Send *CLS after connecting.",
  OptionBaudRate: "(int) Baud rate of serial resources.",
  OptionAutoSweep: "(bool) Run a single sweep before every trace read.",
  OptionLabel: "(string) Human readable label used in logs.",
}

var boundKeys = []string{
  BoundMinFrequency,
  BoundMaxFrequency,
  BoundMinPower,
  BoundMaxPower,
  BoundPorts,
}

var terminators = map[string]string{
  "lf": "\n",
  "cr": "\r",
  "crlf": "\r\n",
}

func (o Options) Validate() error {
  if o.Timeout < 0 {
    return errors.Wrapf(ErrConfiguration, "negative timeout %v", o.Timeout)
  }

  if o.BaudRate < 0 {
    return errors.Wrapf(ErrConfiguration, "negative baud rate %d", o.BaudRate)
  }

  if o.Terminator != "" && !slices.Contains(maps.Values(terminators), o.Terminator) {
    return errors.Wrapf(ErrConfiguration, "unsupported terminator %q", o.Terminator)
  }

  return nil
}

// ParseOptions builds Options from the non-identity entries of a spec. Keys naming a fixed
// bound and unrecognised keys are rejected.
func ParseOptions(spec Spec) (opts Options, err error) {
  for key, value := range spec {
    if key == SpecFieldName || key == SpecFieldAddress {
      continue
    }

    if slices.Contains(boundKeys, key) {
      return opts, errors.Wrapf(ErrConfiguration,
        "%q is a fixed hardware bound of the model and cannot be overridden", key)
    }

    switch key {
    case OptionTimeout:
      opts.Timeout, err = time.ParseDuration(value)
    case OptionTerminator:
      t, ok := terminators[strings.ToLower(value)]

      if !ok {
        err = fmt.Errorf("must be one of %v", sortedKeys(terminators))
      }

      opts.Terminator = t
    case OptionReset:
      opts.Reset, err = strconv.ParseBool(value)
    case OptionClearStatus:
      opts.ClearStatus, err = strconv.ParseBool(value)
    case OptionBaudRate:
      opts.BaudRate, err = strconv.Atoi(value)
    case OptionAutoSweep:
      opts.AutoSweep, err = strconv.ParseBool(value)
    case OptionLabel:
      opts.Label = value
    default:
      return opts, errors.Wrapf(ErrConfiguration, "unknown option %q (must be one of %v)",
        key, sortedKeys(optionDocs))
    }

    if err != nil {
      return opts, errors.Wrapf(ErrConfiguration, "option %q=%q: %v", key, value, err)
    }
  }

  return opts, opts.Validate()
}

func sortedKeys[V any](m map[string]V) []string {
  keys := maps.Keys(m)
  slices.Sort(keys)

  return keys
}

// OptionsHelp documents every recognised option, one per line.
func OptionsHelp() string {
  var b strings.Builder

  for _, key := range sortedKeys(optionDocs) {
    fmt.Fprintf(&b, "%s %s\n", key, optionDocs[key])
  }

  return strings.TrimSuffix(b.String(), "\n")
}

package keysight

import (
  "context"
  "strings"
  "sync"

  "github.com/fkatada/ms-Qcodes/instrument"
  "github.com/fkatada/ms-Qcodes/instrument/pna"
  "github.com/fkatada/ms-Qcodes/scpi"
)

var n5222b = instrument.Model{
  Name: "N5222B",
  Description: "Keysight PNA N5222B microwave network analyzer",
  Bounds: instrument.Bounds{
    MinFrequency: 1e7,
    MaxFrequency: 2.65e10,
    MinPower: -90,
    MaxPower: 13,
    Ports: 4,
  },
}

// N5222B describes the Keysight PNA N5222B microwave network analyzer: 10 MHz to 26.5 GHz,
// -90 dBm to +13 dBm source power, four ports. Every call returns a fresh copy.
func N5222B() instrument.Model {
  return n5222b
}

var (
  defaultBaseOnce sync.Once
  defaultBase *pna.Base
)

// DefaultBase is the PNA constructor used by NewN5222B, backed by a persistent connection pool.
func DefaultBase() *pna.Base {
  defaultBaseOnce.Do(func() {
    defaultBase = pna.NewBase(scpi.NewPool(true))
  })

  return defaultBase
}

// NewN5222B opens an N5222B through the default PNA base.
func NewN5222B(ctx context.Context, name, address string, opts instrument.Options) (instrument.Handle, error) {
  return N5222B().New(ctx, DefaultBase(), name, address, opts)
}

// Models returns the Keysight models known to the exporter, keyed by lower case name.
func Models() map[string]instrument.Model {
  return map[string]instrument.Model{
    strings.ToLower(n5222b.Name): N5222B(),
  }
}

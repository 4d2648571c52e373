package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fkatada/ms-Qcodes/collector"
	"github.com/fkatada/ms-Qcodes/instrument"
	"github.com/fkatada/ms-Qcodes/instrument/keysight"
)

type config struct {
  Debug, Trace bool
  BindAddress string
  EnableMetamonitoring bool
  Identify bool
  ConfigFile string
  PersistConnections bool
  MaxRetries int
  InitialCollectionTimeout, CollectionTimeout time.Duration
  CollectionInterval, CollectionIdleTimeout time.Duration
  Backoff time.Duration
  Instruments []instrument.Config
}

type boundInstrumentList struct {
  instrument.Factory
  name string
  list *[]instrument.Config
}

var instrumentModels = keysight.Models()

func (d *boundInstrumentList) String() string {
  return ""
}

func (d *boundInstrumentList) Set(v string) error {
  spec := instrument.NewSpec(v)

  cfg, err := d.FromSpec(spec)
  if err != nil {
    return fmt.Errorf("failed to configure %s instrument: %w", d.name, err)
  }

  *d.list = append(*d.list, cfg)

  return nil
}

func lookupModel(name string) (instrument.Model, error) {
  model, ok := instrumentModels[strings.ToLower(name)]

  if !ok {
    return model, fmt.Errorf("%w: unknown instrument model %q", instrument.ErrConfiguration, name)
  }

  return model, nil
}

func ParseArgs() config {
  var cfg config

  flag.StringVar(&cfg.BindAddress, "bind", "localhost:9102", "Where the exporter will bind to")
  flag.BoolVar(&cfg.PersistConnections, "persist-connections", true, "Keep instrument connections open between collections")
  flag.BoolVar(&cfg.Identify, "identify", false, "Query the identity and error queue of every instrument and quit")
  flag.BoolVar(&cfg.EnableMetamonitoring, "metamonitoring", true, "Enable metamonitoring metrics")
  flag.StringVar(&cfg.ConfigFile, "config", "", "YAML file listing instruments, merged with the instrument flags")
  flag.IntVar(&cfg.MaxRetries, "max-retries", collector.DefaultMaxRetries, "Max number of retries")
  flag.DurationVar(&cfg.InitialCollectionTimeout, "initial-timeout", 30 * time.Second,
    "Timeout for the collection done on start (per retry attempt)")
  flag.DurationVar(&cfg.CollectionTimeout, "timeout", collector.DefaultTimeoutPerAttempt,
    "Timeout for the periodic collections (per retry attempt)")
  flag.DurationVar(&cfg.CollectionInterval, "interval", 60 * time.Second,
    "How frequently data collection happens")
  flag.DurationVar(&cfg.CollectionIdleTimeout, "idle-timeout", -1,
    "Timeout after which the collector is suspended if no data is read. Defaults to 3 * CollectionInterval")
  flag.DurationVar(&cfg.Backoff, "backoff", collector.DefaultBackoffFactor,
    "Exponential backoff factor for retries")
  flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logs")
  flag.BoolVar(&cfg.Trace, "trace", false, "Enable trace logs")

  for modelName, model := range instrumentModels {
    boundList := boundInstrumentList{
      name:    modelName,
      Factory: model,
      list:    &cfg.Instruments,
    }

    help := "Instrument spec in the form of `key=value,key=value`."

    if docs, ok := boundList.Factory.(instrument.FactoryDocs); ok {
      help += "\n" + docs.Help()
    }

    flag.Var(&boundList, modelName, help)
  }

  flag.Parse()

  if cfg.CollectionIdleTimeout < 0 {
    cfg.CollectionIdleTimeout = cfg.CollectionInterval * 3
  }

  if cfg.ConfigFile != "" {
    fromFile, err := LoadInstrumentFile(cfg.ConfigFile)

    if err != nil {
      fmt.Fprintf(os.Stderr, "Error: %v\n", err)
      os.Exit(1)
    }

    cfg.Instruments = append(cfg.Instruments, fromFile...)
  }

  if len(cfg.Instruments) == 0 {
    fmt.Fprintln(os.Stderr, "Error: at least one instrument is required!")
    flag.Usage()
    os.Exit(1)
  }

  return cfg
}

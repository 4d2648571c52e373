package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fkatada/ms-Qcodes/instrument"
	"gopkg.in/yaml.v3"
)

// instrumentFile is the layout of the -config file:
//
//	instruments:
//	  - model: n5222b
//	    name: vna1
//	    addr: TCPIP0::192.168.1.50::5025::SOCKET
//	    options:
//	      timeout: 5s
//	      reset: true
type instrumentFile struct {
  Instruments []instrumentEntry `yaml:"instruments"`
}

type instrumentEntry struct {
  Model string `yaml:"model"`
  Name string `yaml:"name"`
  Address string `yaml:"addr"`
  Options map[string]interface{} `yaml:"options"`
}

func (e instrumentEntry) spec() (instrument.Spec, error) {
  spec := instrument.Spec{
    instrument.SpecFieldName: e.Name,
    instrument.SpecFieldAddress: e.Address,
  }

  for k, v := range e.Options {
    key := strings.ToLower(strings.TrimSpace(k))

    if key == instrument.SpecFieldName || key == instrument.SpecFieldAddress {
      return nil, fmt.Errorf("%w: %q belongs next to model, not under options", instrument.ErrConfiguration, k)
    }

    spec[key] = fmt.Sprint(v)
  }

  return spec, nil
}

func LoadInstrumentFile(path string) ([]instrument.Config, error) {
  f, err := os.Open(path)

  if err != nil {
    return nil, fmt.Errorf("failed to open instrument file: %w", err)
  }

  defer f.Close()

  return ParseInstrumentFile(f)
}

func ParseInstrumentFile(r io.Reader) (out []instrument.Config, err error) {
  var file instrumentFile

  dec := yaml.NewDecoder(r)
  dec.KnownFields(true)

  if err := dec.Decode(&file); err != nil && err != io.EOF {
    return nil, fmt.Errorf("%w: failed to parse instrument file: %v", instrument.ErrConfiguration, err)
  }

  for n, entry := range file.Instruments {
    model, err := lookupModel(entry.Model)

    if err != nil {
      return nil, fmt.Errorf("instrument #%d: %w", n + 1, err)
    }

    spec, err := entry.spec()

    if err != nil {
      return nil, fmt.Errorf("instrument #%d: %w", n + 1, err)
    }

    cfg, err := model.FromSpec(spec)

    if err != nil {
      return nil, fmt.Errorf("instrument #%d: %w", n + 1, err)
    }

    out = append(out, cfg)
  }

  return out, nil
}

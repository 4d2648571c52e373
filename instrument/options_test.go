package instrument_test

import (
  "errors"
  "reflect"
  "strings"
  "testing"
  "time"

  "github.com/fkatada/ms-Qcodes/instrument"
)

func TestNewSpec(t *testing.T) {
  raw := "name=vna1, addr=serial:///dev/ttyS0?baud=115200,Timeout=5s,bogus,"

  got := instrument.NewSpec(raw)
  want := instrument.Spec{
    "name": "vna1",
    "addr": "serial:///dev/ttyS0?baud=115200",
    "timeout": "5s",
  }

  if !reflect.DeepEqual(got, want) {
    t.Fatalf("NewSpec(%q): got %+#v, wanted %+#v", raw, got, want)
  }

  if got.Name() != "vna1" || got.Addr() != "serial:///dev/ttyS0?baud=115200" {
    t.Fatalf("NewSpec(%q): got name %q addr %q", raw, got.Name(), got.Addr())
  }

  if s := got.String(); s != "addr=serial:///dev/ttyS0?baud=115200,name=vna1,timeout=5s" {
    t.Fatalf("Spec.String(): got %q", s)
  }
}

func TestParseOptions(t *testing.T) {
  spec := instrument.NewSpec(
    "name=vna1,addr=10.0.0.1,timeout=2s,terminator=crlf,reset=true,clear=1,baud=19200,autosweep=yes,label=Bench VNA")

  // strconv.ParseBool does not know "yes".
  if _, err := instrument.ParseOptions(spec); !errors.Is(err, instrument.ErrConfiguration) {
    t.Fatalf("ParseOptions(autosweep=yes): got %v, wanted ErrConfiguration", err)
  }

  spec["autosweep"] = "true"

  got, err := instrument.ParseOptions(spec)

  if err != nil {
    t.Fatalf("ParseOptions(%v) got error: %v", spec, err)
  }

  want := instrument.Options{
    Timeout: 2 * time.Second,
    Terminator: "\r\n",
    Reset: true,
    ClearStatus: true,
    BaudRate: 19200,
    AutoSweep: true,
    Label: "Bench VNA",
  }

  if !reflect.DeepEqual(got, want) {
    t.Fatalf("ParseOptions(%v): got %+#v, wanted %+#v", spec, got, want)
  }
}

func TestParseOptions_RejectsBoundOverrides(t *testing.T) {
  for _, key := range []string{"min_freq", "max_freq", "min_power", "max_power", "nports"} {
    spec := instrument.Spec{"name": "vna1", "addr": "10.0.0.1", key: "2"}

    if _, err := instrument.ParseOptions(spec); !errors.Is(err, instrument.ErrConfiguration) {
      t.Fatalf("ParseOptions(%v): got %v, wanted ErrConfiguration", spec, err)
    }
  }
}

func TestParseOptions_RejectsUnknownAndInvalid(t *testing.T) {
  specs := []instrument.Spec{
    {"visa_lib": "@py"},
    {"timeout": "soon"},
    {"timeout": "-1s"},
    {"terminator": "nul"},
    {"baud": "fast"},
    {"baud": "-9600"},
  }

  for _, spec := range specs {
    if _, err := instrument.ParseOptions(spec); !errors.Is(err, instrument.ErrConfiguration) {
      t.Fatalf("ParseOptions(%v): got %v, wanted ErrConfiguration", spec, err)
    }
  }
}

func TestOptionsHelp_ListsEveryOption(t *testing.T) {
  help := instrument.OptionsHelp()

  for _, key := range []string{"autosweep", "baud", "clear", "label", "reset", "terminator", "timeout"} {
    if !containsLinePrefix(help, key+" ") {
      t.Fatalf("OptionsHelp() does not document %q:\n%s", key, help)
    }
  }
}

func containsLinePrefix(s, prefix string) bool {
  for _, line := range strings.Split(s, "\n") {
    if strings.HasPrefix(line, prefix) {
      return true
    }
  }

  return false
}

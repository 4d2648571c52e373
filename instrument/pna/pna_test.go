package pna_test

import (
  "context"
  "errors"
  "reflect"
  "strings"
  "sync"
  "testing"

  "github.com/fkatada/ms-Qcodes/instrument"
  "github.com/fkatada/ms-Qcodes/instrument/pna"
  "github.com/fkatada/ms-Qcodes/scpi"
)

var testConfig = instrument.Config{
  Name: "vna1",
  Address: "TCPIP0::10.0.0.5::5025::SOCKET",
  Model: "N5222B",
  Bounds: instrument.Bounds{
    MinFrequency: 10e6,
    MaxFrequency: 26.5e9,
    MinPower: -90,
    MaxPower: 13,
    Ports: 4,
  },
}

func TestConstruct_Identifies(t *testing.T) {
  fake := newFakeAnalyzer()
  cfg := testConfig
  cfg.Options = instrument.Options{Reset: true, ClearStatus: true}

  h, err := pna.NewBase(fake.pool()).Construct(context.Background(), cfg)

  if err != nil {
    t.Fatalf("Construct(%v) got error: %v", cfg, err)
  }

  inst := h.(*pna.Instrument)

  want := scpi.Identity{
    Manufacturer: "Keysight Technologies",
    Model: "N5222B",
    Serial: "MY00000001",
    Firmware: "A.13.95.09",
  }

  if !reflect.DeepEqual(inst.Identity(), want) {
    t.Fatalf("Identity(): got %+#v, wanted %+#v", inst.Identity(), want)
  }

  if inst.Bounds() != cfg.Bounds || inst.Name() != "vna1" || inst.Model() != "N5222B" {
    t.Fatalf("Construct(): got handle %v with bounds %v", inst, inst.Bounds())
  }

  fake.expectSent(t, "*IDN?", "*RST", "*CLS", "FORM:DATA ASCII,0")
}

func TestConstruct_InvalidAddress(t *testing.T) {
  fake := newFakeAnalyzer()
  cfg := testConfig
  cfg.Address = "TCPIP0::10.0.0.5::inst0::INSTR"

  _, err := pna.NewBase(fake.pool()).Construct(context.Background(), cfg)

  if !errors.Is(err, scpi.ErrUnsupportedResource) {
    t.Fatalf("Construct(%q): got %v, wanted ErrUnsupportedResource", cfg.Address, err)
  }

  if fake.dials != 0 {
    t.Fatalf("Construct(%q) dialed %d times, wanted 0", cfg.Address, fake.dials)
  }
}

func TestConstruct_InvalidBounds(t *testing.T) {
  fake := newFakeAnalyzer()
  cfg := testConfig
  cfg.Bounds.Ports = 0

  if _, err := pna.NewBase(fake.pool()).Construct(context.Background(), cfg); !errors.Is(err, instrument.ErrConfiguration) {
    t.Fatalf("Construct(ports=0): got %v, wanted ErrConfiguration", err)
  }
}

func TestConstruct_DialFailure(t *testing.T) {
  pool := scpi.NewPool(true)
  want := &scpi.ConnectionError{Op: "dial", Addr: testConfig.Address, Err: errors.New("connection refused")}

  pool.Dial = func(ctx context.Context, addr scpi.Address, opts scpi.Options) (scpi.Conn, error) {
    return nil, want
  }

  _, err := pna.NewBase(pool).Construct(context.Background(), testConfig)

  if err != want {
    t.Fatalf("Construct(): got %v, wanted %v", err, want)
  }
}

func TestConstruct_MalformedIdentityReleasesConnection(t *testing.T) {
  fake := newFakeAnalyzer()
  fake.set(map[string]string{"*IDN?": "garbage"})

  pool := fake.pool()

  if _, err := pna.NewBase(pool).Construct(context.Background(), testConfig); !errors.Is(err, scpi.ErrMalformedResponse) {
    t.Fatalf("Construct(): got %v, wanted ErrMalformedResponse", err)
  }

  if fake.closes != 1 {
    t.Fatalf("Construct() failure closed the connection %d times, wanted 1", fake.closes)
  }

  fake.set(map[string]string{"*IDN?": "Keysight Technologies,N5222B,MY00000001,A.13.95.09"})

  if _, err := pna.NewBase(pool).Construct(context.Background(), testConfig); err != nil {
    t.Fatalf("Construct() after failure got error: %v", err)
  }

  if fake.dials != 2 {
    t.Fatalf("Construct() after failure: got %d dials, wanted a fresh connection", fake.dials)
  }
}

func TestSetters_RejectOutOfRangeWithoutSending(t *testing.T) {
  fake, inst := openFake(t)
  ctx := context.Background()

  errs := []error{
    inst.SetPower(ctx, 14),
    inst.SetPower(ctx, -91),
    inst.SetStartFrequency(ctx, 9e6),
    inst.SetStopFrequency(ctx, 27e9),
    inst.SetCWFrequency(ctx, 0),
    inst.SetFrequencyRange(ctx, 2e9, 1e9),
    inst.SetCenterSpan(ctx, 26e9, 2e9),
    inst.SetPoints(ctx, 0),
    inst.SetPoints(ctx, 100002),
    inst.SetIFBandwidth(ctx, 0.5),
    inst.SetAverages(ctx, 0),
    inst.SetSweepMode(ctx, instrument.SweepModeUnspecified),
    inst.DefineMeasurement(ctx, "m", pna.SParameter{Receive: 5, Source: 1}),
  }

  for n, err := range errs {
    if !errors.Is(err, instrument.ErrOutOfRange) {
      t.Fatalf("setter %d: got %v, wanted ErrOutOfRange", n, err)
    }
  }

  fake.expectSent(t)
}

func TestSetters_SendCommands(t *testing.T) {
  fake, inst := openFake(t)
  ctx := context.Background()

  steps := []error{
    inst.SetPower(ctx, -10),
    inst.SetFrequencyRange(ctx, 10e6, 26.5e9),
    inst.SetCenterSpan(ctx, 5e9, 1e9),
    inst.SetPoints(ctx, 201),
    inst.SetIFBandwidth(ctx, 1000),
    inst.SetAveraging(ctx, true),
    inst.SetAverages(ctx, 16),
    inst.SetOutput(ctx, false),
    inst.SetSweepMode(ctx, instrument.SweepModeHold),
    inst.DefineMeasurement(ctx, "CH1_S21", pna.SParameter{Receive: 2, Source: 1}),
  }

  for n, err := range steps {
    if err != nil {
      t.Fatalf("setter %d got error: %v", n, err)
    }
  }

  fake.expectSent(t,
    "SOUR:POW -10",
    "SENS:FREQ:STAR 1E+07",
    "SENS:FREQ:STOP 2.65E+10",
    "SENS:FREQ:CENT 5E+09",
    "SENS:FREQ:SPAN 1E+09",
    "SENS:SWE:POIN 201",
    "SENS:BAND 1000",
    "SENS:AVER 1",
    "SENS:AVER:COUN 16",
    "OUTP 0",
    "SENS:SWE:MODE HOLD",
    "CALC:PAR:DEF:EXT 'CH1_S21',S21",
    "DISP:MEAS:FEED 1,'CH1_S21'",
  )
}

func TestReadState(t *testing.T) {
  fake, inst := openFake(t)

  fake.set(map[string]string{
    "OUTP?": "1",
    "SOUR:POW?": "-1.00000000000E+001",
    "SENS:FREQ:STAR?": "+1.00000000000E+007",
    "SENS:FREQ:STOP?": "+2.65000000000E+010",
    "SENS:SWE:POIN?": "+201",
    "SENS:BAND?": "+1.00000000000E+003",
    "SENS:AVER?": "0",
    "SENS:AVER:COUN?": "+1",
    "SENS:SWE:MODE?": "CONT",
  })

  got, err := inst.ReadState(context.Background())

  if err != nil {
    t.Fatalf("ReadState() got error: %v", err)
  }

  want := instrument.State{
    Output: true,
    Power: -10,
    StartFrequency: 10e6,
    StopFrequency: 26.5e9,
    Points: 201,
    IFBandwidth: 1000,
    Averaging: false,
    Averages: 1,
    SweepMode: instrument.SweepModeContinuous,
  }

  if !reflect.DeepEqual(got, want) {
    t.Fatalf("ReadState(): got %+#v, wanted %+#v", got, want)
  }
}

func TestReadState_MalformedResponse(t *testing.T) {
  fake, inst := openFake(t)

  fake.set(map[string]string{"OUTP?": "maybe"})

  if _, err := inst.ReadState(context.Background()); !errors.Is(err, scpi.ErrMalformedResponse) {
    t.Fatalf("ReadState(): got %v, wanted ErrMalformedResponse", err)
  }
}

func TestReadTrace_AutoSweep(t *testing.T) {
  fake := newFakeAnalyzer()
  cfg := testConfig
  cfg.Options.AutoSweep = true

  h, err := pna.NewBase(fake.pool()).Construct(context.Background(), cfg)

  if err != nil {
    t.Fatalf("Construct() got error: %v", err)
  }

  inst := h.(*pna.Instrument)
  fake.reset()

  fake.set(map[string]string{
    "CALC:PAR:CAT:EXT?": `"CH1_S11_1,S11,CH1_S21_2,S21"`,
    "*OPC?": "+1",
    "CALC:DATA? FDATA": "-1.5E+000,-2.5E+000,-3.5E+000",
    "SENS:X?": "+1.0E+007,+1.0E+009,+2.0E+009",
  })

  got, err := inst.ReadTrace(context.Background(), "CH1_S21_2", pna.FormatLogMagnitude)

  if err != nil {
    t.Fatalf("ReadTrace() got error: %v", err)
  }

  want := pna.Trace{
    Measurement: pna.Measurement{Name: "CH1_S21_2", Parameter: "S21"},
    Format: pna.FormatLogMagnitude,
    Frequencies: []float64{10e6, 1e9, 2e9},
    Values: []float64{-1.5, -2.5, -3.5},
  }

  if !reflect.DeepEqual(got, want) {
    t.Fatalf("ReadTrace(): got %+#v, wanted %+#v", got, want)
  }

  fake.expectSent(t,
    "CALC:PAR:CAT:EXT?",
    "CALC:PAR:SEL 'CH1_S21_2'",
    "SENS:SWE:MODE SING",
    "*OPC?",
    "CALC:FORM MLOG",
    "CALC:DATA? FDATA",
    "SENS:X?",
  )
}

func TestReadTrace_UnknownMeasurement(t *testing.T) {
  fake, inst := openFake(t)

  fake.set(map[string]string{"CALC:PAR:CAT:EXT?": `"NO CATALOG"`})

  if _, err := inst.ReadTrace(context.Background(), "CH1_S21_2", pna.FormatPhase); !errors.Is(err, instrument.ErrConfiguration) {
    t.Fatalf("ReadTrace(): got %v, wanted ErrConfiguration", err)
  }

  if _, err := inst.ReadTrace(context.Background(), "CH1_S21_2", pna.Format("POLAR")); !errors.Is(err, instrument.ErrConfiguration) {
    t.Fatalf("ReadTrace(POLAR): got %v, wanted ErrConfiguration", err)
  }
}

func TestErrors_DrainsQueue(t *testing.T) {
  fake, inst := openFake(t)

  fake.queue("SYST:ERR?",
    `-113,"Undefined header"`,
    `-222,"Data out of range"`,
    `+0,"No error"`,
  )

  err := inst.CheckErrors(context.Background())

  var instErr *scpi.InstrumentError

  if !errors.As(err, &instErr) || instErr.Code != -113 {
    t.Fatalf("CheckErrors(): got %v, wanted -113 first", err)
  }

  if !strings.Contains(err.Error(), "Data out of range") {
    t.Fatalf("CheckErrors(): got %v, wanted both entries", err)
  }

  if err := inst.CheckErrors(context.Background()); err != nil {
    t.Fatalf("CheckErrors() on empty queue: got %v", err)
  }
}

func TestParseSParameter(t *testing.T) {
  got, err := pna.ParseSParameter("s21")

  if err != nil || got != (pna.SParameter{Receive: 2, Source: 1}) || got.String() != "S21" {
    t.Fatalf("ParseSParameter(s21): got (%v, %v)", got, err)
  }

  for _, raw := range []string{"", "S2", "T21", "S0 1", "S01", "Sab"} {
    if _, err := pna.ParseSParameter(raw); !errors.Is(err, instrument.ErrConfiguration) {
      t.Fatalf("ParseSParameter(%q): got %v, wanted ErrConfiguration", raw, err)
    }
  }
}

func openFake(t *testing.T) (*fakeAnalyzer, *pna.Instrument) {
  fake := newFakeAnalyzer()

  h, err := pna.NewBase(fake.pool()).Construct(context.Background(), testConfig)

  if err != nil {
    t.Fatalf("Construct() got error: %v", err)
  }

  fake.reset()

  return fake, h.(*pna.Instrument)
}

// fakeAnalyzer is an in-memory PNA answering queries from a table. Queries with queued
// responses are answered from the queue first.
type fakeAnalyzer struct {
  mu sync.Mutex

  dials int
  closes int
  sent []string
  responses map[string]string
  queued map[string][]string
}

func newFakeAnalyzer() *fakeAnalyzer {
  return &fakeAnalyzer{
    responses: map[string]string{
      "*IDN?": "Keysight Technologies,N5222B,MY00000001,A.13.95.09",
      "SYST:ERR?": `+0,"No error"`,
    },
    queued: make(map[string][]string),
  }
}

func (f *fakeAnalyzer) pool() *scpi.Pool {
  pool := scpi.NewPool(true)

  pool.Dial = func(ctx context.Context, addr scpi.Address, opts scpi.Options) (scpi.Conn, error) {
    f.mu.Lock()
    defer f.mu.Unlock()

    f.dials += 1

    return f, nil
  }

  return pool
}

func (f *fakeAnalyzer) set(responses map[string]string) {
  f.mu.Lock()
  defer f.mu.Unlock()

  for k, v := range responses {
    f.responses[k] = v
  }
}

func (f *fakeAnalyzer) queue(cmd string, responses ...string) {
  f.mu.Lock()
  defer f.mu.Unlock()

  f.queued[cmd] = append(f.queued[cmd], responses...)
}

func (f *fakeAnalyzer) reset() {
  f.mu.Lock()
  defer f.mu.Unlock()

  f.sent = nil
}

func (f *fakeAnalyzer) expectSent(t *testing.T, want ...string) {
  t.Helper()

  f.mu.Lock()
  defer f.mu.Unlock()

  if len(want) == 0 && len(f.sent) == 0 {
    return
  }

  if !reflect.DeepEqual(f.sent, want) {
    t.Fatalf("instrument received:\n%q\nwanted:\n%q", f.sent, want)
  }
}

func (f *fakeAnalyzer) Write(ctx context.Context, cmd string) error {
  f.mu.Lock()
  defer f.mu.Unlock()

  f.sent = append(f.sent, cmd)

  return nil
}

func (f *fakeAnalyzer) Query(ctx context.Context, cmd string) (string, error) {
  f.mu.Lock()
  defer f.mu.Unlock()

  f.sent = append(f.sent, cmd)

  if q := f.queued[cmd]; len(q) > 0 {
    f.queued[cmd] = q[1:]
    return q[0], nil
  }

  resp, ok := f.responses[cmd]

  if !ok {
    return "", &scpi.ConnectionError{Op: "read", Addr: "fake", Err: errors.New("timeout: no response for " + cmd)}
  }

  return resp, nil
}

func (f *fakeAnalyzer) Close() error {
  f.mu.Lock()
  defer f.mu.Unlock()

  f.closes += 1

  return nil
}

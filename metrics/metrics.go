package metrics

import (
  "github.com/fkatada/ms-Qcodes/collector/model"
  "github.com/fkatada/ms-Qcodes/instrument"
  "github.com/fkatada/ms-Qcodes/scpi"
  "github.com/prometheus/client_golang/prometheus"
)

var (
  descPower = prometheus.NewDesc(
    "pna_source_power_dbm",
    "Source power level in dBm.",
    []string{"name"},
    nil,
  )

  descStartFrequency = prometheus.NewDesc(
    "pna_start_frequency_hertz",
    "Sweep start frequency in Hertz.",
    []string{"name"},
    nil,
  )

  descStopFrequency = prometheus.NewDesc(
    "pna_stop_frequency_hertz",
    "Sweep stop frequency in Hertz.",
    []string{"name"},
    nil,
  )

  descPoints = prometheus.NewDesc(
    "pna_sweep_points",
    "Number of points per sweep.",
    []string{"name"},
    nil,
  )

  descIFBandwidth = prometheus.NewDesc(
    "pna_if_bandwidth_hertz",
    "Receiver IF bandwidth in Hertz.",
    []string{"name"},
    nil,
  )

  descAverages = prometheus.NewDesc(
    "pna_averages",
    "Configured averaging count.",
    []string{"name"},
    nil,
  )

  descAveraging = prometheus.NewDesc(
    "pna_averaging_enabled",
    "1 if sweep averaging is enabled.",
    []string{"name"},
    nil,
  )

  descOutput = prometheus.NewDesc(
    "pna_output_enabled",
    "1 if the RF output is on.",
    []string{"name"},
    nil,
  )

  descSweepMode = prometheus.NewDesc(
    "pna_sweep_mode_info",
    "Sweep mode. 0 = unspecified, 1 = hold, 2 = continuous, 3 = groups, 4 = single.",
    []string{"name"},
    nil,
  )

  descFrequencyLimit = prometheus.NewDesc(
    "pna_frequency_limit_hertz",
    "Frequency bounds of the instrument model in Hertz.",
    []string{"name", "bound"},
    nil,
  )

  descPowerLimit = prometheus.NewDesc(
    "pna_power_limit_dbm",
    "Source power bounds of the instrument model in dBm.",
    []string{"name", "bound"},
    nil,
  )

  descPorts = prometheus.NewDesc(
    "pna_ports",
    "Number of test ports of the instrument model.",
    []string{"name"},
    nil,
  )

  descInfo = prometheus.NewDesc(
    "pna_info",
    "Identity reported by the instrument.",
    []string{"name", "model", "serial", "firmware"},
    nil,
  )
)

// CollectFunc returns the last sample of every instrument. Each sample is exported with the
// time it was collected.
type CollectFunc func() map[instrument.Handle]model.Sample

type identifier interface {
  Identity() scpi.Identity
}

type collector struct {
  CollectFunc
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
  prometheus.DescribeByCollect(c, ch)
}

func boolToFloat(b bool) float64 {
  if b {
    return 1
  }

  return 0
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
  out := c.CollectFunc()

  if out == nil {
    panic("collector got empty data!")
  }

  for h, sample := range out {
    name := h.Name()
    state, ts := sample.State, sample.Time

    gauge := func(desc *prometheus.Desc, v float64, labels ...string) {
      m := prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, append([]string{name}, labels...)...)
      ch <- prometheus.NewMetricWithTimestamp(ts, m)
    }

    gauge(descPower, state.Power)
    gauge(descStartFrequency, state.StartFrequency)
    gauge(descStopFrequency, state.StopFrequency)
    gauge(descPoints, float64(state.Points))
    gauge(descIFBandwidth, state.IFBandwidth)
    gauge(descAverages, float64(state.Averages))
    gauge(descAveraging, boolToFloat(state.Averaging))
    gauge(descOutput, boolToFloat(state.Output))
    gauge(descSweepMode, float64(state.SweepMode))

    bounds := h.Bounds()

    gauge(descFrequencyLimit, bounds.MinFrequency, "min")
    gauge(descFrequencyLimit, bounds.MaxFrequency, "max")
    gauge(descPowerLimit, bounds.MinPower, "min")
    gauge(descPowerLimit, bounds.MaxPower, "max")
    gauge(descPorts, float64(bounds.Ports))

    if id, ok := h.(identifier); ok {
      idn := id.Identity()
      gauge(descInfo, 1, idn.Model, idn.Serial, idn.Firmware)
    }
  }
}

func RegisterCollector(f CollectFunc, reg prometheus.Registerer) {
  c := &collector{f}

  reg.MustRegister(c)
}

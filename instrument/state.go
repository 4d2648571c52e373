package instrument

import (
  "fmt"
  "strconv"
)

type SweepMode uint8

const (
  SweepModeUnspecified SweepMode = iota
  SweepModeHold
  SweepModeContinuous
  SweepModeGroups
  SweepModeSingle
)

func (m SweepMode) String() string {
  switch (m) {
  case SweepModeUnspecified:
    return "Unspecified"
  case SweepModeHold:
    return "Hold"
  case SweepModeContinuous:
    return "Continuous"
  case SweepModeGroups:
    return "Groups"
  case SweepModeSingle:
    return "Single"
  default:
    panic("Unknown sweep mode: " + strconv.Itoa(int(m)))
  }
}

// State is a snapshot of the stimulus and receiver settings of a network analyzer.
type State struct {
  Output bool
  Power float64
  StartFrequency float64
  StopFrequency float64
  Points int
  IFBandwidth float64
  Averaging bool
  Averages int
  SweepMode
}

func (s State) String() string {
  return fmt.Sprintf("State[Output=%v,Power=%gdBm,Frequency=%g..%gHz,Points=%d,IFBW=%gHz,Averaging=%v(%d),SweepMode=%v]",
    s.Output, s.Power, s.StartFrequency, s.StopFrequency, s.Points, s.IFBandwidth,
    s.Averaging, s.Averages, s.SweepMode)
}

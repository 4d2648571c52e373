package model

import (
	"fmt"
	"time"

	"github.com/fkatada/ms-Qcodes/instrument"
)

type Result struct {
  State instrument.State
  Error error
}

func (c Result) String() string {
  if c.Error != nil {
    return fmt.Sprintf("result:error(%v)", c.Error)
  } else {
    return fmt.Sprintf("result:success(%v)", c.State)
  }
}

type HandleResult struct {
	instrument.Handle
	Result
}

// Sample is the last state collected from an instrument and when it was collected.
type Sample struct {
  State instrument.State
  Time time.Time
}

func (s Sample) String() string {
  return fmt.Sprintf("sample(%v at %s)", s.State, s.Time.Format(time.RFC3339))
}

package collector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fkatada/ms-Qcodes/collector/model"
	"github.com/fkatada/ms-Qcodes/instrument"
	"github.com/rs/zerolog/log"
)

// Disconnecter drops every open instrument connection. *scpi.Pool implements it.
type Disconnecter interface {
  DisconnectAll()
}

// Recurring collects the state of a fixed set of instruments on an interval and keeps the last
// good sample of each. An instrument failing a collection keeps its previous sample, with the
// time it was taken.
type Recurring struct {
  // If nothing reads the samples for longer than IdleTimeout, the collector releases the
  // instruments and sleeps until the next read. Zero disables suspending.
  IdleTimeout time.Duration

  conns Disconnecter
  handles []instrument.Handle

  mu sync.Mutex
  samples map[instrument.Handle]model.Sample
  lastRead time.Time

  started atomic.Bool
  suspended atomic.Bool

  // wake requests; a non-nil channel is closed once the following collection is done.
  wake chan chan struct{}
  stopped chan struct{}
}

func NewRecurring(conns Disconnecter, handles []instrument.Handle) *Recurring {
  return &Recurring{
    conns: conns,
    handles: handles,
    lastRead: time.Now(),
    wake: make(chan chan struct{}, 1),
    stopped: make(chan struct{}),
  }
}

// Update stores states collected now, keeping the samples of instruments missing from states.
func (s *Recurring) Update(states map[instrument.Handle]instrument.State) {
  if states == nil {
    panic("attempted to set nil states")
  }

  now := time.Now()

  s.mu.Lock()
  defer s.mu.Unlock()

  // readers may still hold the previous map.
  merged := make(map[instrument.Handle]model.Sample, len(s.samples) + len(states))

  for h, sample := range s.samples {
    merged[h] = sample
  }

  for h, state := range states {
    merged[h] = model.Sample{State: state, Time: now}
  }

  s.samples = merged
}

func (s *Recurring) get() map[instrument.Handle]model.Sample {
  s.mu.Lock()
  defer s.mu.Unlock()

  if s.samples == nil {
    panic("Latest() on collector.Recurring called when not initialised yet")
  }

  s.lastRead = time.Now()

  return s.samples
}

// Latest returns the last samples. A suspended collector is woken up without waiting for it.
func (s *Recurring) Latest() map[instrument.Handle]model.Sample {
  if s.suspended.Load() {
    select {
    case s.wake <- nil:
    default:
      // a wake up is already queued.
    }
  }

  return s.get()
}

// WaitLatest returns the last samples. A suspended collector is woken up and WaitLatest blocks
// until its collection is done, ctx expires or the collector stops.
func (s *Recurring) WaitLatest(ctx context.Context) map[instrument.Handle]model.Sample {
  if s.suspended.Load() {
    done := make(chan struct{})

    select {
    case s.wake <- done:
      select {
      case <-done:
      case <-ctx.Done():
      case <-s.stopped:
      }
    case <-ctx.Done():
    case <-s.stopped:
    }
  }

  return s.get()
}

func (s *Recurring) idleFor() time.Duration {
  s.mu.Lock()
  defer s.mu.Unlock()

  return time.Since(s.lastRead)
}

// release answers every queued wake request.
func (s *Recurring) release(waiter chan struct{}) {
  if waiter != nil {
    close(waiter)
  }

  for {
    select {
    case w := <-s.wake:
      if w != nil {
        close(w)
      }
    default:
      return
    }
  }
}

func (s *Recurring) collect(ctx context.Context, opts CollectionOptions) {
  results, err := CollectStatesWithOptions(ctx, s.handles, opts)

  update := make(map[instrument.Handle]instrument.State, len(results))

  for h, res := range results {
    if res.Error != nil {
      log.Warn().
        Stringer("Instrument", h).
        Err(res.Error).
        Msg("Collection failed for instrument, keeping its previous sample")
      continue
    }

    log.Debug().
      Stringer("Instrument", h).
      Stringer("State", res.State).
      Msg("Successfully collected state from instrument")

    update[h] = res.State
  }

  if len(update) < len(s.handles) {
    log.Warn().
      Err(err).
      Int("Collected", len(update)).
      Int("Instruments", len(s.handles)).
      Msg("Collection failed for one or more instruments!")
  }

  s.Update(update)
}

// sleep suspends the collector until a wake request arrives. It returns the request, or false
// when ctx ends first.
func (s *Recurring) sleep(ctx context.Context, idle time.Duration) (chan struct{}, bool) {
  s.suspended.Store(true)
  defer s.suspended.Store(false)

  log.Warn().
    Dur("IdleTimeoutSec", s.IdleTimeout).
    Dur("TimeSinceLastReadSec", idle).
    Msg("Suspending recurring collector due to inactivity. If you see this message often, " +
        "you probably need to adjust the collection interval with '-interval'.")

  s.conns.DisconnectAll()

  select {
  case <-ctx.Done():
    return nil, false
  case waiter := <-s.wake:
    log.Trace().Msg("Collector woke up from sleep - starting immediate collection")
    return waiter, true
  }
}

// Start runs the collection loop until ctx ends. It must be called once.
func (s *Recurring) Start(
  ctx context.Context,
  interval time.Duration,
  opts CollectionOptions,
) {
  if !s.started.CompareAndSwap(false, true) {
    panic("attempted to call collector.Recurring.Start() twice")
  }

  defer func() {
    log.Info().Msg("Recurring collector is shutting down")
    close(s.stopped)
  }()

  log.Info().
    Dur("Interval", interval).
    Int("MaxRetries", opts.MaxRetries).
    Dur("TimeoutPerAttemptSec", opts.TimeoutPerAttempt).
    Dur("IdleTimeoutSec", s.IdleTimeout).
    Int("Instruments", len(s.handles)).
    Msg("Starting recurring collector")

  ticker := time.NewTicker(interval)
  defer ticker.Stop()

  for {
    select {
    case <-ctx.Done():
      return
    case <-ticker.C:
    }

    var waiter chan struct{}

    if idle := s.idleFor(); s.IdleTimeout > 0 && idle > s.IdleTimeout {
      var ok bool

      if waiter, ok = s.sleep(ctx, idle); !ok {
        return
      }
    } else {
      log.Trace().Dur("Interval", interval).Msg("Recurring collector tick: collecting...")
    }

    s.collect(ctx, opts)
    s.release(waiter)
  }
}

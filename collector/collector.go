package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/fkatada/ms-Qcodes/collector/model"
	"github.com/fkatada/ms-Qcodes/instrument"
	"github.com/fkatada/ms-Qcodes/utils"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
  DefaultMaxRetries = 2
  DefaultTimeoutPerAttempt = 10 * time.Second
  DefaultBackoffFactor = 500 * time.Millisecond
)

type CollectionOptions struct {
  MaxRetries int
  TimeoutPerAttempt time.Duration
  BackoffFactor time.Duration

  attempt int
}

type stateReader struct {
  instrument.Handle
  reader instrument.StateReader
}

func selectReaders(handles []instrument.Handle) (out []stateReader) {
  for _, h := range handles {
    reader, ok := h.(instrument.StateReader)

    if !ok {
      panic(fmt.Sprintf("instrument %q cannot report its state, must implement StateReader", h))
    }

    out = append(out, stateReader{
      Handle: h,
      reader: reader,
    })
  }

  return out
}

// permanent reports errors that another attempt cannot fix.
func permanent(err error) bool {
  return utils.ErrorIsAnyOf(err, instrument.ErrConfiguration, instrument.ErrOutOfRange)
}

func CollectStates(
  ctx context.Context,
  handles []instrument.Handle,
) (out map[instrument.Handle]model.Result, err error) {
  return CollectStatesWithOptions(
    ctx,
    handles,
    CollectionOptions{
      MaxRetries: DefaultMaxRetries,
      TimeoutPerAttempt: DefaultTimeoutPerAttempt,
    },
  )
}

// Collect the state of the specified instruments in parallel. Failed instruments are retried
// until MaxRetries is exhausted, the failure is permanent or the parent context expires.
func CollectStatesWithOptions(
  parentCtx context.Context,
  handles []instrument.Handle,
  options CollectionOptions,
) (out map[instrument.Handle]model.Result, err error) {
  out = make(map[instrument.Handle]model.Result, len(handles))

  log.Debug().
    Array("Instruments", utils.ToZeroLogArray(handles)).
    Msg("Collecting state from instruments")

  readers := selectReaders(handles)

  var ctx context.Context
  var cancel func()

  if options.TimeoutPerAttempt > 0 {
    ctx, cancel = context.WithTimeout(parentCtx, options.TimeoutPerAttempt)
  } else {
    ctx, cancel = context.WithCancel(parentCtx)
  }

  defer cancel()

  var eg errgroup.Group
  resultCh := make(chan model.HandleResult)

  for _, r := range readers {
    r := r

    eg.Go(func() error {
      log.Trace().
        Stringer("Instrument", r).
        Msg("collector: instrument worker started")

      state, err := r.reader.ReadState(ctx)

      result := model.HandleResult{
        Handle: r.Handle,
        Result: model.Result{
          State: state,
          Error: err,
        },
      }

      select {
      case <-ctx.Done():
        return ctx.Err()
      case resultCh <- result:
      }

      return nil
    })
  }

  go func() {
    err = eg.Wait()
    close(resultCh)
  }()

  for v := range resultCh {
    log.Trace().
      Stringer("Instrument", v.Handle).
      Stringer("Result", v.Result).
      Msg("Received result for instrument")

    out[v.Handle] = v.Result
  }

  if options.MaxRetries > 0 {
    var failed []instrument.Handle

    for _, h := range handles {
      result, ok := out[h]

      switch {
      case ok && result.Error != nil && permanent(result.Error):
        log.Debug().
          Stringer("Instrument", h).
          Err(result.Error).
          Msg("Collection failed for instrument - not retrying")
      case ok && result.Error != nil:
        failed = append(failed, h)

        log.Debug().
          Stringer("Instrument", h).
          Int("RetriesLeft", options.MaxRetries).
          Err(result.Error).
          Msg("Collection failed for instrument - will retry")
      case !ok:
        failed = append(failed, h)

        log.Debug().
          Stringer("Instrument", h).
          Int("RetriesLeft", options.MaxRetries).
          Err(err).
          Msg("No state received for instrument - will retry")
      }
    }

    if len(failed) > 0 {
      if options.BackoffFactor > 0 {
        backoff := options.BackoffFactor << int64(options.attempt)

        if backoff < 0 {
          backoff = DefaultBackoffFactor
        }

        log.Trace().
          Dur("Backoff", backoff).
          Msg("Backing off before attempting retry")

        select {
        case <-parentCtx.Done():
          log.Trace().Err(parentCtx.Err()).Msg("Retry aborted by context cancel")
          return out, parentCtx.Err()
        case <-time.After(backoff):
        }
      }

      options.MaxRetries -= 1
      options.attempt += 1

      retryOutput, err := CollectStatesWithOptions(parentCtx, failed, options)

      for h := range retryOutput {
        out[h] = retryOutput[h]
      }

      return out, err
    }
  }

  return out, err
}

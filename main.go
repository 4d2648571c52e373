package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fkatada/ms-Qcodes/collector"
	"github.com/fkatada/ms-Qcodes/collector/model"
	"github.com/fkatada/ms-Qcodes/instrument"
	"github.com/fkatada/ms-Qcodes/instrument/pna"
	"github.com/fkatada/ms-Qcodes/metrics"
	"github.com/fkatada/ms-Qcodes/scpi"
	"github.com/fkatada/ms-Qcodes/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
  zerolog.DurationFieldUnit = time.Second
  zerolog.TimeFieldFormat = time.RFC3339Nano

  log.Logger = log.Output(zerolog.ConsoleWriter{
    Out: os.Stderr,
    TimeFormat: "15:04:05.000",
  })

  cfg := ParseArgs()

  if cfg.Trace || os.Getenv("TRACE") != "" {
      zerolog.SetGlobalLevel(zerolog.TraceLevel)
  } else if cfg.Debug || os.Getenv("DEBUG") != "" {
      zerolog.SetGlobalLevel(zerolog.DebugLevel)
  } else {
      zerolog.SetGlobalLevel(zerolog.InfoLevel)
  }

  pool := scpi.NewPool(cfg.PersistConnections)
  base := pna.NewBase(pool)

  if cfg.Identify {
    doIdentify(cfg, base)
    return
  }

  log.Info().
    Str("BindAddr", cfg.BindAddress).
    Array("Instruments", utils.ToZeroLogArray(cfg.Instruments)).
    Bool("PersistConnections", cfg.PersistConnections).
    Msg("Starting with the specified configuration")

  session, err := openInstruments(context.Background(), cfg, base)

  if err != nil {
    log.Fatal().Err(err).Msg("Failed to open instruments")
  }

  defer session.Close()

  handles := session.Handles()
  initialStates := collectInitialStates(cfg, handles)

  coll := collector.NewRecurring(pool, handles)
  coll.IdleTimeout = cfg.CollectionIdleTimeout
  coll.Update(initialStates)

  registry := prometheus.NewRegistry()

  if cfg.EnableMetamonitoring {
    scpi.RegisterMetrics(registry)
    registry.MustRegister(
      collectors.NewGoCollector(),
      collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
    )
  }

  metrics.RegisterCollector(
    func() map[instrument.Handle]model.Sample {
      // no way to get the HTTP request context from the collector unfortunately :(
      return coll.WaitLatest(context.Background())
    },
    registry,
  )

  go coll.Start(
    context.Background(),
    cfg.CollectionInterval,
    collector.CollectionOptions{
      TimeoutPerAttempt: cfg.CollectionTimeout,
      MaxRetries: cfg.MaxRetries,
      BackoffFactor: cfg.Backoff,
    },
  )

  log.Info().
      Str("ListenAddress", cfg.BindAddress).
      Msg("Starting Prometheus server")

  http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

  if err := http.ListenAndServe(cfg.BindAddress, nil); err != nil {
      log.Fatal().Err(err).Msg("Unable to bind on requested address")
  }
}

// openInstruments opens every configured instrument through its model. On failure the
// instruments opened so far are closed again.
func openInstruments(ctx context.Context, cfg config, base instrument.Constructor) (*instrument.Session, error) {
  session := instrument.NewSession()

  for _, c := range cfg.Instruments {
    model, err := lookupModel(c.Model)

    if err != nil {
      session.Close()
      return nil, err
    }

    _, err = session.Open(ctx, c, func(ctx context.Context, c instrument.Config) (instrument.Handle, error) {
      return model.Open(ctx, base, c)
    })

    if err != nil {
      session.Close()
      return nil, fmt.Errorf("failed to open %v: %w", c, err)
    }
  }

  return session, nil
}

func collectInitialStates(cfg config, handles []instrument.Handle) (res map[instrument.Handle]instrument.State) {
  log.Info().
    Dur("TimeoutSec", cfg.InitialCollectionTimeout).
    Msg("Running initial collection for the configured instruments")

  states, err := collector.CollectStatesWithOptions(
    context.Background(),
    handles,
    collector.CollectionOptions{
      TimeoutPerAttempt: cfg.InitialCollectionTimeout,
      MaxRetries: cfg.MaxRetries,
      BackoffFactor: cfg.Backoff,
    },
  )

  if err != nil {
    log.Fatal().
      Err(err).
      Str("States", fmt.Sprintf("%v", states)).
      Msg("Failed to collect initial state")
  }

  hasError := false
  res = make(map[instrument.Handle]instrument.State)

  for h, result := range states {
    if result.Error != nil {
      hasError = true

      log.Error().
        Stringer("Instrument", h).
        Err(result.Error).
        Msg("Failed to collect state of instrument")
    } else {
      log.Info().
        Stringer("Instrument", h).
        Stringer("State", result.State).
        Msg("Successfully collected state of instrument")

      res[h] = result.State
    }
  }

  if hasError {
    log.Fatal().Msg("State of at least one instrument could not be read, refusing to start")
  }

  return res
}

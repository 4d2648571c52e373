package main

import (
	"context"
	"time"

	"github.com/fkatada/ms-Qcodes/instrument"
	"github.com/fkatada/ms-Qcodes/scpi"
	"github.com/fkatada/ms-Qcodes/utils"
	"github.com/rs/zerolog/log"
)

type identifiable interface {
  Identity() scpi.Identity
  Errors(ctx context.Context) ([]*scpi.InstrumentError, error)
}

func doIdentify(cfg config, base instrument.Constructor) {
  log.Info().
    Int("Instruments", len(cfg.Instruments)).
    Msg("Starting in identify mode - querying every configured instrument...")

  ctx := utils.WithSigHandler(
    context.WithTimeout(
      context.Background(),
      cfg.InitialCollectionTimeout + 5 * time.Second,
    ),
  )

  found := 0

  for _, c := range cfg.Instruments {
    model, err := lookupModel(c.Model)

    if err != nil {
      log.Fatal().Err(err).Msg("Invalid instrument configuration")
    }

    h, err := model.Open(ctx, base, c)

    if err != nil {
      log.Error().
        Stringer("Instrument", c).
        Err(err).
        Msg("Failed to open instrument")
      continue
    }

    found += 1

    if id, ok := h.(identifiable); ok {
      idn := id.Identity()

      log.Info().
        Stringer("Instrument", h).
        Str("Manufacturer", idn.Manufacturer).
        Str("Model", idn.Model).
        Str("Serial", idn.Serial).
        Str("Firmware", idn.Firmware).
        Stringer("Bounds", h.Bounds()).
        Msg("Found instrument")

      entries, err := id.Errors(ctx)

      if err != nil {
        log.Error().Stringer("Instrument", h).Err(err).Msg("Failed to read error queue")
      }

      for _, e := range entries {
        log.Warn().
          Stringer("Instrument", h).
          Int("Code", e.Code).
          Str("Message", e.Message).
          Msg("Instrument error queue entry")
      }
    } else {
      log.Info().Stringer("Instrument", h).Msg("Found instrument")
    }

    if err := h.Close(); err != nil {
      log.Debug().Stringer("Instrument", h).Err(err).Msg("Error while closing instrument")
    }
  }

  log.Info().
    Int("Found", found).
    Int("Configured", len(cfg.Instruments)).
    Msg("Finished identification")
}

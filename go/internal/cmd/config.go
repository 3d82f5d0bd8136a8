package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/ghostwars/go/internal/config"
)

// loadSettings reads configuration and sets up logging.
func loadSettings(envFile string, debug bool) config.Config {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load(envFile)
	level := cfg.Level()
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Debug().
		Str("api_base_url", cfg.APIBaseURL).
		Str("transport", cfg.StreamTransport).
		Str("user_email", cfg.UserEmail).
		Msg("configuration loaded")
	return cfg
}

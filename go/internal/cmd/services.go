package main

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/ghostwars/go/clients/game_api_client"
	"github.com/mcdev12/ghostwars/go/internal/config"
	"github.com/mcdev12/ghostwars/go/internal/diagnostics"
	"github.com/mcdev12/ghostwars/go/internal/gamemap"
	"github.com/mcdev12/ghostwars/go/internal/interaction"
	"github.com/mcdev12/ghostwars/go/internal/livesync"
	"github.com/mcdev12/ghostwars/go/internal/models"
	"github.com/mcdev12/ghostwars/go/internal/session"
	"github.com/mcdev12/ghostwars/go/internal/spawn"
	"github.com/mcdev12/ghostwars/go/internal/zones"
)

type Services struct {
	Config      config.Config
	API         *game_api_client.GameApiClient
	Diagnostics *diagnostics.Log
	Session     *session.Session
	Clock       clockwork.Clock

	cache   *session.BadgerKV
	closers []func() error
}

func setupServices(cfg config.Config) (*Services, error) {
	// Wire up dependency chain
	// Diagnostics → API client → Session cache → Session

	diag := diagnostics.Init(cfg.DiagnosticsSize)

	api := game_api_client.NewGameApiClient(cfg.APIBaseURL, cfg.APIToken, diag)
	api.SetTimeout(cfg.HTTPTimeout)

	cache, err := session.OpenBadger(cfg.SessionDir)
	if err != nil {
		return nil, err
	}

	sess := session.New(session.Identity{
		UserID: cfg.UserID,
		Email:  cfg.UserEmail,
	}, cache)

	return &Services{
		Config:      cfg,
		API:         api,
		Diagnostics: diag,
		Session:     sess,
		Clock:       clockwork.NewRealClock(),
		cache:       cache,
	}, nil
}

// Transport builds the configured live update transport.
func (s *Services) Transport() (livesync.Transport, error) {
	cfg := s.Config
	switch cfg.StreamTransport {
	case config.TransportNATS:
		natsCfg := livesync.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.ReconnectWait = cfg.ReconnectWait
		t, err := livesync.DialNATS(natsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to set up NATS transport: %w", err)
		}
		s.closers = append(s.closers, t.Close)
		return t, nil
	case config.TransportWebSocket:
		wsCfg := livesync.DefaultWebSocketConfig()
		wsCfg.RetryWait = cfg.ReconnectWait
		return livesync.NewWebSocketTransport(cfg.APIBaseURL, cfg.APIToken, wsCfg, s.Clock), nil
	default:
		sseCfg := livesync.DefaultSSEConfig()
		sseCfg.RetryWait = cfg.ReconnectWait
		return livesync.NewSSETransport(cfg.APIBaseURL, cfg.APIToken, sseCfg, s.Clock), nil
	}
}

// Layout returns the configured zone layout.
func (s *Services) Layout() ([]models.Zone, error) {
	if s.Config.LayoutFile == "" {
		return zones.DefaultLayout(), nil
	}
	return zones.LoadLayoutFile(s.Config.LayoutFile)
}

// NewMap assembles a map over the configured transport.
func (s *Services) NewMap(onPrompt func(interaction.Prompt)) (*gamemap.Map, error) {
	transport, err := s.Transport()
	if err != nil {
		return nil, err
	}
	layout, err := s.Layout()
	if err != nil {
		return nil, err
	}
	mode, err := spawn.ParseMode(s.Config.SpawnEndpoint)
	if err != nil {
		return nil, err
	}

	return gamemap.New(s.API, transport, s.Session, gamemap.Options{
		Layout:    layout,
		Recorder:  s.Diagnostics,
		Clock:     s.Clock,
		SpawnMode: mode,
		Prefetch:  true,
		OnPrompt:  onPrompt,
	}), nil
}

func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn().Err(err).Msg("failed to close resource")
		}
	}
	if err := s.cache.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close session cache")
	}
}

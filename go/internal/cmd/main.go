package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
)

type CLI struct {
	EnvFile string `name:"env-file" help:"Dotenv file to load before reading the environment." default:".env" type:"path"`
	Debug   bool   `help:"Enable debug logging."`

	Zones ZonesCmd `cmd:"" help:"List map zones and how they resolved against the backend."`
	Watch WatchCmd `cmd:"" help:"Mount the map and stream entity updates until interrupted."`
	Spawn SpawnCmd `cmd:"" help:"Spawn a spirit in a zone."`
	Role  RoleCmd  `cmd:"" help:"Show or choose the player role."`
	Actor ActorCmd `cmd:"" help:"Show, set or check the owned actor."`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("ghostmap"),
		kong.Description("Headless client for the ghostwars live map."),
		kong.UsageOnError(),
	)

	cfg := loadSettings(cli.EnvFile, cli.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := setupServices(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	kctx.BindTo(ctx, (*context.Context)(nil))
	err = kctx.Run(services)
	kctx.FatalIfErrorf(err)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/ghostwars/go/internal/debugserver"
	"github.com/mcdev12/ghostwars/go/internal/models"
	"github.com/mcdev12/ghostwars/go/internal/session"
	"github.com/mcdev12/ghostwars/go/internal/spawn"
	"github.com/mcdev12/ghostwars/go/internal/viewport"
	"github.com/mcdev12/ghostwars/go/internal/zones"
)

type ZonesCmd struct {
	GeoJSON bool `name:"geojson" help:"Print zone bounds as a GeoJSON FeatureCollection."`
}

func (c *ZonesCmd) Run(ctx context.Context, s *Services) error {
	layout, err := s.Layout()
	if err != nil {
		return err
	}
	reg := zones.NewRegistry(s.API, layout, viewport.DefaultConfig().Aspect)
	reg.Load(ctx)

	if c.GeoJSON {
		data, err := reg.FeatureCollection().MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to encode zones: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tRESOLVED\tBOUNDS")
	for _, z := range reg.Zones() {
		bounds := "-"
		if z.Bounds != nil {
			bounds = fmt.Sprintf("%.5f,%.5f .. %.5f,%.5f", z.Bounds.MinLat, z.Bounds.MinLng, z.Bounds.MaxLat, z.Bounds.MaxLng)
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", z.ID, z.Name, z.Resolved, bounds)
	}
	return w.Flush()
}

type WatchCmd struct {
	Refresh time.Duration `help:"How often to retry zone resolution and reconcile channels." default:"30s"`
}

func (c *WatchCmd) Run(ctx context.Context, s *Services) error {
	m, err := s.NewMap(nil)
	if err != nil {
		return err
	}

	m.OnEntity(func(zoneID models.ZoneID, e models.Entity) {
		ev := log.Info().Str("zone_id", zoneID.String()).Str("entity_id", string(e.ID)).Str("name", e.DisplayName)
		if e.Position != nil {
			ev = ev.Float64("x", e.Position.X).Float64("y", e.Position.Y)
		}
		ev.Msg("entity visible")
	})

	if err := m.CheckActor(ctx); errors.Is(err, session.ErrStaleActor) {
		log.Warn().Msg("owned actor no longer exists, run `ghostmap actor` to choose one")
	} else if err != nil {
		log.Warn().Err(err).Msg("failed to check owned actor")
	}

	m.Mount(ctx)
	defer m.Unmount()

	g, gctx := errgroup.WithContext(ctx)

	if s.Config.DebugAddr != "" {
		srv := setupServer(s, m)
		g.Go(func() error {
			return debugserver.Run(gctx, srv)
		})
	}

	g.Go(func() error {
		ticker := s.Clock.NewTicker(c.Refresh)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.Chan():
				m.Mount(gctx)
				stats := m.ChannelStats()
				log.Info().
					Int("channels", stats.Total).
					Int("open", stats.Open).
					Int("messages", stats.Messages).
					Int("errors", stats.Errors).
					Msg("channel status")
			}
		}
	})

	return g.Wait()
}

type SpawnCmd struct {
	Zone string `arg:"" help:"Zone name or id."`
	Name string `arg:"" optional:"" help:"Spirit name (defaults to Spirit)."`
}

func (c *SpawnCmd) Run(ctx context.Context, s *Services) error {
	m, err := s.NewMap(nil)
	if err != nil {
		return err
	}
	m.Mount(ctx)
	defer m.Unmount()

	zoneID, ok := findZone(m.Zones(), c.Zone)
	if !ok {
		return fmt.Errorf("unknown zone %q", c.Zone)
	}

	e, err := m.Spawn(ctx, zoneID, c.Name)
	switch {
	case errors.Is(err, spawn.ErrStaleActor):
		return fmt.Errorf("%w: run `ghostmap role` and `ghostmap actor` to set up again", err)
	case errors.Is(err, spawn.ErrNotReady):
		return fmt.Errorf("%w: run `ghostmap actor <id>` first", err)
	case err != nil:
		return err
	}

	fmt.Printf("spawned %s (%s) in zone %s\n", e.DisplayName, e.ID, e.ZoneID)
	return nil
}

// findZone matches ref against zone ids first, then names ignoring case.
func findZone(all []models.Zone, ref string) (models.ZoneID, bool) {
	for _, z := range all {
		if z.ID.String() == ref {
			return z.ID, true
		}
	}
	for _, z := range all {
		if strings.EqualFold(z.Name, ref) {
			return z.ID, true
		}
	}
	return "", false
}

type RoleCmd struct {
	Role string `arg:"" optional:"" help:"Role to select: nightbringer or lightbringer."`
}

func (c *RoleCmd) Run(s *Services) error {
	if c.Role == "" {
		role, ok := s.Session.Role()
		if !ok {
			fmt.Println("no role selected")
			return nil
		}
		fmt.Printf("%s (can spawn: %t)\n", role, role.CanSpawn())
		return nil
	}

	role, err := session.ParseRole(c.Role)
	if err != nil {
		return err
	}
	if err := s.Session.SetRole(role); err != nil {
		return err
	}
	fmt.Printf("role set to %s\n", role)
	return nil
}

type ActorCmd struct {
	ID    string `arg:"" optional:"" help:"Owned actor id to remember."`
	Check bool   `help:"Confirm the cached actor still exists."`
	Clear bool   `help:"Forget the cached actor and role."`
}

func (c *ActorCmd) Run(ctx context.Context, s *Services) error {
	switch {
	case c.Clear:
		return s.Session.Clear()
	case c.ID != "":
		if err := s.Session.SetActorID(c.ID); err != nil {
			return err
		}
		fmt.Printf("actor set to %s\n", c.ID)
		return nil
	case c.Check:
		if err := s.Session.ValidateActor(ctx, s.API); err != nil {
			return err
		}
		fmt.Println("actor ok")
		return nil
	}

	id, ok := s.Session.ActorID()
	if !ok {
		fmt.Println("no actor cached")
		return nil
	}
	fmt.Println(id)
	return nil
}

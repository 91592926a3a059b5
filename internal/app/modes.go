package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/predictbot/internal/server"
	"github.com/alanyoungcy/predictbot/internal/server/handler"
	"github.com/alanyoungcy/predictbot/internal/server/ws"
)

// ServeMode runs the API, websocket hub, stats refresher, and archiver.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")
	return a.runService(ctx, deps)
}

// MonitorMode runs the read-only stats refresher and notifications. No
// wallet, database or HTTP surface is needed.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return deps.StatsSvc.RunLoop(ctx)
	})
	return g.Wait()
}

// FullMode runs everything serve mode does; the split exists so deployments
// can scale API replicas separately from the monitor.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")
	return a.runService(ctx, deps)
}

func (a *App) runService(ctx context.Context, deps *Dependencies) error {
	if deps.GuessSvc == nil {
		return fmt.Errorf("app: mode %q requires a wallet and database", a.cfg.Mode)
	}

	g, ctx := errgroup.WithContext(ctx)

	// Stats refresher.
	g.Go(func() error {
		return deps.StatsSvc.RunLoop(ctx)
	})

	// Archiver, when object storage is configured.
	if deps.Archiver != nil {
		retention := time.Duration(a.cfg.Game.ArchiveRetentionDays) * 24 * time.Hour
		g.Go(func() error {
			return deps.Archiver.RunLoop(ctx, a.cfg.Game.ArchiveInterval.Duration, retention)
		})
	}

	// HTTP + WebSocket API.
	if a.cfg.Server.Enabled {
		hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})

		srv := server.NewServer(
			server.Config{
				Port:        a.cfg.Server.Port,
				CORSOrigins: a.cfg.Server.CORSOrigins,
			},
			server.Handlers{
				Health:  handler.NewHealthHandler(a.healthChecks(deps)),
				Game:    handler.NewGameHandler(deps.StatsSvc, a.cfg.Chain.ChainID, a.cfg.Chain.NativeSymbol),
				Players: handler.NewPlayerHandler(deps.StatsSvc),
				Guesses: handler.NewGuessHandler(deps.GuessSvc),
				Pool:    handler.NewPoolHandler(deps.GuessSvc),
			},
			hub,
			a.logger,
		)
		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// healthChecks builds the named dependency probes for the health endpoint.
func (a *App) healthChecks(deps *Dependencies) map[string]handler.Check {
	checks := map[string]handler.Check{
		"chain": func(ctx context.Context) error {
			_, err := deps.EthClient.BlockNumber(ctx)
			return err
		},
		"redis": deps.Redis.Ping,
	}
	if deps.PG != nil {
		checks["postgres"] = func(ctx context.Context) error {
			return deps.PG.Pool().Ping(ctx)
		}
	}
	return checks
}

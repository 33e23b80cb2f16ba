package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/api"
	"trade-journal/internal/auth"
)

// sessionSweepInterval is how often expired bearer tokens are purged.
const sessionSweepInterval = time.Hour

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				app.Config.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := app.openStore()
			if err != nil {
				return err
			}
			svc, err := app.newServices(ctx)
			if err != nil {
				return err
			}

			var audit *auth.AuditLogger
			if app.Config.Auth.AuditLog {
				audit, err = auth.NewAuditLogger(auth.DefaultAuditConfig(app.Config.Auth.AuditDir))
				if err != nil {
					return err
				}
				app.onClose(func() { _ = audit.Close() })
			}
			authSvc := auth.NewService(db, db, app.Config.Auth, audit, app.Logger)
			go sweepSessions(ctx, authSvc, app)

			server := api.NewServer(app.Config.Server, api.Deps{
				Trades:          db,
				Auth:            authSvc,
				Market:          svc.market,
				Predictor:       svc.predictor,
				Summarizer:      svc.summarizer,
				Breakers:        svc.breakers,
				Calendar:        svc.calendar,
				Location:        app.Config.Location(),
				Logger:          app.Logger,
				Version:         Version,
				BulkConcurrency: app.Config.MarketData.BulkConcurrency,
			})
			return server.Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	return cmd
}

func sweepSessions(ctx context.Context, svc *auth.Service, app *App) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpired(ctx)
			if err != nil {
				app.Logger.Warn().Err(err).Msg("Session sweep failed")
				continue
			}
			if n > 0 {
				app.Logger.Debug().Int64("purged", n).Msg("Expired sessions removed")
			}
		}
	}
}

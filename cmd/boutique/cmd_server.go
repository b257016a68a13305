package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rituelsdebene/boutique/app/listeners"
	"github.com/rituelsdebene/boutique/app/routes"
	"github.com/rituelsdebene/boutique/config"
	"github.com/rituelsdebene/boutique/pkg/app"
	"github.com/rituelsdebene/boutique/pkg/router"
)

// boutique serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := config.CheckServe(); err != nil {
			return err
		}

		a, err := app.Boot(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		listeners.Register(a.Events, a.Mail)

		return a.Serve(ctx, api(routes.Deps{
			DB:        a.DB,
			Payments:  a.Stripe,
			Relay:     a.Relay,
			RelayRate: config.RelayFlatRate(),
		}))
	},
}

// boutique route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		return app.PrintRoutes(os.Stdout, api(routes.Deps{RelayRate: config.RelayFlatRate()}))
	},
}

func api(deps routes.Deps) app.RouteFunc {
	return func(r *router.Router) {
		routes.RegisterAPI(r, config.APIBasePath(), deps)
	}
}

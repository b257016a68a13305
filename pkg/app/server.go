package app

import (
	"context"

	"github.com/rituelsdebene/boutique/config"
	"github.com/rituelsdebene/boutique/internal/server"
)

// Serve listens on APP_PORT until ctx is cancelled, then shuts down
// gracefully.
func (a *Application) Serve(ctx context.Context, fns ...RouteFunc) error {
	return server.Start(ctx, ":"+config.AppPort(), Handler(fns...))
}
